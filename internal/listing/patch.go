package listing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("listing not found")
	ErrInvalid  = errors.New("invalid listing")
)

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalid)
	}
	if !d.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, d.Type)
	}
	if d.Coordinates != nil && !d.Coordinates.Valid() {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalid)
	}
	return nil
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Location == nil && p.Description == nil && p.Type == nil &&
		p.ImageURL == nil && p.Tags == nil && !p.Coordinates.Set && !p.Price.Set &&
		!p.EventDate.Set && p.Island == nil
}

func (p Patch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name cannot be blank", ErrInvalid)
	}
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, *p.Type)
	}
	if p.Coordinates.Value != nil && !p.Coordinates.Value.Valid() {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalid)
	}
	return nil
}

// ApplyTo merges the present fields of p into l.
func (p Patch) ApplyTo(l Listing) Listing {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Type != nil {
		l.Type = *p.Type
	}
	if p.ImageURL != nil {
		l.ImageURL = *p.ImageURL
	}
	if p.Tags != nil {
		l.Tags = append([]string(nil), (*p.Tags)...)
	}
	l.Coordinates = p.Coordinates.apply(l.Coordinates)
	l.Price = p.Price.apply(l.Price)
	l.EventDate = p.EventDate.apply(l.EventDate)
	if p.Island != nil {
		l.Island = *p.Island
	}
	return l
}

// Listing builds the record a draft becomes once stored.
func (d Draft) Listing(id, createdBy string) Listing {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return Listing{
		ID:          id,
		Name:        d.Name,
		Location:    d.Location,
		Description: d.Description,
		Type:        d.Type,
		ImageURL:    d.ImageURL,
		Tags:        tags,
		Coordinates: d.Coordinates,
		Price:       d.Price,
		EventDate:   d.EventDate,
		Island:      d.Island,
		CreatedBy:   createdBy,
	}
}
