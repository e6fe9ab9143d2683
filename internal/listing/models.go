package listing

import (
	"time"

	"github.com/AydinDzaki/NusaGo/internal/shared/geo"
)

type Type string

const (
	TypeDestination Type = "destination"
	TypeEvent       Type = "event"
)

func (t Type) Valid() bool {
	return t == TypeDestination || t == TypeEvent
}

// Islands is the coarse geography facet offered by the search filter.
var Islands = []string{
	"Sumatera",
	"Jawa",
	"Kalimantan",
	"Sulawesi",
	"Bali & Nusa Tenggara",
	"Maluku & Papua",
}

type Listing struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	Type        Type       `json:"type"`
	ImageURL    string     `json:"image_url"`
	Rating      float64    `json:"rating"`
	ReviewCount int        `json:"reviews_count"`
	LikeCount   int        `json:"likes_count"`
	Tags        []string   `json:"tags"`
	Coordinates *geo.Point `json:"coordinates,omitempty"`
	Price       *string    `json:"price,omitempty"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	Island      string     `json:"island,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Provisional marks a rating computed locally from an unconfirmed review.
	Provisional bool `json:"provisional,omitempty"`
}

// Counters are the aggregate fields maintained by likes and reviews.
type Counters struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviews_count"`
	LikeCount   int     `json:"likes_count"`
}

func (l Listing) Counters() Counters {
	return Counters{Rating: l.Rating, ReviewCount: l.ReviewCount, LikeCount: l.LikeCount}
}

// Draft carries the fields of a listing about to be created.
type Draft struct {
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	Type        Type       `json:"type"`
	ImageURL    string     `json:"image_url"`
	Tags        []string   `json:"tags"`
	Coordinates *geo.Point `json:"coordinates,omitempty"`
	Price       *string    `json:"price,omitempty"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	Island      string     `json:"island,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched. The optional
// columns can also be cleared by sending null.
type Patch struct {
	Name        *string             `json:"name,omitempty"`
	Location    *string             `json:"location,omitempty"`
	Description *string             `json:"description,omitempty"`
	Type        *Type               `json:"type,omitempty"`
	ImageURL    *string             `json:"image_url,omitempty"`
	Tags        *[]string           `json:"tags,omitempty"`
	Coordinates Nullable[geo.Point] `json:"coordinates,omitzero"`
	Price       Nullable[string]    `json:"price,omitzero"`
	EventDate   Nullable[time.Time] `json:"event_date,omitzero"`
	Island      *string             `json:"island,omitempty"`
}
