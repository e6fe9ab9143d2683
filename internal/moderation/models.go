package moderation

import (
	"encoding/json"
	"time"

	"github.com/AydinDzaki/NusaGo/internal/listing"
)

type Type string

const (
	TypeAdd    Type = "add"
	TypeEdit   Type = "edit"
	TypeDelete Type = "delete"
)

func (t Type) Valid() bool {
	return t == TypeAdd || t == TypeEdit || t == TypeDelete
}

// targetsListing reports whether submissions of this type name an existing listing.
func (t Type) targetsListing() bool {
	return t == TypeEdit || t == TypeDelete
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Payload is the proposed change carried by a submission. Exactly one
// variant exists per Type.
type Payload interface {
	Kind() Type
}

// AddPayload is a complete listing draft.
type AddPayload struct {
	listing.Draft
}

func (AddPayload) Kind() Type { return TypeAdd }

// EditPayload carries only the fields to change.
type EditPayload struct {
	listing.Patch
}

func (EditPayload) Kind() Type { return TypeEdit }

type DeletePayload struct{}

func (DeletePayload) Kind() Type { return TypeDelete }

type Submission struct {
	ID            string     `json:"id"`
	SubmittedBy   string     `json:"submitted_by"`
	Type          Type       `json:"type"`
	Status        Status     `json:"status"`
	DestinationID string     `json:"destination_id,omitempty"`
	Payload       Payload    `json:"payload"`
	CreatedAt     time.Time  `json:"created_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	ReviewNotes   string     `json:"review_notes,omitempty"`
}

// ApplyResult is the outcome of an approval. Listing is the created or
// edited listing and nil for deletions.
type ApplyResult struct {
	Submission Submission       `json:"submission"`
	Listing    *listing.Listing `json:"listing,omitempty"`
}

type CreateRequest struct {
	Type          Type            `json:"type"`
	DestinationID string          `json:"destination_id"`
	Payload       json.RawMessage `json:"payload"`
}

type ReviewRequest struct {
	Notes string `json:"notes"`
}
