package moderation

import (
	"fmt"
	"time"

	"github.com/AydinDzaki/NusaGo/internal/auth"

	"github.com/google/uuid"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusRejected},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NewSubmission builds a pending submission after checking the author's
// role and the pairing of type, payload and destination.
func NewSubmission(author auth.Actor, t Type, p Payload, destinationID string, now time.Time) (Submission, error) {
	if !author.CanPropose() {
		return Submission{}, ErrForbidden
	}
	if !t.Valid() {
		return Submission{}, fmt.Errorf("%w: unknown type %q", ErrInvalidSubmissionShape, t)
	}
	if p == nil || p.Kind() != t {
		return Submission{}, fmt.Errorf("%w: payload does not match type %s", ErrInvalidSubmissionShape, t)
	}
	if t.targetsListing() && destinationID == "" {
		return Submission{}, fmt.Errorf("%w: %s requires a destination", ErrInvalidSubmissionShape, t)
	}
	if !t.targetsListing() && destinationID != "" {
		return Submission{}, fmt.Errorf("%w: add must not carry a destination", ErrInvalidSubmissionShape)
	}

	return Submission{
		ID:            uuid.NewString(),
		SubmittedBy:   author.ID,
		Type:          t,
		Status:        StatusPending,
		DestinationID: destinationID,
		Payload:       p,
		CreatedAt:     now,
	}, nil
}

func (s Submission) Approve(reviewer auth.Actor, notes string, now time.Time) (Submission, error) {
	return s.resolve(StatusApproved, reviewer, notes, now)
}

func (s Submission) Reject(reviewer auth.Actor, notes string, now time.Time) (Submission, error) {
	return s.resolve(StatusRejected, reviewer, notes, now)
}

func (s Submission) resolve(to Status, reviewer auth.Actor, notes string, now time.Time) (Submission, error) {
	if !reviewer.IsAdmin() {
		return Submission{}, ErrForbidden
	}
	if !CanTransition(s.Status, to) {
		return Submission{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, s.Status, to)
	}
	s.Status = to
	s.ReviewedAt = &now
	s.ReviewedBy = reviewer.ID
	s.ReviewNotes = notes
	return s, nil
}

func ListPending(subs []Submission) []Submission {
	out := []Submission{}
	for _, s := range subs {
		if s.Status == StatusPending {
			out = append(out, s)
		}
	}
	return out
}

func ListReviewed(subs []Submission) []Submission {
	out := []Submission{}
	for _, s := range subs {
		if s.Status != StatusPending {
			out = append(out, s)
		}
	}
	return out
}

// VisibleTo filters subs down to what actor may see: everything for an
// admin, their own for an event organizer, nothing otherwise.
func VisibleTo(actor auth.Actor, subs []Submission) []Submission {
	out := []Submission{}
	switch {
	case actor.IsAdmin():
		out = append(out, subs...)
	case actor.CanPropose():
		for _, s := range subs {
			if s.SubmittedBy == actor.ID {
				out = append(out, s)
			}
		}
	}
	return out
}
