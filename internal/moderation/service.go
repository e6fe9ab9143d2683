package moderation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AydinDzaki/NusaGo/internal/auth"
	"github.com/AydinDzaki/NusaGo/internal/db"
	"github.com/AydinDzaki/NusaGo/internal/listing"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// ListingStore is the part of the listing store an approval mutates.
type ListingStore interface {
	FetchByID(ctx context.Context, id string) (listing.Listing, error)
	CreateListing(ctx context.Context, id string, d listing.Draft, createdBy string) (listing.Listing, error)
	PatchListing(ctx context.Context, id string, p listing.Patch) (listing.Listing, error)
	DeleteListing(ctx context.Context, id string) error
}

const selectSubmission = `
		SELECT id, submitted_by::text, type, status, COALESCE(destination_id,''), data,
		       created_at, reviewed_at, COALESCE(reviewed_by::text,''), COALESCE(review_notes,'')
		FROM submissions`

var nowFn = time.Now

type Service struct {
	db       db.Querier
	listings ListingStore
}

func NewService(db db.Querier, listings ListingStore) *Service {
	return &Service{db: db, listings: listings}
}

// Create validates and stores a new pending submission. Edit and delete
// proposals must name a listing that exists when they are filed.
func (s *Service) Create(ctx context.Context, author auth.Actor, req CreateRequest) (Submission, error) {
	if !author.CanPropose() {
		return Submission{}, ErrForbidden
	}
	payload, err := DecodePayload(req.Type, req.Payload)
	if err != nil {
		return Submission{}, err
	}
	sub, err := NewSubmission(author, req.Type, payload, req.DestinationID, nowFn())
	if err != nil {
		return Submission{}, err
	}
	if sub.Type.targetsListing() {
		if _, err := s.listings.FetchByID(ctx, sub.DestinationID); err != nil {
			if errors.Is(err, listing.ErrNotFound) {
				return Submission{}, fmt.Errorf("%w: destination %s does not exist", ErrInvalidSubmissionShape, sub.DestinationID)
			}
			return Submission{}, err
		}
	}

	data, err := encodePayload(sub.Payload)
	if err != nil {
		return Submission{}, err
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO submissions (id, submitted_by, type, status, destination_id, data)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6)
		RETURNING created_at
	`, sub.ID, sub.SubmittedBy, string(sub.Type), string(sub.Status), sub.DestinationID, data).Scan(&sub.CreatedAt)
	if err != nil {
		return Submission{}, err
	}

	log.WithFields(log.Fields{"submission_id": sub.ID, "type": sub.Type, "submitted_by": sub.SubmittedBy}).Info("submission created")
	return sub, nil
}

// Approve applies the submission's listing mutation and, once the listing
// store has acknowledged it, marks the submission approved. The pending
// check is repeated in the UPDATE so a concurrent resolution is reported
// as an invalid transition.
func (s *Service) Approve(ctx context.Context, reviewer auth.Actor, id, notes string) (ApplyResult, error) {
	if !reviewer.IsAdmin() {
		return ApplyResult{}, ErrForbidden
	}
	sub, err := s.fetch(ctx, id)
	if err != nil {
		return ApplyResult{}, err
	}
	approved, err := sub.Approve(reviewer, notes, nowFn())
	if err != nil {
		return ApplyResult{}, err
	}

	applied, err := s.apply(ctx, sub)
	if err != nil {
		log.WithError(err).WithField("submission_id", sub.ID).Warn("submission apply failed")
		return ApplyResult{}, &ApplyFailedError{SubmissionID: sub.ID, Err: err}
	}

	if err := s.markResolved(ctx, approved); err != nil {
		return ApplyResult{}, err
	}
	log.WithFields(log.Fields{"submission_id": sub.ID, "reviewed_by": reviewer.ID}).Info("submission approved")
	return ApplyResult{Submission: approved, Listing: applied}, nil
}

func (s *Service) Reject(ctx context.Context, reviewer auth.Actor, id, notes string) (Submission, error) {
	if !reviewer.IsAdmin() {
		return Submission{}, ErrForbidden
	}
	sub, err := s.fetch(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	rejected, err := sub.Reject(reviewer, notes, nowFn())
	if err != nil {
		return Submission{}, err
	}
	if err := s.markResolved(ctx, rejected); err != nil {
		return Submission{}, err
	}
	log.WithFields(log.Fields{"submission_id": sub.ID, "reviewed_by": reviewer.ID}).Info("submission rejected")
	return rejected, nil
}

// Get returns the submission if actor may see it.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Submission, error) {
	if !actor.CanPropose() {
		return Submission{}, ErrForbidden
	}
	sub, err := s.fetch(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if len(VisibleTo(actor, []Submission{sub})) == 0 {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

// List returns the submissions visible to actor, newest first, optionally
// narrowed to one status.
func (s *Service) List(ctx context.Context, actor auth.Actor, status Status) ([]Submission, error) {
	if !actor.CanPropose() {
		return nil, ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var (
		where []string
		args  []any
	)
	if !actor.IsAdmin() {
		args = append(args, actor.ID)
		where = append(where, "submitted_by=$"+strconv.Itoa(len(args)))
	}
	if status != "" {
		args = append(args, string(status))
		where = append(where, "status=$"+strconv.Itoa(len(args)))
	}
	query := selectSubmission
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// apply performs the submission's listing mutation. Repeating it after a
// failed status update leaves the listing as the first attempt did: an
// added listing takes the submission's id, and deleting a listing that is
// already gone counts as done.
func (s *Service) apply(ctx context.Context, sub Submission) (*listing.Listing, error) {
	switch p := sub.Payload.(type) {
	case AddPayload:
		l, err := s.listings.CreateListing(ctx, sub.ID, p.Draft, sub.SubmittedBy)
		if err != nil {
			return nil, err
		}
		return &l, nil
	case EditPayload:
		l, err := s.listings.PatchListing(ctx, sub.DestinationID, p.Patch)
		if err != nil {
			return nil, err
		}
		return &l, nil
	case DeletePayload:
		if err := s.listings.DeleteListing(ctx, sub.DestinationID); err != nil && !errors.Is(err, listing.ErrNotFound) {
			return nil, err
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: no payload", ErrInvalidSubmissionShape)
	}
}

func (s *Service) markResolved(ctx context.Context, sub Submission) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE submissions
		SET status=$2, reviewed_at=$3, reviewed_by=$4, review_notes=NULLIF($5,'')
		WHERE id=$1 AND status='pending'
	`, sub.ID, string(sub.Status), *sub.ReviewedAt, sub.ReviewedBy, sub.ReviewNotes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: submission %s already resolved", ErrInvalidStateTransition, sub.ID)
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, id string) (Submission, error) {
	sub, err := scanSubmission(s.db.QueryRow(ctx, selectSubmission+` WHERE id=$1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	return sub, nil
}

func scanSubmission(row pgx.Row) (Submission, error) {
	var (
		sub         Submission
		typ, status string
		data        []byte
	)
	err := row.Scan(&sub.ID, &sub.SubmittedBy, &typ, &status, &sub.DestinationID, &data,
		&sub.CreatedAt, &sub.ReviewedAt, &sub.ReviewedBy, &sub.ReviewNotes)
	if err != nil {
		return Submission{}, err
	}
	sub.Type = Type(typ)
	sub.Status = Status(status)
	sub.Payload, err = DecodePayload(sub.Type, data)
	if err != nil {
		return Submission{}, fmt.Errorf("submission %s: %w", sub.ID, err)
	}
	return sub, nil
}
