package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/AydinDzaki/NusaGo/internal/db"
	"github.com/AydinDzaki/NusaGo/internal/listing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrReviewNotFound  = errors.New("review not found")
	ErrEmptyIdentifier = errors.New("listing and user required")
)

// Projection receives optimistic patches and hands back their undo.
type Projection interface {
	Apply(ch listing.Change) (rollback func())
}

const countersReturning = `RETURNING COALESCE(rating,0), COALESCE(reviews_count,0), COALESCE(likes_count,0)`

// Service runs the counter commands. Each command patches the projection
// before the store is written and undoes the patch if the write fails;
// the canonical counters are published once the store has them.
type Service struct {
	db   db.Querier
	proj Projection
	pub  listing.Publisher
}

func NewService(db db.Querier, proj Projection, pub listing.Publisher) *Service {
	return &Service{db: db, proj: proj, pub: pub}
}

// Like records userID's like. Liking twice changes nothing.
func (s *Service) Like(ctx context.Context, userID, listingID string) (LikeResult, error) {
	if userID == "" || listingID == "" {
		return LikeResult{}, ErrEmptyIdentifier
	}
	rollback := s.apply(listing.Change{Op: listing.OpLike, ID: listingID, LikeDelta: 1})

	tag, err := s.db.Exec(ctx, `
		INSERT INTO likes (user_id, listing_id)
		VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, userID, listingID)
	if err != nil {
		rollback()
		return LikeResult{}, storeError(err)
	}

	var counters listing.Counters
	if tag.RowsAffected() == 0 {
		rollback()
		counters, err = s.readCounters(ctx, listingID)
	} else {
		counters, err = s.adjustLikes(ctx, listingID, 1)
		if err != nil {
			rollback()
		}
	}
	if err != nil {
		return LikeResult{}, err
	}

	s.settle(listingID, counters)
	return LikeResult{Liked: true, Counters: counters}, nil
}

// Unlike removes userID's like if there is one.
func (s *Service) Unlike(ctx context.Context, userID, listingID string) (LikeResult, error) {
	if userID == "" || listingID == "" {
		return LikeResult{}, ErrEmptyIdentifier
	}
	rollback := s.apply(listing.Change{Op: listing.OpLike, ID: listingID, LikeDelta: -1})

	tag, err := s.db.Exec(ctx, `DELETE FROM likes WHERE user_id=$1 AND listing_id=$2`, userID, listingID)
	if err != nil {
		rollback()
		return LikeResult{}, err
	}

	var counters listing.Counters
	if tag.RowsAffected() == 0 {
		rollback()
		counters, err = s.readCounters(ctx, listingID)
	} else {
		counters, err = s.adjustLikes(ctx, listingID, -1)
		if err != nil {
			rollback()
		}
	}
	if err != nil {
		return LikeResult{}, err
	}

	s.settle(listingID, counters)
	return LikeResult{Liked: false, Counters: counters}, nil
}

// Favorites lists the ids of the listings userID liked, most recent first.
func (s *Service) Favorites(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT listing_id::text FROM likes
		WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddReview stores a review and recomputes the listing's mean rating and
// review count in the store. Until the recomputed counters arrive the
// projection shows a provisional mean. A failed recompute leaves the
// review stored and the rating provisional.
func (s *Service) AddReview(ctx context.Context, listingID, userID string, req ReviewRequest) (Review, error) {
	if userID == "" || listingID == "" {
		return Review{}, ErrEmptyIdentifier
	}
	if req.Rating < 1 || req.Rating > 5 {
		return Review{}, ErrInvalidRating
	}
	rollback := s.apply(listing.Change{Op: listing.OpReview, ID: listingID, Rating: req.Rating})

	review := Review{
		ID:        uuid.NewString(),
		ListingID: listingID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO reviews (id, listing_id, user_id, rating, comment)
		VALUES ($1,$2,$3,$4,NULLIF($5,''))
		RETURNING created_at
	`, review.ID, review.ListingID, review.UserID, review.Rating, review.Comment).Scan(&review.CreatedAt)
	if err != nil {
		rollback()
		return Review{}, storeError(err)
	}

	counters, err := s.recomputeRating(ctx, listingID)
	if err != nil {
		log.WithError(err).WithField("listing_id", listingID).Warn("rating recompute failed, projection stays provisional")
		return review, nil
	}
	s.settle(listingID, counters)
	return review, nil
}

// Reviews lists a listing's reviews newest first with their author's name.
func (s *Service) Reviews(ctx context.Context, listingID string) ([]Review, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.listing_id::text, r.user_id::text, COALESCE(u.name,''), r.rating, COALESCE(r.comment,''), r.helpful_count, r.created_at
		FROM reviews r LEFT JOIN users u ON u.id = r.user_id
		WHERE r.listing_id=$1
		ORDER BY r.created_at DESC
	`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.ListingID, &r.UserID, &r.UserName, &r.Rating, &r.Comment, &r.HelpfulCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ToggleHelpful flips userID's helpful vote on a review.
func (s *Service) ToggleHelpful(ctx context.Context, reviewID, userID string) (HelpfulResult, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM review_helpful WHERE review_id=$1 AND user_id=$2`, reviewID, userID)
	if err != nil {
		return HelpfulResult{}, err
	}

	delta := -1
	if tag.RowsAffected() == 0 {
		delta = 1
		_, err = s.db.Exec(ctx, `INSERT INTO review_helpful (review_id, user_id) VALUES ($1,$2)`, reviewID, userID)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return HelpfulResult{}, ErrReviewNotFound
			}
			return HelpfulResult{}, err
		}
	}

	res := HelpfulResult{Helpful: delta > 0}
	err = s.db.QueryRow(ctx, `
		UPDATE reviews SET helpful_count = GREATEST(helpful_count + $2, 0)
		WHERE id=$1
		RETURNING helpful_count
	`, reviewID, delta).Scan(&res.HelpfulCount)
	if err != nil {
		if db.IsNoRows(err) {
			return HelpfulResult{}, ErrReviewNotFound
		}
		return HelpfulResult{}, err
	}
	return res, nil
}

func (s *Service) adjustLikes(ctx context.Context, listingID string, delta int) (listing.Counters, error) {
	return s.scanCounters(s.db.QueryRow(ctx, `
		UPDATE listings SET likes_count = GREATEST(COALESCE(likes_count,0) + $2, 0)
		WHERE id=$1
		`+countersReturning, listingID, delta))
}

func (s *Service) readCounters(ctx context.Context, listingID string) (listing.Counters, error) {
	return s.scanCounters(s.db.QueryRow(ctx, `
		SELECT COALESCE(rating,0), COALESCE(reviews_count,0), COALESCE(likes_count,0)
		FROM listings WHERE id=$1
	`, listingID))
}

func (s *Service) recomputeRating(ctx context.Context, listingID string) (listing.Counters, error) {
	return s.scanCounters(s.db.QueryRow(ctx, `
		UPDATE listings
		SET rating = agg.avg, reviews_count = agg.cnt
		FROM (
			SELECT COALESCE(ROUND(AVG(rating)::numeric, 1), 0)::float8 AS avg, COUNT(*)::int AS cnt
			FROM reviews WHERE listing_id=$1
		) agg
		WHERE id=$1
		`+countersReturning, listingID))
}

func (s *Service) scanCounters(row interface{ Scan(...any) error }) (listing.Counters, error) {
	var c listing.Counters
	if err := row.Scan(&c.Rating, &c.ReviewCount, &c.LikeCount); err != nil {
		if db.IsNoRows(err) {
			return listing.Counters{}, listing.ErrNotFound
		}
		return listing.Counters{}, err
	}
	return c, nil
}

func (s *Service) apply(ch listing.Change) func() {
	if s.proj == nil {
		return func() {}
	}
	return s.proj.Apply(ch)
}

// settle replaces any optimistic state with the store's counters and
// publishes them to the other instances.
func (s *Service) settle(listingID string, counters listing.Counters) {
	ch := listing.Change{Op: listing.OpCounters, ID: listingID, Counters: &counters}
	s.apply(ch)
	listing.Publish(s.pub, ch)
}

func storeError(err error) error {
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", listing.ErrNotFound, err)
	}
	return err
}
