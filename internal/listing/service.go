package listing

import (
	"context"

	"github.com/AydinDzaki/NusaGo/internal/db"
	"github.com/AydinDzaki/NusaGo/internal/shared/geo"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

const selectListing = `
		SELECT id, name, COALESCE(location,''), COALESCE(description,''), type, COALESCE(image_url,''),
		       COALESCE(rating,0), COALESCE(reviews_count,0), COALESCE(likes_count,0), COALESCE(tags,'{}'),
		       lat, lng, price, event_date, COALESCE(island,''), COALESCE(created_by::text,''), created_at, updated_at
		FROM listings`

// Service is the listing store. Every successful mutation is published on
// the change feed when a publisher is set.
type Service struct {
	db  db.Querier
	pub Publisher
}

func NewService(db db.Querier, pub Publisher) *Service {
	return &Service{db: db, pub: pub}
}

func (s *Service) FetchAll(ctx context.Context) ([]Listing, error) {
	rows, err := s.db.Query(ctx, selectListing+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *Service) FetchByID(ctx context.Context, id string) (Listing, error) {
	l, err := scanListing(s.db.QueryRow(ctx, selectListing+` WHERE id=$1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, err
	}
	return l, nil
}

// CreateListing inserts d under id. Creating an id that already exists
// returns the stored listing unchanged, so a caller retrying with the same
// id gets the row its first attempt wrote.
func (s *Service) CreateListing(ctx context.Context, id string, d Draft, createdBy string) (Listing, error) {
	if err := d.Validate(); err != nil {
		return Listing{}, err
	}
	l := d.Listing(id, createdBy)
	lat, lng := coordArgs(l.Coordinates)

	row := s.db.QueryRow(ctx, `
		INSERT INTO listings (id, name, location, description, type, image_url, tags, lat, lng, price, event_date, island, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''),NULLIF($13,'')::uuid)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at
	`, l.ID, l.Name, l.Location, l.Description, string(l.Type), l.ImageURL, l.Tags, lat, lng, l.Price, l.EventDate, l.Island, l.CreatedBy)
	if err := row.Scan(&l.CreatedAt, &l.UpdatedAt); err != nil {
		if db.IsNoRows(err) {
			log.WithField("listing_id", id).Info("listing already exists")
			return s.FetchByID(ctx, id)
		}
		return Listing{}, err
	}

	log.WithFields(log.Fields{"listing_id": l.ID, "created_by": createdBy}).Info("listing created")
	Publish(s.pub, Change{Op: OpUpsert, ID: l.ID, Listing: &l})
	return l, nil
}

// PatchListing reads the persisted listing, merges p into it and writes the
// result back, so fields absent from p keep their stored values.
func (s *Service) PatchListing(ctx context.Context, id string, p Patch) (Listing, error) {
	if err := p.Validate(); err != nil {
		return Listing{}, err
	}
	current, err := s.FetchByID(ctx, id)
	if err != nil {
		return Listing{}, err
	}
	l := p.ApplyTo(current)
	lat, lng := coordArgs(l.Coordinates)

	err = s.db.QueryRow(ctx, `
		UPDATE listings
		SET name=$2, location=$3, description=$4, type=$5, image_url=$6, tags=$7,
		    lat=$8, lng=$9, price=$10, event_date=$11, island=NULLIF($12,''), updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, l.ID, l.Name, l.Location, l.Description, string(l.Type), l.ImageURL, l.Tags, lat, lng, l.Price, l.EventDate, l.Island).Scan(&l.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, err
	}

	Publish(s.pub, Change{Op: OpUpsert, ID: l.ID, Listing: &l})
	return l, nil
}

func (s *Service) DeleteListing(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM listings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	log.WithField("listing_id", id).Info("listing deleted")
	Publish(s.pub, Change{Op: OpDelete, ID: id})
	return nil
}

func scanListing(row pgx.Row) (Listing, error) {
	var (
		l        Listing
		typ      string
		lat, lng *float64
	)
	err := row.Scan(&l.ID, &l.Name, &l.Location, &l.Description, &typ, &l.ImageURL,
		&l.Rating, &l.ReviewCount, &l.LikeCount, &l.Tags,
		&lat, &lng, &l.Price, &l.EventDate, &l.Island, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Listing{}, err
	}
	l.Type = Type(typ)
	if lat != nil && lng != nil {
		l.Coordinates = &geo.Point{Lat: *lat, Lng: *lng}
	}
	return l, nil
}

func coordArgs(p *geo.Point) (*float64, *float64) {
	if p == nil {
		return nil, nil
	}
	lat, lng := p.Lat, p.Lng
	return &lat, &lng
}
