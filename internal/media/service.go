package media

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/AydinDzaki/NusaGo/internal/db"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Kind string

const (
	KindListingImage Kind = "listing_image"
	KindAvatar       Kind = "avatar"
)

func (k Kind) Valid() bool {
	return k == KindListingImage || k == KindAvatar
}

const uploadTTL = 15 * time.Minute

var ErrInvalidKind = errors.New("kind must be listing_image or avatar")

type Object struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      Kind      `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	db        db.Querier
	publicURL string
}

func NewService(db db.Querier, publicURL string) *Service {
	return &Service{db: db, publicURL: strings.TrimRight(publicURL, "/")}
}

// ObjectURL is the public address of the object stored under key.
func (s *Service) ObjectURL(key string) string {
	return s.publicURL + "/" + key
}

// ObjectKey places a file under its kind and owner with a unique prefix.
func ObjectKey(kind Kind, ownerID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return string(kind) + "/" + ownerID + "/" + uuid.NewString() + "-" + name
}

// SaveObject records an uploaded object. Avatars also become the owner's
// profile picture.
func (s *Service) SaveObject(ctx context.Context, ownerID, url string, kind Kind) (string, error) {
	if !kind.Valid() {
		return "", ErrInvalidKind
	}
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, ownerID, url, string(kind))
	if err != nil {
		return "", err
	}

	if kind == KindAvatar {
		if _, err := s.db.Exec(ctx, `UPDATE users SET avatar_url=$2, updated_at=now() WHERE id=$1`, ownerID, url); err != nil {
			return "", err
		}
	}
	log.WithFields(log.Fields{"object_id": id, "kind": kind, "user_id": ownerID}).Debug("object recorded")
	return id, nil
}

// Upload reserves a public URL for fileName and records it.
func (s *Service) Upload(ctx context.Context, ownerID, fileName string, kind Kind) (Object, error) {
	if !kind.Valid() {
		return Object{}, ErrInvalidKind
	}
	url := s.ObjectURL(ObjectKey(kind, ownerID, fileName))
	id, err := s.SaveObject(ctx, ownerID, url, kind)
	if err != nil {
		return Object{}, err
	}
	return Object{ID: id, URL: url, Kind: kind, ExpiresAt: time.Now().Add(uploadTTL)}, nil
}
