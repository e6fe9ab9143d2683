package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
)

var errSave = errors.New("save failed")

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}

func TestSaveObject(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", "https://cdn.example/listing_image/x.jpg", "listing_image").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := NewService(mock, "https://cdn.example").SaveObject(context.Background(), "user-1", "https://cdn.example/listing_image/x.jpg", KindListingImage)
	if err != nil || id == "" {
		t.Fatalf("save object: %v", err)
	}
}

func TestSaveAvatarUpdatesProfile(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", "https://cdn.example/a.png", "avatar").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE users SET avatar_url`).
		WithArgs("user-1", "https://cdn.example/a.png").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if _, err := NewService(mock, "https://cdn.example").SaveObject(context.Background(), "user-1", "https://cdn.example/a.png", KindAvatar); err != nil {
		t.Fatalf("save avatar: %v", err)
	}
}

func TestSaveObjectError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", "u", "avatar").
		WillReturnError(errSave)

	svc := NewService(mock, "")
	if _, err := svc.SaveObject(context.Background(), "user-1", "u", KindAvatar); !errors.Is(err, errSave) {
		t.Fatalf("expected save error, got %v", err)
	}
	if _, err := svc.SaveObject(context.Background(), "user-1", "u", Kind("video")); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestObjectKeyAndURL(t *testing.T) {
	key := ObjectKey(KindAvatar, "user-1", `..\..\etc/passwd`)
	if !strings.HasPrefix(key, "avatar/user-1/") || !strings.HasSuffix(key, "-passwd") || strings.Contains(key, "..") {
		t.Fatalf("unexpected key %q", key)
	}
	if key := ObjectKey(KindListingImage, "u", ""); !strings.HasSuffix(key, "-upload") {
		t.Fatalf("expected default file name, got %q", key)
	}
	svc := NewService(nil, "https://cdn.example/")
	if got := svc.ObjectURL("a/b"); got != "https://cdn.example/a/b" {
		t.Fatalf("unexpected url %q", got)
	}
}
