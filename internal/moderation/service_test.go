package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AydinDzaki/NusaGo/internal/listing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var submissionCols = []string{
	"id", "submitted_by", "type", "status", "destination_id", "data",
	"created_at", "reviewed_at", "reviewed_by", "review_notes",
}

// fakeListings is an in-memory listing store.
type fakeListings struct {
	byID    map[string]listing.Listing
	failErr error
	calls   []string
}

func newFakeListings(ls ...listing.Listing) *fakeListings {
	f := &fakeListings{byID: map[string]listing.Listing{}}
	for _, l := range ls {
		f.byID[l.ID] = l
	}
	return f
}

func (f *fakeListings) FetchByID(_ context.Context, id string) (listing.Listing, error) {
	l, ok := f.byID[id]
	if !ok {
		return listing.Listing{}, listing.ErrNotFound
	}
	return l, nil
}

func (f *fakeListings) CreateListing(_ context.Context, id string, d listing.Draft, createdBy string) (listing.Listing, error) {
	f.calls = append(f.calls, "create")
	if f.failErr != nil {
		return listing.Listing{}, f.failErr
	}
	if existing, ok := f.byID[id]; ok {
		return existing, nil
	}
	l := d.Listing(id, createdBy)
	f.byID[l.ID] = l
	return l, nil
}

func (f *fakeListings) PatchListing(_ context.Context, id string, p listing.Patch) (listing.Listing, error) {
	f.calls = append(f.calls, "patch")
	current, ok := f.byID[id]
	if !ok {
		return listing.Listing{}, listing.ErrNotFound
	}
	l := p.ApplyTo(current)
	f.byID[id] = l
	return l, nil
}

func (f *fakeListings) DeleteListing(_ context.Context, id string) error {
	f.calls = append(f.calls, "delete")
	if _, ok := f.byID[id]; !ok {
		return listing.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}

func submissionRows(id, by string, typ Type, status Status, dest, data string) *pgxmock.Rows {
	return pgxmock.NewRows(submissionCols).
		AddRow(id, by, string(typ), string(status), dest, []byte(data), time.Now(), nil, "", "")
}

func expectFetch(mock pgxmock.PgxPoolIface, rows *pgxmock.Rows) {
	mock.ExpectQuery(`FROM submissions WHERE id=\$1`).WithArgs("sub-1").WillReturnRows(rows)
}

func TestCreateStoresPendingEdit(t *testing.T) {
	mock := newMock(t)
	created := time.Now()
	mock.ExpectQuery(`INSERT INTO submissions`).
		WithArgs(pgxmock.AnyArg(), "eo-1", "edit", "pending", "dest-1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	svc := NewService(mock, newFakeListings(listing.Listing{ID: "dest-1", Name: "Old"}))
	sub, err := svc.Create(context.Background(), organizer, CreateRequest{
		Type:          TypeEdit,
		DestinationID: "dest-1",
		Payload:       []byte(`{"name":"X"}`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Status != StatusPending || sub.DestinationID != "dest-1" || !sub.CreatedAt.Equal(created) {
		t.Fatalf("unexpected submission: %+v", sub)
	}
}

func TestCreateRejectsBadShapes(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, newFakeListings())

	cases := []CreateRequest{
		{Type: TypeAdd, DestinationID: "abc", Payload: []byte(`{"name":"Kuta","type":"destination"}`)},
		{Type: TypeDelete, Payload: []byte(`{}`)},
		{Type: TypeEdit, DestinationID: "missing", Payload: []byte(`{"name":"X"}`)},
	}
	for _, req := range cases {
		if _, err := svc.Create(context.Background(), organizer, req); !errors.Is(err, ErrInvalidSubmissionShape) {
			t.Fatalf("%+v: expected ErrInvalidSubmissionShape, got %v", req, err)
		}
	}
	if _, err := svc.Create(context.Background(), plainUser, cases[1]); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for plain user, got %v", err)
	}
}

func TestApproveEditMergesOnlyPresentFields(t *testing.T) {
	mock := newMock(t)
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeEdit, StatusPending, "dest-1", `{"name":"New Name"}`))
	mock.ExpectExec(`WHERE id=\$1 AND status='pending'`).
		WithArgs("sub-1", "approved", pgxmock.AnyArg(), "admin-1", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	price := "25000"
	original := listing.Listing{
		ID: "dest-1", Name: "Old", Location: "Bali", Description: "desc", Type: listing.TypeEvent,
		Rating: 4.5, ReviewCount: 2, LikeCount: 7, Tags: []string{"a"}, Price: &price, Island: "Jawa",
	}
	store := newFakeListings(original)
	svc := NewService(mock, store)

	res, err := svc.Approve(context.Background(), admin, "sub-1", "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Submission.Status != StatusApproved || res.Submission.ReviewedBy != "admin-1" || res.Submission.ReviewedAt == nil {
		t.Fatalf("unexpected submission: %+v", res.Submission)
	}
	got := store.byID["dest-1"]
	if got.Name != "New Name" {
		t.Fatalf("expected name changed, got %q", got.Name)
	}
	if got.Location != original.Location || got.Description != original.Description || got.Type != original.Type ||
		got.Rating != original.Rating || got.ReviewCount != original.ReviewCount || got.LikeCount != original.LikeCount ||
		got.Price != original.Price || got.Island != original.Island || len(got.Tags) != 1 {
		t.Fatalf("edit touched fields absent from payload: %+v", got)
	}
	if res.Listing == nil || res.Listing.Name != "New Name" {
		t.Fatalf("expected applied listing in result")
	}
}

func TestApproveAddAttributesAuthor(t *testing.T) {
	mock := newMock(t)
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeAdd, StatusPending, "", `{"name":"Festival","type":"event","tags":["budaya"]}`))
	mock.ExpectExec(`UPDATE submissions`).
		WithArgs("sub-1", "approved", pgxmock.AnyArg(), "admin-1", "ok").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := newFakeListings()
	res, err := NewService(mock, store).Approve(context.Background(), admin, "sub-1", "ok")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Listing == nil || res.Listing.CreatedBy != "eo-1" || res.Listing.Type != listing.TypeEvent {
		t.Fatalf("unexpected created listing: %+v", res.Listing)
	}
	if res.Submission.ReviewNotes != "ok" {
		t.Fatalf("expected notes recorded")
	}
}

func TestApproveAddRetryReusesListing(t *testing.T) {
	mock := newMock(t)
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeAdd, StatusPending, "", `{"name":"Festival","type":"event"}`))
	mock.ExpectExec(`WHERE id=\$1 AND status='pending'`).
		WithArgs("sub-1", "approved", pgxmock.AnyArg(), "admin-1", "").
		WillReturnError(errors.New("connection reset"))
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeAdd, StatusPending, "", `{"name":"Festival","type":"event"}`))
	mock.ExpectExec(`WHERE id=\$1 AND status='pending'`).
		WithArgs("sub-1", "approved", pgxmock.AnyArg(), "admin-1", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := newFakeListings()
	svc := NewService(mock, store)

	if _, err := svc.Approve(context.Background(), admin, "sub-1", ""); err == nil {
		t.Fatalf("expected the failed status update to surface")
	}
	res, err := svc.Approve(context.Background(), admin, "sub-1", "")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(store.byID) != 1 {
		t.Fatalf("expected one listing after retry, got %d", len(store.byID))
	}
	if res.Listing == nil || res.Listing.ID != "sub-1" {
		t.Fatalf("expected listing keyed by submission id, got %+v", res.Listing)
	}
}

func TestApproveDeleteRetryAfterListingGone(t *testing.T) {
	mock := newMock(t)
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeDelete, StatusPending, "dest-1", `{}`))
	mock.ExpectExec(`UPDATE submissions`).
		WithArgs("sub-1", "approved", pgxmock.AnyArg(), "admin-1", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := newFakeListings()
	if _, err := NewService(mock, store).Approve(context.Background(), admin, "sub-1", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(store.calls) != 1 || store.calls[0] != "delete" {
		t.Fatalf("expected one delete attempt, got %v", store.calls)
	}
}

func TestApproveMissingTargetStaysPending(t *testing.T) {
	mock := newMock(t)
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeEdit, StatusPending, "gone", `{"name":"X"}`))
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeEdit, StatusPending, "gone", `{"name":"X"}`))

	svc := NewService(mock, newFakeListings())
	_, err := svc.Approve(context.Background(), admin, "sub-1", "")

	var applyErr *ApplyFailedError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected ApplyFailedError, got %v", err)
	}
	if applyErr.SubmissionID != "sub-1" || !errors.Is(err, listing.ErrNotFound) {
		t.Fatalf("unexpected apply error: %+v", applyErr)
	}

	sub, err := svc.Get(context.Background(), admin, "sub-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub.Status != StatusPending {
		t.Fatalf("expected pending after failed apply, got %s", sub.Status)
	}
}

func TestApplyHappensBeforeStatusUpdate(t *testing.T) {
	mock := newMock(t)
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeAdd, StatusPending, "", `{"name":"Festival","type":"event"}`))

	store := newFakeListings()
	store.failErr = errors.New("store unavailable")
	_, err := NewService(mock, store).Approve(context.Background(), admin, "sub-1", "")
	if !errors.Is(err, store.failErr) {
		t.Fatalf("expected store error surfaced, got %v", err)
	}
	if len(store.calls) != 1 || store.calls[0] != "create" {
		t.Fatalf("expected one create attempt, got %v", store.calls)
	}
}

func TestRejectThenApproveIsInvalidTransition(t *testing.T) {
	mock := newMock(t)
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeDelete, StatusPending, "dest-1", `{}`))
	mock.ExpectExec(`UPDATE submissions`).
		WithArgs("sub-1", "rejected", pgxmock.AnyArg(), "admin-1", "duplicate entry").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectFetch(mock, pgxmock.NewRows(submissionCols).
		AddRow("sub-1", "eo-1", "delete", "rejected", "dest-1", []byte(`{}`), time.Now(), ptrTime(time.Now()), "admin-1", "duplicate entry"))

	store := newFakeListings(listing.Listing{ID: "dest-1"})
	svc := NewService(mock, store)

	sub, err := svc.Reject(context.Background(), admin, "sub-1", "duplicate entry")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if sub.Status != StatusRejected || sub.ReviewNotes != "duplicate entry" {
		t.Fatalf("unexpected rejected submission: %+v", sub)
	}

	if _, err := svc.Approve(context.Background(), admin, "sub-1", ""); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	if len(store.calls) != 0 {
		t.Fatalf("no listing mutation expected, got %v", store.calls)
	}
}

func TestConcurrentResolutionIsDetected(t *testing.T) {
	mock := newMock(t)
	expectFetch(mock, submissionRows("sub-1", "eo-1", TypeDelete, StatusPending, "dest-1", `{}`))
	mock.ExpectExec(`UPDATE submissions`).
		WithArgs("sub-1", "approved", pgxmock.AnyArg(), "admin-1", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := NewService(mock, newFakeListings(listing.Listing{ID: "dest-1"})).Approve(context.Background(), admin, "sub-1", "")
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestApproveRequiresAdmin(t *testing.T) {
	svc := NewService(newMock(t), newFakeListings())
	if _, err := svc.Approve(context.Background(), organizer, "sub-1", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Reject(context.Background(), organizer, "sub-1", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGetMissingAndForeign(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM submissions WHERE id=\$1`).WithArgs("nope").WillReturnError(pgx.ErrNoRows)
	expectFetch(mock, submissionRows("sub-1", "eo-2", TypeDelete, StatusPending, "dest-1", `{}`))

	svc := NewService(mock, newFakeListings())
	if _, err := svc.Get(context.Background(), admin, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), organizer, "sub-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("organizer must not see foreign submissions, got %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM submissions WHERE submitted_by=\$1 AND status=\$2 ORDER BY created_at DESC`).
		WithArgs("eo-1", "pending").
		WillReturnRows(submissionRows("sub-1", "eo-1", TypeDelete, StatusPending, "dest-1", `{}`))
	mock.ExpectQuery(`FROM submissions ORDER BY created_at DESC`).
		WillReturnRows(submissionRows("sub-1", "eo-1", TypeDelete, StatusPending, "dest-1", `{}`).
			AddRow("sub-2", "eo-2", "edit", "approved", "dest-2", []byte(`{"name":"Y"}`), time.Now(), ptrTime(time.Now()), "admin-1", ""))

	svc := NewService(mock, newFakeListings())
	own, err := svc.List(context.Background(), organizer, StatusPending)
	if err != nil || len(own) != 1 {
		t.Fatalf("organizer list: %v %d", err, len(own))
	}
	all, err := svc.List(context.Background(), admin, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("admin list: %v %d", err, len(all))
	}
	if all[1].ReviewedAt == nil || all[1].Payload.Kind() != TypeEdit {
		t.Fatalf("unexpected scanned submission: %+v", all[1])
	}
	if _, err := svc.List(context.Background(), plainUser, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.List(context.Background(), admin, Status("archived")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
