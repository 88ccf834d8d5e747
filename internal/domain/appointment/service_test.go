package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

// mockRepo keeps appointments in a slice so insertion order is preserved,
// matching the Repository contract.
type mockRepo struct {
	appts   []*Appointment
	failAll error
}

func newMockRepo() *mockRepo { return &mockRepo{} }

func (m *mockRepo) List(_ context.Context) ([]*Appointment, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	out := make([]*Appointment, len(m.appts))
	copy(out, m.appts)
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	for _, a := range m.appts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Insert(_ context.Context, a *Appointment) error {
	if m.failAll != nil {
		return m.failAll
	}
	for _, existing := range m.appts {
		if existing.ID == a.ID {
			return ErrDuplicateID
		}
	}
	m.appts = append(m.appts, a)
	return nil
}

func (m *mockRepo) Replace(_ context.Context, id uuid.UUID, a *Appointment) error {
	if m.failAll != nil {
		return m.failAll
	}
	for i, existing := range m.appts {
		if existing.ID == id {
			m.appts[i] = a
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if m.failAll != nil {
		return m.failAll
	}
	for i, existing := range m.appts {
		if existing.ID == id {
			m.appts = append(m.appts[:i], m.appts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// -- Helpers --

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func futureSlot(t *testing.T, startHour, startMin, endHour, endMin int) (time.Time, time.Time) {
	t.Helper()
	day := time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	start := day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute)
	end := day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute)
	return start, end
}

func candidateAt(t *testing.T, startHour, startMin, endHour, endMin int) *Appointment {
	t.Helper()
	start, end := futureSlot(t, startHour, startMin, endHour, endMin)
	return &Appointment{
		Title:       "Annual Physical Exam",
		ClientName:  "Alice Johnson",
		ClientEmail: "alice@example.com",
		StartTime:   start,
		EndTime:     end,
	}
}

// -- Create --

func TestService_Create(t *testing.T) {
	svc, _ := newTestService()
	created, err := svc.Create(context.Background(), candidateAt(t, 9, 0, 10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("expected an assigned id")
	}
	if created.Status != StatusScheduled {
		t.Errorf("expected default status scheduled, got %s", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected created_at and updated_at to be set")
	}
}

func TestService_Create_RoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	candidate := candidateAt(t, 9, 0, 10, 0)
	candidate.Notes = "Bring previous lab results."
	created, err := svc.Create(ctx, candidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after create: %v", err)
	}
	if got.Title != candidate.Title || got.ClientName != candidate.ClientName ||
		got.ClientEmail != candidate.ClientEmail || got.Notes != candidate.Notes ||
		!got.StartTime.Equal(candidate.StartTime) || !got.EndTime.Equal(candidate.EndTime) {
		t.Errorf("round trip changed caller fields: %+v vs %+v", got, candidate)
	}
}

func TestService_Create_ValidationFailed(t *testing.T) {
	svc, repo := newTestService()
	candidate := candidateAt(t, 9, 0, 10, 0)
	candidate.ClientEmail = "not-an-email"
	candidate.Title = ""

	_, err := svc.Create(context.Background(), candidate)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !hasFieldError(vErr.Fields, "client_email") || !hasFieldError(vErr.Fields, "title") {
		t.Errorf("expected both field errors reported, got %v", vErr.Fields)
	}
	if len(repo.appts) != 0 {
		t.Error("validation failure must not touch the repository")
	}
}

func TestService_Create_Conflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	existing, err := svc.Create(ctx, candidateAt(t, 10, 0, 10, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Create(ctx, candidateAt(t, 10, 15, 10, 45))
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if cErr.With.ID != existing.ID {
		t.Errorf("conflict should name the colliding appointment")
	}
}

func TestService_Create_BackToBackSlots(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, candidateAt(t, 9, 0, 9, 15)); err != nil {
		t.Fatalf("first slot: %v", err)
	}
	if _, err := svc.Create(ctx, candidateAt(t, 9, 15, 9, 30)); err != nil {
		t.Errorf("back-to-back slot should not conflict: %v", err)
	}
}

func TestService_Create_CancelledFreesSlot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, candidateAt(t, 10, 0, 10, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ChangeStatus(ctx, first.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Create(ctx, candidateAt(t, 10, 0, 10, 30)); err != nil {
		t.Errorf("cancelled appointment should free the slot: %v", err)
	}
}

func TestService_Create_CompletedStillOccupiesSlot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, candidateAt(t, 10, 0, 10, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ChangeStatus(ctx, first.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.Create(ctx, candidateAt(t, 10, 0, 10, 30)); err == nil {
		t.Error("completed appointment still occupies its time range")
	}
}

func TestService_Create_StorageFailure(t *testing.T) {
	svc, repo := newTestService()
	repo.failAll = errors.New("disk full")

	_, err := svc.Create(context.Background(), candidateAt(t, 9, 0, 10, 0))
	var sErr *StorageError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

// -- Update --

func TestService_Update_TitleOnlyPreservesRest(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, candidateAt(t, 9, 0, 10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candidate := *created
	candidate.Title = "Renamed Session"
	updated, err := svc.Update(ctx, created.ID, &candidate)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Renamed Session" {
		t.Errorf("title not updated: %s", updated.Title)
	}
	if !updated.StartTime.Equal(created.StartTime) || !updated.EndTime.Equal(created.EndTime) {
		t.Error("update changed time fields it was not asked to")
	}
	if updated.Status != created.Status {
		t.Errorf("update changed status: %s -> %s", created.Status, updated.Status)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("update must preserve created_at")
	}
}

func TestService_Update_NeverConflictsWithSelf(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, candidateAt(t, 10, 0, 10, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candidate := *created
	candidate.Notes = "keep the same slot"
	if _, err := svc.Update(ctx, created.ID, &candidate); err != nil {
		t.Errorf("appointment must not conflict with itself: %v", err)
	}
}

func TestService_Update_ConflictWithOther(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, candidateAt(t, 10, 0, 10, 30)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Create(ctx, candidateAt(t, 11, 0, 11, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candidate := *second
	candidate.StartTime, candidate.EndTime = futureSlot(t, 10, 15, 10, 45)
	_, err = svc.Update(ctx, second.ID, &candidate)
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Update(context.Background(), uuid.New(), candidateAt(t, 9, 0, 10, 0))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// -- ChangeStatus --

func TestService_ChangeStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, candidateAt(t, 9, 0, 10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.ChangeStatus(ctx, created.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}
	if !updated.StartTime.Equal(created.StartTime) {
		t.Error("change status must not touch time fields")
	}
}

func TestService_ChangeStatus_IllegalTransition(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, candidateAt(t, 9, 0, 10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ChangeStatus(ctx, created.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err = svc.ChangeStatus(ctx, created.ID, StatusScheduled)
	var tErr *TransitionError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if tErr.From != StatusCompleted || tErr.To != StatusScheduled {
		t.Errorf("unexpected transition detail: %+v", tErr)
	}
}

func TestService_ChangeStatus_InvalidStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, candidateAt(t, 9, 0, 10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.ChangeStatus(ctx, created.ID, Status("postponed"))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestService_ChangeStatus_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.ChangeStatus(context.Background(), uuid.New(), StatusCancelled)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// -- Delete --

func TestService_DeleteThenGet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, candidateAt(t, 9, 0, 10, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

// -- Search / reads --

func seedThree(t *testing.T, svc *Service) (a, b, c *Appointment) {
	t.Helper()
	ctx := context.Background()

	a = candidateAt(t, 9, 0, 10, 0)
	a.Title = "Annual Physical Exam"
	a.ClientName = "Alice Johnson"
	b = candidateAt(t, 11, 0, 12, 0)
	b.Title = "Product Strategy Review"
	b.ClientName = "Bob Martinez"
	b.ClientEmail = "bob.m@acme.com"
	c = candidateAt(t, 14, 0, 15, 0)
	c.Title = "Tax Consultation"
	c.ClientName = "Carol White"
	c.ClientEmail = "carol.white@gmail.com"

	var err error
	if a, err = svc.Create(ctx, a); err != nil {
		t.Fatalf("seed a: %v", err)
	}
	if b, err = svc.Create(ctx, b); err != nil {
		t.Fatalf("seed b: %v", err)
	}
	if c, err = svc.Create(ctx, c); err != nil {
		t.Fatalf("seed c: %v", err)
	}
	return a, b, c
}

func TestService_Search_Text(t *testing.T) {
	svc, _ := newTestService()
	_, b, _ := seedThree(t, svc)

	// Case-insensitive substring over title or client name.
	got, err := svc.Search(context.Background(), SearchQuery{Text: "STRATEGY"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("expected only the strategy review, got %d results", len(got))
	}

	got, err = svc.Search(context.Background(), SearchQuery{Text: "carol"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ClientName != "Carol White" {
		t.Errorf("expected a client_name match, got %d results", len(got))
	}
}

func TestService_Search_StatusFilter(t *testing.T) {
	svc, _ := newTestService()
	a, _, _ := seedThree(t, svc)
	ctx := context.Background()

	if _, err := svc.ChangeStatus(ctx, a.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := svc.Search(ctx, SearchQuery{Status: "cancelled"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("expected the cancelled appointment only, got %d", len(got))
	}

	got, err = svc.Search(ctx, SearchQuery{Status: "all"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Errorf(`expected status "all" to match everything, got %d`, len(got))
	}
}

func TestService_Search_DateRange(t *testing.T) {
	svc, _ := newTestService()
	_, b, _ := seedThree(t, svc)
	ctx := context.Background()

	from := b.StartTime.Add(-time.Minute)
	to := b.StartTime.Add(time.Minute)
	got, err := svc.Search(ctx, SearchQuery{From: &from, To: &to})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("expected only the 11:00 appointment in range, got %d", len(got))
	}
}

func TestService_Search_PreservesRepositoryOrder(t *testing.T) {
	svc, _ := newTestService()
	a, b, c := seedThree(t, svc)

	got, err := svc.Search(context.Background(), SearchQuery{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []uuid.UUID{a.ID, b.ID, c.ID}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("result %d out of order", i)
		}
	}
}

func TestService_List_SortByClient(t *testing.T) {
	svc, _ := newTestService()
	seedThree(t, svc)

	got, err := svc.List(context.Background(), SortByClient)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].ClientName > got[i].ClientName {
			t.Errorf("list not sorted by client name: %s before %s", got[i-1].ClientName, got[i].ClientName)
		}
	}
}

func TestService_Upcoming(t *testing.T) {
	svc, _ := newTestService()
	a, b, c := seedThree(t, svc)
	ctx := context.Background()

	if _, err := svc.ChangeStatus(ctx, c.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := svc.Upcoming(ctx)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming, got %d", len(got))
	}
	if got[0].ID != a.ID || got[1].ID != b.ID {
		t.Error("upcoming should be sorted soonest first")
	}
}

func TestService_GetStats(t *testing.T) {
	svc, _ := newTestService()
	a, b, _ := seedThree(t, svc)
	ctx := context.Background()

	if _, err := svc.ChangeStatus(ctx, a.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.ChangeStatus(ctx, b.ID, StatusNoShow); err != nil {
		t.Fatalf("no_show: %v", err)
	}

	stats, err := svc.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.Scheduled != 1 || stats.Completed != 1 || stats.NoShow != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Upcoming != 1 {
		t.Errorf("expected 1 upcoming, got %d", stats.Upcoming)
	}
}

// No two accepted non-cancelled appointments may overlap, whatever order
// they arrive in.
func TestService_NoOverlapInvariant(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	slots := [][4]int{
		{9, 0, 9, 30},
		{9, 15, 9, 45},
		{9, 30, 10, 0},
		{9, 45, 10, 15},
		{10, 0, 10, 30},
	}
	for _, s := range slots {
		// Accepted or rejected, either way the invariant below must hold.
		svc.Create(ctx, candidateAt(t, s[0], s[1], s[2], s[3]))
	}

	for i, a := range repo.appts {
		for j, b := range repo.appts {
			if i == j || a.Status == StatusCancelled || b.Status == StatusCancelled {
				continue
			}
			if a.Overlaps(b) {
				t.Errorf("accepted appointments %d and %d overlap", i, j)
			}
		}
	}
}
