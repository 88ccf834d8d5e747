package appointment

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service enforces validation, conflict-freedom, and lifecycle rules. It is
// the single entry point for callers: views and the seeder go through it and
// never touch a Repository directly. The service holds no collection state
// of its own — every operation re-reads through the repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates the candidate, checks it for time conflicts against all
// non-cancelled appointments, assigns the id and timestamps, and persists
// it. The candidate is not mutated.
func (s *Service) Create(ctx context.Context, candidate *Appointment) (*Appointment, error) {
	if errs := Validate(candidate); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	if conflict := findConflict(existing, candidate, uuid.Nil); conflict != nil {
		return nil, &ConflictError{With: conflict}
	}

	now := time.Now().UTC()
	appt := *candidate
	appt.ID = uuid.New()
	if appt.Status == "" {
		appt.Status = StatusScheduled
	}
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if err := s.repo.Insert(ctx, &appt); err != nil {
		return nil, wrapStorage("insert", err)
	}
	return &appt, nil
}

// Update replaces every caller-editable field of an existing appointment,
// re-running validation and the conflict check. The appointment never
// conflicts with itself.
func (s *Service) Update(ctx context.Context, id uuid.UUID, candidate *Appointment) (*Appointment, error) {
	if errs := Validate(candidate); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapStorage("get", err)
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	if conflict := findConflict(existing, candidate, id); conflict != nil {
		return nil, &ConflictError{With: conflict}
	}

	appt := *candidate
	appt.ID = id
	if appt.Status == "" {
		appt.Status = current.Status
	}
	appt.CreatedAt = current.CreatedAt
	appt.UpdatedAt = time.Now().UTC()

	if err := s.repo.Replace(ctx, id, &appt); err != nil {
		return nil, wrapStorage("replace", err)
	}
	return &appt, nil
}

// ChangeStatus moves an appointment through the lifecycle graph. Only the
// status and updated_at change; time fields are not re-validated.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, next Status) (*Appointment, error) {
	if !next.IsValid() {
		return nil, &ValidationError{Fields: []FieldError{
			{Field: "status", Message: "invalid status: " + string(next)},
		}}
	}

	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapStorage("get", err)
	}
	if !appt.Status.CanTransitionTo(next) {
		return nil, &TransitionError{From: appt.Status, To: next}
	}

	updated := *appt
	updated.Status = next
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repo.Replace(ctx, id, &updated); err != nil {
		return nil, wrapStorage("replace", err)
	}
	return &updated, nil
}

// Delete removes the appointment permanently.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return wrapStorage("delete", s.repo.Delete(ctx, id))
}

// Get returns a single appointment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapStorage("get", err)
	}
	return appt, nil
}

// Sort keys accepted by List.
const (
	SortByStart  = "start_time"
	SortByClient = "client_name"
	SortByTitle  = "title"
	SortByStatus = "status"
)

// List returns every appointment ordered by the given sort key. An empty or
// unknown key sorts by start time.
func (s *Service) List(ctx context.Context, sortBy string) ([]*Appointment, error) {
	appts, err := s.repo.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	switch sortBy {
	case SortByClient:
		sort.SliceStable(appts, func(i, j int) bool {
			return strings.ToLower(appts[i].ClientName) < strings.ToLower(appts[j].ClientName)
		})
	case SortByTitle:
		sort.SliceStable(appts, func(i, j int) bool {
			return strings.ToLower(appts[i].Title) < strings.ToLower(appts[j].Title)
		})
	case SortByStatus:
		sort.SliceStable(appts, func(i, j int) bool {
			return appts[i].Status < appts[j].Status
		})
	default:
		sort.SliceStable(appts, func(i, j int) bool {
			return appts[i].StartTime.Before(appts[j].StartTime)
		})
	}
	return appts, nil
}

// SearchQuery narrows the collection on the read side. Zero values leave a
// dimension unfiltered; Status "all" is equivalent to empty.
type SearchQuery struct {
	Text   string
	Status string
	From   *time.Time
	To     *time.Time
}

// Search filters the collection without changing its order: a case-insensitive
// substring match on title or client name, an optional status filter, and an
// optional [from, to] window on start_time.
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]*Appointment, error) {
	appts, err := s.repo.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	status := strings.ToLower(strings.TrimSpace(q.Status))

	matched := make([]*Appointment, 0, len(appts))
	for _, a := range appts {
		if text != "" &&
			!strings.Contains(strings.ToLower(a.Title), text) &&
			!strings.Contains(strings.ToLower(a.ClientName), text) {
			continue
		}
		if status != "" && status != "all" && string(a.Status) != status {
			continue
		}
		if q.From != nil && a.StartTime.Before(*q.From) {
			continue
		}
		if q.To != nil && a.StartTime.After(*q.To) {
			continue
		}
		matched = append(matched, a)
	}
	return matched, nil
}

// Upcoming returns scheduled appointments that have not started yet, soonest
// first.
func (s *Service) Upcoming(ctx context.Context) ([]*Appointment, error) {
	appts, err := s.repo.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	now := time.Now()
	upcoming := make([]*Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Status == StatusScheduled && a.StartTime.After(now) {
			upcoming = append(upcoming, a)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].StartTime.Before(upcoming[j].StartTime)
	})
	return upcoming, nil
}

// Stats summarizes the collection for dashboard-style consumers.
type Stats struct {
	Total     int `json:"total"`
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	NoShow    int `json:"no_show"`
	Today     int `json:"today"`
	Upcoming  int `json:"upcoming"`
}

// GetStats counts appointments per status plus today's and upcoming ones.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	appts, err := s.repo.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	now := time.Now()
	year, month, day := now.Date()
	stats := &Stats{Total: len(appts)}
	for _, a := range appts {
		switch a.Status {
		case StatusScheduled:
			stats.Scheduled++
		case StatusCompleted:
			stats.Completed++
		case StatusCancelled:
			stats.Cancelled++
		case StatusNoShow:
			stats.NoShow++
		}
		ay, am, ad := a.StartTime.Local().Date()
		if ay == year && am == month && ad == day {
			stats.Today++
		}
		if a.Status == StatusScheduled && a.StartTime.After(now) {
			stats.Upcoming++
		}
	}
	return stats, nil
}

// findConflict returns the first non-cancelled appointment whose half-open
// interval intersects the candidate's, skipping exclude (the appointment
// being updated). Linear scan; the collection is small.
func findConflict(existing []*Appointment, candidate *Appointment, exclude uuid.UUID) *Appointment {
	for _, a := range existing {
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		if a.Status == StatusCancelled {
			continue
		}
		if a.Overlaps(candidate) {
			return a
		}
	}
	return nil
}

// wrapStorage passes domain sentinels through untouched and classifies
// anything else as a StorageError.
func wrapStorage(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateID) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
