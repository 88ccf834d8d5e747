package appointment

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var validStatuses = map[Status]bool{
	StatusScheduled: true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

// legalTransitions encodes the lifecycle graph: scheduled may move to any
// terminal state; terminal states admit no further transitions.
var legalTransitions = map[Status]map[Status]bool{
	StatusScheduled: {
		StatusCompleted: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool { return validStatuses[s] }

// IsTerminal reports whether no further transition is permitted from s.
func (s Status) IsTerminal() bool { return s.IsValid() && s != StatusScheduled }

// CanTransitionTo reports whether the lifecycle graph permits moving from s
// to next. Reassigning the current status is treated as a no-op and allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	return legalTransitions[s][next]
}

// MinDuration is the shortest appointment the system accepts.
const MinDuration = 15 * time.Minute

// Appointment maps to one record in the appointment collection.
type Appointment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	ClientName  string    `db:"client_name" json:"client_name"`
	ClientEmail string    `db:"client_email" json:"client_email"`
	ClientPhone string    `db:"client_phone" json:"client_phone,omitempty"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	Status      Status    `db:"status" json:"status"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Duration returns the booked length of the appointment.
func (a *Appointment) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// Overlaps reports whether the half-open intervals [a.StartTime, a.EndTime)
// and [b.StartTime, b.EndTime) intersect. Back-to-back appointments, where
// one ends exactly when the other starts, do not overlap.
func (a *Appointment) Overlaps(b *Appointment) bool {
	return a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime)
}

// FieldError is a single failed validation rule, tied to the field it
// violated.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks every field rule and returns all violations, never just
// the first. It is pure: no repository access, no mutation of a.
func Validate(a *Appointment) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(a.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(a.ClientName) == "" {
		errs = append(errs, FieldError{Field: "client_name", Message: "client_name is required"})
	}
	if !emailPattern.MatchString(a.ClientEmail) {
		errs = append(errs, FieldError{Field: "client_email", Message: "client_email must be a valid email address"})
	}
	if a.StartTime.IsZero() {
		errs = append(errs, FieldError{Field: "start_time", Message: "start_time is required"})
	}
	if a.EndTime.IsZero() {
		errs = append(errs, FieldError{Field: "end_time", Message: "end_time is required"})
	}
	if !a.StartTime.IsZero() && !a.EndTime.IsZero() {
		if !a.StartTime.Before(a.EndTime) {
			errs = append(errs, FieldError{Field: "end_time", Message: "end_time must be after start_time"})
		}
		if a.Duration() < MinDuration {
			errs = append(errs, FieldError{Field: "end_time", Message: "appointment must be at least 15 minutes long"})
		}
	}
	if a.Status != "" && !a.Status.IsValid() {
		errs = append(errs, FieldError{Field: "status", Message: "invalid status: " + string(a.Status)})
	}

	return errs
}
