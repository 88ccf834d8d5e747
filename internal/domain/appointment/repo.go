package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("appointment not found")
	ErrDuplicateID = errors.New("duplicate appointment id")
)

// Repository is the persistence boundary for the appointment collection.
// Implementations hold no business rules: they store and retrieve records
// exactly as given. List returns records in insertion order. Every mutation
// must commit atomically — after a crash the store is either the pre-write
// or the post-write state, never a mix.
type Repository interface {
	List(ctx context.Context) ([]*Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Insert(ctx context.Context, a *Appointment) error
	Replace(ctx context.Context, id uuid.UUID, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
}
