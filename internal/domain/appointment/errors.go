package appointment

import "fmt"

// ValidationError carries every field rule the candidate violated.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return "validation failed: " + e.Fields[0].Message
	}
	return fmt.Sprintf("validation failed: %d field errors", len(e.Fields))
}

// ConflictError reports a time overlap with an existing appointment.
type ConflictError struct {
	With *Appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time conflict with appointment %q (%s – %s)",
		e.With.Title,
		e.With.StartTime.Format("2006-01-02 15:04"),
		e.With.EndTime.Format("15:04"))
}

// TransitionError reports a status change the lifecycle graph forbids.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

// StorageError wraps an I/O failure from the backing store. It is the only
// error kind callers cannot correct by retrying with different input.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
