package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// fileRepo persists the collection as one JSON array on disk. Every mutation
// is a full read-modify-write committed by writing a temp file in the same
// directory and renaming it over the store, so a crash mid-write leaves the
// previous file intact. A single mutex serializes the read-modify-write
// cycle against concurrent callers.
type fileRepo struct {
	path string
	mu   sync.Mutex
}

// NewFileRepo opens (or initializes) a JSON-file-backed repository at path.
// A missing file becomes an empty collection.
func NewFileRepo(path string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	r := &fileRepo{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := r.write(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return r, nil
}

func (r *fileRepo) read() ([]*Appointment, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	var appts []*Appointment
	if err := json.Unmarshal(data, &appts); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return appts, nil
}

func (r *fileRepo) write(appts []*Appointment) error {
	if appts == nil {
		appts = []*Appointment{}
	}
	data, err := json.MarshalIndent(appts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode appointments: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".appointments-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

func (r *fileRepo) List(_ context.Context) ([]*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *fileRepo) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appts, err := r.read()
	if err != nil {
		return nil, err
	}
	for _, a := range appts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fileRepo) Insert(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appts, err := r.read()
	if err != nil {
		return err
	}
	for _, existing := range appts {
		if existing.ID == a.ID {
			return ErrDuplicateID
		}
	}
	return r.write(append(appts, a))
}

func (r *fileRepo) Replace(_ context.Context, id uuid.UUID, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appts, err := r.read()
	if err != nil {
		return err
	}
	for i, existing := range appts {
		if existing.ID == id {
			appts[i] = a
			return r.write(appts)
		}
	}
	return ErrNotFound
}

func (r *fileRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appts, err := r.read()
	if err != nil {
		return err
	}
	for i, existing := range appts {
		if existing.ID == id {
			return r.write(append(appts[:i], appts[i+1:]...))
		}
	}
	return ErrNotFound
}
