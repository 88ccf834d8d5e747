package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgRepo struct{ pool *pgxpool.Pool }

// NewPGRepo returns a Repository backed by the appointment table. Insertion
// order is preserved through the seq column. Single-statement writes give
// the same atomicity contract as the file backend.
func NewPGRepo(pool *pgxpool.Pool) Repository { return &pgRepo{pool: pool} }

const apptCols = `id, title, client_name, client_email, client_phone,
	start_time, end_time, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.Title, &a.ClientName, &a.ClientEmail, &a.ClientPhone,
		&a.StartTime, &a.EndTime, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *pgRepo) List(ctx context.Context) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+apptCols+` FROM appointment ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (r *pgRepo) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *pgRepo) Insert(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment (id, title, client_name, client_email, client_phone,
			start_time, end_time, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.Title, a.ClientName, a.ClientEmail, a.ClientPhone,
		a.StartTime, a.EndTime, a.Status, a.Notes, a.CreatedAt, a.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateID
	}
	return err
}

func (r *pgRepo) Replace(ctx context.Context, id uuid.UUID, a *Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointment SET title=$2, client_name=$3, client_email=$4, client_phone=$5,
			start_time=$6, end_time=$7, status=$8, notes=$9, updated_at=$10
		WHERE id = $1`,
		id, a.Title, a.ClientName, a.ClientEmail, a.ClientPhone,
		a.StartTime, a.EndTime, a.Status, a.Notes, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
