package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/intake/internal/platform/db"
	"github.com/clinic/intake/internal/platform/fault"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Availability Repository ===========

type availabilityRepoPG struct{ pool *pgxpool.Pool }

func NewAvailabilityRepoPG(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepoPG{pool: pool}
}

func (r *availabilityRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *availabilityRepoPG) Create(ctx context.Context, a *Availability) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO availability (id, professional_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, a.ProfessionalID, a.Weekday, a.StartMinute, a.EndMinute).
		Scan(&a.CreatedAt)
}

func (r *availabilityRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM availability WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("availability %s not found", id)
	}
	return nil
}

func (r *availabilityRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*Availability, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, professional_id, weekday, start_minute, end_minute, created_at
		FROM availability WHERE professional_id = $1
		ORDER BY weekday, start_minute`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Availability
	for rows.Next() {
		var a Availability
		if err := rows.Scan(&a.ID, &a.ProfessionalID, &a.Weekday,
			&a.StartMinute, &a.EndMinute, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

// =========== Session Repository ===========

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepoPG{pool: pool}
}

func (r *sessionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const sessionCols = `id, patient_id, professional_id, starts_at, ends_at, status, notes, created_at, updated_at`

func scanSessions(rows pgx.Rows) ([]*Session, error) {
	defer rows.Close()
	var items []*Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.PatientID, &s.ProfessionalID, &s.StartsAt,
			&s.EndsAt, &s.Status, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO session (id, patient_id, professional_id, starts_at, ends_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		s.ID, s.PatientID, s.ProfessionalID, s.StartsAt, s.EndsAt, s.Status, s.Notes).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM session WHERE id = $1`, id).
		Scan(&s.ID, &s.PatientID, &s.ProfessionalID, &s.StartsAt,
			&s.EndsAt, &s.Status, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("session %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status SessionStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE session SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("session %s not found", id)
	}
	return nil
}

func (r *sessionRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to time.Time, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM session
		WHERE professional_id = $1 AND starts_at >= $2 AND starts_at < $3`,
		professionalID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+sessionCols+` FROM session
		WHERE professional_id = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at
		LIMIT $4 OFFSET $5`, professionalID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := scanSessions(rows)
	return items, total, err
}

func (r *sessionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM session WHERE patient_id = $1`, patientID).
		Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+sessionCols+` FROM session
		WHERE patient_id = $1
		ORDER BY starts_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := scanSessions(rows)
	return items, total, err
}

func (r *sessionRepoPG) HasOverlap(ctx context.Context, professionalID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM session
			WHERE professional_id = $1
			  AND status <> 'canceled'
			  AND starts_at < $3 AND ends_at > $2
		)`, professionalID, start, end).Scan(&exists)
	return exists, err
}
