package form

import (
	"context"
	"errors"

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

// =========== Template Repository ===========

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepoPG{pool: pool}
}

func (r *templateRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *templateRepoPG) GetModelByTitle(ctx context.Context, title string) (*Model, error) {
	var m Model
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, title, created_at FROM form_model WHERE title = $1`, title).
		Scan(&m.ID, &m.Title, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("form model %q not found", title)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *templateRepoPG) LockModel(ctx context.Context, modelID uuid.UUID) error {
	// Transaction-scoped advisory lock; released automatically on commit or
	// rollback. Serializes deactivate+insert for one model.
	_, err := r.conn(ctx).Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1::text))`, modelID)
	return err
}

func (r *templateRepoPG) DeactivateVersions(ctx context.Context, modelID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE form_version SET active = FALSE WHERE model_id = $1 AND active`, modelID)
	return err
}

func (r *templateRepoPG) CreateVersion(ctx context.Context, v *Version) error {
	v.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO form_version (id, model_id, active)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		v.ID, v.ModelID, v.Active).Scan(&v.CreatedAt)
}

const versionCols = `id, model_id, active, created_at`

func scanVersion(row pgx.Row) (*Version, error) {
	var v Version
	err := row.Scan(&v.ID, &v.ModelID, &v.Active, &v.CreatedAt)
	return &v, err
}

func (r *templateRepoPG) GetVersion(ctx context.Context, id uuid.UUID) (*Version, error) {
	v, err := scanVersion(r.conn(ctx).QueryRow(ctx,
		`SELECT `+versionCols+` FROM form_version WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("form version %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *templateRepoPG) GetActiveVersion(ctx context.Context, modelID uuid.UUID) (*Version, error) {
	v, err := scanVersion(r.conn(ctx).QueryRow(ctx,
		`SELECT `+versionCols+` FROM form_version WHERE model_id = $1 AND active`, modelID))
	if errors.Is(err, pgx.ErrNoRows) {
		// The single-active invariant makes this unreachable for seeded
		// models that have published at least once; surface it loudly
		// instead of returning nil.
		return nil, fault.Internal("model %s has no active version", modelID)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *templateRepoPG) CreateSection(ctx context.Context, s *Section) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO form_section (id, version_id, title, position)
		VALUES ($1, $2, $3, $4)`,
		s.ID, s.VersionID, s.Title, s.Position)
	return err
}

func (r *templateRepoPG) CreateQuestion(ctx context.Context, q *Question) error {
	q.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO form_question (id, section_id, statement, kind, mandatory, position, depends_on_option_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.SectionID, q.Statement, q.Kind, q.Mandatory, q.Position, q.DependsOnOptionID)
	return err
}

func (r *templateRepoPG) CreateOption(ctx context.Context, o *Option) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO form_option (id, question_id, statement, position, requires_free_text, free_text_label)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.QuestionID, o.Statement, o.Position, o.RequiresFreeText, o.FreeTextLabel)
	return err
}

func (r *templateRepoPG) ListSections(ctx context.Context, versionID uuid.UUID) ([]*Section, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, version_id, title, position
		FROM form_section WHERE version_id = $1
		ORDER BY position, id`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Section
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.ID, &s.VersionID, &s.Title, &s.Position); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

const questionCols = `id, section_id, statement, kind, mandatory, position, depends_on_option_id`

func scanQuestions(rows pgx.Rows) ([]*Question, error) {
	defer rows.Close()
	var items []*Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.SectionID, &q.Statement, &q.Kind,
			&q.Mandatory, &q.Position, &q.DependsOnOptionID); err != nil {
			return nil, err
		}
		items = append(items, &q)
	}
	return items, rows.Err()
}

func (r *templateRepoPG) ListOptions(ctx context.Context, questionID uuid.UUID) ([]*Option, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, question_id, statement, position, requires_free_text, free_text_label
		FROM form_option WHERE question_id = $1
		ORDER BY position, id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Statement, &o.Position,
			&o.RequiresFreeText, &o.FreeTextLabel); err != nil {
			return nil, err
		}
		items = append(items, &o)
	}
	return items, rows.Err()
}

func (r *templateRepoPG) ListVersionQuestions(ctx context.Context, versionID uuid.UUID) ([]*Question, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT q.id, q.section_id, q.statement, q.kind, q.mandatory, q.position, q.depends_on_option_id
		FROM form_question q
		JOIN form_section s ON s.id = q.section_id
		WHERE s.version_id = $1
		ORDER BY s.position, q.position, q.id`, versionID)
	if err != nil {
		return nil, err
	}
	return scanQuestions(rows)
}

// =========== Instance Repository ===========

type instanceRepoPG struct{ pool *pgxpool.Pool }

func NewInstanceRepoPG(pool *pgxpool.Pool) InstanceRepository {
	return &instanceRepoPG{pool: pool}
}

func (r *instanceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const filledFormCols = `id, patient_id, model_id, version_id, status, completion_percentage, created_at, updated_at`

func scanFilledForm(row pgx.Row) (*FilledForm, error) {
	var f FilledForm
	err := row.Scan(&f.ID, &f.PatientID, &f.ModelID, &f.VersionID, &f.Status,
		&f.CompletionPercentage, &f.CreatedAt, &f.UpdatedAt)
	return &f, err
}

func (r *instanceRepoPG) GetFilledForm(ctx context.Context, patientID, modelID uuid.UUID) (*FilledForm, error) {
	f, err := scanFilledForm(r.conn(ctx).QueryRow(ctx, `
		SELECT `+filledFormCols+`
		FROM filled_form WHERE patient_id = $1 AND model_id = $2`,
		patientID, modelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("no filled form for patient %s and model %s", patientID, modelID)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *instanceRepoPG) CreateFilledForm(ctx context.Context, f *FilledForm) error {
	f.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO filled_form (id, patient_id, model_id, version_id, status, completion_percentage)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		f.ID, f.PatientID, f.ModelID, f.VersionID, f.Status, f.CompletionPercentage).
		Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (r *instanceRepoPG) UpdateFilledForm(ctx context.Context, f *FilledForm) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE filled_form SET status = $2, completion_percentage = $3, updated_at = NOW()
		WHERE id = $1`,
		f.ID, f.Status, f.CompletionPercentage)
	return err
}

func (r *instanceRepoPG) UpsertAnswer(ctx context.Context, a *Answer) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	// On conflict the original row id survives; RETURNING hands it back so
	// selected options attach to the right answer.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO form_answer (id, filled_form_id, question_id, free_text_value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (filled_form_id, question_id)
		DO UPDATE SET free_text_value = EXCLUDED.free_text_value, updated_at = NOW()
		RETURNING id, updated_at`,
		a.ID, a.FilledFormID, a.QuestionID, a.FreeTextValue).
		Scan(&a.ID, &a.UpdatedAt)
}

func (r *instanceRepoPG) ListAnswers(ctx context.Context, filledFormID uuid.UUID) ([]*Answer, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, filled_form_id, question_id, free_text_value, updated_at
		FROM form_answer WHERE filled_form_id = $1`, filledFormID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.FilledFormID, &a.QuestionID,
			&a.FreeTextValue, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *instanceRepoPG) ReplaceSelectedOptions(ctx context.Context, answerID uuid.UUID, opts []*SelectedOption) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM form_selected_option WHERE answer_id = $1`, answerID); err != nil {
		return err
	}
	for _, o := range opts {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO form_selected_option (answer_id, option_id, complement_text)
			VALUES ($1, $2, $3)`,
			answerID, o.OptionID, o.ComplementText); err != nil {
			return err
		}
	}
	return nil
}

func (r *instanceRepoPG) ListSelectedOptions(ctx context.Context, filledFormID uuid.UUID) ([]*SelectedOption, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT so.answer_id, so.option_id, so.complement_text
		FROM form_selected_option so
		JOIN form_answer a ON a.id = so.answer_id
		WHERE a.filled_form_id = $1`, filledFormID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SelectedOption
	for rows.Next() {
		var so SelectedOption
		if err := rows.Scan(&so.AnswerID, &so.OptionID, &so.ComplementText); err != nil {
			return nil, err
		}
		items = append(items, &so)
	}
	return items, rows.Err()
}
