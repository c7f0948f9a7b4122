// Package form implements the dynamic clinical-form engine: versioned form
// templates (sections, questions, options, option-derived questions), per
// patient filled instances, and mandatory-completion accounting that honors
// conditional visibility.
package form

import (
	"time"

	"github.com/google/uuid"
)

// Known model titles, seeded by migration. Models are a fixed catalog; this
// package never creates them.
const (
	ModelAnamnesis = "ANAMNESE"
	ModelSynthesis = "SINTESE"
)

// QuestionKind enumerates the supported answer shapes.
type QuestionKind string

const (
	KindShortText      QuestionKind = "short-text"
	KindLongText       QuestionKind = "long-text"
	KindInteger        QuestionKind = "integer"
	KindDate           QuestionKind = "date"
	KindSingleChoice   QuestionKind = "single-choice"
	KindMultipleChoice QuestionKind = "multiple-choice"
)

// IsValid reports whether the kind is one of the supported values.
func (k QuestionKind) IsValid() bool {
	switch k {
	case KindShortText, KindLongText, KindInteger, KindDate, KindSingleChoice, KindMultipleChoice:
		return true
	}
	return false
}

// IsChoice reports whether answers to this kind select options.
func (k QuestionKind) IsChoice() bool {
	return k == KindSingleChoice || k == KindMultipleChoice
}

// Status of a filled form instance.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
)

// Model maps to the form_model table. Immutable catalog entry created by
// migration, never by this package.
type Model struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"titulo"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Version maps to the form_version table. At most one version per model is
// active at any time; versions are append-only.
type Version struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ModelID   uuid.UUID `db:"model_id" json:"modeloId"`
	Active    bool      `db:"active" json:"ativa"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Section maps to the form_section table.
type Section struct {
	ID        uuid.UUID `db:"id" json:"id"`
	VersionID uuid.UUID `db:"version_id" json:"versaoId"`
	Title     string    `db:"title" json:"titulo"`
	Position  int       `db:"position" json:"ordem"`
}

// Question maps to the form_question table. DependsOnOptionID, when set,
// references an option of the same version; the question is only active while
// that option is selected. The value is always assigned by the tree builder
// from the parent option's generated id, never taken from a caller.
type Question struct {
	ID                uuid.UUID    `db:"id" json:"id"`
	SectionID         uuid.UUID    `db:"section_id" json:"secaoId"`
	Statement         string       `db:"statement" json:"enunciado"`
	Kind              QuestionKind `db:"kind" json:"tipo"`
	Mandatory         bool         `db:"mandatory" json:"obrigatoria"`
	Position          int          `db:"position" json:"ordem"`
	DependsOnOptionID *uuid.UUID   `db:"depends_on_option_id" json:"dependeDaOpcaoId,omitempty"`
}

// Option maps to the form_option table.
type Option struct {
	ID               uuid.UUID `db:"id" json:"id"`
	QuestionID       uuid.UUID `db:"question_id" json:"perguntaId"`
	Statement        string    `db:"statement" json:"enunciado"`
	Position         int       `db:"position" json:"ordem"`
	RequiresFreeText bool      `db:"requires_free_text" json:"requerTexto"`
	FreeTextLabel    *string   `db:"free_text_label" json:"labelTexto,omitempty"`
}

// FilledForm maps to the filled_form table: one patient's single instance of
// a model, created lazily on first read and pinned to the version that was
// active then. The (patient_id, model_id) pair is unique.
type FilledForm struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	PatientID            uuid.UUID `db:"patient_id" json:"pacienteId"`
	ModelID              uuid.UUID `db:"model_id" json:"modeloId"`
	VersionID            uuid.UUID `db:"version_id" json:"versaoId"`
	Status               Status    `db:"status" json:"status"`
	CompletionPercentage int       `db:"completion_percentage" json:"porcentagem"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Answer maps to the form_answer table. Unique per (filled form, question);
// a second write replaces the value.
type Answer struct {
	ID            uuid.UUID `db:"id" json:"id"`
	FilledFormID  uuid.UUID `db:"filled_form_id" json:"fichaId"`
	QuestionID    uuid.UUID `db:"question_id" json:"perguntaId"`
	FreeTextValue *string   `db:"free_text_value" json:"valor,omitempty"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SelectedOption maps to the form_selected_option table. The set for an
// answer is replaced wholesale on each submission.
type SelectedOption struct {
	AnswerID       uuid.UUID `db:"answer_id" json:"respostaId"`
	OptionID       uuid.UUID `db:"option_id" json:"id"`
	ComplementText *string   `db:"complement_text" json:"complemento,omitempty"`
}
