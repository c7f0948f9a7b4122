package form

import (
	"context"

	"github.com/google/uuid"
)

// TemplateRepository persists the template side of the tree store: models,
// versions, sections, questions and options.
type TemplateRepository interface {
	GetModelByTitle(ctx context.Context, title string) (*Model, error)

	// LockModel serializes concurrent publishes of the same model for the
	// duration of the surrounding transaction.
	LockModel(ctx context.Context, modelID uuid.UUID) error
	DeactivateVersions(ctx context.Context, modelID uuid.UUID) error
	CreateVersion(ctx context.Context, v *Version) error
	GetVersion(ctx context.Context, id uuid.UUID) (*Version, error)
	GetActiveVersion(ctx context.Context, modelID uuid.UUID) (*Version, error)

	CreateSection(ctx context.Context, s *Section) error
	CreateQuestion(ctx context.Context, q *Question) error
	CreateOption(ctx context.Context, o *Option) error

	ListSections(ctx context.Context, versionID uuid.UUID) ([]*Section, error)
	ListOptions(ctx context.Context, questionID uuid.UUID) ([]*Option, error)
	// ListVersionQuestions returns the full question set of a version across
	// all its sections, for completion accounting.
	ListVersionQuestions(ctx context.Context, versionID uuid.UUID) ([]*Question, error)
}

// InstanceRepository persists the instance side: filled forms, answers and
// selected options.
type InstanceRepository interface {
	// GetFilledForm returns the patient's single instance of the model,
	// whatever version it is pinned to.
	GetFilledForm(ctx context.Context, patientID, modelID uuid.UUID) (*FilledForm, error)
	CreateFilledForm(ctx context.Context, f *FilledForm) error
	UpdateFilledForm(ctx context.Context, f *FilledForm) error

	// UpsertAnswer inserts or replaces the answer keyed by
	// (filled form, question), and sets a.ID to the surviving row's id.
	UpsertAnswer(ctx context.Context, a *Answer) error
	ListAnswers(ctx context.Context, filledFormID uuid.UUID) ([]*Answer, error)

	// ReplaceSelectedOptions deletes the answer's current selection set and
	// inserts the given one.
	ReplaceSelectedOptions(ctx context.Context, answerID uuid.UUID, opts []*SelectedOption) error
	ListSelectedOptions(ctx context.Context, filledFormID uuid.UUID) ([]*SelectedOption, error)
}
