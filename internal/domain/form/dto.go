package form

import "github.com/google/uuid"

// ---------------------------------------------------------------------------
// Publish input
// ---------------------------------------------------------------------------

// PublishInput is the nested template definition submitted when publishing a
// new version of a model. Field names follow the established wire contract.
type PublishInput struct {
	Sections []SectionInput `json:"secoes" validate:"required,min=1,dive"`
}

type SectionInput struct {
	Title     string          `json:"titulo" validate:"required"`
	Position  int             `json:"ordem"`
	Questions []QuestionInput `json:"perguntas" validate:"dive"`
}

type QuestionInput struct {
	Statement string        `json:"enunciado" validate:"required"`
	Kind      QuestionKind  `json:"tipo" validate:"required"`
	Mandatory bool          `json:"obrigatoria"`
	Position  int           `json:"ordem"`
	Options   []OptionInput `json:"opcoes,omitempty" validate:"dive"`
}

type OptionInput struct {
	Statement        string  `json:"enunciado" validate:"required"`
	Position         int     `json:"ordem"`
	RequiresFreeText bool    `json:"requerTexto"`
	FreeTextLabel    *string `json:"labelTexto,omitempty"`
	// Derived questions become visible only while this option is selected.
	// They share the parent question's section.
	DerivedQuestions []QuestionInput `json:"perguntasDerivadas,omitempty" validate:"dive"`
}

// ---------------------------------------------------------------------------
// Submit input
// ---------------------------------------------------------------------------

// SubmitInput carries a flat list of answers for a filled instance.
type SubmitInput struct {
	VersionID uuid.UUID     `json:"versaoId" validate:"required"`
	Finalize  bool          `json:"finalizar"`
	Answers   []AnswerInput `json:"respostas" validate:"dive"`
}

type AnswerInput struct {
	QuestionID uuid.UUID             `json:"perguntaId" validate:"required"`
	Value      *string               `json:"valor,omitempty"`
	Options    []SelectedOptionInput `json:"opcoes,omitempty" validate:"dive"`
}

type SelectedOptionInput struct {
	ID         uuid.UUID `json:"id" validate:"required"`
	Complement *string   `json:"complemento,omitempty"`
}

// SubmitResult is the outcome of one submission: the updated instance plus
// the active mandatory questions still unanswered. Missing is always
// present, empty when the form is complete.
type SubmitResult struct {
	*FilledForm
	Missing []uuid.UUID `json:"missing"`
}

// ---------------------------------------------------------------------------
// Tree views (read side)
// ---------------------------------------------------------------------------

// Tree is the re-nested view of one version's full structure.
type Tree struct {
	Version  *Version       `json:"versao"`
	Sections []*SectionView `json:"secoes"`
}

type SectionView struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"titulo"`
	Position  int             `json:"ordem"`
	Questions []*QuestionView `json:"perguntas"`
}

type QuestionView struct {
	ID        uuid.UUID    `json:"id"`
	Statement string       `json:"enunciado"`
	Kind      QuestionKind `json:"tipo"`
	Mandatory bool         `json:"obrigatoria"`
	Position  int          `json:"ordem"`
	Options   []*OptionView `json:"opcoes,omitempty"`
	// Answer is only populated on the patient-form view. Its shape depends on
	// the question kind: a string for text/integer/date kinds, a single
	// SelectedAnswer for single-choice, a []SelectedAnswer for
	// multiple-choice.
	Answer interface{} `json:"resposta,omitempty"`
}

type OptionView struct {
	ID               uuid.UUID       `json:"id"`
	Statement        string          `json:"enunciado"`
	Position         int             `json:"ordem"`
	RequiresFreeText bool            `json:"requerTexto"`
	FreeTextLabel    *string         `json:"labelTexto,omitempty"`
	DerivedQuestions []*QuestionView `json:"perguntasDerivadas,omitempty"`
}

// SelectedAnswer is the answer payload for a chosen option.
type SelectedAnswer struct {
	ID         uuid.UUID `json:"id"`
	Complement *string   `json:"complemento,omitempty"`
}

// FilledTree is a version tree merged with one patient's answers.
type FilledTree struct {
	Version    *Version       `json:"versao"`
	Sections   []*SectionView `json:"secoes"`
	Status     Status         `json:"status"`
	Percentage int            `json:"porcentagem"`
}
