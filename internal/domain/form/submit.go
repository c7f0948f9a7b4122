package form

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinic/intake/internal/platform/fault"
)

// freeTextClear is the sentinel the client sends as a question's value to
// erase previously stored free text.
const freeTextClear = "null"

// Submit applies a batch of answers to the patient's filled instance,
// recomputes completion and, when requested, finalizes. The whole batch runs
// in one transaction: a finalize that still has missing mandatory questions
// rolls everything back, answers included. A non-finalizing submission
// reports which active mandatory questions are still unanswered.
func (s *Service) Submit(ctx context.Context, modelTitle string, actorID, patientID uuid.UUID, in SubmitInput) (*SubmitResult, error) {
	if err := s.patients.Lookup(ctx, patientID); err != nil {
		return nil, err
	}
	if err := s.patients.Authorize(ctx, actorID, patientID); err != nil {
		return nil, err
	}
	if err := s.patients.CaseOpen(ctx, patientID); err != nil {
		return nil, err
	}
	model, err := s.templates.GetModelByTitle(ctx, modelTitle)
	if err != nil {
		return nil, err
	}
	version, err := s.templates.GetVersion(ctx, in.VersionID)
	if err != nil {
		return nil, err
	}
	if version.ModelID != model.ID {
		return nil, fault.Invalid("version %s does not belong to model %q", version.ID, modelTitle)
	}

	var filled *FilledForm
	missing := []uuid.UUID{}
	err = s.inTx(ctx, func(ctx context.Context) error {
		// The instance is created on the read path; a submission against a
		// never-opened form is a client error.
		filled, err = s.instances.GetFilledForm(ctx, patientID, model.ID)
		if err != nil {
			return err
		}
		if filled.Status == StatusFinalized {
			return fault.Conflict("filled form %s is finalized", filled.ID)
		}
		if filled.VersionID != version.ID {
			return fault.Conflict("filled form %s is pinned to version %s, not %s",
				filled.ID, filled.VersionID, version.ID)
		}
		questions, err := s.templates.ListVersionQuestions(ctx, version.ID)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*Question, len(questions))
		for _, q := range questions {
			byID[q.ID] = q
		}
		for _, ain := range in.Answers {
			q, ok := byID[ain.QuestionID]
			if !ok {
				return fault.Invalid("question %s does not belong to version %s", ain.QuestionID, version.ID)
			}
			if err := s.applyAnswer(ctx, filled, q, ain); err != nil {
				return err
			}
		}

		comp, err := s.completion(ctx, questions, filled.ID)
		if err != nil {
			return err
		}
		filled.CompletionPercentage = comp.Percentage
		if len(comp.Missing) > 0 {
			missing = comp.Missing
		}
		if in.Finalize {
			if len(comp.Missing) > 0 {
				return fault.Invalid("cannot finalize: %d mandatory questions unanswered", len(comp.Missing)).
					WithDetails(map[string]interface{}{"missing": comp.Missing})
			}
			filled.Status = StatusFinalized
		}
		return s.instances.UpdateFilledForm(ctx, filled)
	})
	if err != nil {
		return nil, err
	}
	if filled.Status == StatusFinalized {
		for _, hook := range s.hooks {
			hook(ctx, modelTitle, filled)
		}
	}
	log.Info().
		Str("model", modelTitle).
		Str("filled_form_id", filled.ID.String()).
		Int("answers", len(in.Answers)).
		Int("percentage", filled.CompletionPercentage).
		Bool("finalized", filled.Status == StatusFinalized).
		Msg("form submission applied")
	return &SubmitResult{FilledForm: filled, Missing: missing}, nil
}

// applyAnswer upserts one answer row and, for choice kinds, replaces the
// selection set wholesale.
func (s *Service) applyAnswer(ctx context.Context, filled *FilledForm, q *Question, in AnswerInput) error {
	if q.Kind.IsChoice() {
		return s.applyChoice(ctx, filled, q, in)
	}
	if len(in.Options) > 0 {
		return fault.Invalid("question %s takes free text, not options", q.ID)
	}
	value := in.Value
	if value != nil && *value == freeTextClear {
		value = nil
	}
	a := &Answer{FilledFormID: filled.ID, QuestionID: q.ID, FreeTextValue: value}
	return s.instances.UpsertAnswer(ctx, a)
}

func (s *Service) applyChoice(ctx context.Context, filled *FilledForm, q *Question, in AnswerInput) error {
	if q.Kind == KindSingleChoice && len(in.Options) > 1 {
		return fault.Invalid("question %s accepts a single option", q.ID)
	}
	valid, err := s.templates.ListOptions(ctx, q.ID)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*Option, len(valid))
	for _, o := range valid {
		byID[o.ID] = o
	}
	selected := make([]*SelectedOption, 0, len(in.Options))
	for _, oin := range in.Options {
		opt, ok := byID[oin.ID]
		if !ok {
			return fault.Invalid("option %s does not belong to question %s", oin.ID, q.ID)
		}
		complement := oin.Complement
		if !opt.RequiresFreeText {
			complement = nil
		}
		selected = append(selected, &SelectedOption{OptionID: opt.ID, ComplementText: complement})
	}
	a := &Answer{FilledFormID: filled.ID, QuestionID: q.ID}
	if err := s.instances.UpsertAnswer(ctx, a); err != nil {
		return err
	}
	return s.instances.ReplaceSelectedOptions(ctx, a.ID, selected)
}

// completion reloads the instance's current answers and selections and runs
// the calculator over them. An answer row with no free text and no selected
// options counts as unanswered.
func (s *Service) completion(ctx context.Context, questions []*Question, filledFormID uuid.UUID) (Completion, error) {
	answers, err := s.instances.ListAnswers(ctx, filledFormID)
	if err != nil {
		return Completion{}, err
	}
	selectedRows, err := s.instances.ListSelectedOptions(ctx, filledFormID)
	if err != nil {
		return Completion{}, err
	}
	selected := make(map[uuid.UUID]bool, len(selectedRows))
	selectedByAnswer := make(map[uuid.UUID]bool, len(selectedRows))
	for _, so := range selectedRows {
		selected[so.OptionID] = true
		selectedByAnswer[so.AnswerID] = true
	}
	answered := make(map[uuid.UUID]bool, len(answers))
	for _, a := range answers {
		if a.FreeTextValue != nil || selectedByAnswer[a.ID] {
			answered[a.QuestionID] = true
		}
	}
	return ComputeCompletion(questions, answered, selected), nil
}
