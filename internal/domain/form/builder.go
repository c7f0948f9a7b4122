package form

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/intake/internal/platform/fault"
)

// treeBuilder writes a nested template definition into the relational store.
// Inserts run depth-first and strictly in order: a derived question's
// depends_on_option_id references the generated id of an option inserted
// moments before, so nothing here may be reordered or batched.
type treeBuilder struct {
	repo TemplateRepository
}

// Build inserts the full structure of in under versionID and returns the
// number of questions created, derived ones included.
func (b *treeBuilder) Build(ctx context.Context, versionID uuid.UUID, in PublishInput) (int, error) {
	total := 0
	for i, sin := range in.Sections {
		sec := &Section{
			VersionID: versionID,
			Title:     sin.Title,
			Position:  positionOr(sin.Position, i),
		}
		if err := b.repo.CreateSection(ctx, sec); err != nil {
			return 0, err
		}
		for j, qin := range sin.Questions {
			n, err := b.insertQuestion(ctx, qin, sec.ID, nil, j)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

// insertQuestion inserts one question, its options, and recursively every
// question derived from those options. Derived questions land in the same
// section as their parent; dependsOn carries the generated id of the
// triggering option.
func (b *treeBuilder) insertQuestion(ctx context.Context, in QuestionInput, sectionID uuid.UUID, dependsOn *uuid.UUID, idx int) (int, error) {
	// Option/kind pairing is a caller-side concern checked at the handler
	// edge; only the kind itself must be one the engine understands.
	if !in.Kind.IsValid() {
		return 0, fault.Invalid("unknown question kind %q", in.Kind)
	}
	q := &Question{
		SectionID:         sectionID,
		Statement:         in.Statement,
		Kind:              in.Kind,
		Mandatory:         in.Mandatory,
		Position:          positionOr(in.Position, idx),
		DependsOnOptionID: dependsOn,
	}
	if err := b.repo.CreateQuestion(ctx, q); err != nil {
		return 0, err
	}
	total := 1
	for k, oin := range in.Options {
		opt := &Option{
			QuestionID:       q.ID,
			Statement:        oin.Statement,
			Position:         positionOr(oin.Position, k),
			RequiresFreeText: oin.RequiresFreeText,
			FreeTextLabel:    oin.FreeTextLabel,
		}
		if err := b.repo.CreateOption(ctx, opt); err != nil {
			return 0, err
		}
		for m, din := range oin.DerivedQuestions {
			n, err := b.insertQuestion(ctx, din, sectionID, &opt.ID, m)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

// positionOr falls back to the element's index when the caller left the
// position at its zero value, keeping template order stable either way.
func positionOr(pos, idx int) int {
	if pos != 0 {
		return pos
	}
	return idx
}
