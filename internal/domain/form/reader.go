package form

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// treeReader re-nests a version's flat rows into the tree view. It reads the
// structure in three queries regardless of depth, then stitches questions
// under sections or under their triggering options in memory.
type treeReader struct {
	repo TemplateRepository
}

func (r *treeReader) Read(ctx context.Context, v *Version) (*Tree, error) {
	sections, err := r.repo.ListSections(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	questions, err := r.repo.ListVersionQuestions(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	tree := &Tree{Version: v}
	secViews := make(map[uuid.UUID]*SectionView, len(sections))
	for _, s := range sections {
		sv := &SectionView{ID: s.ID, Title: s.Title, Position: s.Position}
		secViews[s.ID] = sv
		tree.Sections = append(tree.Sections, sv)
	}

	qViews := make(map[uuid.UUID]*QuestionView, len(questions))
	optViews := make(map[uuid.UUID]*OptionView)
	for _, q := range questions {
		qViews[q.ID] = &QuestionView{
			ID:        q.ID,
			Statement: q.Statement,
			Kind:      q.Kind,
			Mandatory: q.Mandatory,
			Position:  q.Position,
		}
	}
	for _, q := range questions {
		opts, err := r.repo.ListOptions(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		for _, o := range opts {
			ov := &OptionView{
				ID:               o.ID,
				Statement:        o.Statement,
				Position:         o.Position,
				RequiresFreeText: o.RequiresFreeText,
				FreeTextLabel:    o.FreeTextLabel,
			}
			optViews[o.ID] = ov
			qViews[q.ID].Options = append(qViews[q.ID].Options, ov)
		}
	}

	// Root questions hang off their section; derived ones off the option
	// they depend on. Every option view already exists at this point, so
	// placement order does not matter.
	for _, q := range questions {
		qv := qViews[q.ID]
		if q.DependsOnOptionID == nil {
			if sv, ok := secViews[q.SectionID]; ok {
				sv.Questions = append(sv.Questions, qv)
			}
			continue
		}
		if ov, ok := optViews[*q.DependsOnOptionID]; ok {
			ov.DerivedQuestions = append(ov.DerivedQuestions, qv)
		}
	}
	sortTree(tree.Sections)
	return tree, nil
}

// ReadFilled merges one patient's answers into the version tree. Answer
// shape follows the question kind: free text verbatim for text, integer and
// date kinds, one SelectedAnswer for single-choice, a slice for
// multiple-choice.
func (r *treeReader) ReadFilled(ctx context.Context, v *Version, instances InstanceRepository, f *FilledForm) (*FilledTree, error) {
	tree, err := r.Read(ctx, v)
	if err != nil {
		return nil, err
	}
	ft := &FilledTree{
		Version:    tree.Version,
		Sections:   tree.Sections,
		Status:     f.Status,
		Percentage: f.CompletionPercentage,
	}
	answers, err := instances.ListAnswers(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	selected, err := instances.ListSelectedOptions(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	byAnswer := make(map[uuid.UUID][]SelectedAnswer)
	for _, so := range selected {
		byAnswer[so.AnswerID] = append(byAnswer[so.AnswerID], SelectedAnswer{
			ID:         so.OptionID,
			Complement: so.ComplementText,
		})
	}
	byQuestion := make(map[uuid.UUID]*Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	eachQuestion(ft.Sections, func(qv *QuestionView) {
		a, ok := byQuestion[qv.ID]
		if !ok {
			return
		}
		switch {
		case qv.Kind == KindSingleChoice:
			if sel := byAnswer[a.ID]; len(sel) > 0 {
				qv.Answer = sel[0]
			}
		case qv.Kind == KindMultipleChoice:
			if sel := byAnswer[a.ID]; len(sel) > 0 {
				qv.Answer = sel
			}
		default:
			if a.FreeTextValue != nil {
				qv.Answer = *a.FreeTextValue
			}
		}
	})
	return ft, nil
}

func sortTree(sections []*SectionView) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Position < sections[j].Position
	})
	for _, sv := range sections {
		sortQuestions(sv.Questions)
	}
}

func sortQuestions(qs []*QuestionView) {
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Position < qs[j].Position })
	for _, qv := range qs {
		sort.SliceStable(qv.Options, func(i, j int) bool {
			return qv.Options[i].Position < qv.Options[j].Position
		})
		for _, ov := range qv.Options {
			sortQuestions(ov.DerivedQuestions)
		}
	}
}

func eachQuestion(sections []*SectionView, fn func(*QuestionView)) {
	var walk func(qs []*QuestionView)
	walk = func(qs []*QuestionView) {
		for _, qv := range qs {
			fn(qv)
			for _, ov := range qv.Options {
				walk(ov.DerivedQuestions)
			}
		}
	}
	for _, sv := range sections {
		walk(sv.Questions)
	}
}
