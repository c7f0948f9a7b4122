package form

import (
	"math"

	"github.com/google/uuid"
)

// Completion summarizes mandatory-question progress for one filled form.
type Completion struct {
	TotalActiveMandatory int
	AnsweredMandatory    int
	Percentage           int
	// Missing lists the active mandatory questions still unanswered, in
	// template order.
	Missing []uuid.UUID
}

// ComputeCompletion walks every question of the version and accounts for the
// ones that are both mandatory and active. A question with no dependency is
// always active; a derived question is active only while its triggering
// option is currently selected. Inactive questions never count, answered or
// not.
//
// answered holds the question ids that currently carry an answer; selected
// holds the option ids currently selected anywhere on the form.
func ComputeCompletion(questions []*Question, answered map[uuid.UUID]bool, selected map[uuid.UUID]bool) Completion {
	var c Completion
	for _, q := range questions {
		if !q.Mandatory {
			continue
		}
		if q.DependsOnOptionID != nil && !selected[*q.DependsOnOptionID] {
			continue
		}
		c.TotalActiveMandatory++
		if answered[q.ID] {
			c.AnsweredMandatory++
		} else {
			c.Missing = append(c.Missing, q.ID)
		}
	}
	if c.TotalActiveMandatory == 0 {
		c.Percentage = 0
		return c
	}
	c.Percentage = int(math.Round(100 * float64(c.AnsweredMandatory) / float64(c.TotalActiveMandatory)))
	return c
}
