package chat

import "github.com/liliang-cn/askstream/internal/domain"

// StepTable is an insertion-ordered set of reasoning steps keyed by step ID.
// A repeated ID overwrites the existing entry without moving it.
type StepTable struct {
	order []string
	steps map[string]domain.ReasoningStep
}

// NewStepTable creates an empty table
func NewStepTable() *StepTable {
	return &StepTable{steps: make(map[string]domain.ReasoningStep)}
}

// Upsert appends a step with a new ID or replaces the entry with the same ID
func (t *StepTable) Upsert(step domain.ReasoningStep) {
	if _, exists := t.steps[step.ID]; !exists {
		t.order = append(t.order, step.ID)
	}
	t.steps[step.ID] = step
}

// Len returns the number of distinct steps
func (t *StepTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// List returns the steps in first-seen order
func (t *StepTable) List() []domain.ReasoningStep {
	if t.Len() == 0 {
		return nil
	}
	out := make([]domain.ReasoningStep, len(t.order))
	for i, id := range t.order {
		out[i] = t.steps[id]
	}
	return out
}

// Clone returns an independent copy
func (t *StepTable) Clone() *StepTable {
	c := NewStepTable()
	if t == nil {
		return c
	}
	c.order = append(c.order, t.order...)
	for id, step := range t.steps {
		c.steps[id] = step
	}
	return c
}
