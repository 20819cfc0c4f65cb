package app

import (
	"time"

	"apidrift/internal/engine/apidiff"
	"apidrift/internal/engine/classify"
	"apidrift/internal/engine/requirements"
)

// Counts tallies outcomes.
type Counts map[classify.Outcome]int

func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Summary aggregates one evaluation run.
type Summary struct {
	RunID   string        `json:"run_id"`
	Total   int           `json:"total"`
	Skipped int           `json:"skipped"`
	Repairs int           `json:"repairs"`
	Elapsed time.Duration `json:"elapsed"`

	Outcomes     Counts                                 `json:"outcomes"`
	ByConstraint map[requirements.ConstraintKind]Counts `json:"by_constraint"`
	ByShift      map[apidiff.ShiftKind]Counts           `json:"by_shift"`
}

// ConstraintKinds and ShiftKinds fix the row order of breakdown tables.
var (
	ConstraintKinds = []requirements.ConstraintKind{requirements.Pinned, requirements.Range, requirements.Unconstrained}
	ShiftKinds      = []apidiff.ShiftKind{apidiff.ShiftName, apidiff.ShiftParameters, apidiff.ShiftReturnType}
)

func NewSummary(runID string) *Summary {
	s := &Summary{
		RunID:        runID,
		Outcomes:     Counts{},
		ByConstraint: make(map[requirements.ConstraintKind]Counts, len(ConstraintKinds)),
		ByShift:      make(map[apidiff.ShiftKind]Counts, len(ShiftKinds)),
	}
	for _, k := range ConstraintKinds {
		s.ByConstraint[k] = Counts{}
	}
	for _, k := range ShiftKinds {
		s.ByShift[k] = Counts{}
	}
	return s
}

func (s *Summary) record(res Result) {
	s.Total++
	if res.Error != "" {
		s.Skipped++
		return
	}
	outcome := res.Verdict.Outcome
	s.Outcomes[outcome]++
	if c, ok := s.ByConstraint[res.Constraint]; ok {
		c[outcome]++
	}
	if c, ok := s.ByShift[res.Shift]; ok {
		c[outcome]++
	}
	if res.Repaired {
		s.Repairs++
	}
}
