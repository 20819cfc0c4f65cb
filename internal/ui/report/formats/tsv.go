package formats

import (
	"fmt"
	"strings"

	"apidrift/internal/core/app"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/engine/classify"
)

type TSVGenerator struct{}

func NewTSVGenerator() *TSVGenerator {
	return &TSVGenerator{}
}

// Summary writes one row per group: the overall tally, then each constraint
// kind, then each API change kind.
func (t *TSVGenerator) Summary(s *app.Summary) string {
	var buf strings.Builder
	buf.WriteString("Group\tKind")
	for _, o := range classify.Outcomes {
		buf.WriteString("\t" + o.String())
	}
	buf.WriteString("\tTotal\n")

	writeRow := func(group, kind string, c app.Counts) {
		buf.WriteString(group + "\t" + kind)
		for _, o := range classify.Outcomes {
			fmt.Fprintf(&buf, "\t%d", c[o])
		}
		fmt.Fprintf(&buf, "\t%d\n", c.Total())
	}

	writeRow("total", "all", s.Outcomes)
	for _, k := range app.ConstraintKinds {
		writeRow("constraint", string(k), s.ByConstraint[k])
	}
	for _, k := range app.ShiftKinds {
		writeRow("shift", string(k), s.ByShift[k])
	}
	return buf.String()
}

// Results writes one row per task.
func (t *TSVGenerator) Results(results []app.Result) string {
	var buf strings.Builder
	buf.WriteString("Task\tOutcome\tReason\tConstraint\tShift\tVersion\tPredictedFQN\tExpectedFQN\tRepair\tError\n")
	for _, r := range results {
		outcome := r.Verdict.Outcome.String()
		if r.Error != "" {
			outcome = "SKIPPED"
		}
		fmt.Fprintf(&buf, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			r.TaskID,
			outcome,
			r.Verdict.Reason,
			r.Constraint,
			r.Shift,
			r.Version,
			r.Verdict.PredictedFQN,
			r.Verdict.ExpectedFQN,
			r.Repaired,
			oneLine(r.Error),
		)
	}
	return buf.String()
}

// Deltas writes one row per changed API.
func (t *TSVGenerator) Deltas(pkg string, deltas []apidiff.VersionDelta) string {
	var buf strings.Builder
	buf.WriteString("Package\tVersion\tIndex\tMarker\tAPI\tParams\tHasReturn\n")
	for _, d := range deltas {
		for _, e := range d.Entries {
			fmt.Fprintf(&buf, "%s\t%s\t%d\t%s\t%s\t%s\t%t\n",
				pkg, d.Version, d.Index, e.Marker, e.API.Name, strings.Join(e.API.Params, ","), e.API.HasReturn)
		}
	}
	return buf.String()
}

func oneLine(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
