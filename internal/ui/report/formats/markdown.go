package formats

import (
	"fmt"
	"strings"
	"time"

	"apidrift/internal/core/app"
	"apidrift/internal/engine/classify"
)

type MarkdownReportOptions struct {
	// Model names the system whose predictions were evaluated.
	Model       string
	Version     string
	GeneratedAt time.Time
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(s *app.Summary, opts MarkdownReportOptions) string {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: API Compatibility Report\n")
	b.WriteString("model: " + nonEmpty(opts.Model, "unknown") + "\n")
	b.WriteString("run_id: " + nonEmpty(s.RunID, "unknown") + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Evaluation Report\n\n")
	b.WriteString(m.Tables(s))
	return b.String()
}

// Tables renders the summary and breakdown tables without front matter.
func (m *MarkdownGenerator) Tables(s *app.Summary) string {
	var b strings.Builder
	b.WriteString("## Executive Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(&b, "| Tasks | %d |\n", s.Total)
	fmt.Fprintf(&b, "| Skipped | %d |\n", s.Skipped)
	fmt.Fprintf(&b, "| Repair Tasks | %d |\n", s.Repairs)
	classified := s.Outcomes.Total()
	for _, o := range classify.Outcomes {
		fmt.Fprintf(&b, "| %s | %d (%s) |\n", o, s.Outcomes[o], percent(s.Outcomes[o], classified))
	}
	b.WriteString("\n")

	b.WriteString("## Version Constraint Type\n")
	writeHeader(&b, "Constraint")
	for _, k := range app.ConstraintKinds {
		writeCounts(&b, string(k), s.ByConstraint[k])
	}
	b.WriteString("\n")

	b.WriteString("## API Change Type\n")
	writeHeader(&b, "Change")
	for _, k := range app.ShiftKinds {
		writeCounts(&b, string(k), s.ByShift[k])
	}
	return b.String()
}

func writeHeader(b *strings.Builder, first string) {
	b.WriteString("| " + first + " |")
	sep := "| --- |"
	for _, o := range classify.Outcomes {
		b.WriteString(" " + o.String() + " |")
		sep += " ---: |"
	}
	b.WriteString(" Total |\n")
	b.WriteString(sep + " ---: |\n")
}

func writeCounts(b *strings.Builder, label string, c app.Counts) {
	b.WriteString("| " + label + " |")
	for _, o := range classify.Outcomes {
		fmt.Fprintf(b, " %d |", c[o])
	}
	fmt.Fprintf(b, " %d |\n", c.Total())
}
