// Package report renders evaluation summaries and version deltas.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"apidrift/internal/core/app"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/shared/util"
	"apidrift/internal/ui/report/formats"
)

type Format string

const (
	FormatTSV      Format = "tsv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatTSV, FormatMarkdown, FormatJSON, FormatYAML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported report format %q (tsv, markdown, json, yaml)", value)
}

// RenderSummary renders an evaluation summary. YAML is not offered for
// summaries.
func RenderSummary(s *app.Summary, format Format, opts formats.MarkdownReportOptions) ([]byte, error) {
	switch format {
	case FormatTSV:
		return []byte(formats.NewTSVGenerator().Summary(s)), nil
	case FormatMarkdown:
		return []byte(formats.NewMarkdownGenerator().Generate(s, opts)), nil
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	}
	return nil, fmt.Errorf("format %q is not available for summaries", format)
}

// RenderDeltas renders the version history of pkg.
func RenderDeltas(pkg string, deltas []apidiff.VersionDelta, format Format, brief bool) ([]byte, error) {
	doc := formats.NewDeltaDocument(pkg, deltas, brief)
	switch format {
	case FormatYAML:
		return doc.YAML()
	case FormatJSON:
		return doc.JSON()
	case FormatTSV:
		return []byte(formats.NewTSVGenerator().Deltas(pkg, deltas)), nil
	case FormatMarkdown:
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n| Version | Index | Added | Removed |\n| --- | ---: | ---: | ---: |\n", pkg)
		for _, v := range doc.Versions {
			fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", v.Version, v.Index, v.Added, v.Removed)
		}
		return []byte(b.String()), nil
	}
	return nil, fmt.Errorf("unsupported report format %q", format)
}

// WriteSummaryFiles writes the summary in every format that supports it plus
// the per-task TSV under dir, named after base.
func WriteSummaryFiles(dir, base string, s *app.Summary, results []app.Result, opts formats.MarkdownReportOptions) ([]string, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}
	var written []string
	for _, f := range []struct {
		format Format
		ext    string
	}{
		{FormatTSV, ".tsv"},
		{FormatMarkdown, ".md"},
		{FormatJSON, ".json"},
	} {
		data, err := RenderSummary(s, f.format, opts)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, base+f.ext)
		if err := util.WriteFileWithDirs(path, data, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, base+"_tasks.tsv")
	if err := util.WriteFileWithDirs(path, []byte(formats.NewTSVGenerator().Results(results)), 0o644); err != nil {
		return written, err
	}
	return append(written, path), nil
}
