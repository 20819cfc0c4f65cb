package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"apidrift/internal/core/errors"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/engine/requirements"
)

const maxTaskLine = 16 << 20

// Task is one benchmark item: the statement a model predicted for the line
// holding a third-party API call, and the ground truth it replaces.
type Task struct {
	ID      string `json:"id"`
	Package string `json:"package"`
	// Version is the manifest constraint such as "==1.2.0", ">=1.0" or "".
	// A "~~" prefix marks an unconstrained dependency whose version was
	// resolved out of band.
	Version string `json:"version,omitempty"`
	// Constraint overrides the kind derived from Version.
	Constraint requirements.ConstraintKind `json:"constraint,omitempty"`
	// Shift overrides the API change kind derived from the knowledge base.
	Shift apidiff.ShiftKind `json:"shift,omitempty"`
	// API names the ground-truth callee for signature lookup. When empty the
	// ground truth's resolved callee is used.
	API         string       `json:"api,omitempty"`
	Source      string       `json:"source,omitempty"`
	SourceFile  string       `json:"source_file,omitempty"`
	Predicted   string       `json:"predicted"`
	GroundTruth string       `json:"ground_truth"`
	Signature   *apidiff.API `json:"signature,omitempty"`
}

// ConstraintKind returns the explicit constraint or the one Version implies.
func (t Task) ConstraintKind() requirements.ConstraintKind {
	if t.Constraint != "" {
		return t.Constraint
	}
	if strings.HasPrefix(t.Version, "~~") {
		return requirements.Unconstrained
	}
	dep, ok := requirements.ParseLine(t.Package + t.Version)
	if !ok {
		return requirements.Unconstrained
	}
	return dep.Kind
}

// LookupVersion is the exact version signatures are read for, or "" when
// the constraint does not name one.
func (t Task) LookupVersion() string {
	if v, ok := strings.CutPrefix(t.Version, "~~"); ok {
		return strings.TrimSpace(v)
	}
	dep, ok := requirements.ParseLine(t.Package + t.Version)
	if !ok {
		return ""
	}
	return dep.Version()
}

func (t Task) validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New(errors.CodeValidationError, "task id is required")
	}
	if t.Signature == nil && strings.TrimSpace(t.Package) == "" {
		return errors.AddContext(
			errors.New(errors.CodeValidationError, "task needs an inline signature or a package"),
			errors.CtxTask, t.ID)
	}
	return nil
}

// ReadTasks decodes JSON lines. Blank lines are skipped; a malformed line
// aborts with its line number.
func ReadTasks(r io.Reader) ([]Task, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTaskLine)

	var tasks []Task
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeParseError, fmt.Sprintf("decode task on line %d", line)),
				"line", line)
		}
		if err := task.validate(); err != nil {
			return nil, errors.AddContext(err, "line", line)
		}
		tasks = append(tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "read tasks")
	}
	return tasks, nil
}
