package formats

import (
	"bytes"
	"encoding/json"

	"apidrift/internal/engine/apidiff"

	"gopkg.in/yaml.v3"
)

// DeltaDocument is the serialized form of a package's version history.
type DeltaDocument struct {
	Package  string         `json:"package" yaml:"package"`
	Versions []DeltaVersion `json:"versions" yaml:"versions"`
}

type DeltaVersion struct {
	Version string          `json:"version" yaml:"version"`
	Index   int             `json:"index" yaml:"index"`
	Added   int             `json:"added" yaml:"added"`
	Removed int             `json:"removed" yaml:"removed"`
	Entries []apidiff.Entry `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// NewDeltaDocument summarizes deltas. With brief set, entries of the first
// version (the whole initial API set) are left out.
func NewDeltaDocument(pkg string, deltas []apidiff.VersionDelta, brief bool) DeltaDocument {
	doc := DeltaDocument{Package: pkg, Versions: make([]DeltaVersion, 0, len(deltas))}
	for i, d := range deltas {
		added, removed := d.Summary()
		v := DeltaVersion{Version: d.Version, Index: d.Index, Added: added, Removed: removed}
		if !brief || i > 0 {
			v.Entries = d.Entries
		}
		doc.Versions = append(doc.Versions, v)
	}
	return doc
}

func (d DeltaDocument) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d DeltaDocument) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
