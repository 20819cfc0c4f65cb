package apidiff

import (
	"sort"
)

// Marker is the membership change of an API between two versions.
type Marker string

const (
	Unchanged Marker = "="
	Added     Marker = "+"
	Removed   Marker = "-"
)

// VersionSet is the API set declared by one version.
type VersionSet struct {
	Version string `json:"version" yaml:"version"`
	APIs    []API  `json:"apis" yaml:"apis"`
}

// Entry is one API with its marker.
type Entry struct {
	API    API    `json:"api" yaml:"api"`
	Marker Marker `json:"marker" yaml:"marker"`
}

// VersionDelta lists the entries of one version relative to its predecessor.
type VersionDelta struct {
	Version string  `json:"version" yaml:"version"`
	Index   int     `json:"index" yaml:"index"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Summary counts added and removed entries.
func (d VersionDelta) Summary() (added, removed int) {
	for _, e := range d.Entries {
		switch e.Marker {
		case Added:
			added++
		case Removed:
			removed++
		}
	}
	return added, removed
}

// Diff computes per-version deltas for versions already in ascending order.
// The first version lists every API as Unchanged; each later version lists
// the APIs removed since and added after its predecessor, keyed by API.Key.
// Unchanged APIs of later versions are omitted. Entries are sorted by name,
// then marker.
func Diff(versions []VersionSet) []VersionDelta {
	if len(versions) == 0 {
		return nil
	}

	out := make([]VersionDelta, 0, len(versions))
	prev := index(versions[0].APIs)
	first := VersionDelta{Version: versions[0].Version, Index: 0}
	for _, api := range prev {
		first.Entries = append(first.Entries, Entry{API: api, Marker: Unchanged})
	}
	sortEntries(first.Entries)
	out = append(out, first)

	for i := 1; i < len(versions); i++ {
		cur := index(versions[i].APIs)
		delta := VersionDelta{Version: versions[i].Version, Index: i}
		for key, api := range prev {
			if _, ok := cur[key]; !ok {
				delta.Entries = append(delta.Entries, Entry{API: api, Marker: Removed})
			}
		}
		for key, api := range cur {
			if _, ok := prev[key]; !ok {
				delta.Entries = append(delta.Entries, Entry{API: api, Marker: Added})
			}
		}
		sortEntries(delta.Entries)
		out = append(out, delta)
		prev = cur
	}
	return out
}

// Between is the delta of cur relative to prev alone.
func Between(prev, cur VersionSet) VersionDelta {
	deltas := Diff([]VersionSet{prev, cur})
	deltas[1].Index = 0
	return deltas[1]
}

func index(apis []API) map[string]API {
	out := make(map[string]API, len(apis))
	for _, api := range apis {
		out[api.Key()] = api
	}
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].API.Name != entries[j].API.Name {
			return entries[i].API.Name < entries[j].API.Name
		}
		if entries[i].Marker != entries[j].Marker {
			return entries[i].Marker < entries[j].Marker
		}
		return entries[i].API.Key() < entries[j].API.Key()
	})
}
