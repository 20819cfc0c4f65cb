package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    map[string]int
		expected []string
	}{
		{name: "Empty", input: map[string]int{}, expected: []string{}},
		{name: "Outcomes", input: map[string]int{"UNCERTAIN": 1, "BCR": 4, "CR": 2}, expected: []string{"BCR", "CR", "UNCERTAIN"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := SortedKeys(tc.input)
			if len(got) != len(tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Fatalf("expected %v, got %v", tc.expected, got)
				}
			}
		})
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reports", "numpy", "summary.tsv")
	if err := WriteFileWithDirs(path, []byte("CR\t3\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "CR\t3\n" {
		t.Fatalf("unexpected content %q", string(got))
	}
}
