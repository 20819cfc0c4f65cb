package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"apidrift/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workspace writes a config rooted at a temp dir and returns both.
func workspace(t *testing.T, extra string) (string, string) {
	t.Helper()
	root := t.TempDir()
	cfg := "version = 1\n\n[paths]\nroot = " + quote(root) + "\n\n[logging]\nlevel = \"warn\"\n" + extra
	path := filepath.Join(root, "apidrift.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return root, path
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	_, cfg := workspace(t, "")
	out, err := run(t, "--config", cfg, "version")
	require.NoError(t, err)
	assert.Equal(t, "apidrift "+versionString+"\n", out)
}

func TestInvalidConfigFails(t *testing.T) {
	root := t.TempDir()
	cfg := writeFile(t, root, "bad.toml", "[logging]\nlevel = \"loud\"\n")
	_, err := run(t, "--config", cfg, "version")
	require.Error(t, err)
}

func TestClassifyInlineSignature(t *testing.T) {
	_, cfg := workspace(t, "")

	out, err := run(t, "--config", cfg, "classify",
		"--pred", "y = foo(a)",
		"--gt", "y = foo(a)",
		"--signature", `{"name":"foo","params":["a"],"has_return":true}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "CR"), out)

	out, err = run(t, "--config", cfg, "classify", "--json",
		"--source", "import numpy as np\n",
		"--pred", "np.sum(x)",
		"--gt", "np.mean(x)",
		"--signature", `{"name":"numpy.mean","params":["a"],"has_return":true}`)
	require.NoError(t, err)

	var res struct {
		Verdict struct {
			Outcome string `json:"outcome"`
			Reason  string `json:"reason"`
		} `json:"verdict"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "BCR", res.Verdict.Outcome)
	assert.Equal(t, "Method Name Mismatch", res.Verdict.Reason)
}

func TestClassifyNeedsSignatureOrPackage(t *testing.T) {
	_, cfg := workspace(t, "")
	_, err := run(t, "--config", cfg, "classify", "--pred", "foo()", "--gt", "foo()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--signature")
}

func TestScanDiffAndClassifyFromKnowledge(t *testing.T) {
	root, cfg := workspace(t, "")
	writeFile(t, root, "packages/tiny/tiny-1.0/tiny/__init__.py", "from .core import load\n")
	writeFile(t, root, "packages/tiny/tiny-1.0/tiny/core.py", "def load(path):\n    return path\n\ndef legacy():\n    pass\n")
	writeFile(t, root, "packages/tiny/tiny-1.1/tiny/__init__.py", "from .core import load\n")
	writeFile(t, root, "packages/tiny/tiny-1.1/tiny/core.py", "def load(path, mode='r'):\n    return path\n")

	out, err := run(t, "--config", cfg, "scan", "tiny")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned  1.0")
	assert.Contains(t, out, "delta    1.1")
	assert.Contains(t, out, "+2 -3")

	out, err = run(t, "--config", cfg, "scan", "tiny")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped  1.1")

	out, err = run(t, "--config", cfg, "diff", "tiny", "--format", "tsv")
	require.NoError(t, err)
	assert.Contains(t, out, "tiny.core.legacy")

	out, err = run(t, "--config", cfg, "diff", "tiny", "--format", "yaml", "--brief")
	require.NoError(t, err)
	assert.Contains(t, out, "package: tiny")

	_, err = run(t, "--config", cfg, "diff", "unknown")
	require.Error(t, err)

	out, err = run(t, "--config", cfg, "classify",
		"--package", "tiny", "--version", "==1.0",
		"--source", "import tiny\n",
		"--pred", "tiny.load(p)",
		"--gt", "tiny.load(p)")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "CR"), out)
	assert.Contains(t, out, "version:   1.0")
}

func TestDepsCommand(t *testing.T) {
	_, cfg := workspace(t, "")
	project := t.TempDir()
	writeFile(t, project, "requirements.txt", "requests==2.31.0\nflask>=2.0\n")

	out, err := run(t, "--config", cfg, "deps", project)
	require.NoError(t, err)
	assert.Contains(t, out, "requests\t==2.31.0\tpinned\t2.31.0")
	assert.Contains(t, out, "flask\t>=2.0\trange\t")

	out, err = run(t, "--config", cfg, "deps", project, "--package", "Flask", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "range"`)
	assert.NotContains(t, out, "requests")

	_, err = run(t, "--config", cfg, "deps", project, "--package", "numpy")
	require.Error(t, err)
}

const evalTasks = `{"id":"t1","package":"numpy","version":"==1.0","source":"import numpy as np\n","predicted":"np.sum(x)","ground_truth":"np.mean(x)","signature":{"name":"numpy.mean","params":["a"],"has_return":true}}
{"id":"t2","package":"numpy","version":"==1.0","predicted":"y = foo(a)","ground_truth":"y = foo(a)","signature":{"name":"foo","params":["a"],"has_return":true}}
{"id":"t3","package":"numpy","version":">=1.0","source":"import numpy as np\n","predicted":"np.sum(x)","ground_truth":"np.mean(x)","signature":{"name":"numpy.mean","params":["a"],"has_return":true}}
`

func TestEvalMemoryQueue(t *testing.T) {
	root, cfg := workspace(t, "\n[eval]\nqueue = \"memory\"\n")
	tasks := writeFile(t, root, "tasks.jsonl", evalTasks)
	readme := writeFile(t, root, "README.md", "# Results\n\n<!-- apidrift:summary:start -->\nold\n<!-- apidrift:summary:end -->\n")

	out, err := run(t, "--config", cfg, "eval", tasks, "--model", "m1", "--inject", readme+":summary")
	require.NoError(t, err)
	assert.Contains(t, out, "# Evaluation Report")

	for _, name := range []string{"m1.tsv", "m1.md", "m1.json", "m1_tasks.tsv", "m1_repairs.jsonl"} {
		_, err := os.Stat(filepath.Join(root, "output", name))
		assert.NoError(t, err, name)
	}

	repairs := readRepairs(t, filepath.Join(root, "output", "m1_repairs.jsonl"))
	require.Len(t, repairs, 1)
	assert.Equal(t, "t1", repairs[0].TaskID)
	assert.Contains(t, repairs[0].Knowledge, "numpy.mean(a)")

	injected, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.NotContains(t, string(injected), "old")
	assert.Contains(t, string(injected), "## API Change Type")
}

func TestEvalSpoolThenExport(t *testing.T) {
	root, cfg := workspace(t, "")
	tasks := writeFile(t, root, "tasks.jsonl", evalTasks)

	out, err := run(t, "--config", cfg, "eval", tasks, "--format", "json", "--repair-all")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 3`)

	out, err = run(t, "--config", cfg, "repairs", "status", "--run", "tasks")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "run tasks: 2 pending\n"), out)
	assert.Contains(t, out, "numpy.mean")

	exportPath := filepath.Join(root, "repairs.jsonl")
	_, err = run(t, "--config", cfg, "repairs", "export", "--run", "tasks", "--out", exportPath)
	require.NoError(t, err)
	assert.Len(t, readRepairs(t, exportPath), 2)

	out, err = run(t, "--config", cfg, "repairs", "status", "--run", "tasks")
	require.NoError(t, err)
	assert.Equal(t, "run tasks: 0 pending\n", out)
}

func TestEvalRejectsBadFlags(t *testing.T) {
	root, cfg := workspace(t, "")
	tasks := writeFile(t, root, "tasks.jsonl", evalTasks)

	_, err := run(t, "--config", cfg, "eval", tasks, "--format", "yaml")
	require.Error(t, err)
	_, err = run(t, "--config", cfg, "eval", tasks, "--queue", "kafka")
	require.Error(t, err)
	_, err = run(t, "--config", cfg, "eval", tasks, "--inject", "README.md")
	require.Error(t, err)
}

func TestParseInject(t *testing.T) {
	tests := []struct {
		raw, file, marker string
		wantErr           bool
	}{
		{"", "", "", false},
		{"README.md:summary", "README.md", "summary", false},
		{`C:\docs\README.md:summary`, `C:\docs\README.md`, "summary", false},
		{"README.md", "", "", true},
		{"README.md:", "", "", true},
		{":summary", "", "", true},
	}
	for _, tt := range tests {
		file, marker, err := parseInject(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.file, file)
		assert.Equal(t, tt.marker, marker)
	}
}

func readRepairs(t *testing.T, path string) []ports.RepairTask {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var out []ports.RepairTask
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var task ports.RepairTask
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &task))
		out = append(out, task)
	}
	require.NoError(t, scanner.Err())
	return out
}
