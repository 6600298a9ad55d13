package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fulmenhq/forge/pkg/scaffold"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/fulmenhq/forge/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleScaffold() *scaffold.Result {
	return &scaffold.Result{
		Root:        "/work/weather",
		Module:      "weather",
		ProjectType: "cli",
		Changes: []structure.ChangeRecord{
			{Path: "src", Action: structure.ActionCreatedDir},
			{Path: "src/weather", Action: structure.ActionCreatedDir},
			{Path: "src/weather/__init__.py", Action: structure.ActionCreatedFile, ContentSource: "python/base/__init__.py"},
		},
		Commit: "0123456789abcdef0123456789abcdef01234567",
	}
}

func TestScaffoldTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, Options{}).Scaffold(sampleScaffold(), false))

	out := buf.String()
	assert.Contains(t, out, "weather/")
	assert.Contains(t, out, "__init__.py")
	assert.Contains(t, out, "✔ Created cli project weather at /work/weather")
	assert.Contains(t, out, "git repository initialized (commit 0123456)")
}

func TestScaffoldDryRun(t *testing.T) {
	res := sampleScaffold()
	res.Commit = ""

	var buf bytes.Buffer
	require.NoError(t, New(&buf, Options{}).Scaffold(res, true))
	assert.NotContains(t, buf.String(), "Created")
	assert.Contains(t, buf.String(), changeSummary(3, true))

	buf.Reset()
	require.NoError(t, New(&buf, Options{Format: FormatJSON}).Scaffold(res, true))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["dry_run"])
	assert.Equal(t, "weather", decoded["module"])
	assert.Len(t, decoded["changes"], 3)
	assert.NotContains(t, decoded, "commit")

	buf.Reset()
	require.NoError(t, New(&buf, Options{Format: FormatMarkdown}).Scaffold(res, true))
	assert.Contains(t, buf.String(), "## New cli project: `weather`")
}

func TestFormatted(t *testing.T) {
	res := &tools.FormatResult{
		Tool:    "ruff",
		Check:   true,
		Files:   4,
		Changed: []string{"/p/src/a.py", "/p/tests/test_a.py"},
	}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, Options{}).Formatted(res, "/p"))
	out := buf.String()
	assert.Contains(t, out, "Would reformat: src/a.py")
	assert.Contains(t, out, "Would reformat: tests/test_a.py")
	assert.Contains(t, out, "2 of 4 files need formatting (ruff)")

	buf.Reset()
	res.Check = false
	require.NoError(t, New(&buf, Options{Format: FormatMarkdown}).Formatted(res, "/p"))
	assert.Contains(t, buf.String(), "- Reformatted `src/a.py`")
	assert.Contains(t, buf.String(), "**2 of 4 files reformatted**")

	buf.Reset()
	clean := &tools.FormatResult{Tool: "black", Files: 7, Changed: []string{}}
	require.NoError(t, New(&buf, Options{}).Formatted(clean, "/p"))
	assert.Equal(t, "✔ 7 files already formatted (black)\n", buf.String())

	buf.Reset()
	require.NoError(t, New(&buf, Options{Format: FormatJSON}).Formatted(res, "/p"))
	var decoded tools.FormatResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, res.Changed, decoded.Changed, "JSON keeps absolute paths")
}

func TestSettings(t *testing.T) {
	settings := []SettingInfo{
		{Key: "author", Value: "Ada", Source: "user"},
		{Key: "format.workers", Value: 4, Source: "env"},
	}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, Options{}).Settings(settings))
	out := buf.String()
	for _, want := range []string{"KEY", "SOURCE", "author", "Ada", "format.workers", "4", "env"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	require.NoError(t, New(&buf, Options{Format: FormatJSON}).Settings(nil))
	assert.Equal(t, "[]\n", buf.String())
}
