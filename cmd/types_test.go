package cmd

import (
	"encoding/json"
	"testing"

	"github.com/fulmenhq/forge/pkg/exitcode"
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesListing(t *testing.T) {
	isolateEnv(t)

	out, _, code := execRoot(t, "types", "--format", "json")
	require.Equal(t, exitcode.Success, code)
	var types []report.TypeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &types), out)

	chains := map[string][]string{}
	for _, ti := range types {
		chains[ti.Name] = ti.Chain
		assert.NotEmpty(t, ti.Description, ti.Name)
	}
	assert.Equal(t, map[string][]string{
		"basic": {"basic"},
		"cli":   {"basic", "cli"},
		"data":  {"basic", "data"},
		"web":   {"basic", "web"},
	}, chains)

	out, _, code = execRoot(t, "types")
	require.Equal(t, exitcode.Success, code)
	assert.Contains(t, out, "basic → cli")
}

func TestTypesCustomStructure(t *testing.T) {
	isolateEnv(t)
	doc := writeTemp(t, t.TempDir(), "structure.yaml", packageOnly)

	out, _, code := execRoot(t, "types", "--structure", doc, "--format", "json")
	require.Equal(t, exitcode.Success, code)
	var types []report.TypeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &types))
	require.Len(t, types, 1)
	assert.Equal(t, "Importable package", types[0].Description)
}
