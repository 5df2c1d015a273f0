package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

const unknownColumnScenario = `name: unknown_column
request:
  columns: [player_shoe_size]
assertions:
  - type: error_code
    code: INVALID_COLUMN
`

func TestTest_HarnessScenarios(t *testing.T) {
	out, err := execute(t, "", "test", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ games_played\n")
	assert.Contains(t, out, "✓ unknown_column\n")
	assert.Contains(t, out, "Test Summary: 6 passed, 0 failed, 6 total")
}

func TestTest_FilterJSON(t *testing.T) {
	out, err := execute(t, "", "test", harnessScenarios, "--filter", "games_*", "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["passed"])
}

func TestTest_UpdateAndCompareGolden(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	writeFile(t, scenarios, "unknown_column.yaml", unknownColumnScenario)

	out, err := execute(t, "", "test", scenarios, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ unknown_column (golden updated)")

	golden := filepath.Join(root, "golden", "unknown_column.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, "-- scenario: unknown_column\n-- error: INVALID_COLUMN\n", string(data))

	_, err = execute(t, "", "test", scenarios)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte("-- scenario: unknown_column\n-- error: INVALID_FILTER\n"), 0o644))
	out, err = execute(t, "", "test", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong_code.yaml", `name: wrong_code
request:
  columns: [player_shoe_size]
assertions:
  - type: error_code
    code: INVALID_FILTER
`)

	out, err := execute(t, "", "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTest_CommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "", "test", filepath.Join(dir, "missing"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "", "test", dir, "--filter", "[")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	writeFile(t, dir, "broken.yaml", "name: broken\nbogus: true\n")
	_, err = execute(t, "", "test", dir)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, "", "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}
