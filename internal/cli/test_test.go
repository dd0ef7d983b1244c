package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

const passingScenario = `
name: guest_search
description: "Guests can search"
seller_id: seller-1
pickup_slot: "2026-10-16"
flow:
  - dispatch: user.continue_as_guest
  - dispatch: catalog.search_changed
    payload: { query: leek }
    expect:
      products.query: leek
assertions:
  - type: final_state
    path: user.status
    expect: guest
`

const failingScenario = `
name: wrong_query
description: "Expects the wrong query"
seller_id: seller-1
pickup_slot: "2026-10-16"
flow:
  - dispatch: catalog.search_changed
    payload: { query: leek }
assertions:
  - type: final_state
    path: products.query
    expect: kale
`

func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTestCommand_HarnessFixtures(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{harnessScenarios})

	require.NoError(t, cmd.Execute(), buf.String())
	out := buf.String()
	assert.Contains(t, out, "✓ resume_merge")
	assert.Contains(t, out, "✓ catalog_deltas")
	assert.Contains(t, out, "✓ checkout_guards")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{harnessScenarios, "--filter", "catalog_*"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "catalog_deltas", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_Failure(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"a_pass.yaml": passingScenario,
		"b_fail.yaml": failingScenario,
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeScenario, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 2)
	assert.False(t, resp.Data.Scenarios[1].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[1].Errors)
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"guest_search.yaml": passingScenario})
	golden := filepath.Join(filepath.Dir(dir), "golden", "guest_search.golden")

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--update"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scenario: guest_search")

	cmd = NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	require.NoError(t, os.WriteFile(golden, []byte("stale\n"), 0o644))
	buf := &bytes.Buffer{}
	cmd = NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "digest does not match golden file")
}

func TestTestCommand_InvalidScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: broken\n"})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ broken.yaml")
	assert.Contains(t, buf.String(), "failed to load scenario")
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_EmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioDir(t, nil)})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No scenarios found.")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"b.yaml":    "",
		"a.yml":     "",
		"notes.txt": "",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.yml", filepath.Base(files[0]))
	assert.Equal(t, "b.yaml", filepath.Base(files[1]))

	files, err = findScenarioFiles(dir, "b")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
}
