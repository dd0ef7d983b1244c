package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	for _, name := range []string{"resume_merge", "catalog_deltas", "checkout_guards"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestDigest_Empty(t *testing.T) {
	got := string(Digest("empty", NewResult()))

	assert.Contains(t, got, "scenario: empty\ntrace:\nfinal:\n")
	assert.Contains(t, got, "  basket: empty\n")
	assert.Contains(t, got, "  snackbar: none\n")
}
