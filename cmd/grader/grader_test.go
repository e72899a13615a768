// cmd/grader/grader_test.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"listing-grader/internal/artifacts"
	"listing-grader/internal/models"
	"listing-grader/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeCorpus(t *testing.T, dir string) string {
	t.Helper()
	var listings []map[string]interface{}
	for i := 0; i < 10; i++ {
		listings = append(listings, map[string]interface{}{
			"id":               fmt.Sprintf("fx-%02d", i),
			"title":            fmt.Sprintf("Stylized Fire Effects Pack %d", i),
			"shortDescription": "Ready-made fire and smoke effects.",
			"category":         "VFX/Fire",
			"tags":             []string{"fire", "vfx"},
			"imagesCount":      i,
			"reviewsCount":     i * 2,
		})
	}
	listings = append(listings, map[string]interface{}{"id": "broken"})

	data, err := json.Marshal(listings)
	require.NoError(t, err)
	path := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeConfig(t *testing.T, dir, corpusPath, outDir string) string {
	t.Helper()
	body := fmt.Sprintf(`
app:
  name: grader-test
engine:
  top_n: 4
  max_passes: 3
corpus:
  source: file
  path: %s
  validate_schema: true
artifacts:
  sinks: [file]
  output_dir: %s
logging:
  level: error
`, corpusPath, outDir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ==========================
// Command Tests
// ==========================

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "grader version dev\n", out)
}

func TestRunCommand_PublishesArtifacts(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	cfg := writeConfig(t, dir, writeCorpus(t, dir), outDir)

	out, err := execute(t, "run", "--config", cfg, "--max-passes", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "STABILITY")
	assert.Contains(t, out, "10 listings, 1 skipped")
	assert.Contains(t, out, "published 5 artifacts")
	for _, name := range []string{
		artifacts.ExemplarsFile,
		artifacts.GradingRulesFile,
		artifacts.ConvergenceSummaryFile,
		artifacts.VocabularySummaryFile,
		artifacts.PlaybookFile,
	} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	raw, err := os.ReadFile(filepath.Join(outDir, artifacts.ConvergenceSummaryFile))
	require.NoError(t, err)
	var summary models.ConvergenceSummary
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.LessOrEqual(t, summary.Passes, 2)
}

func TestRunCommand_RejectsBothPolicies(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, writeCorpus(t, dir), filepath.Join(dir, "out"))

	_, err := execute(t, "run", "--config", cfg, "--top-n", "3", "--top-percent", "10")
	assert.Error(t, err)
}

func TestRunCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "validate", writeCorpus(t, dir))
	require.NoError(t, err)
	assert.Equal(t, "10 valid listings, 1 rejected, 0 best sellers\n", out)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o600))
	_, err = execute(t, "validate", empty)
	assert.Error(t, err)
}

func TestWorkersCommand_ExportsRegistry(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, writeCorpus(t, dir), filepath.Join(dir, "out"))
	export := filepath.Join(dir, "activity-registry.json")

	out, err := execute(t, "workers", "--config", cfg, "--export", export)
	require.NoError(t, err)
	assert.Contains(t, out, "select-exemplars")
	assert.Contains(t, out, "run-grading-convergence")

	reg, err := registry.LoadRegistry(export)
	require.NoError(t, err)
	assert.Len(t, reg.Activities, 3)
}
