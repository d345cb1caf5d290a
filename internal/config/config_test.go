package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ontobench/ontobench/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ReturnsAllDefaults(t *testing.T) {
	cfg := New()

	// Output
	assertEqual(t, "Output.Dir", ".", cfg.Output.Dir)
	assertEqual(t, "Output.ResultsFile", "result-fp.txt", cfg.Output.ResultsFile)
	assertEqual(t, "Output.TimingFile", "result-time.txt", cfg.Output.TimingFile)
	assertEqual(t, "Output.SQLite", "", cfg.Output.SQLite)

	// Design
	assertEqualInt(t, "MinTerms", 1, cfg.MinTerms())
	assertEqualInt(t, "Design.MaxTerms", 5, cfg.Design.MaxTerms)
	assertEqualInt(t, "Design.CombinationsPerSize", 300, cfg.Design.CombinationsPerSize)
	assertEqualInt(t, "Design.SensefulPerSize", 0, cfg.Design.SensefulPerSize)
	assertEqualInt(t, "Design.VaryingBetaTerms", 15, cfg.Design.VaryingBetaTerms)
	assertEqualInt(t, "Design.SensefulMinItems", 4, cfg.Design.SensefulMinItems)

	// Noise
	if len(cfg.Noise.Alphas) != 0 || len(cfg.Noise.Betas) != 0 {
		t.Errorf("Noise grids should be empty by default, got %v %v", cfg.Noise.Alphas, cfg.Noise.Betas)
	}

	// Methods
	assertEqual(t, "Methods.Correction", "None", cfg.Methods.Correction)
	assertEqualInt(t, "Methods.MCMCSteps", 1020000, cfg.Methods.MCMCSteps)

	// Run
	assertEqualInt(t, "Run.Workers", 0, cfg.Run.Workers)
	if cfg.Run.PollInterval != time.Minute {
		t.Errorf("Run.PollInterval: got %v, want 1m", cfg.Run.PollInterval)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, FileName, `
data:
  ontology: go.obo
  associations: /data/gene_association.gz
output:
  dir: out
  results_file: fp.tsv
  sqlite: results.db
design:
  min_terms: 0
  max_terms: 3
  combinations_per_size: 20
  senseful_per_size: 5
  varying_beta_count: 2
noise:
  alphas: [0.1, 0.2]
  betas: [0.05]
  valued_threshold: 0.01
methods:
  selected: [tft, pcu]
  correction: bonferroni
  mcmc_steps: 5000
run:
  seed: 42
  workers: 3
  poll_interval: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assertEqual(t, "Data.Ontology", filepath.Join(dir, "go.obo"), cfg.Data.Ontology)
	assertEqual(t, "Data.Associations", "/data/gene_association.gz", cfg.Data.Associations)
	assertEqual(t, "Output.Dir", filepath.Join(dir, "out"), cfg.Output.Dir)
	assertEqual(t, "Output.ResultsFile", "fp.tsv", cfg.Output.ResultsFile)
	assertEqual(t, "Output.TimingFile", DefaultTimingFile, cfg.Output.TimingFile)
	assertEqual(t, "Output.SQLite", filepath.Join(dir, "results.db"), cfg.Output.SQLite)

	assertEqualInt(t, "MinTerms", 0, cfg.MinTerms())
	assertEqualInt(t, "Design.MaxTerms", 3, cfg.Design.MaxTerms)
	assertEqualInt(t, "Design.CombinationsPerSize", 20, cfg.Design.CombinationsPerSize)
	assertEqualInt(t, "Design.SensefulPerSize", 5, cfg.Design.SensefulPerSize)
	assertEqualInt(t, "Design.VaryingBetaCount", 2, cfg.Design.VaryingBetaCount)
	assertEqualInt(t, "Design.VaryingBetaTerms", DefaultVaryingBetaTerms, cfg.Design.VaryingBetaTerms)

	assert.Equal(t, []float64{0.1, 0.2}, cfg.Noise.Alphas)
	assert.Equal(t, []float64{0.05}, cfg.Noise.Betas)
	assert.Equal(t, 0.01, cfg.Noise.ValuedThreshold)

	assert.Equal(t, []string{"tft", "pcu"}, cfg.Methods.Selected)
	assertEqual(t, "Methods.Correction", "bonferroni", cfg.Methods.Correction)
	assertEqualInt(t, "Methods.MCMCSteps", 5000, cfg.Methods.MCMCSteps)

	assert.Equal(t, uint64(42), cfg.Run.Seed)
	assertEqualInt(t, "Run.Workers", 3, cfg.Run.Workers)
	assert.Equal(t, 5*time.Second, cfg.Run.PollInterval)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, dir, "bad.yaml", "design: [unclosed")
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantLoc string
	}{
		{
			name:    "singular noise keys",
			content: "noise:\n  alpha: [0.1, 0.4]\n  beta: [0.25]\n",
			wantLoc: "/noise",
		},
		{
			name:    "unknown section",
			content: "nosie:\n  alphas: [0.1]\n",
			wantLoc: "/",
		},
		{
			name:    "wrong type",
			content: "run:\n  workers: many\n",
			wantLoc: "/run/workers",
		},
		{
			name:    "custom method without calculation",
			content: "methods:\n  custom:\n    - abbrev: x\n",
			wantLoc: "/methods/custom/0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "cfg.yaml", tt.content)
			_, err := Load(path)
			require.ErrorIs(t, err, ErrInvalidFile)
			assert.Contains(t, err.Error(), tt.wantLoc+":")
		})
	}
}

func TestValidateBytes(t *testing.T) {
	assert.Empty(t, ValidateBytes(nil))
	assert.Empty(t, ValidateBytes([]byte("noise:\n  alphas: [0.1]\n  betas: [0.2, 0.3]\n")))

	errs := ValidateBytes([]byte("noise:\n  alpha: [0.1]\n"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "alpha")

	errs = ValidateBytes([]byte("design: [unclosed"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "YAML parse error")
}

func TestDiscover_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FileName, "run:\n  workers: 7\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := Discover(nested)
	require.NoError(t, err)
	assertEqualInt(t, "Run.Workers", 7, cfg.Run.Workers)
}

func TestDiscover_NoFileReturnsDefaults(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	require.NoError(t, err)
	assertEqualInt(t, "Design.MaxTerms", DefaultMaxTerms, cfg.Design.MaxTerms)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := New()
		cfg.Data.Ontology = "go.obo"
		cfg.Data.Associations = "assoc.gaf"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing ontology", mutate: func(c *Config) { c.Data.Ontology = "" }, wantErr: "ontology"},
		{name: "missing associations", mutate: func(c *Config) { c.Data.Associations = "" }, wantErr: "association"},
		{name: "max below min", mutate: func(c *Config) { c.Design.MinTerms = new(int); *c.Design.MinTerms = 4; c.Design.MaxTerms = 2 }, wantErr: "max_terms"},
		{name: "alpha out of range", mutate: func(c *Config) { c.Noise.Alphas = []float64{1} }, wantErr: "alpha 1"},
		{name: "negative beta", mutate: func(c *Config) { c.Noise.Betas = []float64{-0.1} }, wantErr: "beta -0.1"},
		{name: "negative workers", mutate: func(c *Config) { c.Run.Workers = -1 }, wantErr: "workers"},
		{name: "unknown correction", mutate: func(c *Config) { c.Methods.Correction = "sidak" }, wantErr: "sidak"},
		{name: "unknown method", mutate: func(c *Config) { c.Methods.Selected = []string{"nope"} }, wantErr: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSelectedMethods_Custom(t *testing.T) {
	cfg := New()
	cfg.Methods.Selected = []string{"my.mgsa", "tft"}
	cfg.Methods.Custom = []map[string]any{
		{
			"abbrev":      "my.mgsa",
			"calculation": "MGSA",
			"alpha":       "0.2",
			"mcmc":        true,
		},
	}

	methods, err := cfg.SelectedMethods()
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "my.mgsa", methods[0].Abbrev)
	assert.Equal(t, 0.2, methods[0].Alpha)
	assert.True(t, methods[0].UsePrior)
	assert.True(t, methods[0].MCMC)
	assert.Equal(t, "tft", methods[1].Abbrev)
}

func TestSelectedMethods_DefaultsAndErrors(t *testing.T) {
	cfg := New()
	methods, err := cfg.SelectedMethods()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMethods, models.Abbrevs(methods))

	cfg.Methods.Custom = []map[string]any{{"abbrev": "x", "calculation": "MGSA", "bogus": 1}}
	_, err = cfg.SelectedMethods()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom method 1")

	cfg.Methods.Custom = []map[string]any{{"abbrev": "x"}}
	_, err = cfg.SelectedMethods()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calculation")
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}

func assertEqualInt(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %d, want %d", field, got, want)
	}
}
