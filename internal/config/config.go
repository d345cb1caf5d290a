// Package config provides the benchmark configuration and its loader for
// .ontobench.yaml files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/ontobench/ontobench/internal/models"
	"github.com/ontobench/ontobench/internal/statistics"
	"github.com/ontobench/ontobench/internal/utils"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is returned when a configuration file does not match the
// schema, for example because of a misspelled key.
var ErrInvalidFile = errors.New("configuration does not match schema")

// FileName is the configuration file looked up by Discover.
const FileName = ".ontobench.yaml"

// Default values for the benchmark configuration. These are the single
// source of truth; New() references them and no other code should
// duplicate them.
const (
	DefaultOutputDir   = "."
	DefaultResultsFile = "result-fp.txt"
	DefaultTimingFile  = "result-time.txt"
	DefaultSeedFile    = "seed"
	DefaultManifest    = "manifest.yaml"

	DefaultSeed         = 0
	DefaultWorkers      = 0
	DefaultPollInterval = 60 * time.Second

	DefaultMinTerms              = 1
	DefaultMaxTerms              = 5
	DefaultCombinationsPerSize   = 300
	DefaultSensefulPerSize       = 0
	DefaultVaryingBetaCount      = 0
	DefaultVaryingBetaTerms      = 15
	DefaultSensefulMinItems      = 4
	DefaultSensefulMaxProportion = 0.9

	DefaultValuedThreshold = 0.05

	DefaultCorrection = statistics.CorrectionNone
	DefaultMCMCSteps  = 1020000
	DefaultMaxBeta    = 0.8

	// Rates given to fixed-parameter methods on valued runs, which have no
	// requested or realized rates.
	DefaultFallbackAlpha = 0.1
	DefaultFallbackBeta  = 0.25
)

// DataConfig points at the input files.
type DataConfig struct {
	Ontology     string `yaml:"ontology,omitempty"`
	Associations string `yaml:"associations,omitempty"`
}

// OutputConfig holds where results go.
type OutputConfig struct {
	Dir         string `yaml:"dir,omitempty"`
	ResultsFile string `yaml:"results_file,omitempty"`
	TimingFile  string `yaml:"timing_file,omitempty"`
	SQLite      string `yaml:"sqlite,omitempty"`
	Metrics     string `yaml:"metrics,omitempty"`
}

// DesignConfig controls the combinations drawn.
type DesignConfig struct {
	MinTerms              *int    `yaml:"min_terms,omitempty"`
	MaxTerms              int     `yaml:"max_terms,omitempty"`
	CombinationsPerSize   int     `yaml:"combinations_per_size,omitempty"`
	SensefulPerSize       int     `yaml:"senseful_per_size,omitempty"`
	VaryingBetaCount      int     `yaml:"varying_beta_count,omitempty"`
	VaryingBetaTerms      int     `yaml:"varying_beta_terms,omitempty"`
	SensefulMinItems      int     `yaml:"senseful_min_items,omitempty"`
	SensefulMaxProportion float64 `yaml:"senseful_max_proportion,omitempty"`
}

// NoiseConfig holds the alpha and beta grids.
type NoiseConfig struct {
	Alphas          []float64 `yaml:"alphas,omitempty"`
	Betas           []float64 `yaml:"betas,omitempty"`
	ValuedThreshold float64   `yaml:"valued_threshold,omitempty"`
}

// MethodsConfig selects methods and declares custom ones. Custom entries
// are free-form maps decoded into models.Method.
type MethodsConfig struct {
	Selected   []string         `yaml:"selected,omitempty"`
	Custom     []map[string]any `yaml:"custom,omitempty"`
	Correction string           `yaml:"correction,omitempty"`
	MCMCSteps  int              `yaml:"mcmc_steps,omitempty"`
	MaxBeta    float64          `yaml:"max_beta,omitempty"`
}

// RunConfig holds scheduling settings.
type RunConfig struct {
	Seed         uint64        `yaml:"seed,omitempty"`
	Workers      int           `yaml:"workers,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Data    DataConfig    `yaml:"data,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Design  DesignConfig  `yaml:"design,omitempty"`
	Noise   NoiseConfig   `yaml:"noise,omitempty"`
	Methods MethodsConfig `yaml:"methods,omitempty"`
	Run     RunConfig     `yaml:"run,omitempty"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:         DefaultOutputDir,
			ResultsFile: DefaultResultsFile,
			TimingFile:  DefaultTimingFile,
		},
		Design: DesignConfig{
			MinTerms:              utils.Ptr(DefaultMinTerms),
			MaxTerms:              DefaultMaxTerms,
			CombinationsPerSize:   DefaultCombinationsPerSize,
			SensefulPerSize:       DefaultSensefulPerSize,
			VaryingBetaCount:      DefaultVaryingBetaCount,
			VaryingBetaTerms:      DefaultVaryingBetaTerms,
			SensefulMinItems:      DefaultSensefulMinItems,
			SensefulMaxProportion: DefaultSensefulMaxProportion,
		},
		Noise: NoiseConfig{
			ValuedThreshold: DefaultValuedThreshold,
		},
		Methods: MethodsConfig{
			Correction: DefaultCorrection,
			MCMCSteps:  DefaultMCMCSteps,
			MaxBeta:    DefaultMaxBeta,
		},
		Run: RunConfig{
			Seed:         DefaultSeed,
			Workers:      DefaultWorkers,
			PollInterval: DefaultPollInterval,
		},
	}
}

// Load reads the file at path and fills in missing fields with defaults.
// Relative data and output paths are resolved against the file's
// directory. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := cfg.overlay(data, filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds .ontobench.yaml by walking up from startDir (max 10
// levels). If no file is found it returns defaults with a nil error.
func Discover(startDir string) (*Config, error) {
	cfg := New()

	path, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	return Load(path)
}

func (c *Config) overlay(data []byte, baseDir string) error {
	if errs := ValidateBytes(data); len(errs) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalidFile, strings.Join(errs, "\n  "))
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return err
	}

	fileCfg.Data.Ontology = utils.ResolvePath(fileCfg.Data.Ontology, baseDir)
	fileCfg.Data.Associations = utils.ResolvePath(fileCfg.Data.Associations, baseDir)
	fileCfg.Output.Dir = utils.ResolvePath(fileCfg.Output.Dir, baseDir)
	fileCfg.Output.SQLite = utils.ResolvePath(fileCfg.Output.SQLite, baseDir)
	fileCfg.Output.Metrics = utils.ResolvePath(fileCfg.Output.Metrics, baseDir)

	mergeConfig(c, &fileCfg)
	return nil
}

// findConfigFile walks up from dir looking for FileName. Returns
// os.ErrNotExist if none is found.
func findConfigFile(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for range 10 {
		p := filepath.Join(dir, FileName)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	// Data
	if src.Data.Ontology != "" {
		dst.Data.Ontology = src.Data.Ontology
	}
	if src.Data.Associations != "" {
		dst.Data.Associations = src.Data.Associations
	}

	// Output
	if src.Output.Dir != "" {
		dst.Output.Dir = src.Output.Dir
	}
	if src.Output.ResultsFile != "" {
		dst.Output.ResultsFile = src.Output.ResultsFile
	}
	if src.Output.TimingFile != "" {
		dst.Output.TimingFile = src.Output.TimingFile
	}
	if src.Output.SQLite != "" {
		dst.Output.SQLite = src.Output.SQLite
	}
	if src.Output.Metrics != "" {
		dst.Output.Metrics = src.Output.Metrics
	}

	// Design
	if src.Design.MinTerms != nil {
		dst.Design.MinTerms = src.Design.MinTerms
	}
	if src.Design.MaxTerms != 0 {
		dst.Design.MaxTerms = src.Design.MaxTerms
	}
	if src.Design.CombinationsPerSize != 0 {
		dst.Design.CombinationsPerSize = src.Design.CombinationsPerSize
	}
	if src.Design.SensefulPerSize != 0 {
		dst.Design.SensefulPerSize = src.Design.SensefulPerSize
	}
	if src.Design.VaryingBetaCount != 0 {
		dst.Design.VaryingBetaCount = src.Design.VaryingBetaCount
	}
	if src.Design.VaryingBetaTerms != 0 {
		dst.Design.VaryingBetaTerms = src.Design.VaryingBetaTerms
	}
	if src.Design.SensefulMinItems != 0 {
		dst.Design.SensefulMinItems = src.Design.SensefulMinItems
	}
	if src.Design.SensefulMaxProportion != 0 {
		dst.Design.SensefulMaxProportion = src.Design.SensefulMaxProportion
	}

	// Noise
	if len(src.Noise.Alphas) > 0 {
		dst.Noise.Alphas = src.Noise.Alphas
	}
	if len(src.Noise.Betas) > 0 {
		dst.Noise.Betas = src.Noise.Betas
	}
	if src.Noise.ValuedThreshold != 0 {
		dst.Noise.ValuedThreshold = src.Noise.ValuedThreshold
	}

	// Methods
	if len(src.Methods.Selected) > 0 {
		dst.Methods.Selected = src.Methods.Selected
	}
	if len(src.Methods.Custom) > 0 {
		dst.Methods.Custom = src.Methods.Custom
	}
	if src.Methods.Correction != "" {
		dst.Methods.Correction = src.Methods.Correction
	}
	if src.Methods.MCMCSteps != 0 {
		dst.Methods.MCMCSteps = src.Methods.MCMCSteps
	}
	if src.Methods.MaxBeta != 0 {
		dst.Methods.MaxBeta = src.Methods.MaxBeta
	}

	// Run
	if src.Run.Seed != 0 {
		dst.Run.Seed = src.Run.Seed
	}
	if src.Run.Workers != 0 {
		dst.Run.Workers = src.Run.Workers
	}
	if src.Run.PollInterval != 0 {
		dst.Run.PollInterval = src.Run.PollInterval
	}
}

// CustomMethods decodes the custom method entries.
func (c *Config) CustomMethods() ([]models.Method, error) {
	out := make([]models.Method, 0, len(c.Methods.Custom))
	for i, raw := range c.Methods.Custom {
		m := models.Method{UsePrior: true}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &m,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(raw); err != nil {
			return nil, fmt.Errorf("custom method %d: %w", i+1, err)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("custom method %d: %w", i+1, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// SelectedMethods returns the methods to benchmark: the builtin catalog
// extended by custom methods, filtered by the selection.
func (c *Config) SelectedMethods() ([]models.Method, error) {
	custom, err := c.CustomMethods()
	if err != nil {
		return nil, err
	}
	return models.Select(models.Merge(models.Catalog(), custom), c.Methods.Selected)
}

// Validate checks the configuration is complete and consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.Data.Ontology == "" {
		errs = append(errs, errors.New("an ontology file is required"))
	}
	if c.Data.Associations == "" {
		errs = append(errs, errors.New("an association file is required"))
	}

	minTerms := 0
	if c.Design.MinTerms != nil {
		minTerms = *c.Design.MinTerms
	}
	if minTerms < 0 {
		errs = append(errs, fmt.Errorf("min_terms must not be negative, got %d", minTerms))
	}
	if c.Design.MaxTerms < minTerms {
		errs = append(errs, fmt.Errorf("max_terms (%d) must not be smaller than min_terms (%d)", c.Design.MaxTerms, minTerms))
	}
	if c.Design.CombinationsPerSize < 0 || c.Design.SensefulPerSize < 0 || c.Design.VaryingBetaCount < 0 {
		errs = append(errs, errors.New("combination counts must not be negative"))
	}
	if c.Design.SensefulMaxProportion <= 0 || c.Design.SensefulMaxProportion > 1 {
		errs = append(errs, fmt.Errorf("senseful_max_proportion must be in (0,1], got %g", c.Design.SensefulMaxProportion))
	}

	for _, a := range c.Noise.Alphas {
		if a < 0 || a >= 1 {
			errs = append(errs, fmt.Errorf("alpha %g is outside [0,1)", a))
		}
	}
	for _, b := range c.Noise.Betas {
		if b < 0 || b >= 1 {
			errs = append(errs, fmt.Errorf("beta %g is outside [0,1)", b))
		}
	}
	if c.Noise.ValuedThreshold <= 0 || c.Noise.ValuedThreshold >= 1 {
		errs = append(errs, fmt.Errorf("valued_threshold must be in (0,1), got %g", c.Noise.ValuedThreshold))
	}

	if c.Run.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Run.Workers))
	}
	if c.Run.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.Methods.MCMCSteps < 0 {
		errs = append(errs, fmt.Errorf("mcmc_steps must not be negative, got %d", c.Methods.MCMCSteps))
	}
	if c.Methods.MaxBeta <= 0 || c.Methods.MaxBeta >= 1 {
		errs = append(errs, fmt.Errorf("max_beta must be in (0,1), got %g", c.Methods.MaxBeta))
	}
	if _, err := statistics.CorrectionByName(c.Methods.Correction); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SelectedMethods(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// MinTerms returns the smallest combination size.
func (c *Config) MinTerms() int {
	if c.Design.MinTerms == nil {
		return DefaultMinTerms
	}
	return *c.Design.MinTerms
}
