package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ontobench/ontobench/internal/association"
	"github.com/ontobench/ontobench/internal/config"
	"github.com/ontobench/ontobench/internal/design"
	"github.com/ontobench/ontobench/internal/enrichment"
	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/metrics"
	"github.com/ontobench/ontobench/internal/ontology"
	"github.com/ontobench/ontobench/internal/orchestration"
	"github.com/ontobench/ontobench/internal/reporting"
	"github.com/ontobench/ontobench/internal/sampling"
	"github.com/ontobench/ontobench/internal/spinner"
	"github.com/ontobench/ontobench/internal/statistics"
	"github.com/ontobench/ontobench/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrInvalidOutputDir is returned when the output path exists but is not a
// directory.
var ErrInvalidOutputDir = errors.New("output path is not a directory")

type runOptions struct {
	configPath   string
	ontology     string
	associations string
	outputDir    string
	seed         uint64
	workers      int
	alphas       []float64
	betas        []float64
	methods      []string
	minTerms     int
	maxTerms     int
	combinations int
	senseful     int
	varyingBeta  int
	mcmcSteps    int
	correction   string
	sqlitePath   string
	metricsPath  string
	pollInterval time.Duration
}

// manifest records what a benchmark was run with, next to its results.
type manifest struct {
	Session   string         `yaml:"session"`
	Version   string         `yaml:"version"`
	CreatedAt string         `yaml:"created_at"`
	Seed      uint64         `yaml:"seed"`
	Methods   []string       `yaml:"methods"`
	Runs      int            `yaml:"runs"`
	Config    *config.Config `yaml:"config"`
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an enrichment benchmark",
		Long: `Run an enrichment benchmark over an ontology and its annotations.

Settings are read from --config, or from a .ontobench.yaml found in the
current directory or one of its parents. Flags override the file.

Results are written to result-fp.txt and timings to result-time.txt in the
output directory. When no seed is given one is generated and saved in the
file "seed" so the benchmark can be repeated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Benchmark configuration file (default: discover .ontobench.yaml)")
	f.StringVarP(&opts.ontology, "obo", "g", "", "Ontology file in OBO format, optionally gzipped")
	f.StringVarP(&opts.associations, "association", "a", "", "Association file in GAF format, optionally gzipped")
	f.StringVarP(&opts.outputDir, "output-dir", "o", config.DefaultOutputDir, "Directory for the result files")
	f.Uint64Var(&opts.seed, "seed", config.DefaultSeed, "Random seed (0 generates one)")
	f.IntVarP(&opts.workers, "workers", "p", config.DefaultWorkers, "Number of concurrent runs (0 uses all CPUs)")
	f.Float64SliceVar(&opts.alphas, "alpha", nil, "False positive rates to simulate (can be repeated)")
	f.Float64SliceVar(&opts.betas, "beta", nil, "False negative rates to simulate (can be repeated)")
	f.StringSliceVarP(&opts.methods, "methods", "m", nil, "Methods to benchmark by abbreviation (see 'ontobench methods')")
	f.IntVar(&opts.minTerms, "min-terms", config.DefaultMinTerms, "Smallest number of target terms per combination")
	f.IntVar(&opts.maxTerms, "max-terms", config.DefaultMaxTerms, "Largest number of target terms per combination")
	f.IntVarP(&opts.combinations, "term-combinations-per-run", "c", config.DefaultCombinationsPerSize, "Combinations drawn per size")
	f.IntVar(&opts.senseful, "senseful", config.DefaultSensefulPerSize, "Combinations drawn per size from senseful terms")
	f.IntVar(&opts.varyingBeta, "varying-beta", config.DefaultVaryingBetaCount, "Combinations whose targets get individual false negative rates")
	f.IntVar(&opts.mcmcSteps, "mcmc-steps", config.DefaultMCMCSteps, "Sampling steps of the MCMC based methods")
	f.StringVar(&opts.correction, "correction", config.DefaultCorrection, "Multiple testing correction for methods without their own")
	f.StringVar(&opts.sqlitePath, "sqlite", "", "Also store results in this SQLite database")
	f.StringVar(&opts.metricsPath, "metrics", "", "Write Prometheus metrics to this textfile when done")
	f.DurationVar(&opts.pollInterval, "poll-interval", config.DefaultPollInterval, "How often progress is logged while waiting for runs")

	return cmd
}

// loadRunConfig reads the configuration and applies the flags the user set.
func loadRunConfig(cmd *cobra.Command, opts *runOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("obo") {
		cfg.Data.Ontology = opts.ontology
	}
	if changed("association") {
		cfg.Data.Associations = opts.associations
	}
	if changed("output-dir") {
		cfg.Output.Dir = opts.outputDir
	}
	if changed("sqlite") {
		cfg.Output.SQLite = opts.sqlitePath
	}
	if changed("metrics") {
		cfg.Output.Metrics = opts.metricsPath
	}
	if changed("seed") {
		cfg.Run.Seed = opts.seed
	}
	if changed("workers") {
		cfg.Run.Workers = opts.workers
	}
	if changed("poll-interval") {
		cfg.Run.PollInterval = opts.pollInterval
	}
	if changed("alpha") {
		cfg.Noise.Alphas = opts.alphas
	}
	if changed("beta") {
		cfg.Noise.Betas = opts.betas
	}
	if changed("methods") {
		cfg.Methods.Selected = opts.methods
	}
	if changed("mcmc-steps") {
		cfg.Methods.MCMCSteps = opts.mcmcSteps
	}
	if changed("correction") {
		cfg.Methods.Correction = opts.correction
	}
	if changed("min-terms") {
		cfg.Design.MinTerms = utils.Ptr(opts.minTerms)
	}
	if changed("max-terms") {
		cfg.Design.MaxTerms = opts.maxTerms
	}
	if changed("term-combinations-per-run") {
		cfg.Design.CombinationsPerSize = opts.combinations
	}
	if changed("senseful") {
		cfg.Design.SensefulPerSize = opts.senseful
	}
	if changed("varying-beta") {
		cfg.Design.VaryingBetaCount = opts.varyingBeta
	}

	return cfg, cfg.Validate()
}

func runBenchmark(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := loadRunConfig(cmd, opts)
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("invalid configuration: %w", err)}
	}
	methods, err := cfg.SelectedMethods()
	if err != nil {
		return &ConfigError{Err: err}
	}
	if err := ensureOutputDir(cfg.Output.Dir); err != nil {
		return &ConfigError{Err: err}
	}

	seed := cfg.Run.Seed
	if seed == 0 {
		seed = generateSeed()
		cfg.Run.Seed = seed
		seedPath := filepath.Join(cfg.Output.Dir, config.DefaultSeedFile)
		if err := os.WriteFile(seedPath, []byte(strconv.FormatUint(seed, 10)+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing seed file: %w", err)
		}
		slog.Info("generated seed", "seed", seed, "file", seedPath)
	}

	env, err := loadEnvironment(cfg)
	if err != nil {
		return err
	}

	master := sampling.NewRand(seed)
	all := env.Population.Terms()
	senseful := design.SensefulTerms(env.Population, env.Population.TotalCount(env.Ontology.Root()),
		cfg.Design.SensefulMinItems, cfg.Design.SensefulMaxProportion)
	combinations := design.Build(all, senseful, design.Options{
		MinTerms:         cfg.MinTerms(),
		MaxTerms:         cfg.Design.MaxTerms,
		PerSize:          cfg.Design.CombinationsPerSize,
		SensefulPerSize:  cfg.Design.SensefulPerSize,
		VaryingBetaCount: cfg.Design.VaryingBetaCount,
		VaryingBetaTerms: cfg.Design.VaryingBetaTerms,
	}, master)
	runs := orchestration.Grid(combinations, cfg.Noise.Alphas, cfg.Noise.Betas)
	slog.Debug("combinations drawn", "terms", len(all), "senseful", len(senseful), "combinations", len(combinations), "runs", len(runs))

	correction, err := statistics.CorrectionByName(cfg.Methods.Correction)
	if err != nil {
		return &ConfigError{Err: err}
	}
	adapter, err := orchestration.NewAdapter(enrichment.DefaultRegistry(), methods, correction,
		orchestration.WithMCMCSteps(cfg.Methods.MCMCSteps),
		orchestration.WithMaxBeta(cfg.Methods.MaxBeta),
		orchestration.WithFallbackRates(config.DefaultFallbackAlpha, config.DefaultFallbackBeta),
	)
	if err != nil {
		return &ConfigError{Err: err}
	}

	session := uuid.NewString()
	out, err := openSinks(cfg, session, adapter.Abbrevs())
	if err != nil {
		return err
	}
	defer out.closeFiles()

	m := manifest{
		Session:   session,
		Version:   version,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Seed:      seed,
		Methods:   adapter.Abbrevs(),
		Runs:      len(runs),
		Config:    cfg,
	}
	if err := writeManifest(filepath.Join(cfg.Output.Dir, config.DefaultManifest), m); err != nil {
		return err
	}

	scheduler := orchestration.NewScheduler(env, adapter, out.sink,
		orchestration.WithWorkers(cfg.Run.Workers),
		orchestration.WithPollInterval(cfg.Run.PollInterval),
		orchestration.WithLogger(slog.Default().With("session", session)),
	)

	var recorder *metrics.Recorder
	if cfg.Output.Metrics != "" {
		recorder = metrics.NewRecorder()
		scheduler.OnProgress(recordProgress(recorder))
	}

	if utils.IsTerminal(cmd.ErrOrStderr()) {
		sp := spinner.Start(cmd.ErrOrStderr(), fmt.Sprintf("0/%d runs", len(runs)))
		defer sp.Stop()
		scheduler.OnProgress(showProgress(sp))
	}

	summary := scheduler.Run(cmd.Context(), master, runs)

	if err := out.close(); err != nil {
		return err
	}
	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.Output.Metrics); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Finished %d of %d runs (%d skipped) in %s\n",
		summary.Completed, summary.Total, summary.Skipped, summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(cmd.OutOrStdout(), "Results: %s\nTimings: %s\n", out.resultsPath, out.timingPath)
	return nil
}

func ensureOutputDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s", ErrInvalidOutputDir, dir)
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("checking output directory: %w", err)
	}
}

func generateSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}

// loadEnvironment parses the inputs and builds the population from every
// annotated item.
func loadEnvironment(cfg *config.Config) (*orchestration.Environment, error) {
	start := time.Now()
	o, err := ontology.LoadOBO(cfg.Data.Ontology)
	if err != nil {
		return nil, fmt.Errorf("loading ontology: %w", err)
	}
	assoc, err := association.LoadGAF(cfg.Data.Associations, o)
	if err != nil {
		return nil, fmt.Errorf("loading associations: %w", err)
	}
	slog.Info("inputs loaded", "terms", o.Len(), "items", assoc.Len(), "elapsed", time.Since(start).Round(time.Millisecond))

	population := itemset.FromItems("population", assoc.Items())
	env, err := orchestration.NewEnvironment(o, assoc, population, cfg.Noise.ValuedThreshold)
	if err != nil {
		return nil, err
	}
	if err := env.CheckPopulation(); err != nil {
		return nil, &DataError{Err: err}
	}
	return env, nil
}

type outputs struct {
	sink        reporting.Sink
	resultsPath string
	timingPath  string

	files   []*os.File
	buffers []*bufio.Writer
}

func openSinks(cfg *config.Config, session string, methods []string) (*outputs, error) {
	out := &outputs{
		resultsPath: filepath.Join(cfg.Output.Dir, cfg.Output.ResultsFile),
		timingPath:  filepath.Join(cfg.Output.Dir, cfg.Output.TimingFile),
	}

	var writers []*bufio.Writer
	for _, path := range []string{out.resultsPath, out.timingPath} {
		f, err := os.Create(path)
		if err != nil {
			out.closeFiles()
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
		out.files = append(out.files, f)
		writers = append(writers, bufio.NewWriter(f))
	}
	out.buffers = writers

	tsv, err := reporting.NewTSVSink(writers[0], writers[1], methods)
	if err != nil {
		out.closeFiles()
		return nil, err
	}
	out.sink = tsv

	if cfg.Output.SQLite != "" {
		db, err := reporting.OpenSQLite(cfg.Output.SQLite, session, methods)
		if err != nil {
			out.closeFiles()
			return nil, err
		}
		out.sink = reporting.MultiSink(tsv, db)
	}
	return out, nil
}

// close flushes the sinks and the buffered files.
func (o *outputs) close() error {
	errs := []error{o.sink.Close()}
	for _, b := range o.buffers {
		errs = append(errs, b.Flush())
	}
	for _, f := range o.files {
		errs = append(errs, f.Close())
	}
	o.files = nil
	return errors.Join(errs...)
}

func (o *outputs) closeFiles() {
	for _, f := range o.files {
		f.Close() //nolint:errcheck
	}
	o.files = nil
}

func writeManifest(path string, m manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// showProgress keeps the spinner message at the number of finished runs.
func showProgress(sp *spinner.Spinner) orchestration.ProgressListener {
	var finished, skipped atomic.Int64
	return func(ev orchestration.ProgressEvent) {
		switch ev.EventType {
		case orchestration.EventRunComplete:
			finished.Add(1)
		case orchestration.EventRunSkipped:
			finished.Add(1)
			skipped.Add(1)
		case orchestration.EventBenchmarkComplete:
			sp.Stop()
			return
		default:
			return
		}
		msg := fmt.Sprintf("%d/%d runs", finished.Load(), ev.TotalRuns)
		if n := skipped.Load(); n > 0 {
			msg += fmt.Sprintf(" (%d skipped)", n)
		}
		sp.Update(msg)
	}
}

func recordProgress(r *metrics.Recorder) orchestration.ProgressListener {
	return func(ev orchestration.ProgressEvent) {
		switch ev.EventType {
		case orchestration.EventRunStart:
			r.RunStarted()
		case orchestration.EventRunComplete:
			r.RunFinished(metrics.StatusCompleted)
		case orchestration.EventRunSkipped:
			r.RunFinished(metrics.StatusSkipped)
		case orchestration.EventMethodComplete:
			r.ObserveMethod(ev.Method, ev.Duration)
		}
	}
}
