// Package orchestration drives the benchmark: it expands the run grid,
// executes runs on a bounded worker pool and hands the records to the
// result sinks.
package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ontobench/ontobench/internal/design"
	"github.com/ontobench/ontobench/internal/reporting"
	"github.com/ontobench/ontobench/internal/utils"
	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval is how often the scheduler reports progress while
// waiting for runs to finish.
const DefaultPollInterval = time.Minute

// RunContext holds the immutable inputs of one run.
type RunContext struct {
	Index       int
	Combination design.Combination
	Alpha       float64
	Beta        float64
	Seed        uint64
}

// Valued reports whether the run uses the valued study set.
func (rc RunContext) Valued() bool {
	return rc.Alpha < 0 || rc.Beta < 0
}

// Grid expands the run grid: every alpha, then every beta, then every
// combination, followed by one valued run per combination. Runs are
// numbered from 1; seeds are assigned at submission.
func Grid(combinations []design.Combination, alphas, betas []float64) []RunContext {
	runs := make([]RunContext, 0, (len(alphas)*len(betas)+1)*len(combinations))
	for _, a := range alphas {
		for _, b := range betas {
			for _, c := range combinations {
				runs = append(runs, RunContext{Index: len(runs) + 1, Combination: c, Alpha: a, Beta: b})
			}
		}
	}
	for _, c := range combinations {
		runs = append(runs, RunContext{Index: len(runs) + 1, Combination: c, Alpha: -1, Beta: -1})
	}
	return runs
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventBenchmarkStart    EventType = "benchmark_start"
	EventBenchmarkComplete EventType = "benchmark_complete"
	EventRunStart          EventType = "run_start"
	EventRunComplete       EventType = "run_complete"
	EventRunSkipped        EventType = "run_skipped"
	EventMethodComplete    EventType = "method_complete"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType EventType
	Run       int
	TotalRuns int
	Method    string
	Duration  time.Duration
	Err       error
}

// Summary reports how a benchmark went.
type Summary struct {
	Total     int
	Completed int
	Skipped   int
	Elapsed   time.Duration
}

// Scheduler executes runs on a bounded worker pool.
type Scheduler struct {
	env     *Environment
	adapter *Adapter
	sink    reporting.Sink

	workers      int
	pollInterval time.Duration
	logger       *slog.Logger

	// Progress tracking
	progressMu sync.Mutex
	listeners  []ProgressListener
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithWorkers bounds the number of concurrent runs; 0 uses every CPU.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.workers = n
	}
}

func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.pollInterval = d
	}
}

func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

func NewScheduler(env *Environment, adapter *Adapter, sink reporting.Sink, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		env:          env,
		adapter:      adapter,
		sink:         sink,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
		listeners:    []ProgressListener{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.workers <= 0 {
		s.workers = runtime.NumCPU()
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	return s
}

// Workers returns the size of the worker pool.
func (s *Scheduler) Workers() int {
	return s.workers
}

// OnProgress registers a progress listener
func (s *Scheduler) OnProgress(listener ProgressListener) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Scheduler) notifyProgress(event ProgressEvent) {
	s.progressMu.Lock()
	listeners := make([]ProgressListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run submits every run in order, drawing each run's seed from master at
// submission, and waits until all of them are done. Failing runs are
// logged and skipped; they never stop the benchmark.
func (s *Scheduler) Run(ctx context.Context, master *rand.Rand, runs []RunContext) Summary {
	start := time.Now()
	total := len(runs)
	var completed, skipped atomic.Int64

	s.logger.Info("starting benchmark", "runs", total, "workers", s.workers, "methods", len(s.adapter.Methods()))
	s.notifyProgress(ProgressEvent{EventType: EventBenchmarkStart, TotalRuns: total})

	var g errgroup.Group
	g.SetLimit(s.workers)

	for _, rc := range runs {
		rc.Seed = master.Uint64()
		g.Go(func() error {
			if s.runOne(ctx, rc, total) {
				completed.Add(1)
			} else {
				skipped.Add(1)
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-done:
			break wait
		case <-ticker.C:
			finished := completed.Load() + skipped.Load()
			s.logger.Info("waiting for runs to finish",
				"finished", finished, "total", total, "skipped", skipped.Load(),
				"elapsed", time.Since(start).Round(time.Second))
		}
	}

	sum := Summary{
		Total:     total,
		Completed: int(completed.Load()),
		Skipped:   int(skipped.Load()),
		Elapsed:   time.Since(start),
	}
	s.logger.Info("benchmark finished", "completed", sum.Completed, "skipped", sum.Skipped, "elapsed", sum.Elapsed.Round(time.Millisecond))
	s.notifyProgress(ProgressEvent{EventType: EventBenchmarkComplete, TotalRuns: total, Duration: sum.Elapsed})
	return sum
}

// runOne executes a run and reports whether it produced a record.
func (s *Scheduler) runOne(ctx context.Context, rc RunContext, total int) (ok bool) {
	log := s.logger.With(utils.RunAttrs(rc.Index, rc.Alpha, rc.Beta, rc.Combination.Strings())...)

	s.notifyProgress(ProgressEvent{EventType: EventRunStart, Run: rc.Index, TotalRuns: total})
	log.Debug("run started", "total", total, "size", rc.Combination.Len())

	defer func() {
		if r := recover(); r != nil {
			s.skip(log, rc, total, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()

	start := time.Now()
	rec, err := s.execute(ctx, rc)
	if err != nil {
		s.skip(log, rc, total, err)
		return false
	}
	for i, m := range s.adapter.Methods() {
		s.notifyProgress(ProgressEvent{EventType: EventMethodComplete, Run: rc.Index, TotalRuns: total, Method: m.Abbrev, Duration: rec.Times[i]})
	}

	if err := s.sink.Write(rec); err != nil {
		log.Error("writing run results", "error", err)
	}

	s.notifyProgress(ProgressEvent{EventType: EventRunComplete, Run: rc.Index, TotalRuns: total, Duration: time.Since(start)})
	log.Debug("run finished", "rows", len(rec.Rows), "elapsed", time.Since(start).Round(time.Millisecond))
	return true
}

func (s *Scheduler) skip(log *slog.Logger, rc RunContext, total int, err error) {
	log.Error("run failed, skipping", "error", err)
	if serr := s.sink.Skip(rc.Index); serr != nil {
		log.Error("recording skipped run", "error", serr)
	}
	s.notifyProgress(ProgressEvent{EventType: EventRunSkipped, Run: rc.Index, TotalRuns: total, Err: err})
}
