package orchestration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ontobench/ontobench/internal/association"
	"github.com/ontobench/ontobench/internal/design"
	"github.com/ontobench/ontobench/internal/enrichment"
	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/models"
	"github.com/ontobench/ontobench/internal/ontology"
	"github.com/ontobench/ontobench/internal/reporting"
	"github.com/ontobench/ontobench/internal/sampling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	termRoot = ontology.MustParseTermID("GO:0000001")
	termA    = ontology.MustParseTermID("GO:0000002")
	termB    = ontology.MustParseTermID("GO:0000003")
)

// newEnvironment: population g1..g10, A={g1,g2,g3}, B={g4,g5}, the rest
// annotated to the root only.
func newEnvironment(t *testing.T) *Environment {
	t.Helper()
	o, err := ontology.ReadOBO(strings.NewReader(`[Term]
id: GO:0000001

[Term]
id: GO:0000002
is_a: GO:0000001

[Term]
id: GO:0000003
is_a: GO:0000001
`))
	require.NoError(t, err)

	c := association.NewContainer()
	pop := itemset.New("population")
	for i := 1; i <= 10; i++ {
		item := fmt.Sprintf("g%d", i)
		pop.Add(item)
		switch {
		case i <= 3:
			c.Add(item, termA)
		case i <= 5:
			c.Add(item, termB)
		default:
			c.Add(item, termRoot)
		}
	}

	env, err := NewEnvironment(o, c, pop, 0)
	require.NoError(t, err)
	return env
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAdapter(t *testing.T, abbrevs ...string) *Adapter {
	t.Helper()
	methods, err := models.Select(models.Catalog(), abbrevs)
	require.NoError(t, err)
	a, err := NewAdapter(enrichment.DefaultRegistry(), methods, nil, WithMCMCSteps(2000))
	require.NoError(t, err)
	return a
}

type tsvOutput struct {
	results, timing bytes.Buffer
}

func (o *tsvOutput) sink(t *testing.T, methods []string) reporting.Sink {
	t.Helper()
	s, err := reporting.NewTSVSink(&o.results, &o.timing, methods)
	require.NoError(t, err)
	return s
}

func TestGrid(t *testing.T) {
	combos := []design.Combination{
		{Terms: []ontology.TermID{termA}},
		{Terms: []ontology.TermID{termB}},
	}
	runs := Grid(combos, []float64{0.1, 0.2}, []float64{0.3})

	require.Len(t, runs, 6)
	for i, rc := range runs {
		assert.Equal(t, i+1, rc.Index)
		assert.Zero(t, rc.Seed)
	}
	assert.Equal(t, []float64{0.1, 0.1, 0.2, 0.2}, []float64{runs[0].Alpha, runs[1].Alpha, runs[2].Alpha, runs[3].Alpha})
	assert.Equal(t, termA, runs[0].Combination.Terms[0])
	assert.Equal(t, termB, runs[1].Combination.Terms[0])
	assert.False(t, runs[3].Valued())
	assert.True(t, runs[4].Valued())
	assert.True(t, runs[5].Valued())
	assert.Equal(t, termB, runs[5].Combination.Terms[0])

	assert.Len(t, Grid(combos, nil, nil), 2, "no grid still gives the valued pass")
	assert.Empty(t, Grid(nil, []float64{0.1}, []float64{0.1}))
}

func TestScheduler_NoNoiseEndToEnd(t *testing.T) {
	env := newEnvironment(t)
	adapter := newAdapter(t, "tft", "pcu")

	var out tsvOutput
	sink := out.sink(t, adapter.Abbrevs())
	s := NewScheduler(env, adapter, sink, WithWorkers(2), WithLogger(quietLogger()))

	runs := []RunContext{{Index: 1, Combination: design.Combination{Terms: []ontology.TermID{termA}}, Alpha: 0, Beta: 0}}
	sum := s.Run(context.Background(), sampling.NewRand(5), runs)
	require.NoError(t, sink.Close())

	assert.Equal(t, Summary{Total: 1, Completed: 1, Skipped: 0, Elapsed: sum.Elapsed}, sum)

	rows := parseTSV(t, out.results.String())
	require.NotEmpty(t, rows)

	byTerm := map[string]map[string]string{}
	for _, r := range rows {
		byTerm[r["term"]] = r
	}

	a := byTerm[termA.String()]
	require.NotNil(t, a)
	assert.Equal(t, "1", a["label"])
	assert.Equal(t, "3", a["study.genes"])
	assert.Equal(t, "3", a["pop.genes"])

	b := byTerm[termB.String()]
	require.NotNil(t, b)
	assert.Equal(t, "0", b["label"])
	assert.Equal(t, "0", b["more.general"])
	assert.Equal(t, "0", b["more.specific"])
	assert.Equal(t, "0", b["study.genes"])

	root := byTerm[termRoot.String()]
	require.NotNil(t, root)
	assert.Equal(t, "1", root["more.general"])
	assert.Equal(t, "3", root["study.genes"], "observed set is exactly the truth")
	assert.Equal(t, "10", root["pop.genes"])

	for _, r := range rows {
		assert.Equal(t, "1", r["run"])
		assert.Equal(t, "0", r["alpha"])
		assert.Equal(t, "0", r["beta"])
	}
	assert.True(t, strings.HasPrefix(out.timing.String(), "run\ttft\tpcu\n1\t"))
}

func TestScheduler_DeterministicAcrossWorkerCounts(t *testing.T) {
	env := newEnvironment(t)

	combos := design.Build(env.Population.Terms(), nil, design.Options{MinTerms: 0, MaxTerms: 2, PerSize: 3}, sampling.NewRand(9))
	runs := Grid(combos, []float64{0.1, 0.3}, []float64{0.2})

	output := func(workers int) string {
		adapter := newAdapter(t, "tft", "b2g.mcmc.pop", "b2g.values.pop", "prob")
		var out tsvOutput
		sink := out.sink(t, adapter.Abbrevs())
		s := NewScheduler(env, adapter, sink, WithWorkers(workers), WithLogger(quietLogger()))
		sum := s.Run(context.Background(), sampling.NewRand(1234), runs)
		require.NoError(t, sink.Close())
		require.Equal(t, len(runs), sum.Completed)
		return out.results.String()
	}

	sequential := output(1)
	parallel := output(4)
	assert.Equal(t, sequential, parallel)
	assert.NotEqual(t, sequential, func() string {
		adapter := newAdapter(t, "tft", "b2g.mcmc.pop", "b2g.values.pop", "prob")
		var out tsvOutput
		sink := out.sink(t, adapter.Abbrevs())
		NewScheduler(env, adapter, sink, WithWorkers(4), WithLogger(quietLogger())).Run(context.Background(), sampling.NewRand(4321), runs)
		require.NoError(t, sink.Close())
		return out.results.String()
	}(), "a different master seed changes the noise")
}

func TestScheduler_FailingRunsAreSkipped(t *testing.T) {
	env := newEnvironment(t)

	ctrl := gomock.NewController(t)
	calc := NewMockCalculation(ctrl)
	calc.EXPECT().Name().Return("Flaky").AnyTimes()

	var calls sync.Mutex
	n := 0
	calc.EXPECT().Calculate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, in enrichment.Input) (*enrichment.Result, error) {
		calls.Lock()
		n++
		call := n
		calls.Unlock()
		switch call % 3 {
		case 1:
			return nil, errors.New("diverged")
		case 2:
			panic("index out of range")
		default:
			return &enrichment.Result{Terms: []enrichment.TermResult{{Term: termA, P: 0.5, PAdjusted: 0.5}}}, nil
		}
	}).Times(6)

	reg := enrichment.NewRegistry()
	require.NoError(t, reg.Register(calc))
	adapter, err := NewAdapter(reg, []models.Method{{Abbrev: "flaky", Calculation: "Flaky"}}, nil)
	require.NoError(t, err)

	var out tsvOutput
	sink := out.sink(t, adapter.Abbrevs())
	s := NewScheduler(env, adapter, sink, WithWorkers(1), WithLogger(quietLogger()))

	var mu sync.Mutex
	events := map[EventType]int{}
	s.OnProgress(func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events[e.EventType]++
	})

	combos := []design.Combination{{Terms: []ontology.TermID{termA}}, {Terms: []ontology.TermID{termB}}, {}}
	sum := s.Run(context.Background(), sampling.NewRand(1), Grid(combos, []float64{0.1}, []float64{0.1}))
	require.NoError(t, sink.Close())

	assert.Equal(t, 6, sum.Total)
	assert.Equal(t, 2, sum.Completed)
	assert.Equal(t, 4, sum.Skipped)

	assert.Equal(t, 1, events[EventBenchmarkStart])
	assert.Equal(t, 1, events[EventBenchmarkComplete])
	assert.Equal(t, 6, events[EventRunStart])
	assert.Equal(t, 2, events[EventRunComplete])
	assert.Equal(t, 4, events[EventRunSkipped])
	assert.Equal(t, 2, events[EventMethodComplete])

	assert.Equal(t, "run\tflaky\n3\t0\n6\t0\n", normalizeTiming(out.timing.String()))
}

func TestScheduler_PollsWhileWaiting(t *testing.T) {
	env := newEnvironment(t)

	ctrl := gomock.NewController(t)
	calc := NewMockCalculation(ctrl)
	calc.EXPECT().Name().Return("Slow").AnyTimes()
	calc.EXPECT().Calculate(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, enrichment.Input) (*enrichment.Result, error) {
		time.Sleep(50 * time.Millisecond)
		return &enrichment.Result{}, nil
	})

	reg := enrichment.NewRegistry()
	require.NoError(t, reg.Register(calc))
	adapter, err := NewAdapter(reg, []models.Method{{Abbrev: "slow", Calculation: "Slow"}}, nil)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&syncWriter{w: &logs}, nil))

	var out tsvOutput
	sink := out.sink(t, adapter.Abbrevs())
	s := NewScheduler(env, adapter, sink, WithLogger(logger), WithPollInterval(5*time.Millisecond))
	sum := s.Run(context.Background(), sampling.NewRand(1), []RunContext{{Index: 1}})

	assert.Equal(t, 1, sum.Completed)
	assert.Contains(t, logs.String(), "waiting for runs to finish")
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(newEnvironment(t), newAdapter(t, "tft"), nil, WithPollInterval(-1))
	assert.Positive(t, s.Workers())
	assert.Equal(t, DefaultPollInterval, s.pollInterval)
}

func TestNewEnvironment_Errors(t *testing.T) {
	_, err := NewEnvironment(nil, nil, nil, 0)
	require.Error(t, err)
}

func TestEnvironment_CheckPopulation(t *testing.T) {
	env := newEnvironment(t)
	require.NoError(t, env.CheckPopulation())

	pop := itemset.FromItems("population", append(env.Population.Items(), "orphan"))
	env, err := NewEnvironment(env.Ontology, env.Associations, pop, 0)
	require.NoError(t, err)
	err = env.CheckPopulation()
	require.ErrorIs(t, err, ErrPopulationMismatch)
	assert.Contains(t, err.Error(), "11 items, 10 annotated to GO:0000001")
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func parseTSV(t *testing.T, s string) []map[string]string {
	t.Helper()
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	header := strings.Split(lines[0], "\t")
	var rows []map[string]string
	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, len(header))
		row := map[string]string{}
		for i, h := range header {
			row[h] = fields[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// normalizeTiming zeroes the elapsed times so the output can be compared.
func normalizeTiming(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		for j := 1; j < len(fields); j++ {
			fields[j] = "0"
		}
		lines[i+1] = strings.Join(fields, "\t")
	}
	return strings.Join(lines, "\n")
}
