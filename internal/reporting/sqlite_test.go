package reporting

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ontobench/ontobench/internal/design"
	"github.com/ontobench/ontobench/internal/noise"
	"github.com/ontobench/ontobench/internal/ontology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	sink, err := OpenSQLite(path, "session-1", []string{"tft", "pcu"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	rec := &RunRecord{
		RunInfo: RunInfo{
			Run:         1,
			Combination: design.Combination{Terms: []ontology.TermID{termA, termB}, VaryingBeta: true},
			Alpha:       0.1,
			Beta:        0.2,
			Realized:    noise.Realized{Alpha: 0.09, Beta: 0.25},
			StudySize:   4,
		},
		Rows: []Row{
			{Term: termA, Label: true, Scores: []float64{0.01, 0.02}, PopulationCount: 3, StudyCount: 3},
			{Term: termRoot, Scores: []float64{1, 1}, MoreGeneral: true, PopulationCount: 5, StudyCount: 4},
		},
		Times: []time.Duration{3 * time.Millisecond, 9 * time.Millisecond},
	}
	require.NoError(t, sink.Write(rec))
	require.NoError(t, sink.Skip(2))

	db := sink.DB()

	var runs []struct {
		Run           int     `db:"run"`
		Skipped       bool    `db:"skipped"`
		Terms         string  `db:"terms"`
		VaryingBeta   bool    `db:"varying_beta"`
		RealizedAlpha float64 `db:"realized_alpha"`
	}
	require.NoError(t, db.Select(&runs, `SELECT run, skipped, terms, varying_beta, realized_alpha FROM runs WHERE session = ? ORDER BY run`, "session-1"))
	require.Len(t, runs, 2)
	assert.Equal(t, "GO:0000002,GO:0000003", runs[0].Terms)
	assert.True(t, runs[0].VaryingBeta)
	assert.InDelta(t, 0.09, runs[0].RealizedAlpha, 1e-12)
	assert.False(t, runs[0].Skipped)
	assert.True(t, runs[1].Skipped)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM scores WHERE run = 1`))
	assert.Equal(t, 4, count)

	var p float64
	require.NoError(t, db.Get(&p, `SELECT p FROM scores WHERE term = 'GO:0000002' AND method = 'pcu'`))
	assert.InDelta(t, 0.02, p, 1e-12)

	var ms int64
	require.NoError(t, db.Get(&ms, `SELECT ms FROM timings WHERE run = 1 AND method = 'pcu'`))
	assert.Equal(t, int64(9), ms)

	var methods string
	require.NoError(t, db.Get(&methods, `SELECT methods FROM sessions WHERE session = 'session-1'`))
	assert.Equal(t, "tft,pcu", methods)
}

func TestSQLiteSink_SessionsShareDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")

	first, err := OpenSQLite(path, "a", []string{"tft"})
	require.NoError(t, err)
	require.NoError(t, first.Skip(1))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path, "b", []string{"tft"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	require.NoError(t, second.Skip(1))

	var count int
	require.NoError(t, second.DB().Get(&count, `SELECT COUNT(*) FROM runs`))
	assert.Equal(t, 2, count)

	_, err = OpenSQLite(path, "b", []string{"tft"})
	require.Error(t, err, "session ids are unique")
}
