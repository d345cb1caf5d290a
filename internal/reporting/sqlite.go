package reporting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session     TEXT PRIMARY KEY,
	methods     TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	session        TEXT NOT NULL,
	run            INTEGER NOT NULL,
	skipped        INTEGER NOT NULL,
	terms          TEXT NOT NULL,
	senseful       INTEGER NOT NULL,
	varying_beta   INTEGER NOT NULL,
	alpha          REAL NOT NULL,
	beta           REAL NOT NULL,
	realized_alpha REAL NOT NULL,
	realized_beta  REAL NOT NULL,
	study_size     INTEGER NOT NULL,
	PRIMARY KEY (session, run)
);

CREATE TABLE IF NOT EXISTS scores (
	session       TEXT NOT NULL,
	run           INTEGER NOT NULL,
	term          TEXT NOT NULL,
	method        TEXT NOT NULL,
	p             REAL NOT NULL,
	label         INTEGER NOT NULL,
	more_general  INTEGER NOT NULL,
	more_specific INTEGER NOT NULL,
	pop_items     INTEGER NOT NULL,
	study_items   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS timings (
	session TEXT NOT NULL,
	run     INTEGER NOT NULL,
	method  TEXT NOT NULL,
	ms      INTEGER NOT NULL
);
`

type runRow struct {
	Session       string  `db:"session"`
	Run           int     `db:"run"`
	Skipped       bool    `db:"skipped"`
	Terms         string  `db:"terms"`
	Senseful      bool    `db:"senseful"`
	VaryingBeta   bool    `db:"varying_beta"`
	Alpha         float64 `db:"alpha"`
	Beta          float64 `db:"beta"`
	RealizedAlpha float64 `db:"realized_alpha"`
	RealizedBeta  float64 `db:"realized_beta"`
	StudySize     int     `db:"study_size"`
}

type scoreRow struct {
	Session      string  `db:"session"`
	Run          int     `db:"run"`
	Term         string  `db:"term"`
	Method       string  `db:"method"`
	P            float64 `db:"p"`
	Label        bool    `db:"label"`
	MoreGeneral  bool    `db:"more_general"`
	MoreSpecific bool    `db:"more_specific"`
	PopItems     int     `db:"pop_items"`
	StudyItems   int     `db:"study_items"`
}

type timingRow struct {
	Session string `db:"session"`
	Run     int    `db:"run"`
	Method  string `db:"method"`
	MS      int64  `db:"ms"`
}

// SQLiteSink stores every run of a session in a SQLite database. Several
// sessions can share one database.
type SQLiteSink struct {
	mu      sync.Mutex
	db      *sqlx.DB
	session string
	methods []string
}

// OpenSQLite opens or creates the database at path and registers the
// session.
func OpenSQLite(path, session string, methods []string) (*SQLiteSink, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	_, err = db.NamedExec(`INSERT INTO sessions (session, methods, created_at) VALUES (:session, :methods, :created_at)`,
		map[string]any{
			"session":    session,
			"methods":    strings.Join(methods, ","),
			"created_at": time.Now().UTC().Format(time.RFC3339),
		})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("sqlite: register session: %w", err)
	}
	return &SQLiteSink{db: db, session: session, methods: methods}, nil
}

// DB exposes the database for queries.
func (s *SQLiteSink) DB() *sqlx.DB {
	return s.db
}

func (s *SQLiteSink) Write(rec *RunRecord) error {
	scores := make([]scoreRow, 0, len(rec.Rows)*len(s.methods))
	for _, row := range rec.Rows {
		for m, p := range row.Scores {
			scores = append(scores, scoreRow{
				Session:      s.session,
				Run:          rec.Run,
				Term:         row.Term.String(),
				Method:       s.methods[m],
				P:            p,
				Label:        row.Label,
				MoreGeneral:  row.MoreGeneral,
				MoreSpecific: row.MoreSpecific,
				PopItems:     row.PopulationCount,
				StudyItems:   row.StudyCount,
			})
		}
	}
	timings := make([]timingRow, len(rec.Times))
	for m, d := range rec.Times {
		timings[m] = timingRow{Session: s.session, Run: rec.Run, Method: s.methods[m], MS: d.Milliseconds()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertRun(tx, s.runRow(rec.RunInfo, false)); err != nil {
		return err
	}

	stmt, err := tx.PrepareNamed(`INSERT INTO scores
		(session, run, term, method, p, label, more_general, more_specific, pop_items, study_items)
		VALUES (:session, :run, :term, :method, :p, :label, :more_general, :more_specific, :pop_items, :study_items)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare scores: %w", err)
	}
	defer stmt.Close() //nolint:errcheck
	for _, sr := range scores {
		if _, err := stmt.Exec(sr); err != nil {
			return fmt.Errorf("sqlite: insert score for run %d: %w", rec.Run, err)
		}
	}

	for _, tr := range timings {
		if _, err := tx.NamedExec(`INSERT INTO timings (session, run, method, ms) VALUES (:session, :run, :method, :ms)`, tr); err != nil {
			return fmt.Errorf("sqlite: insert timing for run %d: %w", rec.Run, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit run %d: %w", rec.Run, err)
	}
	return nil
}

func (s *SQLiteSink) Skip(run int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertRun(tx, runRow{Session: s.session, Run: run, Skipped: true}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) runRow(info RunInfo, skipped bool) runRow {
	return runRow{
		Session:       s.session,
		Run:           info.Run,
		Skipped:       skipped,
		Terms:         info.Combination.String(),
		Senseful:      info.Combination.Senseful,
		VaryingBeta:   info.Combination.VaryingBeta,
		Alpha:         info.Alpha,
		Beta:          info.Beta,
		RealizedAlpha: info.Realized.Alpha,
		RealizedBeta:  info.Realized.Beta,
		StudySize:     info.StudySize,
	}
}

func insertRun(tx *sqlx.Tx, r runRow) error {
	_, err := tx.NamedExec(`INSERT INTO runs
		(session, run, skipped, terms, senseful, varying_beta, alpha, beta, realized_alpha, realized_beta, study_size)
		VALUES (:session, :run, :skipped, :terms, :senseful, :varying_beta, :alpha, :beta, :realized_alpha, :realized_beta, :study_size)`, r)
	if err != nil {
		return fmt.Errorf("sqlite: insert run %d: %w", r.Run, err)
	}
	return nil
}
