// Package store persists comparison runs in a SQLite file.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/idlab-discover/fairleak/internal/compare"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	experiment    TEXT NOT NULL,
	threshold     REAL NOT NULL,
	observations  INTEGER NOT NULL,
	groups_json   TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id            TEXT NOT NULL,
	position          INTEGER NOT NULL,
	config            TEXT NOT NULL,
	metric            TEXT NOT NULL,
	aggregation       TEXT NOT NULL,
	method            TEXT NOT NULL,
	budget            REAL NOT NULL,
	tolerance         REAL NOT NULL,
	status            TEXT NOT NULL,
	accuracy_before   REAL NOT NULL,
	accuracy_after    REAL NOT NULL,
	disparity_before  REAL NOT NULL,
	disparity_after   REAL NOT NULL,
	best_disparity    REAL NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS decisions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment  TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	config      TEXT NOT NULL,
	scenario    TEXT NOT NULL,
	sensor      TEXT NOT NULL,
	grp         TEXT NOT NULL,
	label       INTEGER NOT NULL,
	decision    INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_decisions_experiment ON decisions(experiment);
`

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is a stored comparison run header.
type Run struct {
	ID           string
	Experiment   string
	Threshold    float64
	Observations int
	Groups       []string
	CreatedAt    time.Time
	Configs      int
}

// Result is one stored configuration row.
type Result struct {
	Config          string
	Metric          string
	Aggregation     string
	Method          string
	Budget          float64
	Tolerance       float64
	Status          string
	AccuracyBefore  float64
	AccuracyAfter   float64
	DisparityBefore float64
	DisparityAfter  float64
	BestDisparity   float64
}

// Decision is one stored classifier output.
type Decision struct {
	RunID    string
	Config   string
	Scenario string
	Sensor   string
	Group    string
	Label    bool
	Decision bool
}

// Store manages comparison runs in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HasExperiment reports whether decisions are stored under the experiment name.
func (s *Store) HasExperiment(name string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE experiment = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("count runs: %w", err)
	}
	return n > 0, nil
}

// SaveRun stores the report as a new run. Decisions stored earlier under the
// same experiment name are replaced; run and result history is kept.
func (s *Store) SaveRun(r *compare.Report) (Run, error) {
	if r == nil {
		return Run{}, errors.New("nil report")
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	run := Run{
		ID:           uuid.New().String(),
		Experiment:   r.Experiment,
		Threshold:    r.Threshold,
		Observations: r.Observations,
		Groups:       append([]string(nil), r.Groups...),
		CreatedAt:    created.UTC(),
		Configs:      len(r.Rows),
	}
	groupsJSON, err := json.Marshal(run.Groups)
	if err != nil {
		return Run{}, fmt.Errorf("marshal groups: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Run{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM decisions WHERE experiment = ?`, run.Experiment); err != nil {
		return Run{}, fmt.Errorf("clear decisions: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO runs (run_id, experiment, threshold, observations, groups_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Experiment, run.Threshold, run.Observations, string(groupsJSON),
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	resStmt, err := tx.Prepare(
		`INSERT INTO results (run_id, position, config, metric, aggregation, method, budget, tolerance,
		 status, accuracy_before, accuracy_after, disparity_before, disparity_after, best_disparity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("prepare results: %w", err)
	}
	defer resStmt.Close()
	decStmt, err := tx.Prepare(
		`INSERT INTO decisions (experiment, run_id, config, scenario, sensor, grp, label, decision)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("prepare decisions: %w", err)
	}
	defer decStmt.Close()

	for i, row := range r.Rows {
		_, err := resStmt.Exec(run.ID, i, row.Config, string(row.Metric), string(row.Aggregation),
			string(row.Method), row.Budget, row.Tolerance, string(row.Status),
			row.AccuracyBefore, row.AccuracyAfter, row.DisparityBefore, row.DisparityAfter, row.BestDisparity)
		if err != nil {
			return Run{}, fmt.Errorf("insert result %s: %w", row.Config, err)
		}
		for _, o := range row.Decisions {
			_, err := decStmt.Exec(run.Experiment, run.ID, row.Config, o.Scenario, o.Sensor, o.Group,
				boolInt(o.Label), boolInt(o.Decision))
			if err != nil {
				return Run{}, fmt.Errorf("insert decision: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	logf(run.Experiment, "saved run %s with %d configurations", run.ID, run.Configs)
	return run, nil
}

// ListRuns returns all runs, newest first. A non-empty experiment filters by name.
func (s *Store) ListRuns(experiment string) ([]Run, error) {
	q := `SELECT r.run_id, r.experiment, r.threshold, r.observations, r.groups_json, r.created_at,
		(SELECT COUNT(*) FROM results WHERE results.run_id = r.run_id)
		FROM runs r`
	var args []any
	if experiment != "" {
		q += ` WHERE r.experiment = ?`
		args = append(args, experiment)
	}
	q += ` ORDER BY r.created_at DESC, r.rowid DESC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run        Run
		groupsJSON string
		createdAt  string
	)
	if err := sc.Scan(&run.ID, &run.Experiment, &run.Threshold, &run.Observations, &groupsJSON, &createdAt, &run.Configs); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(groupsJSON), &run.Groups); err != nil {
		return Run{}, fmt.Errorf("unmarshal groups: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = t
	return run, nil
}

// GetRun returns a run and its results in evaluation order.
func (s *Store) GetRun(id string) (Run, []Result, error) {
	row := s.db.QueryRow(
		`SELECT r.run_id, r.experiment, r.threshold, r.observations, r.groups_json, r.created_at,
		 (SELECT COUNT(*) FROM results WHERE results.run_id = r.run_id)
		 FROM runs r WHERE r.run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT config, metric, aggregation, method, budget, tolerance, status,
		 accuracy_before, accuracy_after, disparity_before, disparity_after, best_disparity
		 FROM results WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Config, &r.Metric, &r.Aggregation, &r.Method, &r.Budget, &r.Tolerance, &r.Status,
			&r.AccuracyBefore, &r.AccuracyAfter, &r.DisparityBefore, &r.DisparityAfter, &r.BestDisparity); err != nil {
			return Run{}, nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return run, results, rows.Err()
}

// Decisions returns the stored decisions of an experiment, optionally
// restricted to one configuration.
func (s *Store) Decisions(experiment, config string) ([]Decision, error) {
	q := `SELECT run_id, config, scenario, sensor, grp, label, decision FROM decisions WHERE experiment = ?`
	args := []any{experiment}
	if config != "" {
		q += ` AND config = ?`
		args = append(args, config)
	}
	q += ` ORDER BY id`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var (
			d               Decision
			label, decision int
		)
		if err := rows.Scan(&d.RunID, &d.Config, &d.Scenario, &d.Sensor, &d.Group, &label, &decision); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Label = label != 0
		d.Decision = decision != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
