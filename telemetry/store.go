package telemetry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store persists run metadata and window statistics to SQLite so runs can
// be compared after the fact.
type Store struct {
	conn  *sqlx.DB
	runID string
}

// OpenStore opens or creates the run database at path and registers a new
// run with a fresh id. Returns nil if path is empty (store disabled).
func OpenStore(path string, configYAML string) (*Store, error) {
	if path == "" {
		return nil, nil
	}
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	st := &Store{conn: conn, runID: uuid.NewString()}
	if err := st.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate run store: %w", err)
	}
	if _, err := conn.Exec(
		"INSERT INTO runs (id, started_at, config) VALUES (?, ?, ?)",
		st.runID, time.Now().UTC().Format(time.RFC3339), configYAML,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	return st, nil
}

func (st *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		config TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS windows (
		run_id TEXT NOT NULL REFERENCES runs(id),
		window_end INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		grazers INTEGER NOT NULL,
		parasites INTEGER NOT NULL,
		plants INTEGER NOT NULL,
		births INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		plants_eaten INTEGER NOT NULL,
		siphoned REAL NOT NULL,
		eval_ok INTEGER NOT NULL,
		eval_failed INTEGER NOT NULL,
		transitions INTEGER NOT NULL,
		energy_mean REAL NOT NULL,
		energy_p50 REAL NOT NULL,
		age_mean REAL NOT NULL,
		PRIMARY KEY (run_id, window_end)
	);

	CREATE INDEX IF NOT EXISTS idx_windows_run ON windows(run_id);
	`
	_, err := st.conn.Exec(schema)
	return err
}

// RunID returns the id assigned to this run.
func (st *Store) RunID() string {
	if st == nil {
		return ""
	}
	return st.runID
}

// SaveWindow appends one window's statistics for this run.
func (st *Store) SaveWindow(stats WindowStats) error {
	if st == nil {
		return nil
	}
	_, err := st.conn.Exec(`INSERT INTO windows
		(run_id, window_end, sim_time, grazers, parasites, plants,
		 births, deaths, plants_eaten, siphoned,
		 eval_ok, eval_failed, transitions,
		 energy_mean, energy_p50, age_mean)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.runID, stats.WindowEndTick, stats.SimTimeSec,
		stats.GrazerCount, stats.ParasiteCount, stats.PlantCount,
		stats.Births, stats.Deaths, stats.PlantsEaten, stats.Siphoned,
		stats.EvalOK, stats.EvalFailed, stats.Transitions,
		stats.EnergyMean, stats.EnergyP50, stats.AgeMean,
	)
	if err != nil {
		return fmt.Errorf("insert window %d: %w", stats.WindowEndTick, err)
	}
	return nil
}

// Windows returns all saved window statistics for a run, oldest first.
func (st *Store) Windows(runID string) ([]WindowStats, error) {
	if st == nil {
		return nil, nil
	}
	rows, err := st.conn.Queryx(`SELECT window_end, sim_time, grazers, parasites, plants,
		births, deaths, plants_eaten, siphoned, eval_ok, eval_failed, transitions,
		energy_mean, energy_p50, age_mean
		FROM windows WHERE run_id = ? ORDER BY window_end`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WindowStats
	for rows.Next() {
		var w WindowStats
		if err := rows.Scan(&w.WindowEndTick, &w.SimTimeSec,
			&w.GrazerCount, &w.ParasiteCount, &w.PlantCount,
			&w.Births, &w.Deaths, &w.PlantsEaten, &w.Siphoned,
			&w.EvalOK, &w.EvalFailed, &w.Transitions,
			&w.EnergyMean, &w.EnergyP50, &w.AgeMean); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (st *Store) Close() error {
	if st == nil {
		return nil
	}
	return st.conn.Close()
}
