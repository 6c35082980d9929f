// Package store persists run history: run rows, per-scenario metrics, and raw
// forecast payloads. The simulation core never touches it; the CLI writes a
// run after the orchestrator finishes.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"pvsim/internal/models"
	"pvsim/internal/sim"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RunRow is a stored run summary.
type RunRow struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	LocationName string
	Latitude     float64
	Longitude    float64
	Timezone     string
	RangeStart   time.Time
	RangeEnd     time.Time
}

// ScenarioRow is one stored scenario outcome. Error is set instead of the
// metric columns when the scenario failed.
type ScenarioRow struct {
	ID               int64
	RunID            int64
	Scenario         string
	SourceKind       string
	SampleCount      sql.NullInt64
	TotalEnergyWh    sql.NullFloat64
	PeakACPowerW     sql.NullFloat64
	PerformanceRatio sql.NullFloat64
	Error            sql.NullString
}

// SaveRun stores a completed run with all scenario outcomes, successful and
// failed alike, and returns the new run ID.
func (s *Store) SaveRun(loc models.Location, tr models.TimeRange, scenarios []models.ScenarioSpec, result *sim.RunResult) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO runs (started_at, finished_at, location_name, latitude, longitude, timezone, range_start, range_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, result.Started.UTC(), result.Finished.UTC(), loc.Name, loc.Latitude, loc.Longitude, loc.Timezone,
		tr.Start.UTC(), tr.End.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for i, outcome := range result.Outcomes {
		sourceKind := ""
		if i < len(scenarios) {
			sourceKind = scenarios[i].Source
		}

		row := ScenarioRow{RunID: runID, Scenario: outcome.Scenario, SourceKind: sourceKind}
		if outcome.Err != nil {
			row.Error = sql.NullString{String: outcome.Err.Error(), Valid: true}
		} else {
			m := outcome.Result.Metrics
			row.SampleCount = sql.NullInt64{Int64: int64(len(outcome.Result.Series)), Valid: true}
			row.TotalEnergyWh = sql.NullFloat64{Float64: m.TotalEnergyWh, Valid: true}
			row.PeakACPowerW = sql.NullFloat64{Float64: m.PeakACPowerW, Valid: true}
			row.PerformanceRatio = sql.NullFloat64{Float64: m.PerformanceRatio, Valid: true}
		}

		_, err := s.db.Exec(`
			INSERT INTO scenario_results (run_id, scenario, source_kind, sample_count, total_energy_wh, peak_ac_w, performance_ratio, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, row.RunID, row.Scenario, row.SourceKind, row.SampleCount, row.TotalEnergyWh, row.PeakACPowerW, row.PerformanceRatio, row.Error)
		if err != nil {
			return 0, fmt.Errorf("insert scenario result %q: %w", outcome.Scenario, err)
		}
	}

	return runID, nil
}

// ScenarioResults returns every stored scenario row for a run, in insert order.
func (s *Store) ScenarioResults(runID int64) ([]ScenarioRow, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, scenario, source_kind, sample_count, total_energy_wh, peak_ac_w, performance_ratio, error
		FROM scenario_results
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ScenarioRow
	for rows.Next() {
		var r ScenarioRow
		if err := rows.Scan(&r.ID, &r.RunID, &r.Scenario, &r.SourceKind, &r.SampleCount, &r.TotalEnergyWh, &r.PeakACPowerW, &r.PerformanceRatio, &r.Error); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRow, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, location_name, latitude, longitude, timezone, range_start, range_end
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.LocationName, &r.Latitude, &r.Longitude, &r.Timezone, &r.RangeStart, &r.RangeEnd); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
