package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"pvsim/internal/models"
	"pvsim/internal/sim"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testRun(t *testing.T) (models.Location, models.TimeRange, []models.ScenarioSpec, *sim.RunResult) {
	t.Helper()
	tz, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}

	loc := models.Location{Name: "Brasília", Latitude: -15.78, Longitude: -47.93, Elevation: 1172, Timezone: "America/Sao_Paulo", TZ: tz}
	tr := models.TimeRange{
		Start: time.Date(2026, 1, 15, 0, 0, 0, 0, tz),
		End:   time.Date(2026, 1, 15, 23, 0, 0, 0, tz),
		Step:  time.Hour,
	}
	scenarios := []models.ScenarioSpec{
		{Name: "clearsky", Source: models.SourceClearSky},
		{Name: "forecast", Source: models.SourceLiveForecast},
	}

	started := time.Date(2026, 1, 16, 8, 0, 0, 0, time.UTC)
	result := &sim.RunResult{
		Started:  started,
		Finished: started.Add(2 * time.Second),
		Outcomes: []sim.Outcome{
			{
				Scenario: "clearsky",
				Result: &models.SimulationResult{
					Scenario: "clearsky",
					Series:   make([]models.TimestepResult, 24),
					Metrics:  models.Metrics{TotalEnergyWh: 12345.6, PeakACPowerW: 2100.5, PerformanceRatio: 0.83},
				},
			},
			{
				Scenario: "forecast",
				Err:      &sim.ScenarioError{Scenario: "forecast", Err: errors.New("no sample for 2026-01-15T09:00")},
			},
		},
	}
	return loc, tr, scenarios, result
}

func TestSaveRunRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	loc, tr, scenarios, result := testRun(t)

	runID, err := store.SaveRun(loc, tr, scenarios, result)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if runID == 0 {
		t.Fatal("expected non-zero run ID")
	}

	rows, err := store.ScenarioResults(runID)
	if err != nil {
		t.Fatalf("scenario results: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 scenario rows, got %d", len(rows))
	}

	ok := rows[0]
	if ok.Scenario != "clearsky" || ok.SourceKind != models.SourceClearSky {
		t.Errorf("unexpected first row: %+v", ok)
	}
	if !ok.TotalEnergyWh.Valid || ok.TotalEnergyWh.Float64 != 12345.6 {
		t.Errorf("total energy not stored: %+v", ok.TotalEnergyWh)
	}
	if !ok.SampleCount.Valid || ok.SampleCount.Int64 != 24 {
		t.Errorf("sample count not stored: %+v", ok.SampleCount)
	}
	if ok.Error.Valid {
		t.Errorf("successful scenario should have no error, got %q", ok.Error.String)
	}

	failed := rows[1]
	if !failed.Error.Valid {
		t.Fatal("failed scenario should carry its error text")
	}
	if failed.TotalEnergyWh.Valid {
		t.Error("failed scenario should have no metrics")
	}
}

func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	loc, tr, scenarios, result := testRun(t)

	if _, err := store.SaveRun(loc, tr, scenarios, result); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := store.ListRuns(10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].LocationName != "Brasília" || runs[0].Timezone != "America/Sao_Paulo" {
		t.Errorf("unexpected run row: %+v", runs[0])
	}
}

func TestRawPayloadDedupAndRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	payload := []byte(`{"hourly":{"time":["2026-01-15T00:00"]}}`)

	id, err := store.StoreRawPayload(nil, "open-meteo", "Brasília", payload)
	if err != nil {
		t.Fatalf("store payload: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero payload ID")
	}

	// Identical payload: deduplicated by hash.
	dupID, err := store.StoreRawPayload(nil, "open-meteo", "Brasília", payload)
	if err != nil {
		t.Fatalf("store duplicate: %v", err)
	}
	if dupID != 0 {
		t.Errorf("duplicate payload should return 0, got %d", dupID)
	}

	got, err := store.LatestRawPayload("open-meteo")
	if err != nil {
		t.Fatalf("latest payload: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload round trip mismatch: %s", got)
	}
}

func TestLatestRawPayloadEmpty(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.LatestRawPayload("open-meteo")
	if err != nil {
		t.Fatalf("latest payload: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil payload, got %s", got)
	}
}
