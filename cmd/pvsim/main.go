package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"pvsim/internal/config"
	"pvsim/internal/fetch"
	"pvsim/internal/irradiance"
	"pvsim/internal/models"
	"pvsim/internal/pvmodel"
	"pvsim/internal/report"
	"pvsim/internal/sim"
	"pvsim/internal/store"
)

var cli struct {
	Config      string   `help:"Path to the run configuration YAML." default:"config.yaml" env:"PVSIM_CONFIG"`
	DB          string   `help:"SQLite database path for persisting runs (disabled when empty)." env:"PVSIM_DB"`
	CSVOut      string   `help:"Directory to write per-scenario timestep CSVs into (disabled when empty)." env:"PVSIM_CSV_OUT"`
	MetricsAddr string   `help:"Serve Prometheus metrics on this address (disabled when empty)." env:"PVSIM_METRICS_ADDR"`
	Scenario    []string `help:"Run only the named scenarios (repeatable)."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("pvsim"),
		kong.Description("Simulates photovoltaic energy yield for configured weather scenarios."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	f, err := config.Load(cli.Config)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	run, err := f.Validate()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	scenarios, err := selectScenarios(run.Scenarios, cli.Scenario)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var st *store.Store
	if cli.DB != "" {
		db, err := sql.Open("sqlite", cli.DB)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()

		db.Exec("PRAGMA journal_mode=WAL")
		db.Exec("PRAGMA busy_timeout=5000")

		st = store.New(db)
		if err := st.Migrate(); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	if cli.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cli.MetricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
		log.Printf("serving metrics on %s", cli.MetricsAddr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := loadForecastPayloads(ctx, scenarios, run); err != nil {
		log.Fatalf("%v", err)
	}

	decomposer, err := irradiance.NewDecomposer(run.Decomposition)
	if err != nil {
		log.Fatalf("decomposition model: %v", err)
	}
	transposer, err := irradiance.NewTransposer(run.Transposition, run.Albedo)
	if err != nil {
		log.Fatalf("transposition model: %v", err)
	}
	chain, err := pvmodel.New(run.Location, run.Array, transposer, run.LossFactor, run.LossOrder)
	if err != nil {
		log.Fatalf("model chain: %v", err)
	}

	orch := &sim.Orchestrator{
		Location:   run.Location,
		Array:      run.Array,
		Range:      run.Range,
		Decomposer: decomposer,
		Chain:      chain,
	}

	log.Printf("simulating %d scenario(s) for %s", len(scenarios), run.Location.Name)
	result := orch.Run(ctx, scenarios)

	fmt.Print(report.Format(result))

	if cli.CSVOut != "" {
		if err := writeSeries(cli.CSVOut, result); err != nil {
			log.Fatalf("write csv: %v", err)
		}
	}

	if st != nil {
		runID, err := st.SaveRun(run.Location, run.Range, scenarios, result)
		if err != nil {
			log.Fatalf("save run: %v", err)
		}
		for _, sc := range scenarios {
			if sc.Source == models.SourceLiveForecast && len(sc.Payload) > 0 {
				if _, err := st.StoreRawPayload(&runID, sc.Source, run.Location.Name, sc.Payload); err != nil {
					log.Printf("store raw payload for %s: %v", sc.Name, err)
				}
			}
		}
		log.Printf("saved run %d", runID)
	}

	// Scenario failures are reported in the summary; only configuration and
	// infrastructure problems fail the process.
	if n := result.Failed(); n > 0 {
		log.Printf("%d scenario(s) failed", n)
	}
}

// selectScenarios applies the --scenario filter, preserving config order.
func selectScenarios(all []models.ScenarioSpec, names []string) ([]models.ScenarioSpec, error) {
	if len(names) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []models.ScenarioSpec
	for _, sc := range all {
		if wanted[sc.Name] {
			out = append(out, sc)
			delete(wanted, sc.Name)
		}
	}
	for n := range wanted {
		return nil, fmt.Errorf("unknown scenario %q", n)
	}
	return out, nil
}

// loadForecastPayloads fills in the raw payload of every live-forecast
// scenario, either from a local file or by calling the Open-Meteo API.
func loadForecastPayloads(ctx context.Context, scenarios []models.ScenarioSpec, run *config.Run) error {
	var client *fetch.OpenMeteo

	for i := range scenarios {
		sc := &scenarios[i]
		if sc.Source != models.SourceLiveForecast || len(sc.Payload) > 0 {
			continue
		}

		if sc.PayloadPath != "" {
			raw, err := os.ReadFile(sc.PayloadPath)
			if err != nil {
				return fmt.Errorf("scenario %q: read forecast payload: %w", sc.Name, err)
			}
			sc.Payload = raw
			continue
		}

		if client == nil {
			client = fetch.NewOpenMeteo()
		}
		log.Printf("fetching forecast for scenario %q", sc.Name)
		raw, err := client.Fetch(ctx, run.Location, run.Range)
		if err != nil {
			return fmt.Errorf("scenario %q: fetch forecast: %w", sc.Name, err)
		}
		sc.Payload = raw
	}
	return nil
}

func writeSeries(dir string, rr *sim.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, o := range rr.Outcomes {
		if o.Err != nil {
			continue
		}
		path := filepath.Join(dir, o.Scenario+".csv")
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := report.WriteCSV(f, o.Result); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	return nil
}
