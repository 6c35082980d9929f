// Package report renders simulation outcomes for humans (plain-text
// summary) and for downstream tooling (per-timestep CSV).
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"pvsim/internal/models"
	"pvsim/internal/sim"
)

const divider = "-----------------------------------"

type energyUnit struct {
	Symbol   string
	Multiple float64
}

var commonEnergyUnits = []energyUnit{
	{Symbol: "GWh", Multiple: 1e-9},
	{Symbol: "MWh", Multiple: 1e-6},
	{Symbol: "kWh", Multiple: 1e-3},
	{Symbol: "Wh", Multiple: 1},
}

// Format renders a run summary: one block per scenario, failures reported
// in place so a partially failed run still shows its successes.
func Format(rr *sim.RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\nPV Simulation Report\n%s\n", divider, divider)
	fmt.Fprintf(&b, "Run time: %s\n", rr.Finished.Sub(rr.Started).Round(time.Millisecond))
	fmt.Fprintf(&b, "Scenarios: %d (%d failed)\n", len(rr.Outcomes), rr.Failed())

	for _, o := range rr.Outcomes {
		fmt.Fprintf(&b, "%s\nScenario: %s (%s)\n", divider, o.Scenario, o.Source)
		if o.Err != nil {
			fmt.Fprintf(&b, "Status: FAILED\nError: %v\n", o.Err)
			continue
		}
		m := o.Result.Metrics
		fmt.Fprintf(&b, "Status: ok\n")
		fmt.Fprintf(&b, "Total Energy: %s\n", formatEnergy(m.TotalEnergyWh))
		fmt.Fprintf(&b, "Peak AC Power: %.1f W\n", m.PeakACPowerW)
		fmt.Fprintf(&b, "Performance Ratio: %.3f\n", m.PerformanceRatio)
	}

	return b.String() + divider + "\n"
}

func formatEnergy(wh float64) string {
	abs := math.Abs(wh)
	for _, u := range commonEnergyUnits {
		v := abs * u.Multiple
		if v >= 1 {
			return fmt.Sprintf("%.2f %s", wh*u.Multiple, u.Symbol)
		}
	}
	return fmt.Sprintf("%.2f Wh", wh)
}

// WriteCSV emits the per-timestep series of a single scenario result as a
// flat table. Timestamps are RFC 3339 in the simulated site's timezone.
func WriteCSV(w io.Writer, result *models.SimulationResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"timestamp", "poa_wm2", "cell_temp_c", "dc_power_w", "ac_power_w"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, ts := range result.Series {
		row := []string{
			ts.Time.Format(time.RFC3339),
			formatFloat(ts.POA),
			formatFloat(ts.CellTemp),
			formatFloat(ts.DCPowerW),
			formatFloat(ts.ACPowerW),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
