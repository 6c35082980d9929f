// Package sim runs the configured scenarios through the normalizer and model
// chain, isolating failures per scenario and aggregating summary metrics.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pvsim/internal/irradiance"
	"pvsim/internal/metrics"
	"pvsim/internal/models"
	"pvsim/internal/pvmodel"
	"pvsim/internal/weather"
)

// ScenarioError wraps any normalization or model failure, scoped to one
// scenario. Sibling scenarios are unaffected.
type ScenarioError struct {
	Scenario string
	Err      error
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("scenario %q: %v", e.Scenario, e.Err)
}

func (e *ScenarioError) Unwrap() error { return e.Err }

// Outcome is one scenario's result or error, never both.
type Outcome struct {
	Scenario string
	Source   string
	Result   *models.SimulationResult
	Err      error
}

// RunResult aggregates every scenario outcome in request order.
type RunResult struct {
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
}

// Failed counts scenarios that ended in error.
func (r *RunResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Orchestrator holds the read-only shared configuration of a run. Scenarios
// share only this immutable state, so they can execute in parallel without
// locking.
type Orchestrator struct {
	Location   models.Location
	Array      models.PVArraySpec
	Range      models.TimeRange
	Decomposer irradiance.Decomposer
	Chain      *pvmodel.Chain
}

// Run executes every scenario concurrently and reports outcomes in the order
// scenarios were requested, regardless of completion order. Cancellation is
// cooperative: a scenario not yet started when ctx is done is reported as
// canceled, while in-flight scenarios run to completion.
func (o *Orchestrator) Run(ctx context.Context, scenarios []models.ScenarioSpec) *RunResult {
	result := &RunResult{
		Started:  time.Now(),
		Outcomes: make([]Outcome, len(scenarios)),
	}

	var wg sync.WaitGroup
	for i, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			result.Outcomes[i] = Outcome{Scenario: sc.Name, Source: sc.Source, Err: &ScenarioError{Scenario: sc.Name, Err: err}}
			continue
		}

		wg.Add(1)
		go func(i int, sc models.ScenarioSpec) {
			defer wg.Done()
			result.Outcomes[i] = o.runScenario(sc)
		}(i, sc)
	}
	wg.Wait()

	result.Finished = time.Now()
	return result
}

func (o *Orchestrator) runScenario(sc models.ScenarioSpec) Outcome {
	started := time.Now()

	res, err := o.simulate(sc)
	metrics.ScenarioDuration.WithLabelValues(sc.Source).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.ScenarioRunsTotal.WithLabelValues(sc.Source, "error").Inc()
		return Outcome{Scenario: sc.Name, Source: sc.Source, Err: &ScenarioError{Scenario: sc.Name, Err: err}}
	}
	metrics.ScenarioRunsTotal.WithLabelValues(sc.Source, "ok").Inc()
	metrics.SamplesSimulated.WithLabelValues(sc.Source).Add(float64(len(res.Series)))
	return Outcome{Scenario: sc.Name, Source: sc.Source, Result: res}
}

func (o *Orchestrator) simulate(sc models.ScenarioSpec) (*models.SimulationResult, error) {
	src, err := weather.SourceFor(sc, o.Decomposer)
	if err != nil {
		return nil, err
	}

	record, err := weather.Normalize(src, o.Location, o.Range)
	if err != nil {
		return nil, err
	}

	series, err := o.Chain.Run(record)
	if err != nil {
		return nil, err
	}

	return &models.SimulationResult{
		Scenario: sc.Name,
		Series:   series,
		Metrics:  computeMetrics(series, o.Array),
	}, nil
}

// computeMetrics derives the summary values from a result series. Energy uses
// trapezoidal integration over actual timestamp deltas, so irregular sampling
// is weighted correctly. The performance ratio divides delivered energy by
// the loss-free STC-efficiency energy under the same plane-of-array
// irradiance.
func computeMetrics(series []models.TimestepResult, array models.PVArraySpec) models.Metrics {
	m := models.Metrics{}

	var poaRatioSum float64 // ∫ POA/refIrradiance dt, hours
	for i, r := range series {
		if r.ACPowerW > m.PeakACPowerW {
			m.PeakACPowerW = r.ACPowerW
		}
		if i == 0 {
			continue
		}
		prev := series[i-1]
		dtHours := r.Time.Sub(prev.Time).Hours()
		m.TotalEnergyWh += (r.ACPowerW + prev.ACPowerW) / 2 * dtHours
		poaRatioSum += (r.POA + prev.POA) / 2 / array.Module.RefIrradiance * dtHours
	}

	if reference := array.NameplateW() * poaRatioSum; reference > 0 {
		m.PerformanceRatio = m.TotalEnergyWh / reference
	}
	return m
}
