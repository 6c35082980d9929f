package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScenarioRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvsim_scenario_runs_total",
			Help: "Total scenario pipeline executions",
		},
		[]string{"source", "status"},
	)

	ScenarioDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pvsim_scenario_duration_seconds",
			Help:    "Scenario pipeline execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SamplesSimulated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvsim_samples_simulated_total",
			Help: "Total weather samples pushed through the model chain",
		},
		[]string{"source"},
	)

	ForecastAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvsim_forecast_api_calls_total",
			Help: "Total Open-Meteo forecast API calls",
		},
		[]string{"status"},
	)

	ForecastAPILatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pvsim_forecast_api_latency_seconds",
			Help:    "Open-Meteo API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
