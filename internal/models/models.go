package models

import (
	"time"
)

// Source kinds accepted by the weather normalizer.
const (
	SourceHistoricalFile = "historical-file"
	SourceLiveForecast   = "live-forecast"
	SourceClearSky       = "clear-sky"
)

// Decomposition models for deriving DNI/DHI from GHI.
const (
	DecompositionErbs           = "erbs"
	DecompositionOrgillHollands = "orgill_hollands"
)

// Sky-diffuse transposition models.
const (
	TranspositionIsotropic = "isotropic"
	TranspositionHayDavies = "haydavies"
)

// Mounting types for the cell temperature model.
const (
	MountingOpenRack      = "open_rack"
	MountingCloseMount    = "close_mount"
	MountingInsulatedBack = "insulated_back"
)

// Loss application order relative to inverter clipping.
const (
	LossesAfterClipping  = "after_clipping"
	LossesBeforeClipping = "before_clipping"
)

// Location is a geographic site. Immutable once a run begins; the resolved
// *time.Location is cached at validation time.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
	Elevation float64
	Timezone  string

	TZ *time.Location
}

// ModuleParams are the module electrical parameters referenced to STC.
type ModuleParams struct {
	STCPowerW       float64 // nameplate DC power per module at STC
	TempCoefficient float64 // power temperature coefficient, 1/°C (typically negative)
	RefIrradiance   float64 // W/m², usually 1000
	RefTemperature  float64 // °C, usually 25
}

// CurvePoint is one control point of the inverter DC-to-AC efficiency curve.
type CurvePoint struct {
	DCPowerW   float64
	Efficiency float64
}

// InverterParams describe the inverter conversion behavior.
type InverterParams struct {
	ACLimitW        float64
	EfficiencyCurve []CurvePoint // ascending by DCPowerW
}

// ArrayGeometry is the physical arrangement of the array.
type ArrayGeometry struct {
	TiltDeg          float64 // 0 = horizontal, 90 = vertical
	AzimuthDeg       float64 // 0 = north, clockwise
	ModulesPerString int
	Strings          int
}

// PVArraySpec is the full hardware description consumed by the model chain.
type PVArraySpec struct {
	Module   ModuleParams
	Inverter InverterParams
	Geometry ArrayGeometry
	Mounting string
}

// NameplateW is the array DC nameplate power at STC.
func (s PVArraySpec) NameplateW() float64 {
	return s.Module.STCPowerW * float64(s.Geometry.ModulesPerString) * float64(s.Geometry.Strings)
}

// WeatherSample is one canonical weather entry.
type WeatherSample struct {
	Time        time.Time
	GHI         float64 // W/m²
	DNI         float64 // W/m²
	DHI         float64 // W/m²
	AmbientTemp float64 // °C
	WindSpeed   float64 // m/s
}

// WeatherRecord is the normalizer's canonical output: samples ordered by
// strictly ascending timestamp. Never mutated after normalization.
type WeatherRecord struct {
	Source  string
	Samples []WeatherSample
}

// TimeRange is an inclusive simulation window sampled at Step.
type TimeRange struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// Timestamps materializes every expected sampling instant in the range.
func (tr TimeRange) Timestamps() []time.Time {
	var ts []time.Time
	for t := tr.Start; !t.After(tr.End); t = t.Add(tr.Step) {
		ts = append(ts, t)
	}
	return ts
}

// ScenarioSpec selects a weather source and its parameters. Location and
// array are shared across scenarios and carried by the run configuration.
type ScenarioSpec struct {
	Name   string
	Source string

	// historical-file
	FilePath string

	// live-forecast: payload is the already-fetched raw response body.
	// PayloadPath optionally names a file to load it from instead of
	// fetching live.
	Payload     []byte
	PayloadPath string

	// clear-sky
	Turbidity   float64
	DefaultTemp float64 // °C fill for ambient temperature
	DefaultWind float64 // m/s fill for wind speed
}

// TimestepResult is one row of the simulation output series.
type TimestepResult struct {
	Time     time.Time
	POA      float64 // plane-of-array irradiance, W/m²
	CellTemp float64 // °C
	DCPowerW float64
	ACPowerW float64
}

// Metrics are the derived per-scenario summary values.
type Metrics struct {
	TotalEnergyWh float64
	PeakACPowerW  float64
	// PerformanceRatio compares delivered energy against loss-free conversion
	// at STC efficiency under the same plane-of-array irradiance. It can
	// transiently exceed 1 under clipping edge cases and is reported as-is.
	PerformanceRatio float64
}

// SimulationResult is the per-scenario output aggregate. Instances are
// created fresh per scenario execution and never mutated afterwards.
type SimulationResult struct {
	Scenario string
	Series   []TimestepResult
	Metrics  Metrics
}
