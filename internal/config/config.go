// Package config loads and validates the run configuration document.
// Validation is pure: it performs no I/O beyond reading the file itself, and
// a failure always names the offending field so callers can surface
// field-level feedback.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pvsim/internal/models"
)

// ValidationError names a config field and the constraint it violates.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Constraint)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Constraint: fmt.Sprintf(format, args...)}
}

// File mirrors the YAML configuration document.
type File struct {
	Location struct {
		Name      string  `yaml:"name"`
		Latitude  float64 `yaml:"latitude"`
		Longitude float64 `yaml:"longitude"`
		Elevation float64 `yaml:"elevation"`
		Timezone  string  `yaml:"timezone"`
	} `yaml:"location"`

	PVArray struct {
		Module struct {
			STCPowerW       float64 `yaml:"stc_power_w"`
			TempCoefficient float64 `yaml:"temp_coefficient"`
			RefIrradiance   float64 `yaml:"reference_irradiance"`
			RefTemperature  float64 `yaml:"reference_temperature"`
		} `yaml:"module"`
		Inverter struct {
			ACLimitW        float64 `yaml:"ac_limit_w"`
			EfficiencyCurve []struct {
				DCPowerW   float64 `yaml:"dc_power_w"`
				Efficiency float64 `yaml:"efficiency"`
			} `yaml:"efficiency_curve"`
		} `yaml:"inverter"`
		Geometry struct {
			Tilt             float64 `yaml:"tilt"`
			Azimuth          float64 `yaml:"azimuth"`
			ModulesPerString int     `yaml:"modules_per_string"`
			Strings          int     `yaml:"strings"`
		} `yaml:"geometry"`
		Mounting string `yaml:"mounting"`
	} `yaml:"pv_array"`

	Models struct {
		Decomposition string  `yaml:"decomposition"`
		Transposition string  `yaml:"transposition"`
		Albedo        float64 `yaml:"albedo"`
	} `yaml:"models"`

	Losses struct {
		Factor float64 `yaml:"factor"`
		Apply  string  `yaml:"apply"`
	} `yaml:"losses"`

	Simulation struct {
		Start       string `yaml:"start"`
		End         string `yaml:"end"`
		StepMinutes int    `yaml:"step_minutes"`
	} `yaml:"simulation"`

	Scenarios []struct {
		Name        string  `yaml:"name"`
		Source      string  `yaml:"source"`
		Path        string  `yaml:"path"`
		PayloadPath string  `yaml:"payload_path"`
		Turbidity   float64 `yaml:"turbidity"`
		DefaultTemp float64 `yaml:"default_temp_c"`
		DefaultWind float64 `yaml:"default_wind_ms"`
	} `yaml:"scenarios"`
}

// Run is the validated, immutable configuration consumed by the orchestrator.
type Run struct {
	Location  models.Location
	Array     models.PVArraySpec
	Range     models.TimeRange
	Scenarios []models.ScenarioSpec

	Decomposition string
	Transposition string
	Albedo        float64
	LossFactor    float64
	LossOrder     string
}

// Load reads and parses the YAML document without validating it.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &f, nil
}

// Validate checks every constraint and resolves defaults, returning the
// read-only run configuration. The first violated constraint aborts.
func (f *File) Validate() (*Run, error) {
	run := &Run{}

	if err := f.validateLocation(run); err != nil {
		return nil, err
	}
	if err := f.validateArray(run); err != nil {
		return nil, err
	}
	if err := f.validateModels(run); err != nil {
		return nil, err
	}
	if err := f.validateLosses(run); err != nil {
		return nil, err
	}
	if err := f.validateSimulation(run); err != nil {
		return nil, err
	}
	if err := f.validateScenarios(run); err != nil {
		return nil, err
	}
	return run, nil
}

func (f *File) validateLocation(run *Run) error {
	l := f.Location
	if l.Latitude < -90 || l.Latitude > 90 {
		return invalid("location.latitude", "must be within [-90, 90], got %v", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return invalid("location.longitude", "must be within [-180, 180], got %v", l.Longitude)
	}
	if l.Elevation < -500 {
		return invalid("location.elevation", "must be >= -500 m, got %v", l.Elevation)
	}
	if l.Timezone == "" {
		return invalid("location.timezone", "is required")
	}
	tz, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return invalid("location.timezone", "unresolvable timezone %q", l.Timezone)
	}

	run.Location = models.Location{
		Name:      l.Name,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Elevation: l.Elevation,
		Timezone:  l.Timezone,
		TZ:        tz,
	}
	return nil
}

func (f *File) validateArray(run *Run) error {
	a := f.PVArray

	if a.Module.STCPowerW <= 0 {
		return invalid("pv_array.module.stc_power_w", "must be > 0, got %v", a.Module.STCPowerW)
	}
	refIrradiance := a.Module.RefIrradiance
	if refIrradiance == 0 {
		refIrradiance = 1000
	}
	if refIrradiance < 0 {
		return invalid("pv_array.module.reference_irradiance", "must be > 0, got %v", refIrradiance)
	}
	refTemperature := a.Module.RefTemperature
	if refTemperature == 0 {
		refTemperature = 25
	}

	if a.Inverter.ACLimitW <= 0 {
		return invalid("pv_array.inverter.ac_limit_w", "must be > 0, got %v", a.Inverter.ACLimitW)
	}
	if len(a.Inverter.EfficiencyCurve) == 0 {
		return invalid("pv_array.inverter.efficiency_curve", "must have at least one control point")
	}
	curve := make([]models.CurvePoint, 0, len(a.Inverter.EfficiencyCurve))
	for i, p := range a.Inverter.EfficiencyCurve {
		field := fmt.Sprintf("pv_array.inverter.efficiency_curve[%d]", i)
		if p.DCPowerW < 0 {
			return invalid(field+".dc_power_w", "must be >= 0, got %v", p.DCPowerW)
		}
		if p.Efficiency <= 0 || p.Efficiency > 1 {
			return invalid(field+".efficiency", "must be within (0, 1], got %v", p.Efficiency)
		}
		if i > 0 && p.DCPowerW <= a.Inverter.EfficiencyCurve[i-1].DCPowerW {
			return invalid(field+".dc_power_w", "control points must be strictly ascending")
		}
		curve = append(curve, models.CurvePoint{DCPowerW: p.DCPowerW, Efficiency: p.Efficiency})
	}

	if a.Geometry.Tilt < 0 || a.Geometry.Tilt > 90 {
		return invalid("pv_array.geometry.tilt", "must be within [0, 90], got %v", a.Geometry.Tilt)
	}
	if a.Geometry.Azimuth < 0 || a.Geometry.Azimuth >= 360 {
		return invalid("pv_array.geometry.azimuth", "must be within [0, 360), got %v", a.Geometry.Azimuth)
	}
	if a.Geometry.ModulesPerString <= 0 {
		return invalid("pv_array.geometry.modules_per_string", "must be > 0, got %v", a.Geometry.ModulesPerString)
	}
	strings := a.Geometry.Strings
	if strings == 0 {
		strings = 1
	}
	if strings < 0 {
		return invalid("pv_array.geometry.strings", "must be > 0, got %v", a.Geometry.Strings)
	}

	mounting := a.Mounting
	if mounting == "" {
		mounting = models.MountingOpenRack
	}
	switch mounting {
	case models.MountingOpenRack, models.MountingCloseMount, models.MountingInsulatedBack:
	default:
		return invalid("pv_array.mounting", "unknown mounting type %q", mounting)
	}

	run.Array = models.PVArraySpec{
		Module: models.ModuleParams{
			STCPowerW:       a.Module.STCPowerW,
			TempCoefficient: a.Module.TempCoefficient,
			RefIrradiance:   refIrradiance,
			RefTemperature:  refTemperature,
		},
		Inverter: models.InverterParams{ACLimitW: a.Inverter.ACLimitW, EfficiencyCurve: curve},
		Geometry: models.ArrayGeometry{
			TiltDeg:          a.Geometry.Tilt,
			AzimuthDeg:       a.Geometry.Azimuth,
			ModulesPerString: a.Geometry.ModulesPerString,
			Strings:          strings,
		},
		Mounting: mounting,
	}
	return nil
}

func (f *File) validateModels(run *Run) error {
	m := f.Models

	run.Decomposition = m.Decomposition
	if run.Decomposition == "" {
		run.Decomposition = models.DecompositionErbs
	}
	switch run.Decomposition {
	case models.DecompositionErbs, models.DecompositionOrgillHollands:
	default:
		return invalid("models.decomposition", "unknown decomposition model %q", run.Decomposition)
	}

	run.Transposition = m.Transposition
	if run.Transposition == "" {
		run.Transposition = models.TranspositionIsotropic
	}
	switch run.Transposition {
	case models.TranspositionIsotropic, models.TranspositionHayDavies:
	default:
		return invalid("models.transposition", "unknown transposition model %q", run.Transposition)
	}

	run.Albedo = m.Albedo
	if run.Albedo == 0 {
		run.Albedo = 0.2
	}
	if run.Albedo < 0 || run.Albedo > 1 {
		return invalid("models.albedo", "must be within [0, 1], got %v", m.Albedo)
	}
	return nil
}

func (f *File) validateLosses(run *Run) error {
	run.LossFactor = f.Losses.Factor
	if run.LossFactor == 0 {
		run.LossFactor = 1
	}
	if run.LossFactor < 0 || run.LossFactor > 1 {
		return invalid("losses.factor", "must be within [0, 1], got %v", f.Losses.Factor)
	}

	run.LossOrder = f.Losses.Apply
	if run.LossOrder == "" {
		run.LossOrder = models.LossesAfterClipping
	}
	switch run.LossOrder {
	case models.LossesAfterClipping, models.LossesBeforeClipping:
	default:
		return invalid("losses.apply", "must be %q or %q, got %q",
			models.LossesAfterClipping, models.LossesBeforeClipping, f.Losses.Apply)
	}
	return nil
}

func (f *File) validateSimulation(run *Run) error {
	s := f.Simulation

	start, err := time.ParseInLocation("2006-01-02", s.Start, run.Location.TZ)
	if err != nil {
		return invalid("simulation.start", "must be a date (YYYY-MM-DD), got %q", s.Start)
	}
	end, err := time.ParseInLocation("2006-01-02", s.End, run.Location.TZ)
	if err != nil {
		return invalid("simulation.end", "must be a date (YYYY-MM-DD), got %q", s.End)
	}
	if end.Before(start) {
		return invalid("simulation.end", "must not be before simulation.start")
	}

	stepMinutes := s.StepMinutes
	if stepMinutes == 0 {
		stepMinutes = 60
	}
	if stepMinutes < 0 || stepMinutes > 24*60 {
		return invalid("simulation.step_minutes", "must be within (0, 1440], got %v", s.StepMinutes)
	}
	step := time.Duration(stepMinutes) * time.Minute

	// End date is inclusive: the last sample falls on its final step.
	run.Range = models.TimeRange{
		Start: start,
		End:   end.AddDate(0, 0, 1).Add(-step),
		Step:  step,
	}
	return nil
}

func (f *File) validateScenarios(run *Run) error {
	if len(f.Scenarios) == 0 {
		return invalid("scenarios", "at least one scenario is required")
	}

	seen := make(map[string]bool)
	for i, sc := range f.Scenarios {
		field := fmt.Sprintf("scenarios[%d]", i)
		if sc.Name == "" {
			return invalid(field+".name", "is required")
		}
		if seen[sc.Name] {
			return invalid(field+".name", "duplicate scenario name %q", sc.Name)
		}
		seen[sc.Name] = true

		spec := models.ScenarioSpec{Name: sc.Name, Source: sc.Source}
		switch sc.Source {
		case models.SourceHistoricalFile:
			if sc.Path == "" {
				return invalid(field+".path", "is required for historical-file sources")
			}
			spec.FilePath = sc.Path
		case models.SourceLiveForecast:
			spec.PayloadPath = sc.PayloadPath
		case models.SourceClearSky:
			spec.Turbidity = sc.Turbidity
			if spec.Turbidity == 0 {
				spec.Turbidity = 1
			}
			if spec.Turbidity < 0 {
				return invalid(field+".turbidity", "must be > 0, got %v", sc.Turbidity)
			}
			spec.DefaultTemp = sc.DefaultTemp
			spec.DefaultWind = sc.DefaultWind
			if spec.DefaultWind < 0 {
				return invalid(field+".default_wind_ms", "must be >= 0, got %v", sc.DefaultWind)
			}
		default:
			return invalid(field+".source", "unknown weather source kind %q", sc.Source)
		}

		run.Scenarios = append(run.Scenarios, spec)
	}
	return nil
}
