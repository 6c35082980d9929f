// Package pvmodel implements the ordered physical model chain converting a
// canonical weather record into DC and AC power: solar position →
// transposition → cell temperature → DC power → AC power → loss adjustment.
// Stages are plain functions composed explicitly; each is independently
// testable against literal inputs.
package pvmodel

import (
	"fmt"
	"math"
	"time"

	"pvsim/internal/irradiance"
	"pvsim/internal/models"
	"pvsim/internal/solarpos"
)

// DomainError reports a physical input outside a stage's valid domain.
// Night-time (sun below horizon) is not a domain error; it short-circuits to
// zero output before any stage runs.
type DomainError struct {
	Stage string
	Time  time.Time
	Msg   string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("model domain error at %s stage %s: %s", e.Time.Format(time.RFC3339), e.Stage, e.Msg)
}

// Chain evaluates the model stages for one site and array. Construct once per
// run; safe for concurrent use since all fields are read-only.
type Chain struct {
	Location   models.Location
	Array      models.PVArraySpec
	Transposer irradiance.Transposer
	LossFactor float64 // composite derating (soiling, wiring, mismatch), 0..1
	LossOrder  string  // models.LossesAfterClipping or models.LossesBeforeClipping

	temp tempParams
}

// New builds a chain, resolving the mounting-specific temperature parameters.
func New(loc models.Location, array models.PVArraySpec, tr irradiance.Transposer, lossFactor float64, lossOrder string) (*Chain, error) {
	tp, ok := tempParamsByMounting[array.Mounting]
	if !ok {
		return nil, fmt.Errorf("unknown mounting type %q", array.Mounting)
	}
	return &Chain{
		Location:   loc,
		Array:      array,
		Transposer: tr,
		LossFactor: lossFactor,
		LossOrder:  lossOrder,
		temp:       tp,
	}, nil
}

// Run evaluates the chain over a weather record and returns one result per
// sample. The input record is never modified.
func (c *Chain) Run(record models.WeatherRecord) ([]models.TimestepResult, error) {
	results := make([]models.TimestepResult, 0, len(record.Samples))
	for _, s := range record.Samples {
		r, err := c.Step(s)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Step evaluates all stages for a single weather sample.
func (c *Chain) Step(s models.WeatherSample) (models.TimestepResult, error) {
	out := models.TimestepResult{Time: s.Time, CellTemp: s.AmbientTemp}

	if err := checkIrradianceDomain(s); err != nil {
		return out, err
	}

	pos := solarpos.Compute(s.Time, c.Location.Latitude, c.Location.Longitude)

	// Sun below horizon: zero output without evaluating the thermal or
	// electrical stages.
	if pos.ZenithDeg >= 90 {
		return out, nil
	}

	comps := irradiance.Components{GHI: s.GHI, DNI: s.DNI, DHI: s.DHI}
	poa := c.Transposer.POA(s.Time, comps, pos, c.Array.Geometry.TiltDeg, c.Array.Geometry.AzimuthDeg)
	if poa < 0 {
		return out, &DomainError{Stage: "transposition", Time: s.Time, Msg: fmt.Sprintf("negative plane-of-array irradiance %.2f", poa)}
	}
	out.POA = poa

	out.CellTemp = c.cellTemperature(poa, s.AmbientTemp, s.WindSpeed)

	dc, err := c.dcPower(poa, out.CellTemp, s.Time)
	if err != nil {
		return out, err
	}
	out.DCPowerW = dc

	out.ACPowerW = c.acPower(dc)
	return out, nil
}

func checkIrradianceDomain(s models.WeatherSample) error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"ghi", s.GHI}, {"dni", s.DNI}, {"dhi", s.DHI},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return &DomainError{Stage: "irradiance", Time: s.Time, Msg: fmt.Sprintf("%s is not finite", v.name)}
		}
		if v.value < 0 {
			return &DomainError{Stage: "irradiance", Time: s.Time, Msg: fmt.Sprintf("negative %s %.2f", v.name, v.value)}
		}
	}
	if s.WindSpeed < 0 {
		return &DomainError{Stage: "irradiance", Time: s.Time, Msg: fmt.Sprintf("negative wind speed %.2f", s.WindSpeed)}
	}
	return nil
}

// tempParams are Sandia module/cell temperature coefficients.
type tempParams struct {
	a      float64
	b      float64
	deltaT float64
}

var tempParamsByMounting = map[string]tempParams{
	models.MountingOpenRack:      {a: -3.47, b: -0.0594, deltaT: 3},
	models.MountingCloseMount:    {a: -2.98, b: -0.0471, deltaT: 1},
	models.MountingInsulatedBack: {a: -2.81, b: -0.0455, deltaT: 0},
}

// cellTemperature applies the Sandia module temperature model: back-of-module
// temperature from irradiance and wind, plus a conductive offset to the cell.
func (c *Chain) cellTemperature(poa, ambient, wind float64) float64 {
	module := poa*math.Exp(c.temp.a+c.temp.b*wind) + ambient
	return module + poa/1000*c.temp.deltaT
}

// dcPower applies the PVWatts DC model: irradiance scaling of nameplate power
// with a linear temperature coefficient against STC.
func (c *Chain) dcPower(poa, cellTemp float64, at time.Time) (float64, error) {
	m := c.Array.Module
	if m.RefIrradiance <= 0 {
		return 0, &DomainError{Stage: "dc", Time: at, Msg: "reference irradiance must be positive"}
	}
	dc := poa / m.RefIrradiance * c.Array.NameplateW() * (1 + m.TempCoefficient*(cellTemp-m.RefTemperature))
	if dc < 0 {
		dc = 0
	}
	return dc, nil
}

// acPower converts DC power through the inverter efficiency curve, clips at
// the AC limit, and applies the composite loss factor in the configured order.
func (c *Chain) acPower(dc float64) float64 {
	ac := dc * c.efficiencyAt(dc)

	if c.LossOrder == models.LossesBeforeClipping {
		ac *= c.LossFactor
	}
	if ac > c.Array.Inverter.ACLimitW {
		ac = c.Array.Inverter.ACLimitW
	}
	if c.LossOrder != models.LossesBeforeClipping {
		ac *= c.LossFactor
	}
	return ac
}

// efficiencyAt interpolates the DC-to-AC efficiency curve linearly between
// control points, clamping outside the curve's DC range.
func (c *Chain) efficiencyAt(dc float64) float64 {
	curve := c.Array.Inverter.EfficiencyCurve
	if len(curve) == 0 {
		return 0
	}
	if dc <= curve[0].DCPowerW {
		return curve[0].Efficiency
	}
	last := curve[len(curve)-1]
	if dc >= last.DCPowerW {
		return last.Efficiency
	}
	for i := 1; i < len(curve); i++ {
		if dc <= curve[i].DCPowerW {
			lo, hi := curve[i-1], curve[i]
			frac := (dc - lo.DCPowerW) / (hi.DCPowerW - lo.DCPowerW)
			return lo.Efficiency + frac*(hi.Efficiency-lo.Efficiency)
		}
	}
	return last.Efficiency
}
