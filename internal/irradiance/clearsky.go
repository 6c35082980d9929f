// Package irradiance provides the radiative models of the pipeline: a
// clear-sky irradiance model, GHI decomposition into beam and diffuse
// components, and transposition onto the plane of array.
package irradiance

import (
	"math"
	"time"

	"pvsim/internal/solarpos"
)

// ClearSky is a deterministic cloud-free irradiance model following the ASCE
// beam/diffuse transmittance formulation, parameterized by atmospheric
// clearness (turbidity). It never fails for valid locations and times.
type ClearSky struct {
	Turbidity float64 // clearness index Kt, 1.0 = very clean atmosphere
	Elevation float64 // site elevation, meters
	AirTemp   float64 // °C, used for pressure and vapor estimates
	Humidity  float64 // relative humidity %, used for precipitable water
}

// Components holds the three canonical irradiance components.
type Components struct {
	GHI float64
	DNI float64
	DHI float64
}

// At computes clear-sky irradiance for one timestamp at a site.
func (c ClearSky) At(t time.Time, latitude, longitude float64) Components {
	pos := solarpos.Compute(t, latitude, longitude)
	return c.AtPosition(t, pos)
}

// AtPosition computes clear-sky irradiance given an already-computed sun
// position. Below the horizon all components are zero.
func (c ClearSky) AtPosition(t time.Time, pos solarpos.Position) Components {
	if pos.ZenithDeg >= 90 {
		return Components{}
	}

	e0 := solarpos.Extraterrestrial(t)
	cosZenith := math.Cos(pos.ZenithDeg * math.Pi / 180)
	sinElev := math.Sin((90 - pos.ZenithDeg) * math.Pi / 180)
	extraHorizontal := e0 * cosZenith
	if extraHorizontal <= 0 {
		return Components{}
	}

	// Station pressure from elevation (kPa).
	pressure := 101.325 * math.Exp((c.Elevation*-9.80665)/((8.314472/0.028967)*(c.AirTemp+273.15)))

	// Vapor pressure (kPa) and precipitable water (mm).
	vapor := 0.61121 * math.Exp(((18.678-c.AirTemp/234.5)*c.AirTemp)/(257.14+c.AirTemp)) * (c.Humidity / 100)
	water := 0.15*vapor*pressure + 0.6

	// Beam transmittance.
	kb := 0.98 * math.Exp((-0.00146*pressure)/(c.Turbidity*sinElev)-0.075*math.Pow(water/sinElev, 0.4))

	// Diffuse transmittance.
	var kd float64
	if kb > 0.15 {
		kd = 0.35 - 0.36*kb
	} else {
		kd = 0.18 + 0.82*kb
	}

	return Components{
		GHI: (kb + kd) * extraHorizontal,
		DNI: kb * e0,
		DHI: kd * extraHorizontal,
	}
}
