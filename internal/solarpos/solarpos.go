// Package solarpos computes sun position and extraterrestrial irradiance from
// a timestamp and geographic coordinates.
package solarpos

import (
	"math"
	"time"
)

const solarConstant = 1361.0 // W/m²

// Position is the sun's apparent position for one timestamp.
type Position struct {
	ZenithDeg  float64 // 0 = overhead, 90 = horizon
	AzimuthDeg float64 // 0 = north, clockwise
}

// Compute returns the solar position at t for the given coordinates.
// Longitude is east-positive; t carries its own timezone.
func Compute(t time.Time, latitude, longitude float64) Position {
	utc := t.UTC()
	day := float64(utc.YearDay())

	decl := declination(day)
	eqt := equationOfTime(day) // minutes

	// True solar time in minutes, from UTC clock time plus the equation of
	// time and the longitude offset (4 minutes per degree).
	clockMin := float64(utc.Hour())*60 + float64(utc.Minute()) + float64(utc.Second())/60
	tst := clockMin + eqt + 4*longitude
	hourAngle := tst/4 - 180 // degrees, 0 at solar noon

	latR := radians(latitude)
	declR := radians(decl)
	haR := radians(hourAngle)

	cosZenith := math.Sin(latR)*math.Sin(declR) + math.Cos(latR)*math.Cos(declR)*math.Cos(haR)
	cosZenith = clamp(cosZenith, -1, 1)
	zenith := degrees(math.Acos(cosZenith))

	azimuth := 0.0
	sinZenith := math.Sin(math.Acos(cosZenith))
	if sinZenith > 1e-9 {
		cosAz := (math.Sin(declR) - cosZenith*math.Sin(latR)) / (sinZenith * math.Cos(latR))
		cosAz = clamp(cosAz, -1, 1)
		azimuth = degrees(math.Acos(cosAz))
		if hourAngle > 0 {
			azimuth = 360 - azimuth
		}
	}

	return Position{ZenithDeg: zenith, AzimuthDeg: azimuth}
}

// Extraterrestrial returns the normal-incidence extraterrestrial irradiance
// (W/m²) for the day of year of t, corrected for earth-sun distance.
func Extraterrestrial(t time.Time) float64 {
	day := float64(t.UTC().YearDay())
	return solarConstant * (1 + 0.033*math.Cos(2*math.Pi/365*day))
}

// declination returns the solar declination in degrees for a day of year.
func declination(day float64) float64 {
	return degrees(math.Asin(0.39785 * math.Sin(radians(278.97+0.9856*day+1.9165*math.Sin(radians(356.6+0.9856*day))))))
}

// equationOfTime returns the equation of time in minutes (Spencer series).
func equationOfTime(day float64) float64 {
	b := 2 * math.Pi * (day - 1) / 365
	return 229.18 * (0.000075 +
		0.001868*math.Cos(b) - 0.032077*math.Sin(b) -
		0.014615*math.Cos(2*b) - 0.040849*math.Sin(2*b))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
