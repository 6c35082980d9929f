package irradiance

import (
	"fmt"
	"math"
	"time"

	"pvsim/internal/models"
	"pvsim/internal/solarpos"
)

// DefaultAlbedo is the ground reflectance used when none is configured.
const DefaultAlbedo = 0.2

// Transposer converts horizontal irradiance components onto a tilted plane.
// Implementations differ only in how sky-diffuse irradiance is distributed.
type Transposer interface {
	POA(t time.Time, comps Components, pos solarpos.Position, tiltDeg, azimuthDeg float64) float64
	Name() string
}

// NewTransposer resolves a configured sky-diffuse model identifier.
func NewTransposer(model string, albedo float64) (Transposer, error) {
	switch model {
	case models.TranspositionIsotropic:
		return isotropic{albedo: albedo}, nil
	case models.TranspositionHayDavies:
		return hayDavies{albedo: albedo}, nil
	default:
		return nil, fmt.Errorf("unknown transposition model %q", model)
	}
}

// CosAOI returns the cosine of the angle of incidence between the sun and
// the plane normal, floored at zero (sun behind the plane).
func CosAOI(pos solarpos.Position, tiltDeg, azimuthDeg float64) float64 {
	zen := pos.ZenithDeg * math.Pi / 180
	tilt := tiltDeg * math.Pi / 180
	azDiff := (pos.AzimuthDeg - azimuthDeg) * math.Pi / 180

	cosAOI := math.Cos(zen)*math.Cos(tilt) + math.Sin(zen)*math.Sin(tilt)*math.Cos(azDiff)
	if cosAOI < 0 {
		return 0
	}
	return cosAOI
}

// isotropic assumes uniformly distributed sky-diffuse radiation.
type isotropic struct {
	albedo float64
}

func (isotropic) Name() string { return models.TranspositionIsotropic }

func (m isotropic) POA(t time.Time, comps Components, pos solarpos.Position, tiltDeg, azimuthDeg float64) float64 {
	cosTilt := math.Cos(tiltDeg * math.Pi / 180)

	beam := comps.DNI * CosAOI(pos, tiltDeg, azimuthDeg)
	skyDiffuse := comps.DHI * (1 + cosTilt) / 2
	ground := comps.GHI * m.albedo * (1 - cosTilt) / 2

	return beam + skyDiffuse + ground
}

// hayDavies weights circumsolar diffuse by the anisotropy index so that clear
// skies concentrate diffuse radiation around the solar disc.
type hayDavies struct {
	albedo float64
}

func (hayDavies) Name() string { return models.TranspositionHayDavies }

func (m hayDavies) POA(t time.Time, comps Components, pos solarpos.Position, tiltDeg, azimuthDeg float64) float64 {
	cosTilt := math.Cos(tiltDeg * math.Pi / 180)
	cosZenith := math.Cos(pos.ZenithDeg * math.Pi / 180)
	cosAOI := CosAOI(pos, tiltDeg, azimuthDeg)

	beam := comps.DNI * cosAOI
	ground := comps.GHI * m.albedo * (1 - cosTilt) / 2

	// Anisotropy index: fraction of diffuse treated as circumsolar.
	ai := comps.DNI / solarpos.Extraterrestrial(t)
	if ai > 1 {
		ai = 1
	}

	rb := 0.0
	if cosZenith > 0.01745 { // zenith < ~89°
		rb = cosAOI / cosZenith
	}

	skyDiffuse := comps.DHI * (ai*rb + (1-ai)*(1+cosTilt)/2)

	return beam + skyDiffuse + ground
}
