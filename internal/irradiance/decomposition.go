package irradiance

import (
	"fmt"
	"math"
	"time"

	"pvsim/internal/models"
	"pvsim/internal/solarpos"
)

// Decomposer splits global horizontal irradiance into beam and diffuse
// components when a source provides GHI only. The model choice is part of the
// run configuration so results stay reproducible across sources.
type Decomposer interface {
	Decompose(t time.Time, ghi float64, pos solarpos.Position) Components
	Name() string
}

// NewDecomposer resolves a configured decomposition model identifier.
func NewDecomposer(model string) (Decomposer, error) {
	switch model {
	case models.DecompositionErbs:
		return erbs{}, nil
	case models.DecompositionOrgillHollands:
		return orgillHollands{}, nil
	default:
		return nil, fmt.Errorf("unknown decomposition model %q", model)
	}
}

// erbs implements the Erbs correlation: the diffuse fraction is a piecewise
// polynomial of the clearness index kt.
type erbs struct{}

func (erbs) Name() string { return models.DecompositionErbs }

func (erbs) Decompose(t time.Time, ghi float64, pos solarpos.Position) Components {
	return decomposeWithFraction(t, ghi, pos, func(kt float64) float64 {
		switch {
		case kt <= 0.22:
			return 1 - 0.09*kt
		case kt <= 0.8:
			return 0.9511 - 0.1604*kt + 4.388*kt*kt - 16.638*kt*kt*kt + 12.336*kt*kt*kt*kt
		default:
			return 0.165
		}
	})
}

// orgillHollands is an alternative piecewise-linear diffuse-fraction fit.
type orgillHollands struct{}

func (orgillHollands) Name() string { return models.DecompositionOrgillHollands }

func (orgillHollands) Decompose(t time.Time, ghi float64, pos solarpos.Position) Components {
	return decomposeWithFraction(t, ghi, pos, func(kt float64) float64 {
		switch {
		case kt < 0.35:
			return 1 - 0.249*kt
		case kt <= 0.75:
			return 1.557 - 1.84*kt
		default:
			return 0.177
		}
	})
}

func decomposeWithFraction(t time.Time, ghi float64, pos solarpos.Position, fraction func(kt float64) float64) Components {
	if ghi <= 0 {
		return Components{}
	}
	// Near the horizon the geometry degenerates; treat everything as diffuse.
	if pos.ZenithDeg >= 87 {
		return Components{GHI: ghi, DHI: ghi}
	}

	cosZenith := math.Cos(pos.ZenithDeg * math.Pi / 180)
	extraHorizontal := solarpos.Extraterrestrial(t) * cosZenith

	kt := ghi / extraHorizontal
	if kt > 1 {
		kt = 1
	}

	df := fraction(kt)
	if df < 0 {
		df = 0
	}
	if df > 1 {
		df = 1
	}

	dhi := df * ghi
	dni := (ghi - dhi) / cosZenith
	if dni < 0 {
		dni = 0
	}

	return Components{GHI: ghi, DNI: dni, DHI: dhi}
}
