package weather

import (
	"pvsim/internal/irradiance"
	"pvsim/internal/models"
	"pvsim/internal/solarpos"
)

// ClearSkySource synthesizes a cloud-free irradiance series from sun position
// and the clear-sky model. Ambient temperature and wind speed are filled with
// configured defaults. This path never fails for a valid location and range.
type ClearSkySource struct {
	Turbidity   float64
	DefaultTemp float64
	DefaultWind float64
}

func (s *ClearSkySource) Kind() string { return models.SourceClearSky }

func (s *ClearSkySource) Produce(loc models.Location, tr models.TimeRange) (models.WeatherRecord, error) {
	model := irradiance.ClearSky{
		Turbidity: s.Turbidity,
		Elevation: loc.Elevation,
		AirTemp:   s.DefaultTemp,
		Humidity:  50,
	}

	stamps := tr.Timestamps()
	samples := make([]models.WeatherSample, 0, len(stamps))
	for _, t := range stamps {
		pos := solarpos.Compute(t, loc.Latitude, loc.Longitude)
		comps := model.AtPosition(t, pos)
		samples = append(samples, models.WeatherSample{
			Time:        t,
			GHI:         comps.GHI,
			DNI:         comps.DNI,
			DHI:         comps.DHI,
			AmbientTemp: s.DefaultTemp,
			WindSpeed:   s.DefaultWind,
		})
	}

	return models.WeatherRecord{Source: models.SourceClearSky, Samples: samples}, nil
}
