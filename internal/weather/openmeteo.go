package weather

import (
	"encoding/json"
	"fmt"
	"time"

	"pvsim/internal/irradiance"
	"pvsim/internal/models"
	"pvsim/internal/solarpos"
)

// ForecastSource maps an already-fetched Open-Meteo hourly payload into the
// canonical record. Fetching is the client's concern; by the time a payload
// reaches the normalizer only its shape and coverage matter.
type ForecastSource struct {
	Payload    []byte
	Decomposer irradiance.Decomposer
}

type openMeteoPayload struct {
	Hourly struct {
		Time                   []string  `json:"time"`
		Temperature2m          []float64 `json:"temperature_2m"`
		WindSpeed10m           []float64 `json:"wind_speed_10m"`
		ShortwaveRadiation     []float64 `json:"shortwave_radiation"`
		DirectNormalIrradiance []float64 `json:"direct_normal_irradiance"`
		DiffuseRadiation       []float64 `json:"diffuse_radiation"`
	} `json:"hourly"`
}

func (s *ForecastSource) Kind() string { return models.SourceLiveForecast }

func (s *ForecastSource) Produce(loc models.Location, tr models.TimeRange) (models.WeatherRecord, error) {
	if len(s.Payload) == 0 {
		return models.WeatherRecord{}, &DataSourceError{Source: s.Kind(), Msg: "empty forecast payload"}
	}

	var payload openMeteoPayload
	if err := json.Unmarshal(s.Payload, &payload); err != nil {
		return models.WeatherRecord{}, &DataSourceError{Source: s.Kind(), Msg: "unmarshal payload", Err: err}
	}

	h := payload.Hourly
	n := len(h.Time)
	if n == 0 {
		return models.WeatherRecord{}, &DataSourceError{Source: s.Kind(), Msg: "payload has no hourly timestamps"}
	}
	if len(h.Temperature2m) != n || len(h.WindSpeed10m) != n || len(h.ShortwaveRadiation) != n {
		return models.WeatherRecord{}, &DataSourceError{Source: s.Kind(), Msg: "hourly series lengths do not match timestamps"}
	}

	// Beam/diffuse series are optional; when absent they are derived with the
	// configured decomposition model.
	hasComponents := len(h.DirectNormalIrradiance) == n && len(h.DiffuseRadiation) == n

	byTime := make(map[int64]int, n)
	for i, raw := range h.Time {
		// Open-Meteo writes local clock time for the requested timezone.
		ts, err := time.ParseInLocation("2006-01-02T15:04", raw, loc.TZ)
		if err != nil {
			return models.WeatherRecord{}, &DataSourceError{Source: s.Kind(), Msg: fmt.Sprintf("parse timestamp %q", raw), Err: err}
		}
		byTime[ts.Unix()] = i
	}

	var samples []models.WeatherSample
	for _, t := range tr.Timestamps() {
		i, ok := byTime[t.Unix()]
		if !ok {
			return models.WeatherRecord{}, &CoverageError{Source: s.Kind(), Missing: t, Range: tr}
		}

		sample := models.WeatherSample{
			Time:        t,
			GHI:         h.ShortwaveRadiation[i],
			AmbientTemp: h.Temperature2m[i],
			WindSpeed:   h.WindSpeed10m[i],
		}

		if hasComponents {
			sample.DNI = h.DirectNormalIrradiance[i]
			sample.DHI = h.DiffuseRadiation[i]
		} else {
			pos := solarpos.Compute(t, loc.Latitude, loc.Longitude)
			comps := s.Decomposer.Decompose(t, sample.GHI, pos)
			sample.DNI = comps.DNI
			sample.DHI = comps.DHI
		}

		samples = append(samples, sample)
	}

	return models.WeatherRecord{Source: models.SourceLiveForecast, Samples: samples}, nil
}
