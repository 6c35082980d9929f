// Package weather normalizes heterogeneous weather sources into the one
// canonical WeatherRecord consumed by the model chain. Every source kind
// behaves as the same capability: produce a record covering a time range.
package weather

import (
	"fmt"
	"time"

	"pvsim/internal/irradiance"
	"pvsim/internal/models"
)

// DataSourceError is a source-specific normalization failure (unparseable
// file, malformed payload, out-of-order timestamps).
type DataSourceError struct {
	Source string
	Msg    string
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s source: %s: %v", e.Source, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s source: %s", e.Source, e.Msg)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// CoverageError reports that the requested time range is not fully covered by
// the source. Partial coverage is a hard failure, never a truncated run.
type CoverageError struct {
	Source  string
	Missing time.Time
	Range   models.TimeRange
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("%s source: no sample for %s within requested range %s..%s",
		e.Source, e.Missing.Format(time.RFC3339),
		e.Range.Start.Format(time.RFC3339), e.Range.End.Format(time.RFC3339))
}

// Source produces a canonical weather record for a location and time range.
type Source interface {
	Kind() string
	Produce(loc models.Location, tr models.TimeRange) (models.WeatherRecord, error)
}

// SourceFor resolves a scenario's source specification. The decomposer is
// shared run configuration: it fills DNI/DHI whenever a source provides GHI
// only, keeping derived components reproducible across sources.
func SourceFor(spec models.ScenarioSpec, dec irradiance.Decomposer) (Source, error) {
	switch spec.Source {
	case models.SourceHistoricalFile:
		return &FileSource{Path: spec.FilePath}, nil
	case models.SourceLiveForecast:
		return &ForecastSource{Payload: spec.Payload, Decomposer: dec}, nil
	case models.SourceClearSky:
		return &ClearSkySource{
			Turbidity:   spec.Turbidity,
			DefaultTemp: spec.DefaultTemp,
			DefaultWind: spec.DefaultWind,
		}, nil
	default:
		return nil, fmt.Errorf("unknown weather source kind %q", spec.Source)
	}
}

// Normalize runs a source and enforces the canonical record invariants:
// strictly ascending timestamps and non-negative irradiance and wind.
func Normalize(src Source, loc models.Location, tr models.TimeRange) (models.WeatherRecord, error) {
	record, err := src.Produce(loc, tr)
	if err != nil {
		return models.WeatherRecord{}, err
	}
	if err := checkRecord(src.Kind(), record); err != nil {
		return models.WeatherRecord{}, err
	}
	return record, nil
}

func checkRecord(kind string, record models.WeatherRecord) error {
	var prev time.Time
	for i, s := range record.Samples {
		if i > 0 && !s.Time.After(prev) {
			return &DataSourceError{Source: kind, Msg: fmt.Sprintf("timestamps not strictly ascending at %s", s.Time.Format(time.RFC3339))}
		}
		prev = s.Time
		if s.GHI < 0 || s.DNI < 0 || s.DHI < 0 {
			return &DataSourceError{Source: kind, Msg: fmt.Sprintf("negative irradiance at %s", s.Time.Format(time.RFC3339))}
		}
		if s.WindSpeed < 0 {
			return &DataSourceError{Source: kind, Msg: fmt.Sprintf("negative wind speed at %s", s.Time.Format(time.RFC3339))}
		}
	}
	return nil
}
