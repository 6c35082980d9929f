package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"pvsim/internal/models"
)

// FileSource reads a PVGIS TMY CSV export. The file carries 17 metadata
// lines, a header row, and one typical meteorological year of hourly rows
// with native field names and UTC clock timestamps.
type FileSource struct {
	Path string
}

// Number of metadata lines before the column header in a PVGIS TMY export.
const pvgisHeaderLines = 17

// Native PVGIS column names mapped onto the canonical schema.
var pvgisColumns = map[string]string{
	"time(UTC)": "time",
	"T2m":       "temp_air",
	"G(h)":      "ghi",
	"Gb(n)":     "dni",
	"Gd(h)":     "dhi",
	"WS10m":     "wind_speed",
}

func (s *FileSource) Kind() string { return models.SourceHistoricalFile }

func (s *FileSource) Produce(loc models.Location, tr models.TimeRange) (models.WeatherRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return models.WeatherRecord{}, &DataSourceError{Source: s.Kind(), Msg: "open file", Err: err}
	}
	defer f.Close()

	rows, err := s.parse(f, loc)
	if err != nil {
		return models.WeatherRecord{}, err
	}

	// A TMY describes one representative year. Key rows by calendar position
	// so the typical year can be replayed against any requested range.
	byClock := make(map[string]models.WeatherSample, len(rows))
	for _, r := range rows {
		byClock[clockKey(r.Time)] = r
	}

	var samples []models.WeatherSample
	for _, t := range tr.Timestamps() {
		r, ok := byClock[clockKey(t)]
		if !ok {
			return models.WeatherRecord{}, &CoverageError{Source: s.Kind(), Missing: t, Range: tr}
		}
		r.Time = t
		samples = append(samples, r)
	}

	return models.WeatherRecord{Source: models.SourceHistoricalFile, Samples: samples}, nil
}

func clockKey(t time.Time) string {
	return fmt.Sprintf("%02d-%02d %02d:%02d", t.Month(), t.Day(), t.Hour(), t.Minute())
}

func (s *FileSource) parse(f io.Reader, loc models.Location) ([]models.WeatherSample, error) {
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	for i := 0; i < pvgisHeaderLines; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, &DataSourceError{Source: s.Kind(), Msg: "file shorter than PVGIS metadata header", Err: err}
		}
	}

	header, err := reader.Read()
	if err != nil {
		return nil, &DataSourceError{Source: s.Kind(), Msg: "read column header", Err: err}
	}

	idx := make(map[string]int)
	for i, name := range header {
		if canonical, ok := pvgisColumns[strings.TrimSpace(name)]; ok {
			idx[canonical] = i
		}
	}
	for _, canonical := range []string{"time", "temp_air", "ghi", "dni", "dhi", "wind_speed"} {
		if _, ok := idx[canonical]; !ok {
			return nil, &DataSourceError{Source: s.Kind(), Msg: fmt.Sprintf("missing required column for %s", canonical)}
		}
	}

	var rows []models.WeatherSample
	var prev time.Time
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataSourceError{Source: s.Kind(), Msg: "read data row", Err: err}
		}
		if len(record) < len(header) {
			// Trailing metadata section after the data block.
			break
		}

		// PVGIS writes UTC clock time; the TMY convention localizes the
		// clock values directly into the site timezone.
		ts, err := time.ParseInLocation("20060102:1504", strings.TrimSpace(record[idx["time"]]), loc.TZ)
		if err != nil {
			break
		}

		if !prev.IsZero() && !ts.After(prev) {
			return nil, &DataSourceError{Source: s.Kind(), Msg: fmt.Sprintf("non-monotonic or duplicate timestamp %s", ts.Format(time.RFC3339))}
		}
		prev = ts

		sample := models.WeatherSample{Time: ts}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"temp_air", &sample.AmbientTemp},
			{"ghi", &sample.GHI},
			{"dni", &sample.DNI},
			{"dhi", &sample.DHI},
			{"wind_speed", &sample.WindSpeed},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx[field.name]]), 64)
			if err != nil {
				return nil, &DataSourceError{Source: s.Kind(), Msg: fmt.Sprintf("parse %s at %s", field.name, ts.Format(time.RFC3339)), Err: err}
			}
			*field.dst = v
		}
		rows = append(rows, sample)
	}

	if len(rows) == 0 {
		return nil, &DataSourceError{Source: s.Kind(), Msg: "no data rows found"}
	}
	return rows, nil
}
