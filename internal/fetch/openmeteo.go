// Package fetch retrieves live forecast payloads. The normalizer only ever
// sees the resulting raw body; all HTTP mechanics live here.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pvsim/internal/metrics"
	"pvsim/internal/models"
)

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Hourly variables requested from Open-Meteo; names match the payload fields
// the normalizer maps.
const hourlyVariables = "temperature_2m,wind_speed_10m,shortwave_radiation,direct_normal_irradiance,diffuse_radiation"

// OpenMeteo fetches hourly forecast payloads for a site.
type OpenMeteo struct {
	baseURL string
	client  *http.Client
}

func NewOpenMeteo() *OpenMeteo {
	return &OpenMeteo{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewOpenMeteoWithBaseURL is used by tests to point the client at a stub.
func NewOpenMeteoWithBaseURL(baseURL string) *OpenMeteo {
	c := NewOpenMeteo()
	c.baseURL = baseURL
	return c
}

// Fetch retrieves the raw hourly forecast body covering the given range.
// Rate-limit and auth statuses are retried with exponential backoff; other
// failures are permanent.
func (o *OpenMeteo) Fetch(ctx context.Context, loc models.Location, tr models.TimeRange) ([]byte, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	q.Set("timezone", loc.Timezone)
	q.Set("hourly", hourlyVariables)
	q.Set("start_date", tr.Start.Format("2006-01-02"))
	q.Set("end_date", tr.End.Format("2006-01-02"))
	reqURL := o.baseURL + "?" + q.Encode()

	var body []byte
	operation := func() error {
		started := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		resp, err := o.client.Do(req)
		if err != nil {
			metrics.ForecastAPICallsTotal.WithLabelValues("error").Inc()
			return backoff.Permanent(fmt.Errorf("fetch forecast: %w", err))
		}
		defer resp.Body.Close()
		metrics.ForecastAPILatency.Observe(time.Since(started).Seconds())

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
			metrics.ForecastAPICallsTotal.WithLabelValues("rate_limited").Inc()
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			metrics.ForecastAPICallsTotal.WithLabelValues("error").Inc()
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch forecast: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			metrics.ForecastAPICallsTotal.WithLabelValues("error").Inc()
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		metrics.ForecastAPICallsTotal.WithLabelValues("ok").Inc()
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
