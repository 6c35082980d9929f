package solarpos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeclinationAtSolstices(t *testing.T) {
	// June solstice: declination near +23.45°, December near -23.45°.
	june := declination(float64(time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC).YearDay()))
	dec := declination(float64(time.Date(2026, 12, 21, 0, 0, 0, 0, time.UTC).YearDay()))

	assert.InDelta(t, 23.45, june, 0.5)
	assert.InDelta(t, -23.45, dec, 0.5)
}

func TestEquationOfTimeBounds(t *testing.T) {
	// The equation of time stays within roughly ±17 minutes year-round.
	for day := 1; day <= 365; day++ {
		eqt := equationOfTime(float64(day))
		if eqt < -17 || eqt > 17 {
			t.Fatalf("day %d: equation of time %.2f out of range", day, eqt)
		}
	}
}

func TestComputeMiddayEquator(t *testing.T) {
	// Equinox, equator, solar noon at the Greenwich meridian: sun nearly overhead.
	at := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	pos := Compute(at, 0, 0)

	assert.Less(t, pos.ZenithDeg, 5.0)
}

func TestComputeNight(t *testing.T) {
	// Local midnight: sun well below the horizon.
	at := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	pos := Compute(at, 0, 0)

	assert.Greater(t, pos.ZenithDeg, 90.0)
}

func TestComputeBrasiliaMorningAzimuth(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}

	// Mid-morning: sun in the eastern half of the sky.
	at := time.Date(2026, 1, 15, 9, 0, 0, 0, sp)
	pos := Compute(at, -15.78, -47.93)

	assert.Less(t, pos.ZenithDeg, 90.0)
	assert.Greater(t, pos.AzimuthDeg, 0.0)
	assert.Less(t, pos.AzimuthDeg, 180.0)
}

func TestComputeSouthernSummerMiddayHighSun(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, sp)
	pos := Compute(at, -15.78, -47.93)

	// Southern-hemisphere summer: midday zenith should be small.
	assert.Less(t, pos.ZenithDeg, 30.0)
}

func TestExtraterrestrialRange(t *testing.T) {
	// Earth-sun distance correction keeps E0 within ±3.3% of the solar constant.
	jan := Extraterrestrial(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
	jul := Extraterrestrial(time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC))

	assert.Greater(t, jan, 1361.0)
	assert.Less(t, jul, 1361.0)
	assert.InDelta(t, 1361.0, jan, 1361.0*0.035)
	assert.InDelta(t, 1361.0, jul, 1361.0*0.035)
}
