package pvmodel

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvsim/internal/irradiance"
	"pvsim/internal/models"
)

func testLocation(t *testing.T) models.Location {
	t.Helper()
	tz, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return models.Location{
		Name:      "Brasília",
		Latitude:  -15.78,
		Longitude: -47.93,
		Elevation: 1172,
		Timezone:  "America/Sao_Paulo",
		TZ:        tz,
	}
}

func testArray() models.PVArraySpec {
	return models.PVArraySpec{
		Module: models.ModuleParams{
			STCPowerW:       300,
			TempCoefficient: -0.004,
			RefIrradiance:   1000,
			RefTemperature:  25,
		},
		Inverter: models.InverterParams{
			ACLimitW: 2500,
			EfficiencyCurve: []models.CurvePoint{
				{DCPowerW: 300, Efficiency: 0.90},
				{DCPowerW: 1500, Efficiency: 0.96},
				{DCPowerW: 3000, Efficiency: 0.95},
			},
		},
		Geometry: models.ArrayGeometry{TiltDeg: 10, AzimuthDeg: 0, ModulesPerString: 10, Strings: 1},
		Mounting: models.MountingOpenRack,
	}
}

func testChain(t *testing.T, array models.PVArraySpec) *Chain {
	t.Helper()
	tr, err := irradiance.NewTransposer(models.TranspositionIsotropic, irradiance.DefaultAlbedo)
	require.NoError(t, err)
	ch, err := New(testLocation(t), array, tr, 1.0, models.LossesAfterClipping)
	require.NoError(t, err)
	return ch
}

func middaySample(t *testing.T) models.WeatherSample {
	t.Helper()
	tz, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return models.WeatherSample{
		Time:        time.Date(2026, 1, 15, 12, 0, 0, 0, tz),
		GHI:         900,
		DNI:         800,
		DHI:         120,
		AmbientTemp: 28,
		WindSpeed:   2,
	}
}

func TestNewRejectsUnknownMounting(t *testing.T) {
	array := testArray()
	array.Mounting = "tracker"
	tr, err := irradiance.NewTransposer(models.TranspositionIsotropic, irradiance.DefaultAlbedo)
	require.NoError(t, err)

	_, err = New(testLocation(t), array, tr, 1.0, models.LossesAfterClipping)
	assert.Error(t, err)
}

func TestZeroIrradianceYieldsZeroPower(t *testing.T) {
	ch := testChain(t, testArray())
	tz := testLocation(t).TZ

	record := models.WeatherRecord{Source: models.SourceClearSky}
	for hour := 0; hour < 24; hour++ {
		record.Samples = append(record.Samples, models.WeatherSample{
			Time:        time.Date(2026, 1, 15, hour, 0, 0, 0, tz),
			AmbientTemp: 25,
			WindSpeed:   1,
		})
	}

	results, err := ch.Run(record)
	require.NoError(t, err)
	require.Len(t, results, 24)
	for _, r := range results {
		assert.Zero(t, r.DCPowerW, "at %s", r.Time)
		assert.Zero(t, r.ACPowerW, "at %s", r.Time)
	}
}

func TestNightShortCircuit(t *testing.T) {
	ch := testChain(t, testArray())
	tz := testLocation(t).TZ

	// Sun well below the horizon; irradiance values are irrelevant and must
	// not reach the electrical stages.
	for _, s := range []models.WeatherSample{
		{Time: time.Date(2026, 1, 15, 1, 0, 0, 0, tz), GHI: 500, DNI: 400, DHI: 100, AmbientTemp: -5, WindSpeed: 0},
		{Time: time.Date(2026, 1, 15, 23, 0, 0, 0, tz), GHI: 500, DNI: 400, DHI: 100, AmbientTemp: 45, WindSpeed: 30},
	} {
		r, err := ch.Step(s)
		require.NoError(t, err)
		assert.Zero(t, r.ACPowerW, "at %s", s.Time)
		assert.Zero(t, r.DCPowerW, "at %s", s.Time)
		assert.Zero(t, r.POA, "at %s", s.Time)
		assert.Equal(t, s.AmbientTemp, r.CellTemp, "at %s", s.Time)
	}
}

func TestNegativeIrradianceIsDomainError(t *testing.T) {
	ch := testChain(t, testArray())
	s := middaySample(t)
	s.GHI = -10

	_, err := ch.Step(s)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "irradiance", domainErr.Stage)
}

func TestNaNIrradianceIsDomainError(t *testing.T) {
	ch := testChain(t, testArray())
	s := middaySample(t)
	s.DNI = math.NaN()

	_, err := ch.Step(s)
	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
}

func TestMiddayProducesPower(t *testing.T) {
	ch := testChain(t, testArray())

	r, err := ch.Step(middaySample(t))
	require.NoError(t, err)

	assert.Greater(t, r.POA, 500.0)
	assert.Greater(t, r.CellTemp, 28.0) // cell runs hotter than ambient under load
	assert.Greater(t, r.DCPowerW, 1000.0)
	assert.Greater(t, r.ACPowerW, 900.0)
	assert.Less(t, r.ACPowerW, r.DCPowerW)
}

func TestACClippingInvariant(t *testing.T) {
	array := testArray()
	array.Inverter.ACLimitW = 1000
	ch := testChain(t, array)

	// Pathologically large synthetic irradiance still respects the AC limit.
	s := middaySample(t)
	s.GHI = 5000
	s.DNI = 5000
	s.DHI = 1000

	r, err := ch.Step(s)
	require.NoError(t, err)
	assert.LessOrEqual(t, r.ACPowerW, array.Inverter.ACLimitW)
	assert.InDelta(t, array.Inverter.ACLimitW, r.ACPowerW, 1e-9)
}

func TestHotCellReducesDCPower(t *testing.T) {
	ch := testChain(t, testArray())

	cool, err := ch.dcPower(800, 25, time.Now())
	require.NoError(t, err)
	hot, err := ch.dcPower(800, 45, time.Now())
	require.NoError(t, err)

	// -0.4%/°C over 20°C: roughly 8% loss.
	assert.Less(t, hot, cool)
	assert.InDelta(t, cool*0.92, hot, cool*0.005)
}

func TestCellTemperatureWindCooling(t *testing.T) {
	ch := testChain(t, testArray())

	calm := ch.cellTemperature(800, 25, 0)
	windy := ch.cellTemperature(800, 25, 10)

	assert.Greater(t, calm, 25.0)
	assert.Less(t, windy, calm)
}

func TestMountingAffectsCellTemperature(t *testing.T) {
	openRack := testChain(t, testArray())

	insulated := testArray()
	insulated.Mounting = models.MountingInsulatedBack
	insulatedChain := testChain(t, insulated)

	// An insulated back runs hotter than an open rack at the same conditions.
	assert.Greater(t,
		insulatedChain.cellTemperature(800, 25, 1),
		openRack.cellTemperature(800, 25, 1))
}

func TestEfficiencyCurveInterpolation(t *testing.T) {
	ch := testChain(t, testArray())

	tests := []struct {
		dc   float64
		want float64
	}{
		{dc: 100, want: 0.90},  // below first point: clamp
		{dc: 300, want: 0.90},  // exact point
		{dc: 900, want: 0.93},  // halfway 300..1500
		{dc: 1500, want: 0.96}, // exact point
		{dc: 5000, want: 0.95}, // beyond last point: clamp
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ch.efficiencyAt(tt.dc), 1e-9, "dc=%v", tt.dc)
	}
}

func TestLossOrderChangesClippedOutput(t *testing.T) {
	array := testArray()
	array.Inverter.ACLimitW = 1000
	tr, err := irradiance.NewTransposer(models.TranspositionIsotropic, irradiance.DefaultAlbedo)
	require.NoError(t, err)

	after, err := New(testLocation(t), array, tr, 0.9, models.LossesAfterClipping)
	require.NoError(t, err)
	before, err := New(testLocation(t), array, tr, 0.9, models.LossesBeforeClipping)
	require.NoError(t, err)

	s := middaySample(t)
	s.GHI, s.DNI, s.DHI = 5000, 5000, 1000 // deep clipping territory

	rAfter, err := after.Step(s)
	require.NoError(t, err)
	rBefore, err := before.Step(s)
	require.NoError(t, err)

	// Derating after clipping scales the clipped ceiling; derating before
	// clipping can still saturate the inverter.
	assert.InDelta(t, 900, rAfter.ACPowerW, 1e-6)
	assert.InDelta(t, 1000, rBefore.ACPowerW, 1e-6)
}
