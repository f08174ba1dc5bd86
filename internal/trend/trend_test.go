package trend

import (
	"testing"

	"github.com/healthfolio/labtrends-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func rec(indicator, date string, result float64) models.IndicatorRecord {
	return models.IndicatorRecord{
		UserID:        "user-1",
		Indicator:     indicator,
		CollectedDate: date,
		Result:        result,
	}
}

func TestBuildEmptyInput(t *testing.T) {
	series := Build(nil)
	require.NotNil(t, series)
	assert.Empty(t, series)
}

func TestBuildGroupsAndSortsByDate(t *testing.T) {
	series := Build([]models.IndicatorRecord{
		rec("Glucose", "2025-03-01", 95),
		rec("Cholesterol", "2025-01-10", 190),
		rec("Glucose", "2025-01-10", 88),
		rec("Glucose", "2025-02-01", 101),
	})

	require.Len(t, series, 2)
	// Indicator order is alphabetical for stable output.
	assert.Equal(t, "Cholesterol", series[0].Indicator)
	assert.Equal(t, "Glucose", series[1].Indicator)

	g := series[1]
	require.Len(t, g.Points, 3)
	assert.Equal(t, "2025-01-10", g.Points[0].Date)
	assert.Equal(t, "2025-02-01", g.Points[1].Date)
	assert.Equal(t, "2025-03-01", g.Points[2].Date)
	assert.Equal(t, 88.0, g.Points[0].Result)
}

func TestBuildResolvesBoundsIndependently(t *testing.T) {
	lowerOnly := rec("Potassium", "2023-01-01", 4.0)
	lowerOnly.LowerRange = fp(3.5)
	upperOnly := rec("Potassium", "2023-06-01", 4.4)
	upperOnly.UpperRange = fp(5.0)

	series := Build([]models.IndicatorRecord{upperOnly, lowerOnly})

	require.Len(t, series, 1)
	s := series[0]
	require.NotNil(t, s.LowerRange)
	require.NotNil(t, s.UpperRange)
	assert.Equal(t, 3.5, *s.LowerRange)
	assert.Equal(t, 5.0, *s.UpperRange)
}

func TestBuildOmitsRangeWhenABoundNeverAppears(t *testing.T) {
	r1 := rec("ESR", "2025-01-01", 12)
	r1.UpperRange = fp(20)
	r2 := rec("ESR", "2025-02-01", 14)
	r2.UpperRange = fp(22)

	series := Build([]models.IndicatorRecord{r1, r2})

	require.Len(t, series, 1)
	assert.Nil(t, series[0].LowerRange)
	assert.Nil(t, series[0].UpperRange)
}

func TestBuildEarliestBoundWins(t *testing.T) {
	early := rec("Glucose", "2025-01-01", 90)
	early.LowerRange, early.UpperRange = fp(70), fp(99)
	late := rec("Glucose", "2025-05-01", 92)
	late.LowerRange, late.UpperRange = fp(65), fp(110)

	series := Build([]models.IndicatorRecord{late, early})

	require.Len(t, series, 1)
	assert.Equal(t, 70.0, *series[0].LowerRange)
	assert.Equal(t, 99.0, *series[0].UpperRange)
}

func TestBuildUnitsFromFirstNonEmpty(t *testing.T) {
	r1 := rec("TSH", "2025-01-01", 2.0)
	r2 := rec("TSH", "2025-02-01", 2.2)
	r2.Units = "mIU/L"

	series := Build([]models.IndicatorRecord{r2, r1})

	require.Len(t, series, 1)
	assert.Equal(t, "mIU/L", series[0].Units)
}

func TestBuildSameDateTieBrokenByVersion(t *testing.T) {
	older := rec("Glucose", "2025-01-01", 90)
	older.Version = 1
	newer := rec("Glucose", "2025-01-01", 93)
	newer.Version = 2

	series := Build([]models.IndicatorRecord{newer, older})

	require.Len(t, series, 1)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, 90.0, series[0].Points[0].Result)
	assert.Equal(t, 93.0, series[0].Points[1].Result)
}
