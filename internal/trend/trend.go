// Package trend merges a user's record history into chart-ready series.
package trend

import (
	"sort"

	"github.com/healthfolio/labtrends-backend/internal/models"
)

// Build groups records by indicator, orders each group chronologically, and
// resolves a single reference range per indicator.
//
// Range resolution: scan in ascending date order and take the first
// non-null lower bound and first non-null upper bound independently, so the
// two bounds may come from different reports when one specifies only one
// bound. The range is omitted entirely if either bound never appears.
// Units come from the first record that specifies them.
//
// No records yields an empty slice, not an error; the caller decides what
// "no data yet" means.
func Build(records []models.IndicatorRecord) []models.TrendSeries {
	groups := make(map[string][]models.IndicatorRecord)
	for _, rec := range records {
		groups[rec.Indicator] = append(groups[rec.Indicator], rec)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	series := make([]models.TrendSeries, 0, len(names))
	for _, name := range names {
		series = append(series, buildSeries(name, groups[name]))
	}
	return series
}

func buildSeries(indicator string, group []models.IndicatorRecord) models.TrendSeries {
	// Ascending date; ties broken by version so replays order stably.
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].CollectedDate != group[j].CollectedDate {
			return group[i].CollectedDate < group[j].CollectedDate
		}
		return group[i].Version < group[j].Version
	})

	s := models.TrendSeries{
		Indicator: indicator,
		Points:    make([]models.TrendPoint, 0, len(group)),
	}
	var lower, upper *float64
	for _, rec := range group {
		s.Points = append(s.Points, models.TrendPoint{
			Date:       rec.CollectedDate,
			Result:     rec.Result,
			Laboratory: rec.Laboratory,
		})
		if lower == nil && rec.LowerRange != nil {
			lower = rec.LowerRange
		}
		if upper == nil && rec.UpperRange != nil {
			upper = rec.UpperRange
		}
		if s.Units == "" && rec.Units != "" {
			s.Units = rec.Units
		}
	}
	if lower != nil && upper != nil {
		s.LowerRange, s.UpperRange = lower, upper
	}
	return s
}
