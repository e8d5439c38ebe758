// Package chart reduces a raw result set into a default chart configuration
// and plotted series. Axis detection and grouping are pure functions over
// the result snapshot.
package chart

import (
	"strconv"
	"strings"

	"github.com/querydeck/querydeck/internal/model"
)

// MaxGroups caps how many distinct x-axis groups are plotted. The cap keeps
// rendering bounded and is applied in first-seen order; it is a display cap,
// not a top-N-by-value selection.
const MaxGroups = 15

// Suggest derives an initial chart configuration from a result set: the
// x axis is the first column whose sampled value is a string, the y axis the
// first whose sampled value is numeric, falling back to the first and second
// columns. The user may override everything.
func Suggest(rs model.ResultSet) model.ChartConfig {
	cfg := model.ChartConfig{Type: model.ChartTable}
	if len(rs.Columns) == 0 {
		return cfg
	}

	cfg.XAxis = rs.Columns[0]
	if len(rs.Columns) > 1 {
		cfg.YAxis = rs.Columns[1]
	} else {
		cfg.YAxis = rs.Columns[0]
	}
	if len(rs.Rows) == 0 {
		return cfg
	}

	sample := rs.Rows[0]
	foundX, foundY := false, false
	for _, col := range rs.Columns {
		v, ok := sample[col]
		if !ok {
			continue
		}
		if !foundX {
			if _, isStr := stringValue(v); isStr {
				cfg.XAxis = col
				foundX = true
				continue
			}
		}
		if !foundY {
			if _, isNum := numericValue(v); isNum {
				cfg.YAxis = col
				foundY = true
			}
		}
	}

	switch {
	case len(rs.Rows) == 1 && foundY && !foundX:
		cfg.Type = model.ChartMetric
	case foundX && foundY:
		cfg.Type = model.ChartBar
	}
	return cfg
}

// BuildSeries groups rows by the string value of the x column and sums the
// numeric y value per group. Groups keep first-seen order and the series is
// truncated to MaxGroups.
func BuildSeries(rs model.ResultSet, xAxis, yAxis string) []model.SeriesPoint {
	var series []model.SeriesPoint
	index := make(map[string]int)

	for _, row := range rs.Rows {
		name := groupLabel(row[xAxis])
		y, _ := numericValue(row[yAxis])

		if i, ok := index[name]; ok {
			series[i].Value += y
			continue
		}
		index[name] = len(series)
		series = append(series, model.SeriesPoint{Name: name, Value: y})
	}

	if len(series) > MaxGroups {
		series = series[:MaxGroups]
	}
	return series
}

// groupLabel normalizes an x-axis cell into a group name.
func groupLabel(v any) string {
	if v == nil {
		return "(null)"
	}
	if s, ok := stringValue(v); ok {
		return strings.TrimSpace(s)
	}
	if n, ok := numericValue(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return "(other)"
}

// stringValue reports whether v is string-like and returns it as a string.
func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// numericValue reports whether v is numeric and returns it as a float64.
// JSON decoding yields float64; the demo engine's scanner yields int64.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
