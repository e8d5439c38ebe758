package model

// ResultSet is the outcome of one query execution. It is immutable once
// received and replaced wholesale on each run; there is no incremental merge.
type ResultSet struct {
	Columns         []string         `json:"columns"`
	Rows            []map[string]any `json:"rows"`
	RowCount        int              `json:"row_count"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
}

// Chart types selectable for a result set.
const (
	ChartTable  = "table"
	ChartBar    = "bar"
	ChartPie    = "pie"
	ChartLine   = "line"
	ChartMetric = "metric"
)

// ChartConfig describes how a result set should be visualized. It is derived
// from the result's column types by the chart aggregator and freely
// overridable by the user; it is never persisted.
type ChartConfig struct {
	Type  string `json:"type"`
	XAxis string `json:"x_axis"`
	YAxis string `json:"y_axis"`
}

// SeriesPoint is one plotted group: the x-axis label and the summed y value.
type SeriesPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}
