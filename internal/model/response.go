package model

// SchemaResponse is the payload for the schema endpoint: the project's
// tables plus the join edges inferred over them. Warning is set when the
// catalog could not be loaded and the feature degrades to an empty state.
type SchemaResponse struct {
	Project       string            `json:"project"`
	Tables        []TableDescriptor `json:"tables"`
	Relationships []Relationship    `json:"relationships"`
	Warning       string            `json:"warning,omitempty"`
}

// RunResponse is the payload for a successful query run: the raw result set,
// the suggested chart, and the plotted series for that suggestion.
type RunResponse struct {
	Sequence int64         `json:"sequence"`
	SQL      string        `json:"sql"`
	Result   ResultSet     `json:"result"`
	Chart    ChartConfig   `json:"chart"`
	Series   []SeriesPoint `json:"series,omitempty"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}
