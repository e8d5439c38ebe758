package model

import "strings"

// TableDescriptor describes one uploaded table as reported by the backend
// schema endpoint. SQLName is the exact identifier the query engine expects
// in generated SQL and is backend-assigned; DisplayName is a human label
// derived from the upload's file/sheet names and may differ. Descriptors are
// created when the catalog loads and are read-only for the rest of the
// session.
type TableDescriptor struct {
	SQLName     string   `json:"sql_name"`
	DisplayName string   `json:"display_name"`
	RowCount    int64    `json:"row_count"`
	Columns     []string `json:"columns"`
	KeyColumns  []string `json:"key_columns"`
}

// Relationship is an inferred, advisory join edge between a column in one
// table and a column in another. It reflects a naming convention match, not
// verified referential integrity. FromTable and ToTable are always distinct.
type Relationship struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// IsKeyColumn reports whether a column name qualifies for relationship
// inference: it ends in "_id" or "_code", or equals "id", case-insensitively.
func IsKeyColumn(name string) bool {
	lower := strings.ToLower(name)
	return lower == "id" || strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, "_code")
}

// KeyColumnsOf filters a column list down to the key columns, preserving
// declaration order.
func KeyColumnsOf(columns []string) []string {
	var keys []string
	for _, c := range columns {
		if IsKeyColumn(c) {
			keys = append(keys, c)
		}
	}
	return keys
}
