package model

// DefaultLimit is the row limit applied to every synthesized query unless
// the user sets one explicitly.
const DefaultLimit = 100

// Filter operators accepted by the query builder. LIKE is rendered as a
// case-insensitive contains match; the null-check operators take no value.
const (
	OpEqual     = "="
	OpNotEqual  = "!="
	OpGreater   = ">"
	OpLess      = "<"
	OpLike      = "LIKE"
	OpIsNull    = "IS NULL"
	OpIsNotNull = "IS NOT NULL"
)

// Operators lists every supported filter operator in UI display order.
var Operators = []string{OpEqual, OpNotEqual, OpGreater, OpLess, OpLike, OpIsNull, OpIsNotNull}

// IsNullCheck reports whether op is one of the two operators that take no
// comparison value.
func IsNullCheck(op string) bool {
	return op == OpIsNull || op == OpIsNotNull
}

// ValidOperator reports whether op is a supported filter operator.
func ValidOperator(op string) bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// ColumnRef identifies a column within a selected table.
type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Filter is one WHERE-clause condition. Value is ignored when Operator is a
// null check. A filter missing its column, operator, or (for non-null-check
// operators) value is skipped during synthesis rather than rejected.
type Filter struct {
	ID       string `json:"id"`
	Table    string `json:"table"`
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    string `json:"value,omitempty"`
}

// OrderBy is an optional sort directive. Direction is "ASC" or "DESC".
type OrderBy struct {
	Table     string `json:"table"`
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// QuerySpec is the specification a user composes in the query builder.
// SelectedTables is ordered: the first entry is the anchor table, which
// drives join direction and whether SELECT columns are table-qualified.
// SelectedColumns preserves the order columns were added and must reference
// only selected tables. QuerySpec values are immutable; every edit produces
// a new value through the session reducer.
type QuerySpec struct {
	SelectedTables  []TableDescriptor `json:"selected_tables"`
	SelectedColumns []ColumnRef       `json:"selected_columns"`
	Filters         []Filter          `json:"filters"`
	OrderBy         *OrderBy          `json:"order_by,omitempty"`
	Limit           int               `json:"limit"`
}

// NewQuerySpec returns an empty spec with the default limit.
func NewQuerySpec() QuerySpec {
	return QuerySpec{Limit: DefaultLimit}
}

// Anchor returns the anchor (first selected) table, or nil if no table is
// selected.
func (s QuerySpec) Anchor() *TableDescriptor {
	if len(s.SelectedTables) == 0 {
		return nil
	}
	return &s.SelectedTables[0]
}

// HasTable reports whether a table with the given SQL name is selected.
func (s QuerySpec) HasTable(sqlName string) bool {
	for _, t := range s.SelectedTables {
		if t.SQLName == sqlName {
			return true
		}
	}
	return false
}
