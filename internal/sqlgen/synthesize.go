// Package sqlgen renders a QuerySpec and a set of inferred join edges into
// SQL text. Synthesis is pure and deterministic: the same spec and edge set
// always produce byte-identical output, which the SQL preview UI and the
// test suite both rely on.
package sqlgen

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/querydeck/querydeck/internal/model"
	"github.com/querydeck/querydeck/internal/relation"
)

// Statement is the result of synthesis. Unresolved lists the SQL names of
// selected tables that have no direct join edge to the anchor; such tables
// are excluded from the rendered SQL and must be surfaced to the user, never
// silently dropped or cross-joined.
type Statement struct {
	SQL        string   `json:"sql"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// plainIdentifier matches identifiers that can appear unquoted.
var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Synthesize renders spec against the given edge set. An empty spec (no
// selected tables) yields an empty statement.
func Synthesize(spec model.QuerySpec, edges []model.Relationship) Statement {
	anchor := spec.Anchor()
	if anchor == nil {
		return Statement{}
	}

	var stmt Statement
	var b strings.Builder
	qualify := len(spec.SelectedTables) > 1

	// SELECT list: added order, unqualified for a single table.
	b.WriteString("SELECT ")
	if len(spec.SelectedColumns) > 0 {
		refs := make([]string, len(spec.SelectedColumns))
		for i, c := range spec.SelectedColumns {
			refs[i] = columnRef(c.Table, c.Column, qualify)
		}
		b.WriteString(strings.Join(refs, ", "))
	} else {
		b.WriteString("*")
	}

	// FROM the anchor table.
	b.WriteString(" FROM ")
	b.WriteString(quoteIfNeeded(anchor.SQLName))

	// LEFT JOIN every other selected table via its first direct edge to the
	// anchor, anchor column first. Tables without a direct edge go to
	// Unresolved.
	for _, t := range spec.SelectedTables[1:] {
		edge, ok := relation.Between(edges, anchor.SQLName, t.SQLName)
		if !ok {
			stmt.Unresolved = append(stmt.Unresolved, t.SQLName)
			continue
		}
		b.WriteString(" LEFT JOIN ")
		b.WriteString(quoteIfNeeded(t.SQLName))
		b.WriteString(" ON ")
		b.WriteString(columnRef(edge.FromTable, edge.FromColumn, true))
		b.WriteString(" = ")
		b.WriteString(columnRef(edge.ToTable, edge.ToColumn, true))
	}

	// WHERE: incomplete filters are skipped, conditions joined with AND.
	var conds []string
	for _, f := range spec.Filters {
		if cond, ok := renderFilter(f, qualify); ok {
			conds = append(conds, cond)
		}
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	if o := spec.OrderBy; o != nil && o.Column != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(columnRef(o.Table, o.Column, qualify))
		if o.Direction == "DESC" {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}

	limit := spec.Limit
	if limit <= 0 {
		limit = model.DefaultLimit
	}
	b.WriteString(" LIMIT ")
	b.WriteString(strconv.Itoa(limit))

	stmt.SQL = b.String()
	return stmt
}

// renderFilter returns the SQL condition for one filter. The boolean is
// false when the filter is incomplete (missing column, unknown operator, or
// a missing value for an operator that needs one); such filters are omitted
// from the WHERE clause rather than rejected.
func renderFilter(f model.Filter, qualify bool) (string, bool) {
	if f.Column == "" || !model.ValidOperator(f.Operator) {
		return "", false
	}
	ref := columnRef(f.Table, f.Column, qualify)

	if model.IsNullCheck(f.Operator) {
		return ref + " " + f.Operator, true
	}
	if f.Value == "" {
		return "", false
	}
	if f.Operator == model.OpLike {
		return ref + " ILIKE '%" + escapeString(f.Value) + "%'", true
	}
	return ref + " " + f.Operator + " " + literal(f.Value), true
}

// columnRef renders a column reference, table-qualified when more than one
// table is selected. Join conditions always qualify.
func columnRef(table, column string, qualify bool) string {
	if !qualify || table == "" {
		return quoteIfNeeded(column)
	}
	return quoteIfNeeded(table) + "." + quoteIfNeeded(column)
}

// quoteIfNeeded leaves plain identifiers bare and double-quotes anything
// containing characters outside [A-Za-z0-9_] or starting with a digit.
func quoteIfNeeded(name string) string {
	if plainIdentifier.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// literal renders a filter value: numeric-parsable values are emitted
// unquoted, everything else as a single-quoted string.
func literal(value string) string {
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}
	return "'" + escapeString(value) + "'"
}

// escapeString doubles embedded single quotes.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
