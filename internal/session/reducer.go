// Package session holds the per-UI-session query builder state. Every edit
// goes through a reducer: an action applied to the current QuerySpec yields
// a new QuerySpec, so mutations are inspectable and replayable. The package
// also owns the run sequence guard that keeps a stale execution response
// from overwriting fresher state.
package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/querydeck/querydeck/internal/catalog"
	"github.com/querydeck/querydeck/internal/model"
)

// Action types accepted by the reducer.
const (
	ActionSelectTable  = "select_table"
	ActionToggleColumn = "toggle_column"
	ActionAddFilter    = "add_filter"
	ActionUpdateFilter = "update_filter"
	ActionRemoveFilter = "remove_filter"
	ActionSetOrder     = "set_order"
	ActionSetLimit     = "set_limit"
	ActionReset        = "reset"
)

// Action is one user edit to the query spec. Which fields matter depends on
// Type: select_table uses Table; toggle_column uses Table and Column;
// update_filter and remove_filter use FilterID; update_filter additionally
// uses Table, Column, Operator, and Value; set_order uses Table, Column, and
// Direction (an empty Column clears the sort); set_limit uses Limit.
type Action struct {
	Type      string `json:"type"`
	Table     string `json:"table,omitempty"`
	Column    string `json:"column,omitempty"`
	FilterID  string `json:"filter_id,omitempty"`
	Operator  string `json:"operator,omitempty"`
	Value     string `json:"value,omitempty"`
	Direction string `json:"direction,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Apply reduces an action into a new QuerySpec. The input spec is never
// mutated. The catalog resolves table names for select_table.
func Apply(spec model.QuerySpec, cat *catalog.Catalog, a Action) (model.QuerySpec, error) {
	switch a.Type {
	case ActionSelectTable:
		return applySelectTable(spec, cat, a.Table)
	case ActionToggleColumn:
		return applyToggleColumn(spec, a.Table, a.Column)
	case ActionAddFilter:
		return applyAddFilter(spec)
	case ActionUpdateFilter:
		return applyUpdateFilter(spec, a)
	case ActionRemoveFilter:
		return applyRemoveFilter(spec, a.FilterID)
	case ActionSetOrder:
		return applySetOrder(spec, a)
	case ActionSetLimit:
		if a.Limit <= 0 {
			return spec, fmt.Errorf("limit must be positive, got %d", a.Limit)
		}
		out := clone(spec)
		out.Limit = a.Limit
		return out, nil
	case ActionReset:
		return model.NewQuerySpec(), nil
	default:
		return spec, fmt.Errorf("unknown action type %q", a.Type)
	}
}

// applySelectTable toggles a table in or out of the selection. Removing a
// table also removes every selected column and filter referencing it, and
// clears the sort if it pointed at the table: no dangling references survive
// a table removal.
func applySelectTable(spec model.QuerySpec, cat *catalog.Catalog, table string) (model.QuerySpec, error) {
	if table == "" {
		return spec, fmt.Errorf("select_table requires a table")
	}
	out := clone(spec)

	if spec.HasTable(table) {
		out.SelectedTables = nil
		for _, t := range spec.SelectedTables {
			if t.SQLName != table {
				out.SelectedTables = append(out.SelectedTables, t)
			}
		}
		out.SelectedColumns = nil
		for _, c := range spec.SelectedColumns {
			if c.Table != table {
				out.SelectedColumns = append(out.SelectedColumns, c)
			}
		}
		out.Filters = nil
		for _, f := range spec.Filters {
			if f.Table != table {
				out.Filters = append(out.Filters, f)
			}
		}
		if out.OrderBy != nil && out.OrderBy.Table == table {
			out.OrderBy = nil
		}
		return out, nil
	}

	desc := cat.Lookup(table)
	if desc == nil {
		return spec, fmt.Errorf("table %q not in catalog", table)
	}
	out.SelectedTables = append(out.SelectedTables, *desc)
	return out, nil
}

func applyToggleColumn(spec model.QuerySpec, table, column string) (model.QuerySpec, error) {
	if table == "" || column == "" {
		return spec, fmt.Errorf("toggle_column requires table and column")
	}
	if !spec.HasTable(table) {
		return spec, fmt.Errorf("table %q is not selected", table)
	}
	out := clone(spec)
	for i, c := range spec.SelectedColumns {
		if c.Table == table && c.Column == column {
			out.SelectedColumns = append(out.SelectedColumns[:i:i], out.SelectedColumns[i+1:]...)
			return out, nil
		}
	}
	out.SelectedColumns = append(out.SelectedColumns, model.ColumnRef{Table: table, Column: column})
	return out, nil
}

// applyAddFilter appends a filter defaulted to the first selected table's
// first column and the "=" operator.
func applyAddFilter(spec model.QuerySpec) (model.QuerySpec, error) {
	anchor := spec.Anchor()
	if anchor == nil || len(anchor.Columns) == 0 {
		return spec, fmt.Errorf("add_filter requires a selected table with columns")
	}
	out := clone(spec)
	out.Filters = append(out.Filters, model.Filter{
		ID:       uuid.NewString(),
		Table:    anchor.SQLName,
		Column:   anchor.Columns[0],
		Operator: model.OpEqual,
	})
	return out, nil
}

func applyUpdateFilter(spec model.QuerySpec, a Action) (model.QuerySpec, error) {
	if a.FilterID == "" {
		return spec, fmt.Errorf("update_filter requires filter_id")
	}
	if a.Operator != "" && !model.ValidOperator(a.Operator) {
		return spec, fmt.Errorf("unsupported operator %q", a.Operator)
	}
	if a.Table != "" && !spec.HasTable(a.Table) {
		return spec, fmt.Errorf("table %q is not selected", a.Table)
	}
	out := clone(spec)
	for i, f := range out.Filters {
		if f.ID != a.FilterID {
			continue
		}
		if a.Table != "" {
			f.Table = a.Table
		}
		if a.Column != "" {
			f.Column = a.Column
		}
		if a.Operator != "" {
			f.Operator = a.Operator
		}
		f.Value = a.Value
		if model.IsNullCheck(f.Operator) {
			f.Value = ""
		}
		out.Filters[i] = f
		return out, nil
	}
	return spec, fmt.Errorf("filter %q not found", a.FilterID)
}

func applyRemoveFilter(spec model.QuerySpec, id string) (model.QuerySpec, error) {
	out := clone(spec)
	for i, f := range out.Filters {
		if f.ID == id {
			out.Filters = append(out.Filters[:i:i], out.Filters[i+1:]...)
			return out, nil
		}
	}
	return spec, fmt.Errorf("filter %q not found", id)
}

func applySetOrder(spec model.QuerySpec, a Action) (model.QuerySpec, error) {
	out := clone(spec)
	if a.Column == "" {
		out.OrderBy = nil
		return out, nil
	}
	if a.Table != "" && !spec.HasTable(a.Table) {
		return spec, fmt.Errorf("table %q is not selected", a.Table)
	}
	dir := a.Direction
	switch dir {
	case "":
		dir = "ASC"
	case "ASC", "DESC":
	default:
		return spec, fmt.Errorf("invalid sort direction %q", a.Direction)
	}
	out.OrderBy = &model.OrderBy{Table: a.Table, Column: a.Column, Direction: dir}
	return out, nil
}

// clone copies the spec's slices so reducer output never aliases its input.
func clone(spec model.QuerySpec) model.QuerySpec {
	out := spec
	out.SelectedTables = append([]model.TableDescriptor(nil), spec.SelectedTables...)
	out.SelectedColumns = append([]model.ColumnRef(nil), spec.SelectedColumns...)
	out.Filters = append([]model.Filter(nil), spec.Filters...)
	if spec.OrderBy != nil {
		o := *spec.OrderBy
		out.OrderBy = &o
	}
	return out
}
