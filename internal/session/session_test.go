package session

import (
	"testing"
	"time"

	"github.com/querydeck/querydeck/internal/catalog"
	"github.com/querydeck/querydeck/internal/model"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Project: "proj-1",
		Tables: []model.TableDescriptor{
			{
				SQLName:    "employees",
				Columns:    []string{"employee_id", "name", "dept_code"},
				KeyColumns: []string{"employee_id", "dept_code"},
			},
			{
				SQLName:    "departments",
				Columns:    []string{"dept_code", "dept_name"},
				KeyColumns: []string{"dept_code"},
			},
		},
	}
}

func mustApply(t *testing.T, spec model.QuerySpec, cat *catalog.Catalog, a Action) model.QuerySpec {
	t.Helper()
	out, err := Apply(spec, cat, a)
	if err != nil {
		t.Fatalf("Apply(%s): %v", a.Type, err)
	}
	return out
}

func TestSelectTableToggle(t *testing.T) {
	cat := testCatalog()
	spec := model.NewQuerySpec()

	spec = mustApply(t, spec, cat, Action{Type: ActionSelectTable, Table: "employees"})
	if len(spec.SelectedTables) != 1 || spec.SelectedTables[0].SQLName != "employees" {
		t.Fatalf("tables = %v", spec.SelectedTables)
	}

	// Selecting again toggles it off.
	spec = mustApply(t, spec, cat, Action{Type: ActionSelectTable, Table: "employees"})
	if len(spec.SelectedTables) != 0 {
		t.Fatalf("tables = %v after toggle off", spec.SelectedTables)
	}

	if _, err := Apply(spec, cat, Action{Type: ActionSelectTable, Table: "ghost"}); err == nil {
		t.Error("selecting unknown table did not error")
	}
}

func TestRemovingTableDropsDanglingReferences(t *testing.T) {
	cat := testCatalog()
	spec := model.NewQuerySpec()
	spec = mustApply(t, spec, cat, Action{Type: ActionSelectTable, Table: "employees"})
	spec = mustApply(t, spec, cat, Action{Type: ActionSelectTable, Table: "departments"})
	spec = mustApply(t, spec, cat, Action{Type: ActionToggleColumn, Table: "employees", Column: "name"})
	spec = mustApply(t, spec, cat, Action{Type: ActionToggleColumn, Table: "departments", Column: "dept_name"})
	spec = mustApply(t, spec, cat, Action{Type: ActionAddFilter})
	spec = mustApply(t, spec, cat, Action{Type: ActionSetOrder, Table: "employees", Column: "name", Direction: "DESC"})

	// The default filter references the anchor (employees).
	if spec.Filters[0].Table != "employees" {
		t.Fatalf("default filter table = %q", spec.Filters[0].Table)
	}

	spec = mustApply(t, spec, cat, Action{Type: ActionSelectTable, Table: "employees"})

	for _, c := range spec.SelectedColumns {
		if c.Table == "employees" {
			t.Errorf("dangling column ref %v", c)
		}
	}
	for _, f := range spec.Filters {
		if f.Table == "employees" {
			t.Errorf("dangling filter %v", f)
		}
	}
	if spec.OrderBy != nil {
		t.Errorf("order by survived table removal: %v", spec.OrderBy)
	}
	if len(spec.SelectedColumns) != 1 || spec.SelectedColumns[0].Table != "departments" {
		t.Errorf("departments column lost: %v", spec.SelectedColumns)
	}
}

func TestToggleColumnRequiresSelectedTable(t *testing.T) {
	cat := testCatalog()
	spec := model.NewQuerySpec()
	if _, err := Apply(spec, cat, Action{Type: ActionToggleColumn, Table: "employees", Column: "name"}); err == nil {
		t.Error("toggle_column on unselected table did not error")
	}
}

func TestFilterLifecycle(t *testing.T) {
	cat := testCatalog()
	spec := model.NewQuerySpec()
	spec = mustApply(t, spec, cat, Action{Type: ActionSelectTable, Table: "employees"})
	spec = mustApply(t, spec, cat, Action{Type: ActionAddFilter})

	f := spec.Filters[0]
	if f.Table != "employees" || f.Column != "employee_id" || f.Operator != model.OpEqual {
		t.Fatalf("default filter = %+v", f)
	}
	if f.ID == "" {
		t.Fatal("filter has no id")
	}

	spec = mustApply(t, spec, cat, Action{
		Type: ActionUpdateFilter, FilterID: f.ID,
		Column: "dept_code", Operator: "=", Value: "HR1",
	})
	if got := spec.Filters[0]; got.Column != "dept_code" || got.Value != "HR1" {
		t.Errorf("updated filter = %+v", got)
	}

	// Switching to a null check drops the stray value.
	spec = mustApply(t, spec, cat, Action{
		Type: ActionUpdateFilter, FilterID: f.ID,
		Operator: model.OpIsNotNull, Value: "stray",
	})
	if got := spec.Filters[0]; got.Value != "" {
		t.Errorf("null-check filter kept value %q", got.Value)
	}

	if _, err := Apply(spec, cat, Action{Type: ActionUpdateFilter, FilterID: f.ID, Operator: "BETWEEN"}); err == nil {
		t.Error("invalid operator accepted")
	}
	if _, err := Apply(spec, cat, Action{Type: ActionRemoveFilter, FilterID: "nope"}); err == nil {
		t.Error("removing unknown filter did not error")
	}

	spec = mustApply(t, spec, cat, Action{Type: ActionRemoveFilter, FilterID: f.ID})
	if len(spec.Filters) != 0 {
		t.Errorf("filters = %v after remove", spec.Filters)
	}
}

func TestSetLimitAndReset(t *testing.T) {
	cat := testCatalog()
	spec := model.NewQuerySpec()
	spec = mustApply(t, spec, cat, Action{Type: ActionSelectTable, Table: "employees"})
	spec = mustApply(t, spec, cat, Action{Type: ActionSetLimit, Limit: 500})
	if spec.Limit != 500 {
		t.Errorf("limit = %d", spec.Limit)
	}
	if _, err := Apply(spec, cat, Action{Type: ActionSetLimit, Limit: 0}); err == nil {
		t.Error("zero limit accepted")
	}

	spec = mustApply(t, spec, cat, Action{Type: ActionReset})
	if len(spec.SelectedTables) != 0 || spec.Limit != model.DefaultLimit {
		t.Errorf("reset spec = %+v", spec)
	}
}

func TestReducerDoesNotMutateInput(t *testing.T) {
	cat := testCatalog()
	before := model.NewQuerySpec()
	before = mustApply(t, before, cat, Action{Type: ActionSelectTable, Table: "employees"})
	before = mustApply(t, before, cat, Action{Type: ActionToggleColumn, Table: "employees", Column: "name"})

	snapshot := before.SelectedColumns[0]
	after := mustApply(t, before, cat, Action{Type: ActionToggleColumn, Table: "employees", Column: "name"})

	if len(before.SelectedColumns) != 1 || before.SelectedColumns[0] != snapshot {
		t.Error("input spec was mutated")
	}
	if len(after.SelectedColumns) != 0 {
		t.Error("column not removed from output")
	}
}

func TestRunSequenceGuard(t *testing.T) {
	m := NewManager(0)
	s := m.Create("proj-1")

	first := s.BeginRun()
	second := s.BeginRun()

	// The slow first response arrives after the second was issued: dropped.
	if s.CompleteRun(first, model.ResultSet{RowCount: 1}) {
		t.Error("stale response was kept")
	}
	if s.LastResult() != nil {
		t.Error("stale response installed a result")
	}

	if !s.CompleteRun(second, model.ResultSet{RowCount: 2}) {
		t.Error("latest response was dropped")
	}
	if rs := s.LastResult(); rs == nil || rs.RowCount != 2 {
		t.Errorf("last result = %+v", rs)
	}

	// A later stale completion does not clobber the kept result.
	if s.CompleteRun(first, model.ResultSet{RowCount: 99}) {
		t.Error("stale response was kept after a newer result")
	}
	if rs := s.LastResult(); rs.RowCount != 2 {
		t.Errorf("kept result overwritten: %+v", rs)
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("proj-1")

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := m.Get("missing"); err != ErrNotFound {
		t.Errorf("Get(missing) err = %v", err)
	}

	if n := m.PurgeIdle(time.Now()); n != 0 {
		t.Errorf("fresh session purged: %d", n)
	}
	if n := m.PurgeIdle(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("idle purge removed %d sessions", n)
	}
	if _, err := m.Get(s.ID); err != ErrNotFound {
		t.Error("purged session still retrievable")
	}

	m.Delete("missing") // no-op
}
