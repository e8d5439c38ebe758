package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/querydeck/querydeck/internal/model"
	"github.com/querydeck/querydeck/internal/relation"
	"github.com/querydeck/querydeck/internal/sqlgen"
)

// previewDoc is the YAML document the preview command consumes: a schema
// snapshot plus a query spec, so SQL synthesis can be checked offline (and
// pinned in CI) without a backend.
type previewDoc struct {
	Tables []previewTable `yaml:"tables"`
	Spec   previewSpec    `yaml:"spec"`
}

type previewTable struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

type previewSpec struct {
	Tables  []string        `yaml:"tables"`
	Columns []previewColumn `yaml:"columns"`
	Filters []previewFilter `yaml:"filters"`
	OrderBy *previewOrder   `yaml:"order_by"`
	Limit   int             `yaml:"limit"`
}

type previewColumn struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

type previewFilter struct {
	Table    string `yaml:"table"`
	Column   string `yaml:"column"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value"`
}

type previewOrder struct {
	Table     string `yaml:"table"`
	Column    string `yaml:"column"`
	Direction string `yaml:"direction"`
}

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <spec.yaml>",
		Short: "Render the SQL for a query spec document without executing it",
		Long: `Read a YAML document containing a schema snapshot and a query spec and
print the SQL the builder would synthesize. Synthesis is deterministic, so
the output can be diffed against a pinned expectation. Unresolved joins are
reported on stderr and fail the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read spec document: %w", err)
			}
			stmt, err := previewStatement(raw)
			if err != nil {
				return err
			}
			for _, table := range stmt.Unresolved {
				fmt.Fprintf(cmd.ErrOrStderr(), "unresolved join: %s has no edge to the anchor table\n", table)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stmt.SQL)
			if len(stmt.Unresolved) > 0 {
				return fmt.Errorf("%d unresolved join(s)", len(stmt.Unresolved))
			}
			return nil
		},
	}
	return cmd
}

// previewStatement parses the document and synthesizes its SQL.
func previewStatement(raw []byte) (sqlgen.Statement, error) {
	var doc previewDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return sqlgen.Statement{}, fmt.Errorf("parse spec document: %w", err)
	}

	spec, edges, err := buildSpec(doc)
	if err != nil {
		return sqlgen.Statement{}, err
	}
	return sqlgen.Synthesize(spec, edges), nil
}

// buildSpec turns a parsed document into a QuerySpec and the inferred edge
// set for its schema snapshot.
func buildSpec(doc previewDoc) (model.QuerySpec, []model.Relationship, error) {
	descriptors := make(map[string]model.TableDescriptor, len(doc.Tables))
	ordered := make([]model.TableDescriptor, 0, len(doc.Tables))
	for _, t := range doc.Tables {
		if t.Name == "" || len(t.Columns) == 0 {
			return model.QuerySpec{}, nil, fmt.Errorf("table entries need a name and columns")
		}
		d := model.TableDescriptor{
			SQLName:     t.Name,
			DisplayName: t.Name,
			Columns:     t.Columns,
			KeyColumns:  model.KeyColumnsOf(t.Columns),
		}
		descriptors[t.Name] = d
		ordered = append(ordered, d)
	}

	spec := model.NewQuerySpec()
	for _, name := range doc.Spec.Tables {
		d, ok := descriptors[name]
		if !ok {
			return model.QuerySpec{}, nil, fmt.Errorf("spec selects unknown table %q", name)
		}
		spec.SelectedTables = append(spec.SelectedTables, d)
	}
	for _, c := range doc.Spec.Columns {
		if !spec.HasTable(c.Table) {
			return model.QuerySpec{}, nil, fmt.Errorf("column %s.%s references an unselected table", c.Table, c.Column)
		}
		spec.SelectedColumns = append(spec.SelectedColumns, model.ColumnRef{Table: c.Table, Column: c.Column})
	}
	for i, f := range doc.Spec.Filters {
		if !spec.HasTable(f.Table) {
			return model.QuerySpec{}, nil, fmt.Errorf("filter on %s.%s references an unselected table", f.Table, f.Column)
		}
		if f.Operator != "" && !model.ValidOperator(f.Operator) {
			return model.QuerySpec{}, nil, fmt.Errorf("unsupported operator %q", f.Operator)
		}
		spec.Filters = append(spec.Filters, model.Filter{
			ID:       fmt.Sprintf("doc-%d", i),
			Table:    f.Table,
			Column:   f.Column,
			Operator: f.Operator,
			Value:    f.Value,
		})
	}
	if o := doc.Spec.OrderBy; o != nil {
		spec.OrderBy = &model.OrderBy{Table: o.Table, Column: o.Column, Direction: o.Direction}
	}
	if doc.Spec.Limit > 0 {
		spec.Limit = doc.Spec.Limit
	}

	return spec, relation.Infer(ordered), nil
}
