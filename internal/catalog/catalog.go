// Package catalog loads the set of uploaded tables available to a project
// from the backend schema endpoint and holds them for the duration of a
// session. The catalog is a snapshot: it is loaded once per project and is
// read-only afterwards.
package catalog

import (
	"context"
	"fmt"

	"github.com/querydeck/querydeck/internal/model"
)

// Source provides the raw schema for a project. The production source is the
// backend schema endpoint; the demo engine provides its own.
type Source interface {
	FetchSchema(ctx context.Context, project string) ([]RawTable, error)
}

// RawTable is the wire shape of one table in the schema endpoint response.
// FullName, when present, is the exact identifier the query engine expects;
// Name, File, and Sheet only ever feed the human-readable display name.
type RawTable struct {
	Name     string   `json:"name"`
	FullName string   `json:"full_name,omitempty"`
	File     string   `json:"file,omitempty"`
	Sheet    string   `json:"sheet,omitempty"`
	RowCount int64    `json:"row_count"`
	Columns  []string `json:"columns"`
}

// Catalog is the loaded table set for one project.
type Catalog struct {
	Project string
	Tables  []model.TableDescriptor
}

// LoadError wraps a schema load failure. Callers degrade to an empty
// catalog (the "no tables found" empty state) instead of failing hard.
type LoadError struct {
	Project string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load schema for project %q: %v", e.Project, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load fetches the project schema from src and builds the catalog. Tables
// without a usable SQL identifier or without columns are skipped.
func Load(ctx context.Context, src Source, project string) (*Catalog, error) {
	raw, err := src.FetchSchema(ctx, project)
	if err != nil {
		return nil, &LoadError{Project: project, Err: err}
	}

	c := &Catalog{Project: project}
	for _, rt := range raw {
		sqlName := rt.FullName
		if sqlName == "" {
			sqlName = rt.Name
		}
		if sqlName == "" || len(rt.Columns) == 0 {
			continue
		}
		c.Tables = append(c.Tables, model.TableDescriptor{
			SQLName:     sqlName,
			DisplayName: displayName(rt),
			RowCount:    rt.RowCount,
			Columns:     rt.Columns,
			KeyColumns:  model.KeyColumnsOf(rt.Columns),
		})
	}
	return c, nil
}

// Lookup returns the descriptor with the given SQL name, or nil.
func (c *Catalog) Lookup(sqlName string) *model.TableDescriptor {
	for i := range c.Tables {
		if c.Tables[i].SQLName == sqlName {
			return &c.Tables[i]
		}
	}
	return nil
}

// displayName derives the human label for a table from the upload metadata,
// preferring "file / sheet" when both are known.
func displayName(rt RawTable) string {
	switch {
	case rt.File != "" && rt.Sheet != "":
		return rt.File + " / " + rt.Sheet
	case rt.File != "":
		return rt.File
	case rt.Name != "":
		return rt.Name
	default:
		return rt.FullName
	}
}
