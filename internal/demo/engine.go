// Package demo provides the explicit offline mode: an in-memory SQLite
// database seeded with small payroll-flavored fixture tables that stands in
// for both the schema endpoint and the query engine. It is only ever wired
// when the operator asks for it; production mode never falls back to demo
// data on backend failure.
package demo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/querydeck/querydeck/internal/catalog"
	"github.com/querydeck/querydeck/internal/executor"
	"github.com/querydeck/querydeck/internal/model"
)

// Engine is the demo schema source and query executor.
type Engine struct {
	db *sqlx.DB
}

// fixture describes one seeded table.
type fixture struct {
	name    string
	file    string
	sheet   string
	columns []string
	ddl     string
	rows    []string
}

var fixtures = []fixture{
	{
		name:    "employees",
		file:    "demo_employees.xlsx",
		sheet:   "Employees",
		columns: []string{"employee_id", "name", "dept_code", "salary"},
		ddl:     `CREATE TABLE employees (employee_id INTEGER, name TEXT, dept_code TEXT, salary REAL)`,
		rows: []string{
			`INSERT INTO employees VALUES (1001, 'Ada Lovelace', 'ENG', 9200.0)`,
			`INSERT INTO employees VALUES (1002, 'Grace Hopper', 'ENG', 8800.0)`,
			`INSERT INTO employees VALUES (1003, 'Jean Bartik', 'HR1', 6100.0)`,
			`INSERT INTO employees VALUES (1004, 'Mary Jackson', 'FIN', 7400.0)`,
			`INSERT INTO employees VALUES (1005, 'Katherine Johnson', 'FIN', 7900.0)`,
		},
	},
	{
		name:    "departments",
		file:    "demo_org.xlsx",
		sheet:   "Departments",
		columns: []string{"dept_code", "dept_name", "acme_company_code"},
		ddl:     `CREATE TABLE departments (dept_code TEXT, dept_name TEXT, acme_company_code TEXT)`,
		rows: []string{
			`INSERT INTO departments VALUES ('ENG', 'Engineering', 'C100')`,
			`INSERT INTO departments VALUES ('HR1', 'Human Resources', 'C100')`,
			`INSERT INTO departments VALUES ('FIN', 'Finance', 'C200')`,
		},
	},
	{
		name:    "companies",
		file:    "demo_org.xlsx",
		sheet:   "Companies",
		columns: []string{"company_code", "company_name"},
		ddl:     `CREATE TABLE companies (company_code TEXT, company_name TEXT)`,
		rows: []string{
			`INSERT INTO companies VALUES ('C100', 'Acme North')`,
			`INSERT INTO companies VALUES ('C200', 'Acme South')`,
		},
	},
	{
		name:    "pay_components",
		file:    "demo_payroll.csv",
		columns: []string{"component_code", "employee_id", "amount"},
		ddl:     `CREATE TABLE pay_components (component_code TEXT, employee_id INTEGER, amount REAL)`,
		rows: []string{
			`INSERT INTO pay_components VALUES ('BASE', 1001, 9200.0)`,
			`INSERT INTO pay_components VALUES ('BONUS', 1001, 500.0)`,
			`INSERT INTO pay_components VALUES ('BASE', 1002, 8800.0)`,
			`INSERT INTO pay_components VALUES ('BASE', 1003, 6100.0)`,
			`INSERT INTO pay_components VALUES ('OVERTIME', 1003, 240.0)`,
		},
	},
}

// New opens the in-memory database and seeds the fixtures.
func New() (*Engine, error) {
	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open demo database: %w", err)
	}
	db.SetMaxOpenConns(1) // the in-memory DB exists per connection

	for _, f := range fixtures {
		if _, err := db.Exec(f.ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed table %s: %w", f.name, err)
		}
		for _, ins := range f.rows {
			if _, err := db.Exec(ins); err != nil {
				db.Close()
				return nil, fmt.Errorf("seed rows for %s: %w", f.name, err)
			}
		}
	}
	return &Engine{db: db}, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// FetchSchema implements catalog.Source over the fixture tables. The project
// identifier is ignored; demo mode serves one canned project.
func (e *Engine) FetchSchema(ctx context.Context, _ string) ([]catalog.RawTable, error) {
	tables := make([]catalog.RawTable, 0, len(fixtures))
	for _, f := range fixtures {
		var count int64
		if err := e.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+f.name); err != nil {
			return nil, fmt.Errorf("count %s: %w", f.name, err)
		}
		tables = append(tables, catalog.RawTable{
			Name:     f.name,
			File:     f.file,
			Sheet:    f.sheet,
			RowCount: count,
			Columns:  f.columns,
		})
	}
	return tables, nil
}

// Execute implements executor.Executor against SQLite. Failures surface as
// BackendQueryError so handlers treat demo errors like backend ones.
func (e *Engine) Execute(ctx context.Context, _ string, sql string) (model.ResultSet, error) {
	start := time.Now()

	// SQLite has no ILIKE; its LIKE is already case-insensitive for ASCII.
	sql = strings.ReplaceAll(sql, " ILIKE ", " LIKE ")

	rows, err := e.db.QueryxContext(ctx, sql)
	if err != nil {
		return model.ResultSet{}, &executor.BackendQueryError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return model.ResultSet{}, &executor.BackendQueryError{
			Status:  http.StatusInternalServerError,
			Message: err.Error(),
		}
	}

	data := []map[string]any{}
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return model.ResultSet{}, &executor.BackendQueryError{
				Status:  http.StatusInternalServerError,
				Message: err.Error(),
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return model.ResultSet{}, &executor.BackendQueryError{
			Status:  http.StatusInternalServerError,
			Message: err.Error(),
		}
	}

	return model.ResultSet{
		Columns:         columns,
		Rows:            data,
		RowCount:        len(data),
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}
