package warehouse

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// Dialect adapts statements written with :name parameter markers to one
// warehouse engine. Identifiers passed to a Dialect come from configuration
// and are validated there; caller-supplied values only ever travel as bound
// arguments.
type Dialect interface {
	Name() string
	// Table qualifies a gold table name with the configured namespace.
	Table(name string) string
	// DaysBeforeToday renders a date expression for "today minus the
	// integer bound to param".
	DaysBeforeToday(param string) string
	Bind(query string, params map[string]any) (string, []any, error)
}

const (
	DialectDatabricks = "databricks"
	DialectPostgres   = "postgres"
	DialectDuckDB     = "duckdb"
)

func NewDialect(name, catalog, schema string) (Dialect, error) {
	if schema == "" {
		return nil, fmt.Errorf("schema is required")
	}
	switch name {
	case DialectDatabricks:
		return databricksDialect{catalog: catalog, schema: schema}, nil
	case DialectPostgres:
		return sqlxDialect{name: DialectPostgres, schema: schema, bindType: sqlx.DOLLAR}, nil
	case DialectDuckDB:
		return sqlxDialect{name: DialectDuckDB, schema: schema, bindType: sqlx.QUESTION}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}
}

// databricksDialect keeps the native :name markers of Databricks SQL and
// passes arguments as sql.NamedArg.
type databricksDialect struct {
	catalog string
	schema  string
}

func (d databricksDialect) Name() string { return DialectDatabricks }

func (d databricksDialect) Table(name string) string {
	if d.catalog == "" {
		return d.schema + "." + name
	}
	return d.catalog + "." + d.schema + "." + name
}

func (d databricksDialect) DaysBeforeToday(param string) string {
	return "DATE_SUB(CURRENT_DATE(), :" + param + ")"
}

func (d databricksDialect) Bind(query string, params map[string]any) (string, []any, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]any, 0, len(names))
	for _, name := range names {
		args = append(args, sql.Named(name, params[name]))
	}
	return query, args, nil
}

// sqlxDialect rewrites :name markers into the positional placeholders of
// drivers without named-parameter support.
type sqlxDialect struct {
	name     string
	schema   string
	bindType int
}

func (d sqlxDialect) Name() string { return d.name }

func (d sqlxDialect) Table(name string) string {
	return d.schema + "." + name
}

func (d sqlxDialect) DaysBeforeToday(param string) string {
	return "CURRENT_DATE - CAST(:" + param + " AS INTEGER)"
}

func (d sqlxDialect) Bind(query string, params map[string]any) (string, []any, error) {
	bound, args, err := sqlx.Named(query, params)
	if err != nil {
		return "", nil, fmt.Errorf("bind named parameters: %w", err)
	}
	return sqlx.Rebind(d.bindType, bound), args, nil
}
