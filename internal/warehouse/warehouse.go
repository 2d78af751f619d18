// Package warehouse executes parameterized statements against the analytics
// warehouse and materializes their results.
//
// Every call acquires its own connection and releases it before returning,
// on success and on failure. Calls share only what is fixed at construction.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/techstore/techstore-api/internal/observability"
)

// ErrDatabase matches every failure raised while talking to the warehouse.
var ErrDatabase = errors.New("database error")

// Error carries the underlying driver failure. errors.Is(err, ErrDatabase)
// holds for every *Error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "Database error"
	}
	return "Database error: " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDatabase}
	}
	return []error{ErrDatabase, e.Err}
}

type queryNameKey struct{}

// WithQueryName labels the statements executed under ctx in metrics.
func WithQueryName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, queryNameKey{}, name)
}

func queryName(ctx context.Context) string {
	name, _ := ctx.Value(queryNameKey{}).(string)
	return name
}

type Executor struct {
	db        *sql.DB
	dialect   Dialect
	normalize func(any) any
}

// Option adjusts an Executor at construction.
type Option func(*Executor)

// WithValueNormalizer converts driver-specific scan values (after []byte
// has become string) into types the decoders understand.
func WithValueNormalizer(normalize func(any) any) Option {
	return func(e *Executor) {
		e.normalize = normalize
	}
}

// NewExecutor wraps a connection factory. The factory decides whether a
// released connection is kept; the drivers in this module configure it to
// keep none.
func NewExecutor(db *sql.DB, dialect Dialect, opts ...Option) (*Executor, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if dialect == nil {
		return nil, fmt.Errorf("dialect is required")
	}
	executor := &Executor{db: db, dialect: dialect}
	for _, opt := range opts {
		opt(executor)
	}
	return executor, nil
}

func (e *Executor) Dialect() Dialect {
	return e.dialect
}

// ExecuteMany runs query and returns every row in warehouse order. With a
// non-empty params the statement is bound through the dialect; otherwise it
// runs verbatim.
func (e *Executor) ExecuteMany(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	start := time.Now()
	rows, err := e.executeMany(ctx, query, params)
	observability.ObserveWarehouseQuery(queryName(ctx), len(rows), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExecuteOne returns the first row, or ok=false when the statement produced
// none. Zero rows is not an error.
func (e *Executor) ExecuteOne(ctx context.Context, query string, params map[string]any) (Row, bool, error) {
	rows, err := e.ExecuteMany(ctx, query, params)
	if err != nil {
		return Row{}, false, err
	}
	if len(rows) == 0 {
		return Row{}, false, nil
	}
	return rows[0], true, nil
}

// Ping acquires and releases one connection.
func (e *Executor) Ping(ctx context.Context) error {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return &Error{Op: "connect", Err: err}
	}
	defer func() { _ = conn.Close() }()

	if err := conn.PingContext(ctx); err != nil {
		return &Error{Op: "ping", Err: err}
	}
	return nil
}

func (e *Executor) executeMany(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	statement := query
	var args []any
	if len(params) > 0 {
		bound, boundArgs, err := e.dialect.Bind(query, params)
		if err != nil {
			return nil, &Error{Op: "bind", Err: err}
		}
		statement, args = bound, boundArgs
	}

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, &Error{Op: "execute", Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &Error{Op: "columns", Err: err}
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, &Error{Op: "scan", Err: err}
		}
		result = append(result, NewRow(columns, e.normalizeValues(values)))
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "iterate", Err: err}
	}
	return result, nil
}

func (e *Executor) normalizeValues(values []any) []any {
	for i, value := range values {
		if typed, ok := value.([]byte); ok {
			value = string(typed)
		}
		if e.normalize != nil {
			value = e.normalize(value)
		}
		values[i] = value
	}
	return values
}
