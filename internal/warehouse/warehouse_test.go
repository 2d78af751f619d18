package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestExecuteManyZipsColumnsInWarehouseOrder(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := newTestExecutor(t, db, DialectDatabricks)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT customer_id, name FROM t ORDER BY customer_lifetime_value DESC LIMIT :limit`)).
		WithArgs(sql.Named("limit", 2)).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "name"}).
			AddRow(int64(7), []byte("Ada")).
			AddRow(int64(3), "Grace"))

	rows, err := executor.ExecuteMany(context.Background(),
		`SELECT customer_id, name FROM t ORDER BY customer_lifetime_value DESC LIMIT :limit`,
		map[string]any{"limit": 2})
	if err != nil {
		t.Fatalf("ExecuteMany() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if id, _ := rows[0].Get("customer_id"); id != int64(7) {
		t.Fatalf("first customer_id = %#v", id)
	}
	if name, _ := rows[0].Get("name"); name != "Ada" {
		t.Fatalf("[]byte value not normalized: %#v", name)
	}
	if name, _ := rows[1].Get("name"); name != "Grace" {
		t.Fatalf("second name = %#v", name)
	}
	assertSQLMock(t, mock)
}

func TestExecuteManyRunsVerbatimWithoutParams(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := newTestExecutor(t, db, DialectPostgres)

	statement := `SELECT product_id FROM techstore.gold_product_performance WHERE product_id = :literal_marker`
	mock.ExpectQuery(regexp.QuoteMeta(statement)).
		WithArgs().
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}))

	rows, err := executor.ExecuteMany(context.Background(), statement, nil)
	if err != nil {
		t.Fatalf("ExecuteMany() error = %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("rows = %#v, want empty non-nil slice", rows)
	}
	assertSQLMock(t, mock)
}

func TestExecuteManyRebindsForPositionalDrivers(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := newTestExecutor(t, db, DialectPostgres)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM t WHERE customer_segment = $1 LIMIT $2`)).
		WithArgs("At Risk", 50).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))

	_, err := executor.ExecuteMany(context.Background(),
		`SELECT 1 FROM t WHERE customer_segment = :segment LIMIT :limit`,
		map[string]any{"segment": "At Risk", "limit": 50})
	if err != nil {
		t.Fatalf("ExecuteMany() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestExecuteManyWrapsDriverErrors(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := newTestExecutor(t, db, DialectDatabricks)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("[PARSE_SYNTAX_ERROR] Syntax error at or near 'FORM'"))

	rows, err := executor.ExecuteMany(context.Background(), "SELECT * FORM t", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if rows != nil {
		t.Fatalf("partial rows returned: %#v", rows)
	}
	if !errors.Is(err, ErrDatabase) {
		t.Fatalf("errors.Is(err, ErrDatabase) = false for %v", err)
	}
	var dbErr *Error
	if !errors.As(err, &dbErr) || dbErr.Op != "execute" {
		t.Fatalf("error = %#v", err)
	}
	if got := err.Error(); got != "Database error: [PARSE_SYNTAX_ERROR] Syntax error at or near 'FORM'" {
		t.Fatalf("Error() = %q", got)
	}
	assertSQLMock(t, mock)
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := &Error{Op: "execute"}
	if got := err.Error(); got != "Database error" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, ErrDatabase) {
		t.Fatal("errors.Is(err, ErrDatabase) = false")
	}
}

func TestExecuteManyAppliesValueNormalizer(t *testing.T) {
	db, mock := newSQLMock(t)
	dialect, err := NewDialect(DialectDuckDB, "", "techstore")
	if err != nil {
		t.Fatalf("NewDialect() error = %v", err)
	}
	var seen []any
	executor, err := NewExecutor(db, dialect, WithValueNormalizer(func(value any) any {
		seen = append(seen, value)
		if n, ok := value.(int64); ok {
			return n * 10
		}
		return value
	}))
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n", "label"}).
		AddRow(int64(4), []byte("raw")))

	row, ok, err := executor.ExecuteOne(context.Background(), "SELECT n, label FROM t", nil)
	if err != nil || !ok {
		t.Fatalf("ExecuteOne() ok=%v err=%v", ok, err)
	}
	if n, _ := row.Get("n"); n != int64(40) {
		t.Fatalf("n = %#v", n)
	}
	if label, _ := row.Get("label"); label != "raw" {
		t.Fatalf("label = %#v", label)
	}
	if len(seen) != 2 || seen[1] != "raw" {
		t.Fatalf("normalizer saw %#v, want []byte already converted", seen)
	}
	assertSQLMock(t, mock)
}

func TestExecuteManyFailsOnRowError(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := newTestExecutor(t, db, DialectDatabricks)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"a"}).
		AddRow(int64(1)).
		AddRow(int64(2)).
		RowError(1, io.ErrUnexpectedEOF))

	rows, err := executor.ExecuteMany(context.Background(), "SELECT a FROM t", nil)
	if !errors.Is(err, ErrDatabase) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v", err)
	}
	if rows != nil {
		t.Fatalf("partial rows returned: %#v", rows)
	}
}

func TestExecuteManyReportsMissingBindParameter(t *testing.T) {
	db, _ := newSQLMock(t)
	executor := newTestExecutor(t, db, DialectDuckDB)

	_, err := executor.ExecuteMany(context.Background(), "SELECT 1 LIMIT :limit", map[string]any{"days": 3})
	var dbErr *Error
	if !errors.As(err, &dbErr) || dbErr.Op != "bind" {
		t.Fatalf("err = %#v", err)
	}
}

func TestExecuteOneReturnsFirstRow(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := newTestExecutor(t, db, DialectDatabricks)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"days_analyzed"}).
		AddRow(int64(30)).
		AddRow(int64(99)))

	row, ok, err := executor.ExecuteOne(context.Background(), "SELECT COUNT(DISTINCT sale_date) AS days_analyzed FROM t", nil)
	if err != nil {
		t.Fatalf("ExecuteOne() error = %v", err)
	}
	if !ok {
		t.Fatal("ok = false")
	}
	if value, _ := row.Get("days_analyzed"); value != int64(30) {
		t.Fatalf("days_analyzed = %#v", value)
	}
}

func TestExecuteOneDistinguishesZeroRowsFromFailure(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := newTestExecutor(t, db, DialectDatabricks)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"x"}))
	_, ok, err := executor.ExecuteOne(context.Background(), "SELECT x FROM t", nil)
	if err != nil || ok {
		t.Fatalf("zero rows: ok=%v err=%v", ok, err)
	}

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("timeout"))
	_, ok, err = executor.ExecuteOne(context.Background(), "SELECT x FROM t", nil)
	if err == nil || ok {
		t.Fatalf("failure: ok=%v err=%v", ok, err)
	}
}

func TestExecutorReleasesConnectionOnEveryPath(t *testing.T) {
	connector := &countingConnector{}
	db := sql.OpenDB(connector)
	db.SetMaxIdleConns(0)
	t.Cleanup(func() { _ = db.Close() })
	executor := newTestExecutor(t, db, DialectDatabricks)

	ctx := context.Background()
	if _, err := executor.ExecuteMany(ctx, "ok", nil); err != nil {
		t.Fatalf("ExecuteMany(ok) error = %v", err)
	}
	if _, err := executor.ExecuteMany(ctx, "fail", nil); err == nil {
		t.Fatal("ExecuteMany(fail) expected error")
	}
	if _, err := executor.ExecuteMany(ctx, "failscan", nil); err == nil {
		t.Fatal("ExecuteMany(failscan) expected error")
	}
	if err := executor.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	opened, closed := connector.counts()
	if opened != 4 {
		t.Fatalf("opened = %d, want one connection per call", opened)
	}
	if closed != opened {
		t.Fatalf("closed = %d, opened = %d", closed, opened)
	}
}

func TestExecutorSurfacesConnectFailure(t *testing.T) {
	db := sql.OpenDB(&countingConnector{connectErr: errors.New("dial tcp: connection refused")})
	t.Cleanup(func() { _ = db.Close() })
	executor := newTestExecutor(t, db, DialectDatabricks)

	_, err := executor.ExecuteMany(context.Background(), "ok", nil)
	var dbErr *Error
	if !errors.As(err, &dbErr) || dbErr.Op != "connect" {
		t.Fatalf("err = %#v", err)
	}
	if err := executor.Ping(context.Background()); !errors.Is(err, ErrDatabase) {
		t.Fatalf("Ping() err = %v", err)
	}
}

func TestExecuteManyIsSafeForConcurrentUse(t *testing.T) {
	connector := &countingConnector{}
	db := sql.OpenDB(connector)
	db.SetMaxIdleConns(0)
	t.Cleanup(func() { _ = db.Close() })
	executor := newTestExecutor(t, db, DialectDatabricks)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := executor.ExecuteMany(context.Background(), "ok", nil)
			if err == nil && len(rows) != 2 {
				err = errors.New("unexpected row count")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent ExecuteMany() error = %v", err)
		}
	}
	opened, closed := connector.counts()
	if opened != closed {
		t.Fatalf("opened = %d, closed = %d", opened, closed)
	}
}

func TestRowsEncodeAsOrderedJSON(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := newTestExecutor(t, db, DialectDatabricks)
	when := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"z", "a", "m"}).
		AddRow("last", nil, when))

	rows, err := executor.ExecuteMany(context.Background(), "SELECT z, a, m FROM t", nil)
	if err != nil {
		t.Fatalf("ExecuteMany() error = %v", err)
	}
	encoded, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `[{"z":"last","a":null,"m":"2025-03-01T00:00:00Z"}]`
	if string(encoded) != want {
		t.Fatalf("json = %s, want %s", encoded, want)
	}
}

func TestNewExecutorValidatesArguments(t *testing.T) {
	if _, err := NewExecutor(nil, databricksDialect{schema: "s"}); err == nil {
		t.Fatal("expected error for nil db")
	}
	db, _ := newSQLMock(t)
	if _, err := NewExecutor(db, nil); err == nil {
		t.Fatal("expected error for nil dialect")
	}
}

func newTestExecutor(t *testing.T, db *sql.DB, dialectName string) *Executor {
	t.Helper()
	dialect, err := NewDialect(dialectName, "workspace", "techstore")
	if err != nil {
		t.Fatalf("NewDialect() error = %v", err)
	}
	executor, err := NewExecutor(db, dialect)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return executor
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

// countingConnector is a minimal driver that tracks physical connection
// lifetimes. Statement text selects the behavior: "ok" yields two rows,
// "fail" errors on execute and "failscan" errors while iterating.
type countingConnector struct {
	mu         sync.Mutex
	opened     int
	closed     int
	connectErr error
}

func (c *countingConnector) Connect(context.Context) (driver.Conn, error) {
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	c.mu.Lock()
	c.opened++
	c.mu.Unlock()
	return &countingConn{owner: c}, nil
}

func (c *countingConnector) Driver() driver.Driver { return countingDriver{} }

func (c *countingConnector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened, c.closed
}

type countingDriver struct{}

func (countingDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("use the connector")
}

type countingConn struct {
	owner *countingConnector
}

func (c *countingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *countingConn) Close() error {
	c.owner.mu.Lock()
	c.owner.closed++
	c.owner.mu.Unlock()
	return nil
}

func (c *countingConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *countingConn) Ping(context.Context) error { return nil }

func (c *countingConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	switch query {
	case "ok":
		return &countingRows{values: [][]driver.Value{{int64(1)}, {int64(2)}}}, nil
	case "failscan":
		return &countingRows{values: [][]driver.Value{{int64(1)}}, failAfter: 1}, nil
	default:
		return nil, errors.New("statement failed")
	}
}

type countingRows struct {
	values    [][]driver.Value
	next      int
	failAfter int
}

func (r *countingRows) Columns() []string { return []string{"n"} }

func (r *countingRows) Close() error { return nil }

func (r *countingRows) Next(dest []driver.Value) error {
	if r.failAfter > 0 && r.next >= r.failAfter {
		return errors.New("stream interrupted")
	}
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}
