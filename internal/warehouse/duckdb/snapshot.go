// Package duckdb serves the gold tables from a Parquet snapshot held in the
// object store, loaded into an embedded DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb/v2"
	"github.com/shopspring/decimal"

	"github.com/techstore/techstore-api/internal/storage"
)

type Config struct {
	Schema string
	Tables []string
}

// Snapshot owns the embedded database and the local copies of the Parquet
// parts its views read from.
type Snapshot struct {
	db      *sql.DB
	workDir string
	files   map[string]int
}

// Open downloads every Parquet part of each table and exposes it as the
// view <schema>.<table>. A table with no parts is an error.
func Open(ctx context.Context, store storage.ObjectStore, cfg Config) (*Snapshot, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(cfg.Schema) == "" {
		return nil, fmt.Errorf("schema is required")
	}
	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("at least one table is required")
	}

	workDir, err := os.MkdirTemp("", "techstore-snapshot-")
	if err != nil {
		return nil, fmt.Errorf("create snapshot temp dir: %w", err)
	}
	snapshot := &Snapshot{workDir: workDir, files: map[string]int{}}

	localPaths := make(map[string][]string, len(cfg.Tables))
	for _, table := range cfg.Tables {
		paths, err := snapshot.download(ctx, store, table)
		if err != nil {
			_ = snapshot.Close()
			return nil, err
		}
		localPaths[table] = paths
		snapshot.files[table] = len(paths)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		_ = snapshot.Close()
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	snapshot.db = db

	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(cfg.Schema)); err != nil {
		_ = snapshot.Close()
		return nil, fmt.Errorf("create schema %q: %w", cfg.Schema, err)
	}
	for _, table := range cfg.Tables {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s.%s AS SELECT * FROM read_parquet(%s)`,
			quoteIdent(cfg.Schema), quoteIdent(table), quoteStringArray(localPaths[table]))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			_ = snapshot.Close()
			return nil, fmt.Errorf("create view for table %q: %w", table, err)
		}
	}

	// Views are set up; from here each query gets a fresh connection.
	db.SetMaxIdleConns(0)
	return snapshot, nil
}

func (s *Snapshot) DB() *sql.DB {
	return s.db
}

// Files reports how many Parquet parts back each table.
func (s *Snapshot) Files() map[string]int {
	out := make(map[string]int, len(s.files))
	for table, count := range s.files {
		out[table] = count
	}
	return out
}

func (s *Snapshot) Close() error {
	var closeErr error
	if s.db != nil {
		closeErr = s.db.Close()
	}
	if err := os.RemoveAll(s.workDir); err != nil && closeErr == nil {
		closeErr = err
	}
	return closeErr
}

func (s *Snapshot) download(ctx context.Context, store storage.ObjectStore, table string) ([]string, error) {
	prefix, err := storage.TablePrefix(table)
	if err != nil {
		return nil, err
	}
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list parts of %q: %w", table, err)
	}

	paths := make([]string, 0, len(objects))
	for _, obj := range objects {
		if !storage.IsParquetKey(obj.Key) {
			continue
		}
		localPath := filepath.Join(s.workDir, fmt.Sprintf("%s_%d.parquet", table, len(paths)))
		if err := copyObject(ctx, store, obj.Key, localPath); err != nil {
			return nil, err
		}
		paths = append(paths, localPath)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no parquet parts found for table %q", table)
	}
	return paths, nil
}

func copyObject(ctx context.Context, store storage.ObjectStore, key, localPath string) error {
	reader, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file %q: %w", localPath, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return fmt.Errorf("write local file %q: %w", localPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close local file %q: %w", localPath, err)
	}
	return nil
}

// NormalizeValue converts DuckDB DECIMAL scan values to decimal.Decimal.
// Everything else passes through unchanged.
func NormalizeValue(value any) any {
	switch v := value.(type) {
	case goduckdb.Decimal:
		return decimalFromDuckDB(v)
	case *goduckdb.Decimal:
		if v == nil {
			return nil
		}
		return decimalFromDuckDB(*v)
	default:
		return value
	}
}

func decimalFromDuckDB(v goduckdb.Decimal) any {
	if v.Value == nil {
		return nil
	}
	return decimal.NewFromBigInt(v.Value, -int32(v.Scale))
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
