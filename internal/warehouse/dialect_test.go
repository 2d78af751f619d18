package warehouse

import (
	"database/sql"
	"reflect"
	"testing"
)

func TestDialectTableQualification(t *testing.T) {
	tests := []struct {
		dialect string
		catalog string
		want    string
	}{
		{dialect: DialectDatabricks, catalog: "workspace", want: "workspace.techstore.gold_sales_metrics"},
		{dialect: DialectDatabricks, catalog: "", want: "techstore.gold_sales_metrics"},
		{dialect: DialectPostgres, catalog: "workspace", want: "techstore.gold_sales_metrics"},
		{dialect: DialectDuckDB, catalog: "workspace", want: "techstore.gold_sales_metrics"},
	}
	for _, tc := range tests {
		t.Run(tc.dialect+"/"+tc.catalog, func(t *testing.T) {
			d, err := NewDialect(tc.dialect, tc.catalog, "techstore")
			if err != nil {
				t.Fatalf("NewDialect() error = %v", err)
			}
			if got := d.Table("gold_sales_metrics"); got != tc.want {
				t.Fatalf("Table() = %q, want %q", got, tc.want)
			}
			if d.Name() != tc.dialect {
				t.Fatalf("Name() = %q", d.Name())
			}
		})
	}
}

func TestNewDialectRejectsUnknownDriver(t *testing.T) {
	if _, err := NewDialect("oracle", "", "techstore"); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
	if _, err := NewDialect(DialectDuckDB, "", ""); err == nil {
		t.Fatal("expected error for empty schema")
	}
}

func TestDatabricksBindKeepsNamedMarkers(t *testing.T) {
	d, _ := NewDialect(DialectDatabricks, "workspace", "techstore")
	query := "SELECT * FROM t WHERE sale_date >= " + d.DaysBeforeToday("days") + " AND segment = :segment"

	bound, args, err := d.Bind(query, map[string]any{"segment": "VIP", "days": 30})
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if bound != "SELECT * FROM t WHERE sale_date >= DATE_SUB(CURRENT_DATE(), :days) AND segment = :segment" {
		t.Fatalf("bound = %q", bound)
	}
	want := []any{sql.Named("days", 30), sql.Named("segment", "VIP")}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %#v", args)
	}
}

func TestPositionalDialectsRebindMarkers(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{dialect: DialectPostgres, want: "SELECT 1 WHERE d >= CURRENT_DATE - CAST($1 AS INTEGER) LIMIT $2"},
		{dialect: DialectDuckDB, want: "SELECT 1 WHERE d >= CURRENT_DATE - CAST(? AS INTEGER) LIMIT ?"},
	}
	for _, tc := range tests {
		t.Run(tc.dialect, func(t *testing.T) {
			d, _ := NewDialect(tc.dialect, "", "techstore")
			query := "SELECT 1 WHERE d >= " + d.DaysBeforeToday("days") + " LIMIT :limit"

			bound, args, err := d.Bind(query, map[string]any{"days": 7, "limit": 10})
			if err != nil {
				t.Fatalf("Bind() error = %v", err)
			}
			if bound != tc.want {
				t.Fatalf("bound = %q, want %q", bound, tc.want)
			}
			if !reflect.DeepEqual(args, []any{7, 10}) {
				t.Fatalf("args = %#v", args)
			}
		})
	}
}

func TestPositionalBindDoesNotInterpolateValues(t *testing.T) {
	d, _ := NewDialect(DialectDuckDB, "", "techstore")
	hostile := "VIP'; DROP TABLE customers; --"

	bound, args, err := d.Bind("SELECT 1 WHERE customer_segment = :segment", map[string]any{"segment": hostile})
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if bound != "SELECT 1 WHERE customer_segment = ?" {
		t.Fatalf("bound = %q", bound)
	}
	if len(args) != 1 || args[0] != hostile {
		t.Fatalf("args = %#v", args)
	}
}
