package techstorectl

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRunTopCustomersCommand(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"customer_id":7,"name":"Ada Lovelace","customer_lifetime_value":"5400.5"}]`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"--base-url", srv.URL,
		"top-customers", "--limit", "5",
	}, Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Timeout: 2 * time.Second,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if gotMethod != http.MethodGet || gotPath != "/api/customers/top-customers" || gotQuery != "limit=5" {
		t.Fatalf("request = %s %s?%s", gotMethod, gotPath, gotQuery)
	}
	if !strings.Contains(stdout.String(), `"customer_lifetime_value": "5400.5"`) {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRunOmitsUnsetParameters(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"--base-url", srv.URL, "sales-trends"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotQuery != "" {
		t.Fatalf("query = %q, want empty", gotQuery)
	}
}

func TestRunSegmentEscapesName(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"--base-url", srv.URL, "segment", "At Risk", "--limit", "3"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotPath != "/api/customers/segments/At Risk" || gotQuery != "limit=3" {
		t.Fatalf("request = %s?%s", gotPath, gotQuery)
	}
}

func TestRunTableFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"product_id":1,"product_name":"Laptop Pro","category":"Computers","current_stock":3,"total_revenue":"9000","sales_performance":"Best Seller"}]`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "--format", "table", "low-stock"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	out := stdout.String()
	for _, want := range []string{"PRODUCT NAME", "Laptop Pro", "Best Seller", "9000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRunTableFormatSingleObjectAndNull(t *testing.T) {
	body := `{"days_analyzed":30,"total_revenue":"1200.5","total_orders":12,"avg_daily_revenue":"40.02","avg_order_value":"100.04"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "--format", "table", "sales-summary", "--days", "30"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "1200.5") {
		t.Fatalf("stdout = %s", stdout.String())
	}

	body = "null"
	stdout.Reset()
	code = Run(context.Background(), []string{"--base-url", srv.URL, "--format", "table", "sales-summary"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("null exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "DAYS ANALYZED") {
		t.Fatalf("null stdout = %s", stdout.String())
	}
}

func TestRunYAMLFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "--format", "yaml", "health"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if strings.TrimSpace(stdout.String()) != "status: healthy" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunReturnsErrorOnHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"INVALID_SEGMENT"}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "segment", "Platinum"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "http 400") || !strings.Contains(stderr.String(), "INVALID_SEGMENT") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunReturnsErrorWhenServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", url, "--timeout", "1s", "ready"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "request failed") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"unknown"},
		{"segment"},
		{"top-customers", "--limit", "abc"},
		{"--format", "xml", "health"},
	}
	for _, args := range tests {
		var stderr bytes.Buffer
		code := Run(context.Background(), args, Options{Stderr: &stderr})
		if code != 2 {
			t.Fatalf("args %v: exit code = %d", args, code)
		}
		if !strings.Contains(stderr.String(), "Usage:") {
			t.Fatalf("args %v: expected usage output, got %s", args, stderr.String())
		}
	}
}
