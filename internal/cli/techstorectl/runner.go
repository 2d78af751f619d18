// Package techstorectl is the operator CLI for the analytics API.
package techstorectl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	FormatJSON  = "json"
	FormatTable = "table"
	FormatYAML  = "yaml"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Format     string
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// exitError carries a non-usage failure; everything else cobra returns is
// treated as a usage error.
type exitError struct {
	err error
}

func (e *exitError) Error() string { return e.err.Error() }

// Run executes one CLI invocation and returns the process exit code:
// 0 on success, 1 when the request failed, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	defaults.Stdout = stdout
	defaults.Stderr = stderr

	root := NewCommand(&defaults)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var failed *exitError
	if errors.As(err, &failed) {
		_, _ = fmt.Fprintln(stderr, failed.Error())
		return 1
	}
	_, _ = fmt.Fprintf(stderr, "Error: %v\n\n", err)
	_, _ = fmt.Fprint(stderr, root.UsageString())
	return 2
}

type client struct {
	opts *Options
}

func NewCommand(opts *Options) *cobra.Command {
	c := &client{opts: opts}

	root := &cobra.Command{
		Use:           "techstorectl",
		Short:         "Query the TechStore analytics API",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			switch opts.Format {
			case FormatJSON, FormatTable, FormatYAML:
				return nil
			default:
				return fmt.Errorf("invalid format %q", opts.Format)
			}
		},
		RunE: func(*cobra.Command, []string) error {
			return errors.New("a command is required")
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.BaseURL, "base-url", firstNonEmpty(opts.BaseURL, "http://localhost:8000"), "analytics API base URL")
	flags.DurationVar(&opts.Timeout, "timeout", durationOr(opts.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")
	flags.StringVar(&opts.Format, "format", firstNonEmpty(opts.Format, FormatJSON), "output format: json, table or yaml")

	root.AddCommand(
		c.simple("health", "Liveness probe", "/health", []string{"status"}),
		c.simple("ready", "Warehouse readiness probe", "/ready", []string{"status"}),
		c.limited("top-customers", "Customers ranked by lifetime value", "/api/customers/top-customers", "limit", customerColumns),
		c.segment(),
		c.limited("best-sellers", "Products ranked by revenue", "/api/products/best-sellers", "limit", productColumns),
		c.simple("low-stock", "Products at or under the stock threshold", "/api/products/low-stock", productColumns),
		c.limited("sales-summary", "Aggregates over a trailing window", "/api/sales/summary", "days", summaryColumns),
		c.limited("sales-trends", "Monthly revenue series", "/api/sales/trends", "months", trendColumns),
	)
	return root
}

var (
	customerColumns = []string{"customer_id", "name", "customer_segment", "total_orders", "total_revenue", "customer_lifetime_value"}
	productColumns  = []string{"product_id", "product_name", "category", "current_stock", "total_revenue", "sales_performance"}
	summaryColumns  = []string{"days_analyzed", "total_revenue", "total_orders", "avg_daily_revenue", "avg_order_value"}
	trendColumns    = []string{"sale_date", "monthly_revenue", "daily_orders", "mom_revenue_growth_percent"}
)

func (c *client) simple(use, short, path string, columns []string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.fetch(cmd, path, nil, columns)
		},
	}
}

func (c *client) limited(use, short, path, param string, columns []string) *cobra.Command {
	var value int
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := url.Values{}
			if cmd.Flags().Changed(param) {
				query.Set(param, strconv.Itoa(value))
			}
			return c.fetch(cmd, path, query, columns)
		},
	}
	cmd.Flags().IntVar(&value, param, 0, param+" (server default when omitted)")
	return cmd
}

func (c *client) segment() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "segment <name>",
		Short: "Customers of one RFM segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if cmd.Flags().Changed("limit") {
				query.Set("limit", strconv.Itoa(limit))
			}
			return c.fetch(cmd, "/api/customers/segments/"+url.PathEscape(args[0]), query, customerColumns)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "limit (server default when omitted)")
	return cmd
}

func (c *client) fetch(cmd *cobra.Command, path string, query url.Values, columns []string) error {
	endpoint := strings.TrimRight(c.opts.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	httpClient := c.opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.opts.Timeout}
	}

	code, body, err := doRequest(cmd.Context(), httpClient, endpoint)
	if err != nil {
		return &exitError{err: fmt.Errorf("request failed: %w", err)}
	}
	if code >= 400 {
		return &exitError{err: fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(body)))}
	}

	if err := render(c.opts.Stdout, c.opts.Format, columns, body); err != nil {
		return &exitError{err: err}
	}
	return nil
}

func doRequest(ctx context.Context, client *http.Client, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
