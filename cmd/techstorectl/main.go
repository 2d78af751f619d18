package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/techstore/techstore-api/internal/cli/techstorectl"
)

func main() {
	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("TECHSTORE_CLI_TIMEOUT")), 10*time.Second)
	options := techstorectl.Options{
		BaseURL: envOr("TECHSTORE_API_URL", "http://localhost:8000"),
		Timeout: timeout,
		Format:  envOr("TECHSTORE_CLI_FORMAT", techstorectl.FormatJSON),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}

	code := techstorectl.Run(context.Background(), os.Args[1:], options)
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid TECHSTORE_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
