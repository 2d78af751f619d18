// Package databricks opens connection factories for a Databricks SQL warehouse.
package databricks

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbsql "github.com/databricks/databricks-sql-go"
)

const defaultPort = 443

type Config struct {
	Host         string
	HTTPPath     string
	Token        string
	Port         int
	Catalog      string
	Schema       string
	QueryTimeout time.Duration
}

// Open builds a *sql.DB over the Databricks connector. Nothing is dialed
// until the first statement runs. Released connections are closed rather
// than pooled, so each query opens and closes its own session.
func Open(cfg Config) (*sql.DB, error) {
	opts, err := connectorOptions(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := dbsql.NewConnector(opts...)
	if err != nil {
		return nil, fmt.Errorf("create databricks connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxIdleConns(0)
	return db, nil
}

func connectorOptions(cfg Config) ([]dbsql.ConnOption, error) {
	host := normalizeHost(cfg.Host)
	if host == "" {
		return nil, fmt.Errorf("databricks host is required")
	}
	if strings.TrimSpace(cfg.HTTPPath) == "" {
		return nil, fmt.Errorf("databricks http path is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("databricks access token is required")
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid databricks port %d", port)
	}

	opts := []dbsql.ConnOption{
		dbsql.WithServerHostname(host),
		dbsql.WithHTTPPath(strings.TrimSpace(cfg.HTTPPath)),
		dbsql.WithAccessToken(strings.TrimSpace(cfg.Token)),
		dbsql.WithPort(port),
	}
	if cfg.Catalog != "" || cfg.Schema != "" {
		opts = append(opts, dbsql.WithInitialNamespace(cfg.Catalog, cfg.Schema))
	}
	if cfg.QueryTimeout > 0 {
		opts = append(opts, dbsql.WithTimeout(cfg.QueryTimeout))
	}
	return opts, nil
}

// normalizeHost accepts the workspace URL as copied from the Databricks UI.
func normalizeHost(raw string) string {
	host := strings.TrimSpace(raw)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}
