package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type WarehouseDriver string

const (
	DriverDatabricks WarehouseDriver = "databricks"
	DriverPostgres   WarehouseDriver = "postgres"
	DriverDuckDB     WarehouseDriver = "duckdb"
)

// The Databricks variables keep the names the dbt project already exports.
const (
	EnvDatabricksHost     = "DBT_DATABRICKS_HOST"
	EnvDatabricksHTTPPath = "DBT_DATABRICKS_HTTP_PATH"
	EnvDatabricksToken    = "DBT_DATABRICKS_TOKEN"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,127}$`)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Warehouse     WarehouseConfig
	Databricks    DatabricksConfig
	Postgres      PostgresConfig
	ObjectStore   ObjectStoreConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name    string
	Version string
}

type HTTPConfig struct {
	Address           string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	DependencyTimeout time.Duration
}

type WarehouseConfig struct {
	Driver  WarehouseDriver
	Catalog string
	Schema  string
}

// DatabricksConfig holds the connection parameters of the SQL warehouse.
// They are read once at start and never change afterwards.
type DatabricksConfig struct {
	Host         string
	HTTPPath     string
	Token        string
	Port         int
	QueryTimeout time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("TECHSTORE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid TECHSTORE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	var driver string
	var origins string
	steps := []func() error{
		func() error { return applyString(lookup, "TECHSTORE_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "TECHSTORE_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "TECHSTORE_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "TECHSTORE_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "TECHSTORE_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyDuration(lookup, "TECHSTORE_DEPENDENCY_TIMEOUT", &cfg.HTTP.DependencyTimeout) },
		func() error { return applyString(lookup, "TECHSTORE_WAREHOUSE_DRIVER", &driver) },
		func() error { return applyString(lookup, "TECHSTORE_WAREHOUSE_CATALOG", &cfg.Warehouse.Catalog) },
		func() error { return applyString(lookup, "TECHSTORE_WAREHOUSE_SCHEMA", &cfg.Warehouse.Schema) },
		func() error { return applyString(lookup, EnvDatabricksHost, &cfg.Databricks.Host) },
		func() error { return applyString(lookup, EnvDatabricksHTTPPath, &cfg.Databricks.HTTPPath) },
		func() error { return applyString(lookup, EnvDatabricksToken, &cfg.Databricks.Token) },
		func() error { return applyInt(lookup, "TECHSTORE_DATABRICKS_PORT", &cfg.Databricks.Port) },
		func() error {
			return applyDuration(lookup, "TECHSTORE_WAREHOUSE_QUERY_TIMEOUT", &cfg.Databricks.QueryTimeout)
		},
		func() error { return applyString(lookup, "TECHSTORE_POSTGRES_DSN", &cfg.Postgres.DSN) },
		func() error { return applyInt(lookup, "TECHSTORE_POSTGRES_MAX_OPEN_CONNS", &cfg.Postgres.MaxOpenConns) },
		func() error {
			return applyDuration(lookup, "TECHSTORE_POSTGRES_CONN_MAX_LIFETIME", &cfg.Postgres.ConnMaxLifetime)
		},
		func() error { return applyString(lookup, "TECHSTORE_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "TECHSTORE_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "TECHSTORE_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "TECHSTORE_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error {
			return applyString(lookup, "TECHSTORE_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "TECHSTORE_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "TECHSTORE_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "TECHSTORE_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyString(lookup, "TECHSTORE_CORS_ALLOWED_ORIGINS", &origins) },
		func() error { return applyBool(lookup, "TECHSTORE_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "TECHSTORE_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	if driver != "" {
		cfg.Warehouse.Driver = WarehouseDriver(strings.ToLower(driver))
	}
	if origins != "" {
		cfg.CORS.AllowedOrigins = splitList(origins)
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if err := cfg.Warehouse.validate(); err != nil {
		return Config{}, err
	}
	switch cfg.Warehouse.Driver {
	case DriverDatabricks:
		if err := cfg.Databricks.validate(); err != nil {
			return Config{}, err
		}
	case DriverPostgres:
		if cfg.Postgres.DSN == "" {
			return Config{}, fmt.Errorf("TECHSTORE_POSTGRES_DSN is required for warehouse driver %q", DriverPostgres)
		}
	case DriverDuckDB:
		if cfg.ObjectStore.Endpoint == "" || cfg.ObjectStore.Bucket == "" {
			return Config{}, fmt.Errorf("object store endpoint and bucket are required for warehouse driver %q", DriverDuckDB)
		}
	}
	return cfg, nil
}

func (w WarehouseConfig) validate() error {
	switch w.Driver {
	case DriverDatabricks, DriverPostgres, DriverDuckDB:
	default:
		return fmt.Errorf("invalid TECHSTORE_WAREHOUSE_DRIVER: %q", w.Driver)
	}
	if w.Catalog != "" && !identifierPattern.MatchString(w.Catalog) {
		return fmt.Errorf("invalid TECHSTORE_WAREHOUSE_CATALOG: %q", w.Catalog)
	}
	if !identifierPattern.MatchString(w.Schema) {
		return fmt.Errorf("invalid TECHSTORE_WAREHOUSE_SCHEMA: %q", w.Schema)
	}
	return nil
}

func (d DatabricksConfig) validate() error {
	missing := make([]string, 0, 3)
	if d.Host == "" {
		missing = append(missing, EnvDatabricksHost)
	}
	if d.HTTPPath == "" {
		missing = append(missing, EnvDatabricksHTTPPath)
	}
	if d.Token == "" {
		missing = append(missing, EnvDatabricksToken)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required Databricks environment variables: %s", strings.Join(missing, ", "))
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("invalid TECHSTORE_DATABRICKS_PORT: %d", d.Port)
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "techstore-api", Version: "1.0.0"},
		HTTP: HTTPConfig{
			Address:           ":8000",
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
			DependencyTimeout: 5 * time.Second,
		},
		Warehouse: WarehouseConfig{
			Driver:  DriverDatabricks,
			Catalog: "workspace",
			Schema:  "techstore",
		},
		Databricks: DatabricksConfig{
			Port: 443,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		ObjectStore: ObjectStoreConfig{
			Region:           "us-east-1",
			Bucket:           "techstore-gold",
			UseSSL:           false,
			AutoCreateBucket: true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
