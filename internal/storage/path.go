package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

const ParquetSuffix = ".parquet"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildTablePartPath names one Parquet part of a gold table snapshot:
// <table>/part-<sequence>.parquet.
func BuildTablePartPath(tableName string, sequence int) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	return path.Join(tableName, fmt.Sprintf("part-%05d%s", sequence, ParquetSuffix)), nil
}

// TablePrefix is the listing prefix for every part of tableName.
func TablePrefix(tableName string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return tableName + "/", nil
}

// SplitTableKey splits a snapshot object key into its table and file name.
// Keys are exactly two components: <table>/<file>.
func SplitTableKey(key string) (table, name string, err error) {
	table, name, ok := strings.Cut(key, "/")
	if !ok {
		return "", "", fmt.Errorf("invalid object key: %q", key)
	}
	if err := validatePathComponent(table, "table name"); err != nil {
		return "", "", err
	}
	if err := validatePathComponent(name, "file name"); err != nil {
		return "", "", err
	}
	return table, name, nil
}

func IsParquetKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), ParquetSuffix)
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
