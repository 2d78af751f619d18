package fixtures

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// EncodeParquet writes rows as a single Parquet file using the struct tags of T
// as the schema.
func EncodeParquet[T any](rows []T) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
