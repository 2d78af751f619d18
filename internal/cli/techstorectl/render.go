package techstorectl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v2"
)

func render(w io.Writer, format string, columns []string, body []byte) error {
	switch format {
	case FormatTable:
		return renderTable(w, columns, body)
	case FormatYAML:
		value, err := decodeBody(body)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s", out)
		return nil
	default:
		if pretty, ok := prettyJSON(body); ok {
			_, _ = fmt.Fprintln(w, pretty)
		} else if len(body) > 0 {
			_, _ = fmt.Fprintln(w, string(body))
		}
		return nil
	}
}

// renderTable prints one row per object; a bare object is a single row and
// null prints the header only.
func renderTable(w io.Writer, columns []string, body []byte) error {
	value, err := decodeBody(body)
	if err != nil {
		return err
	}

	var records []map[string]any
	switch v := value.(type) {
	case nil:
	case map[string]any:
		records = append(records, v)
	case []any:
		for i, item := range v {
			record, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("row %d is not an object", i)
			}
			records = append(records, record)
		}
	default:
		return fmt.Errorf("unexpected response %T", value)
	}

	data := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, 0, len(columns))
		for _, column := range columns {
			row = append(row, cell(record[column]))
		}
		data = append(data, row)
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(columns)
	table.AppendBulk(data)
	table.Render()
	return nil
}

func decodeBody(body []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return value, nil
}

func cell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
