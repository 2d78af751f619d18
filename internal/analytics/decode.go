package analytics

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/techstore/techstore-api/internal/warehouse"
)

// rowReader pulls typed columns out of a warehouse row and remembers the
// first conversion failure, so record decoders read straight through.
type rowReader struct {
	row warehouse.Row
	err error
}

func (r *rowReader) fail(column string, value any, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: cannot decode %T as %s", column, value, want)
	}
}

func (r *rowReader) value(column string, required bool) (any, bool) {
	value, ok := r.row.Get(column)
	if !ok || value == nil {
		if required && r.err == nil {
			r.err = fmt.Errorf("column %s: required value is missing", column)
		}
		return nil, false
	}
	return value, true
}

func (r *rowReader) Int(column string) int64 {
	value, ok := r.value(column, true)
	if !ok {
		return 0
	}
	n, ok := toInt64(value)
	if !ok {
		r.fail(column, value, "integer")
	}
	return n
}

func (r *rowReader) OptionalInt(column string) *int64 {
	value, ok := r.value(column, false)
	if !ok {
		return nil
	}
	n, ok := toInt64(value)
	if !ok {
		r.fail(column, value, "integer")
		return nil
	}
	return &n
}

func (r *rowReader) String(column string) string {
	value, ok := r.value(column, true)
	if !ok {
		return ""
	}
	s, ok := toString(value)
	if !ok {
		r.fail(column, value, "string")
	}
	return s
}

func (r *rowReader) OptionalString(column string) *string {
	value, ok := r.value(column, false)
	if !ok {
		return nil
	}
	s, ok := toString(value)
	if !ok {
		r.fail(column, value, "string")
		return nil
	}
	return &s
}

func (r *rowReader) Decimal(column string) decimal.Decimal {
	value, ok := r.value(column, true)
	if !ok {
		return decimal.Zero
	}
	d, ok := toDecimal(value)
	if !ok {
		r.fail(column, value, "decimal")
	}
	return d
}

func (r *rowReader) OptionalDecimal(column string) *decimal.Decimal {
	value, ok := r.value(column, false)
	if !ok {
		return nil
	}
	d, ok := toDecimal(value)
	if !ok {
		r.fail(column, value, "decimal")
		return nil
	}
	return &d
}

func (r *rowReader) OptionalTime(column string) *time.Time {
	value, ok := r.value(column, false)
	if !ok {
		return nil
	}
	t, ok := toTime(value)
	if !ok {
		r.fail(column, value, "timestamp")
		return nil
	}
	return &t
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case int:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		return int64(v), true
	case float32:
		return toInt64(float64(v))
	case *big.Int:
		if v == nil || !v.IsInt64() {
			return 0, false
		}
		return v.Int64(), true
	case decimal.Decimal:
		if !v.IsInteger() {
			return 0, false
		}
		return v.IntPart(), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			d, derr := decimal.NewFromString(strings.TrimSpace(v))
			if derr != nil || !d.IsInteger() {
				return 0, false
			}
			return d.IntPart(), true
		}
		return n, true
	default:
		return 0, false
	}
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case *big.Int:
		if v == nil {
			return decimal.Zero, false
		}
		return decimal.NewFromBigInt(v, 0), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		if n, ok := toInt64(value); ok {
			return decimal.NewFromInt(n), true
		}
		return decimal.Zero, false
	}
}

func toString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
