package analytics

import (
	"fmt"
	"strconv"
	"strings"
)

// Bounds is the accepted range of one integer query parameter.
type Bounds struct {
	Name    string
	Min     int
	Max     int
	Default int
}

var (
	TopCustomersLimit = Bounds{Name: "limit", Min: 1, Max: 100, Default: 10}
	SegmentLimit      = Bounds{Name: "limit", Min: 1, Max: 200, Default: 50}
	BestSellersLimit  = Bounds{Name: "limit", Min: 1, Max: 100, Default: 10}
	SummaryDays       = Bounds{Name: "days", Min: 1, Max: 365, Default: 30}
	TrendMonths       = Bounds{Name: "months", Min: 1, Max: 24, Default: 12}
)

// LowStockLimit caps the low-stock listing; callers cannot change it.
const LowStockLimit = 50

// ValidSegments lists the RFM segments in the order they are reported.
var ValidSegments = []string{"VIP", "Loyal", "New", "At Risk", "Lost", "Regular"}

// ValidationError rejects a request before any statement is built.
type ValidationError struct {
	Field   string
	Message string
	Min     int
	Max     int
	Allowed []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (b Bounds) Check(value int) error {
	if value < b.Min || value > b.Max {
		return b.rangeError()
	}
	return nil
}

// Parse reads a raw query value. Empty or non-integer input is rejected the
// same way as an out-of-range number.
func (b Bounds) Parse(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, b.rangeError()
	}
	if err := b.Check(value); err != nil {
		return 0, err
	}
	return value, nil
}

func (b Bounds) rangeError() *ValidationError {
	return &ValidationError{
		Field:   b.Name,
		Message: fmt.Sprintf("%s must be an integer between %d and %d", b.Name, b.Min, b.Max),
		Min:     b.Min,
		Max:     b.Max,
	}
}

// CheckSegment is case-sensitive: "vip" is not a segment.
func CheckSegment(segment string) error {
	for _, valid := range ValidSegments {
		if segment == valid {
			return nil
		}
	}
	allowed := make([]string, len(ValidSegments))
	copy(allowed, ValidSegments)
	return &ValidationError{
		Field:   "segment",
		Message: "Invalid segment. Must be one of: " + strings.Join(ValidSegments, ", "),
		Allowed: allowed,
	}
}
