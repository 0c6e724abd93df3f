// Package core provides amount parsing for transaction rows.
//
// Amounts arrive from the backend as JSON numbers, numeric strings or native
// numbers depending on the adapter. They are converted to decimal.Decimal so
// aggregates never accumulate floating point drift.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decoded amount value to a decimal.
//
// Examples:
//
//	ParseAmount(json.Number("12.34")) -> 12.34
//	ParseAmount("1,000")              -> error
//	ParseAmount(float64(0.1))         -> 0.1
//	ParseAmount(nil)                  -> 0
func ParseAmount(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return val, nil
	case json.Number:
		return parseDecimalString(val.String())
	case string:
		return parseDecimalString(val)
	case float64:
		return decimal.NewFromFloat(val), nil
	case float32:
		return decimal.NewFromFloat32(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case []byte:
		return parseDecimalString(string(val))
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
}

func parseDecimalString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	// Grouping and decimal commas are ambiguous ("1,000"), so neither is read.
	if strings.Contains(s, ",") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// JSONNumber renders d as a JSON number literal.
func JSONNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
