package service

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/boddenberg/household-hub-bfa/internal/domain"

	"github.com/shopspring/decimal"
)

// NormalizePayload turns raw form values into the body the backend expects.
//
// Required fields must be present and non-blank. Numeric fields accept numbers
// or numeric strings ("1,200.50", "$80") and are sent as JSON numbers. Blank
// optional strings are dropped. Form keys are renamed to their API keys.
// Validation failures are returned before anything reaches the backend.
func NormalizePayload(sec *domain.Section, values map[string]any) (map[string]any, error) {
	for _, field := range sec.RequiredFields {
		if isBlank(values[field]) {
			return nil, &domain.ErrValidation{Field: field, Message: "required"}
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(values))
	for _, k := range keys {
		if k == "id" {
			continue
		}
		v := values[k]
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		if isBlank(v) {
			continue
		}

		if sec.IsNumeric(k) {
			d, ok := decimalFrom(v)
			if !ok {
				return nil, &domain.ErrValidation{Field: k, Message: "must be a number"}
			}
			n, ok := jsonNumber(d)
			if !ok {
				return nil, &domain.ErrValidation{Field: k, Message: "out of range"}
			}
			v = n
		}
		out[sec.APIKey(k)] = v
	}
	return out, nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// decimalFrom reads a money-like value.
func decimalFrom(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(t)
		if cleaned == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(cleaned)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// jsonNumber keeps integers integral on the wire. It reports false for
// integers outside int64 and for values a float64 cannot hold.
func jsonNumber(d decimal.Decimal) (any, bool) {
	if d.IsInteger() {
		if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
			return nil, false
		}
		return d.IntPart(), true
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, false
	}
	return f, true
}
