package data

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is one flat observation: field name to scalar. Values are float64,
// bool, string or nil for a missing value.
type Record map[string]any

func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NormalizeRecord converts decoded JSON or MQTT payload values into the
// scalar set a Record may hold.
func NormalizeRecord(in map[string]any) (Record, error) {
	out := make(Record, len(in))
	for k, v := range in {
		n, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return t, nil
	case float64:
		if math.IsNaN(t) {
			return nil, nil
		}
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ToFloat interprets a cell as a number. Booleans count as 1 and 0, numeric
// strings are parsed exactly before conversion.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return 0, false
		}
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		f, _ := d.Float64()
		return f, true
	default:
		return 0, false
	}
}

// FormatValue renders a cell the way it appears in the observation log and in
// one-hot column names.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// ParseValue is the inverse of FormatValue for log cells.
func ParseValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	if strings.EqualFold(trimmed, "true") {
		return true
	}
	if strings.EqualFold(trimmed, "false") {
		return false
	}
	if d, err := decimal.NewFromString(trimmed); err == nil {
		f, _ := d.Float64()
		return f
	}
	return s
}
