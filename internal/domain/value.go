package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Layouts of DATA_ATUALIZACAO_FORMATADA. The fractional one is used for the
// whole column as soon as any row has a sub-second part, so the column stays
// uniform, e.g. "2025-08-26 11:03:11-03:00" or "2025-08-26 11:03:11.123000-03:00".
const (
	TimestampLayout         = "2006-01-02 15:04:05-07:00"
	TimestampLayoutFraction = "2006-01-02 15:04:05.000000-07:00"
)

// FormatValue returns the text form of an attribute value as written to the
// output file. Null and NaN become the empty string; numbers use the shortest
// decimal representation.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(TimestampLayout)
	default:
		return fmt.Sprint(x)
	}
}

// toFloat reads a numeric attribute value.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
