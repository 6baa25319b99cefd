package exchange

import "strconv"

// asFloat coerces the mixed number/string cells exchange kline arrays carry.
// Unknown shapes decode to zero, which downstream treats as "no data".
func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	}
	return 0
}

// asInt64 coerces a kline timestamp cell.
func asInt64(v any) int64 {
	return int64(asFloat(v))
}
