package record

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
)

// FormatCell renders a cell value the way it takes part in hashing and in
// formatted columns.
//
// Integral floats inside the int64 range print like integers so that cells
// which compare equal under CellsEqual always render identically.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case bool:
		if val {
			return "True"
		}
		return "False"
	case []byte:
		return string(val)
	case float32:
		return formatFloat(float64(val))
	case float64:
		return formatFloat(val)
	}
	if i, ok := asInt(v); ok {
		return strconv.FormatInt(i, 10)
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if i, ok := floatAsInt(f); ok {
		return strconv.FormatInt(i, 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// CellsEqual compares two cell values. Numbers compare by value across Go
// numeric types; everything else uses deep equality.
func CellsEqual(a, b any) bool {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	af, aFloat := asFloat(a)
	bf, bFloat := asFloat(b)

	switch {
	case aInt && bInt:
		return ai == bi
	case aFloat && bFloat:
		return af == bf
	case aInt && bFloat:
		i, ok := floatAsInt(bf)
		return ok && i == ai
	case aFloat && bInt:
		i, ok := floatAsInt(af)
		return ok && i == bi
	}
	return reflect.DeepEqual(a, b)
}

// asInt reports the value of any Go integer type that fits in an int64.
func asInt(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	}
	return 0, false
}

// floatAsInt converts integral floats that fit in an int64.
func floatAsInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// sentinelHash is reserved to mean "not computed" and never returned by Hash.
const sentinelHash = math.MaxUint32

// hashString folds s through a 32-bit multiplicative rolling hash over its
// code points.
func hashString(s string) uint32 {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}
	x := uint32(runes[0]) << 7
	for _, c := range runes {
		x = (x * 1000003) ^ uint32(c)
	}
	x ^= uint32(len(runes))
	if x == sentinelHash {
		x = sentinelHash - 1
	}
	return x
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
