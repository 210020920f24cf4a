package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/datalib/internal/record"
	"github.com/roach88/datalib/internal/txn"
)

// JSON renders s and its children as canonical JSON.
//
// A collection becomes {"columns": [...], "rows": [...]}; columns is omitted
// for positional collections. Each row is {"values": ...} with an optional
// "children" collection. Named values are objects, positional values arrays.
func JSON(s txn.Store) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCollection(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCanonical renders a single cell value as canonical JSON.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCollection(buf *bytes.Buffer, s txn.Store) error {
	names := s.Names()
	named := s.Kind() == record.Named

	// "columns" < "rows" in UTF-16 order.
	buf.WriteByte('{')
	if named {
		buf.WriteString(`"columns":[`)
		for i, n := range names {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, n)
		}
		buf.WriteString("],")
	}
	buf.WriteString(`"rows":[`)
	for i, row := range s.Rows() {
		if i > 0 {
			buf.WriteByte(',')
		}
		// "children" < "values".
		buf.WriteByte('{')
		if child := s.Child(i); child != nil {
			buf.WriteString(`"children":`)
			if err := writeCollection(buf, child); err != nil {
				return fmt.Errorf("row %d children: %w", i, err)
			}
			buf.WriteByte(',')
		}
		buf.WriteString(`"values":`)
		var err error
		if named {
			err = writeRowObject(buf, names, row)
		} else {
			err = writeArray(buf, row)
		}
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		buf.WriteByte('}')
	}
	buf.WriteString("]}")
	return nil
}

func writeRowObject(buf *bytes.Buffer, names []string, row []any) error {
	obj := make(map[string]any, len(names))
	for i, n := range names {
		if i < len(row) {
			obj[n] = row[i]
		}
	}
	return writeObject(buf, obj)
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case string:
		writeString(buf, val)
	case []byte:
		writeString(buf, string(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int8, int16, int32, int64:
		fmt.Fprintf(buf, "%d", val)
	case uint, uint8, uint16, uint32, uint64:
		fmt.Fprintf(buf, "%d", val)
	case float32:
		return writeFloat(buf, float64(val))
	case float64:
		return writeFloat(buf, val)
	case []any:
		return writeArray(buf, val)
	case map[string]any:
		return writeObject(buf, val)
	default:
		writeString(buf, record.FormatCell(val))
	}
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number %v cannot be rendered as JSON", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

func writeArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		if err := writeValue(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeString writes s NFC-normalized, without HTML escaping and with
// U+2028/U+2029 left literal.
func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(norm.NFC.String(s))
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(unescapeLineSeparators(out))
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// number of backslashes is literal text and stays.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') && trailingBackslashes(out)%2 == 0 {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i])
	}
	return out
}

func trailingBackslashes(b []byte) int {
	n := 0
	for j := len(b) - 1; j >= 0 && b[j] == '\\'; j-- {
		n++
	}
	return n
}

// compareUTF16 orders strings by UTF-16 code units as RFC 8785 requires;
// Go's native comparison uses UTF-8 bytes and disagrees above U+FFFF.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
