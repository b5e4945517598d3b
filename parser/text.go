package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/willibrandon/stlog/core"
)

const (
	maxStructuredTextLength = 70
	truncatedTextLength     = 67
)

// ISOTimestampLayout is the layout used for date-like values: UTC with
// millisecond precision.
const ISOTimestampLayout = "2006-01-02T15:04:05.000Z"

// ToText renders a property value as message text.
func ToText(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v, 64)
	case float32:
		return formatFloat(float64(v), 32)
	case time.Time:
		return v.UTC().Format(ISOTimestampLayout)
	case core.Timestamped:
		return v.ISOTimestamp()
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	kind := rv.Kind()
	if kind == reflect.Pointer {
		if rv.IsNil() {
			return "null"
		}
		kind = rv.Elem().Kind()
	}

	switch kind {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		if text, ok := structuredText(value); ok {
			return text
		}
	}

	return fmt.Sprint(value)
}

// structuredText serializes value as JSON, cut down to 70 characters.
func structuredText(value any) (string, bool) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", false
	}
	text := string(bytes.TrimRight(buf.Bytes(), "\n"))

	if utf8.RuneCountInString(text) > maxStructuredTextLength {
		runes := []rune(text)
		return string(runes[:truncatedTextLength]) + "...", true
	}
	return text, true
}

// formatFloat writes integral values without a fraction and avoids exponent
// notation for everyday magnitudes.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, bitSize)
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}
