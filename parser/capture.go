package parser

import (
	"fmt"
	"reflect"
	"time"

	"github.com/willibrandon/stlog/core"
)

// Capture applies the capture rule for a single argument.
//
// Scalars and nil pass through unchanged. Functions are replaced with their
// type signature. Structured values (structs, maps, slices, pointers) are
// kept only when destructure is set or when they are date-like; otherwise
// they are stringified with fmt.
func Capture(value any, destructure bool) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64, complex64, complex128:
		return value
	case time.Time, core.Timestamped:
		return v
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Func:
		return fmt.Sprintf("%T", value)
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		// Named scalar types such as time.Duration.
		return value
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
	}

	if destructure {
		return value
	}
	return fmt.Sprint(value)
}
