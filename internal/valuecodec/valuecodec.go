// Package valuecodec infers the wire Type of a value and provides Encode,
// the normalization seam for values stored in a Record. The binary<->base64
// wrapping is done by the record package's JSON methods, not here. It is
// deliberately free of any dependency on the record package so that record
// can depend on it instead of the reverse.
package valuecodec

import "reflect"

// Type is the inferred payload kind of a stored value.
type Type string

const (
	TypeString Type = "string"
	TypeNumber Type = "number"
	TypeBinary Type = "binary"
	TypeObject Type = "object"
	TypeArray  Type = "array"
	TypeList   Type = "list"
)

// Infer determines the wire Type for v: nil -> string, string -> string,
// numeric -> number, []byte -> binary, slice -> array, anything else ->
// object. Callers needing the TypeList tag (list meta records) set it
// explicitly; Infer never returns it.
func Infer(v any) Type {
	switch v.(type) {
	case nil:
		return TypeString
	case string:
		return TypeString
	case []byte:
		return TypeBinary
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return TypeNumber
	case []any, []string, []int, []float64:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		if k := reflect.ValueOf(v).Kind(); k == reflect.Slice || k == reflect.Array {
			return TypeArray
		}
		return TypeObject
	}
}

// Encode normalizes v for storage in Record.Value. Values pass through
// verbatim; this exists as the single seam where future coercions (e.g.
// numeric widening) would live.
func Encode(v any) any {
	return v
}
