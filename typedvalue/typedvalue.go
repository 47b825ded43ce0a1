// Package typedvalue implements lossless conversion between a decoded
// JSON value and a byte buffer tagged with the JSON type it came from,
// so that after encryption and decryption a value comes back as the
// same Go type it started as (bool stays bool, an integer doesn't
// become a float, an array stays an array) rather than merely "some
// JSON value with the same printed form".
package typedvalue

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/vaultdoc/fieldcrypt/errors"
)

// Marker tags the original JSON type of an encoded value. It is
// written as the first byte of a value's framed bytes by the header
// framer (see package framer), and is also the unit the typed value
// codec encodes/decodes against.
type Marker byte

const (
	// MarkerNull tags an explicit JSON null. The pipeline never
	// actually encodes a null property (callers skip it before
	// reaching this package), but the marker is reserved so a decoder
	// has a well-defined byte for it.
	MarkerNull Marker = 1
	// MarkerString tags a JSON string, encoded as its UTF-8 bytes.
	MarkerString Marker = 2
	// MarkerDouble tags a JSON number that did not parse exactly as a
	// signed 64-bit integer, encoded as an IEEE-754 big-endian double.
	MarkerDouble Marker = 3
	// MarkerLong tags a JSON number that parsed exactly as a signed
	// 64-bit integer, encoded as an 8-byte big-endian two's complement.
	MarkerLong Marker = 4
	// MarkerBoolean tags a JSON true/false, encoded as a single byte.
	MarkerBoolean Marker = 5
	// MarkerArray tags a JSON array, encoded as the UTF-8 bytes of its
	// compact JSON serialization.
	MarkerArray Marker = 6
	// MarkerObject tags a JSON object, encoded the same way as
	// MarkerArray.
	MarkerObject Marker = 7
	// MarkerCompressed is not a JSON type: it signals that the
	// plaintext following the outer header is itself framed by a
	// secondary compression header (see package framer) before one of
	// the markers above appears.
	MarkerCompressed Marker = 99
)

func (m Marker) String() string {
	switch m {
	case MarkerNull:
		return "null"
	case MarkerString:
		return "string"
	case MarkerDouble:
		return "double"
	case MarkerLong:
		return "long"
	case MarkerBoolean:
		return "boolean"
	case MarkerArray:
		return "array"
	case MarkerObject:
		return "object"
	case MarkerCompressed:
		return "compressed"
	default:
		return "unknown"
	}
}

// Encode serializes v, a decoded JSON value (bool, json.Number,
// float64, string, []interface{}, or map[string]interface{}), into
// its tagged byte form. Encode never receives a JSON null: callers
// skip null/absent properties before reaching the codec, per
// invariant 2.
func Encode(v interface{}) (Marker, []byte, error) {
	switch val := v.(type) {
	case nil:
		return MarkerNull, nil, nil
	case bool:
		b := byte(0)
		if val {
			b = 1
		}
		return MarkerBoolean, []byte{b}, nil
	case json.Number:
		if i, err := val.Int64(); err == nil && isExactInt(val, i) {
			return MarkerLong, encodeLong(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return 0, nil, errors.E(errors.FormatViolation, "encoding number", err)
		}
		return MarkerDouble, encodeDouble(f), nil
	case float64:
		if i := int64(val); float64(i) == val {
			return MarkerLong, encodeLong(i), nil
		}
		return MarkerDouble, encodeDouble(val), nil
	case int64:
		return MarkerLong, encodeLong(val), nil
	case string:
		return MarkerString, []byte(val), nil
	case []interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return 0, nil, errors.E(errors.Internal, "encoding array", err)
		}
		return MarkerArray, data, nil
	case map[string]interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return 0, nil, errors.E(errors.Internal, "encoding object", err)
		}
		return MarkerObject, data, nil
	default:
		return 0, nil, errors.E(errors.Internal, "unsupported Go value type in typedvalue.Encode")
	}
}

// isExactInt reports whether n's decimal text round-trips through i
// without loss (guards against values like 1e400 that Int64 may
// truncate rather than reject).
func isExactInt(n json.Number, i int64) bool {
	return n.String() == strconv.FormatInt(i, 10)
}

func encodeLong(i int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b
}

func encodeDouble(f float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(f))
	return b
}

// Decode deserializes data tagged with marker back into a decoded
// JSON value. Surplus bytes in data beyond what the marker's format
// requires are a format violation, not silently ignored.
func Decode(marker Marker, data []byte) (interface{}, error) {
	switch marker {
	case MarkerNull:
		if len(data) != 0 {
			return nil, errors.E(errors.FormatViolation, "null value carries payload bytes")
		}
		return nil, nil
	case MarkerBoolean:
		if len(data) != 1 {
			return nil, errors.E(errors.FormatViolation, "boolean value is not 1 byte")
		}
		return data[0] != 0, nil
	case MarkerLong:
		if len(data) != 8 {
			return nil, errors.E(errors.FormatViolation, "long value is not 8 bytes")
		}
		return int64(binary.BigEndian.Uint64(data)), nil
	case MarkerDouble:
		if len(data) != 8 {
			return nil, errors.E(errors.FormatViolation, "double value is not 8 bytes")
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	case MarkerString:
		if !utf8.Valid(data) {
			return nil, errors.E(errors.FormatViolation, "string value is not valid UTF-8")
		}
		return string(data), nil
	case MarkerArray:
		var v []interface{}
		if err := decodeJSON(data, &v); err != nil {
			return nil, errors.E(errors.FormatViolation, "decoding array value", err)
		}
		return v, nil
	case MarkerObject:
		var v map[string]interface{}
		if err := decodeJSON(data, &v); err != nil {
			return nil, errors.E(errors.FormatViolation, "decoding object value", err)
		}
		return v, nil
	default:
		return nil, errors.E(errors.FormatViolation, "unknown type marker")
	}
}

// decodeJSON unmarshals data preserving number precision (json.Number
// rather than float64), so nested numbers round-trip the same way
// top-level ones do. Anything but whitespace after the value is an
// error.
func decodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("surplus bytes after JSON value")
	}
	return nil
}
