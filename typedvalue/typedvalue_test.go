package typedvalue_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultdoc/fieldcrypt/typedvalue"
)

func roundTrip(t *testing.T, v interface{}) interface{} {
	t.Helper()
	marker, data, err := typedvalue.Encode(v)
	require.NoError(t, err)
	out, err := typedvalue.Decode(marker, data)
	require.NoError(t, err)
	return out
}

func TestRoundTripScalars(t *testing.T) {
	require.Equal(t, true, roundTrip(t, true))
	require.Equal(t, false, roundTrip(t, false))
	require.Equal(t, "hello world", roundTrip(t, "hello world"))
	require.Equal(t, "", roundTrip(t, ""))
}

func TestRoundTripIntegerStaysInteger(t *testing.T) {
	marker, _, err := typedvalue.Encode(json.Number("42"))
	require.NoError(t, err)
	require.Equal(t, typedvalue.MarkerLong, marker)
	require.Equal(t, int64(42), roundTrip(t, json.Number("42")))
	require.Equal(t, int64(-7), roundTrip(t, json.Number("-7")))
}

func TestRoundTripFloatStaysFloat(t *testing.T) {
	marker, _, err := typedvalue.Encode(json.Number("3.14"))
	require.NoError(t, err)
	require.Equal(t, typedvalue.MarkerDouble, marker)
	require.InDelta(t, 3.14, roundTrip(t, json.Number("3.14")), 1e-12)
}

func TestRoundTripArray(t *testing.T) {
	in := []interface{}{json.Number("1"), "two", true, nil}
	out := roundTrip(t, in)
	outArr, ok := out.([]interface{})
	require.True(t, ok)
	require.Len(t, outArr, 4)
	require.Equal(t, json.Number("1"), outArr[0])
	require.Equal(t, "two", outArr[1])
	require.Equal(t, true, outArr[2])
	require.Nil(t, outArr[3])
}

func TestRoundTripObject(t *testing.T) {
	in := map[string]interface{}{
		"a": json.Number("1"),
		"b": "two",
		"c": map[string]interface{}{"nested": true},
	}
	out := roundTrip(t, in)
	outObj, ok := out.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, json.Number("1"), outObj["a"])
	require.Equal(t, "two", outObj["b"])
	nested, ok := outObj["c"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, true, nested["nested"])
}

func TestDecodeRejectsTruncatedFixedWidth(t *testing.T) {
	_, err := typedvalue.Decode(typedvalue.MarkerLong, []byte{1, 2, 3})
	require.Error(t, err)

	_, err = typedvalue.Decode(typedvalue.MarkerBoolean, nil)
	require.Error(t, err)
}

func TestDecodeRejectsInvalidUTF8String(t *testing.T) {
	_, err := typedvalue.Decode(typedvalue.MarkerString, []byte{0xff, 0xfe})
	require.Error(t, err)
}

func TestDecodeRejectsUnknownMarker(t *testing.T) {
	_, err := typedvalue.Decode(typedvalue.Marker(250), []byte("x"))
	require.Error(t, err)
}

func TestEncodeFloat64Input(t *testing.T) {
	marker, _, err := typedvalue.Encode(float64(10))
	require.NoError(t, err)
	require.Equal(t, typedvalue.MarkerLong, marker)

	marker, _, err = typedvalue.Encode(float64(10.5))
	require.NoError(t, err)
	require.Equal(t, typedvalue.MarkerDouble, marker)
}
