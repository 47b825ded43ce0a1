package doccrypt

import (
	"bytes"
	"encoding/json"
)

// unmarshalPreservingNumbers decodes data the way every other
// top-level document parse in this package does: numbers come back as
// json.Number rather than float64, so an integer property round-trips
// through encryption without becoming a float.
func unmarshalPreservingNumbers(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
