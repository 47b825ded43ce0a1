package doccrypt

import (
	"encoding/json"
	"fmt"

	"github.com/vaultdoc/fieldcrypt/errors"
)

// coerceSidecar converts the generic interface{} a document's _ei
// property decoded to (a map[string]interface{} once the surrounding
// document was parsed generically) into a typed Sidecar. Round
// tripping through json.Marshal/Unmarshal is what gives EncryptedData
// its base64 decode for free ([]byte fields unmarshal from a base64
// JSON string).
func coerceSidecar(raw interface{}) (*Sidecar, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.E(errors.FormatViolation, "re-serializing sidecar", err)
	}
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.E(errors.FormatViolation, "parsing sidecar", err)
	}
	return &s, nil
}

func unsupportedVersionMessage(version int) string {
	return fmt.Sprintf("format version %d is not supported; upgrade the reader to decrypt this document", version)
}
