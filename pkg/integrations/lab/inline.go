package lab

import (
	"encoding/base64"
	"strings"

	"github.com/matzehuels/gradlab/pkg/layer"
)

// decodeInline returns the payload of a base64 data URL. Services sometimes
// inline small rasters instead of returning a link.
func decodeInline(u string) ([]byte, bool) {
	if !strings.HasPrefix(u, "data:") || !strings.Contains(u, ";base64,") {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(layer.StripEnvelope(u))
	if err != nil {
		return nil, false
	}
	return data, true
}
