// Package pathcode turns filesystem paths into opaque identifiers that are
// safe to embed in a URL path segment, and back.
//
// The encoding is base64 with the URL alphabet and padding, so identifiers
// produced by earlier deployments keep resolving. Decode also accepts
// unpadded input, since some clients strip trailing "=".
package pathcode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned when an identifier is not valid base64url.
var ErrInvalid = errors.New("invalid encoded path")

// Encode returns the URL-segment-safe identifier for path.
func Encode(path string) string {
	return base64.URLEncoding.EncodeToString([]byte(path))
}

// Decode reverses Encode.
func Decode(encoded string) (string, error) {
	raw := strings.TrimRight(encoded, "=")
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return string(b), nil
}
