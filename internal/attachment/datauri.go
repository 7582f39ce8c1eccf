package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// data:[<mediatype>][;base64],<data>
var dataURIPattern = regexp.MustCompile(`^data:(.+?)(;base64)?,(.*)$`)

// ErrNotDataURI is returned for strings that are not data: URIs.
var ErrNotDataURI = errors.New("not a data URI")

// DataURI is a decoded inline payload.
type DataURI struct {
	MIME string
	Data []byte
}

// ParseDataURI decodes a data: URI. Base64 payloads may be padded or not;
// other payloads are percent-decoded.
func ParseDataURI(s string) (DataURI, error) {
	m := dataURIPattern.FindStringSubmatch(s)
	if m == nil {
		return DataURI{}, ErrNotDataURI
	}
	mime, isBase64, payload := m[1], m[2] != "", m[3]

	if !isBase64 {
		text, err := url.PathUnescape(payload)
		if err != nil {
			return DataURI{}, fmt.Errorf("decode data URI: %w", err)
		}
		return DataURI{MIME: mime, Data: []byte(text)}, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(payload)
		if rawErr != nil {
			return DataURI{}, fmt.Errorf("decode data URI: %w", err)
		}
	}
	return DataURI{MIME: mime, Data: data}, nil
}
