// Package inputs decodes solve payloads and archives them under a content
// address.
package inputs

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotBase64 = errors.New("image must be base64 encoded")
	ErrTooLarge  = errors.New("image too large")
)

// Image is a decoded solve payload.
type Image struct {
	Data        []byte
	ContentType string
}

// DataURL renders the image in the form accepted by vision models.
func (i Image) DataURL() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Decode accepts either bare base64 (standard or URL alphabet, padding
// optional) or a data URL. maxBytes bounds the decoded size; zero means no
// bound. The content type comes from the data URL when present and is
// sniffed otherwise.
func Decode(payload string, maxBytes int) (Image, error) {
	payload = strings.TrimSpace(payload)

	var declared string
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		meta, body, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return Image{}, ErrNotBase64
		}
		declared = strings.TrimSuffix(meta, ";base64")
		payload = body
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return Image{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}

	data, err := decodeAny(payload)
	if err != nil || len(data) == 0 {
		return Image{}, ErrNotBase64
	}

	if maxBytes > 0 && len(data) > maxBytes {
		return Image{}, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), maxBytes)
	}

	ct := declared
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	return Image{Data: data, ContentType: ct}, nil
}

func decodeAny(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var err error
	for _, enc := range encodings {
		var data []byte
		if data, err = enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, err
}
