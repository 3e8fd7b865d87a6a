// Package selfie decodes captured selfies and prepares them for storage.
package selfie

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrEmpty is returned for an empty payload.
var ErrEmpty = errors.New("selfie: empty image")

// Decode parses a data URL ("data:image/png;base64,...") or bare base64 and
// returns the raw image bytes.
func Decode(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmpty
	}
	if strings.HasPrefix(payload, "data:") {
		meta, data, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, fmt.Errorf("selfie: malformed data url")
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("selfie: data url is not base64 encoded")
		}
		payload = data
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("selfie: decode base64: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmpty
	}
	return raw, nil
}

// Normalize decodes raw, shrinks it to fit within maxSide pixels on its longer
// edge and re-encodes it as JPEG. Smaller images keep their size.
func Normalize(raw []byte, maxSide int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("selfie: decode image: %w", err)
	}
	if maxSide > 0 {
		b := img.Bounds()
		if b.Dx() > maxSide || b.Dy() > maxSide {
			img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("selfie: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
