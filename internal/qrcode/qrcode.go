// Package qrcode renders short links as PNG QR codes.
package qrcode

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length of generated images in pixels.
const DefaultSize = 256

const dataURLPrefix = "data:image/png;base64,"

// MakeDataURL encodes text as a QR code and returns it as a PNG data URL.
func MakeDataURL(text string, size int) (string, error) {
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}

	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
