package qr

import (
	"fmt"
	"image"
	_ "image/png"
	"os"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"golang.org/x/text/encoding/charmap"
)

// Decode reads the payload of the QR symbol in img. The result holds the
// payload bytes exactly as encoded, so it equals the original content for
// UTF-8 text and arbitrary binary strings alike.
func Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("qr: create bitmap: %w", err)
	}

	// ISO-8859-1 maps every byte to the rune of the same value, which
	// lets payloadBytes recover the raw bytes.
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_CHARACTER_SET: charmap.ISO8859_1,
		gozxing.DecodeHintType_TRY_HARDER:    true,
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("qr: no QR code found in image: %w", err)
	}
	return payloadBytes(result.GetText()), nil
}

// payloadBytes undoes the ISO-8859-1 decoding. Symbols carrying an ECI
// designator are decoded in their declared charset and returned as is.
func payloadBytes(text string) string {
	raw := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0xFF {
			return text
		}
		raw = append(raw, byte(r))
	}
	return string(raw)
}

// DecodeFile opens an image file (png, bmp or tiff) and decodes it.
func DecodeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("qr: open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("qr: decode image %s: %w", path, err)
	}
	return Decode(img)
}
