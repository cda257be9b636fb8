package picture

import (
	"bytes"
	"encoding/base64"
	"image"

	"github.com/disintegration/imaging"
)

const (
	previewWidth   = 16
	previewQuality = 50
)

// Preview returns a tiny JPEG rendition of img as a base64 data URI.
func Preview(img image.Image) (string, error) {
	small := imaging.Resize(img, previewWidth, 0, imaging.Box)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
