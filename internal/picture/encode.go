package picture

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
)

// Encoder writes img to w in a single output format.
type Encoder func(w io.Writer, img image.Image) error

const (
	jpegQuality = 80
	webpQuality = 80
	avifQuality = 60
	avifSpeed   = 8
)

// DefaultEncoders returns the encoder set keyed by lowercase format name.
func DefaultEncoders() map[string]Encoder {
	jpeg := imagingEncoder(imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	tiff := imagingEncoder(imaging.TIFF)
	return map[string]Encoder{
		"jpg":  jpeg,
		"jpeg": jpeg,
		"png":  imagingEncoder(imaging.PNG),
		"gif":  imagingEncoder(imaging.GIF),
		"tif":  tiff,
		"tiff": tiff,
		"bmp":  imagingEncoder(imaging.BMP),
		"webp": func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, webp.Options{Quality: webpQuality, Method: 4})
		},
		"avif": func(w io.Writer, img image.Image) error {
			return avif.Encode(w, img, avif.Options{Quality: avifQuality, QualityAlpha: avifQuality, Speed: avifSpeed})
		},
	}
}

func imagingEncoder(f imaging.Format, opts ...imaging.EncodeOption) Encoder {
	return func(w io.Writer, img image.Image) error {
		return imaging.Encode(w, img, f, opts...)
	}
}

// resize scales img to width keeping the aspect ratio. Images narrower than
// width are returned unchanged.
func resize(img image.Image, width int) image.Image {
	if img.Bounds().Dx() <= width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

func lookupEncoder(encoders map[string]Encoder, format string) (Encoder, error) {
	enc, ok := encoders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no encoder for format %q", format)
	}
	return enc, nil
}
