package media

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"github.com/go-faster/errors"
	"github.com/nfnt/resize"
)

// Resizer downscales images wider than MaxWidth, keeping the aspect ratio.
// Narrower images and formats it cannot decode pass through untouched.
type Resizer struct {
	MaxWidth int
	Quality  int
}

// NewResizer returns nil when maxWidth is not positive, i.e. resizing is off.
func NewResizer(maxWidth int) *Resizer {
	if maxWidth <= 0 {
		return nil
	}
	return &Resizer{MaxWidth: maxWidth, Quality: 85}
}

// Transform implements upload.Transformer.
func (r *Resizer) Transform(_ string, data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, nil
	}

	bounds := img.Bounds()
	if r.MaxWidth <= 0 || bounds.Dx() <= r.MaxWidth {
		return data, nil
	}

	height := uint(float64(r.MaxWidth) * float64(bounds.Dy()) / float64(bounds.Dx()))
	resized := resize.Resize(uint(r.MaxWidth), height, img, resize.Lanczos3)

	var buf bytes.Buffer
	if format == "png" {
		err = png.Encode(&buf, resized)
	} else {
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: r.Quality})
	}
	if err != nil {
		return nil, errors.Wrap(err, "encode resized image")
	}
	return buf.Bytes(), nil
}
