package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders for image.Decode
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrImageTooLarge is returned by Apply when the header declares more
// pixels than Transform.MaxPixels allows.
var ErrImageTooLarge = errors.New("image dimensions exceed the allowed pixel count")

// Transform bounds every stored image: it is scaled down (never up) to fit
// inside MaxWidth x MaxHeight with its aspect ratio kept, flattened onto
// white, and re-encoded as JPEG at Quality.
//
// MaxPixels (when positive) caps the source image before decoding.
type Transform struct {
	MaxWidth  int
	MaxHeight int
	MaxPixels int
	Quality   int
}

// Apply decodes data (jpeg, png, gif or webp) and returns the normalized
// JPEG bytes.
//
// TWO-PHASE DECODE:
// The byte size of an upload says little about its decoded size: a
// compressed PNG of a few KiB can declare 20000x20000 pixels, and
// image.Decode allocates the full canvas up front. image.DecodeConfig
// reads only the header, so the pixel count is checked first and the
// expensive decode runs only for images within MaxPixels.
func (t Transform) Apply(data []byte) ([]byte, error) {
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("asset: reading image header: %w", err)
	}
	if t.MaxPixels > 0 && int64(header.Width)*int64(header.Height) > int64(t.MaxPixels) {
		return nil, fmt.Errorf("%w: %dx%d is over %d pixels", ErrImageTooLarge, header.Width, header.Height, t.MaxPixels)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("asset: decoding image: %w", err)
	}

	sb := src.Bounds()
	w, h := fit(sb.Dx(), sb.Dy(), t.MaxWidth, t.MaxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: t.Quality}); err != nil {
		return nil, fmt.Errorf("asset: encoding %s as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}

// fit returns the largest size with the same aspect ratio as w x h that
// fits inside maxW x maxH, or w x h itself if it already fits.
func fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	return min(nw, maxW), min(nh, maxH)
}
