package imageanalysis

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrTooSmall is returned for images below the minimum dimension, typically
// bullets, rules and logos.
var ErrTooSmall = errors.New("image too small to analyse")

// Decode decodes any registered format: jpeg, png, gif, bmp, tiff and webp.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Prepare scales img so its longest side fits maxDim and encodes it as JPEG,
// lowering quality until the result fits maxBytes.
func Prepare(img image.Image, minDim, maxDim int, maxBytes int64) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() < minDim || b.Dy() < minDim {
		return nil, ErrTooSmall
	}

	if maxDim > 0 && (b.Dx() > maxDim || b.Dy() > maxDim) {
		img = downscale(img, maxDim)
	}

	var buf bytes.Buffer
	for _, quality := range []int{90, 80, 65, 50, 35} {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if maxBytes <= 0 || int64(buf.Len()) <= maxBytes {
			return buf.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("image still %d bytes after compression, limit is %d", buf.Len(), maxBytes)
}

func downscale(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
