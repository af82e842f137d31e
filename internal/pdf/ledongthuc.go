package pdf

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	lpdf "github.com/ledongthuc/pdf"
)

// ErrEncrypted is returned by FileOpener for password protected files.
var ErrEncrypted = errors.New("document is encrypted")

// FileOpener opens documents with github.com/ledongthuc/pdf.
type FileOpener struct{}

// NewFileOpener creates the default Opener.
func NewFileOpener() *FileOpener {
	return &FileOpener{}
}

// Open parses the cross-reference table of path. The parser reports some
// malformed inputs by panicking; those come back as errors.
func (o *FileOpener) Open(path string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("parse %s: %v", path, r)
		}
	}()

	f, r, err := lpdf.Open(path)
	if err != nil {
		if errors.Is(err, lpdf.ErrInvalidPassword) {
			return nil, ErrEncrypted
		}
		return nil, err
	}
	return &fileDocument{file: f, reader: r}, nil
}

type fileDocument struct {
	file   *os.File
	reader *lpdf.Reader
	fonts  map[string]*lpdf.Font
}

func (d *fileDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *fileDocument) page(n int) (lpdf.Page, error) {
	if n < 1 || n > d.NumPages() {
		return lpdf.Page{}, fmt.Errorf("page %d out of range", n)
	}
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return lpdf.Page{}, fmt.Errorf("page %d not found", n)
	}
	return p, nil
}

func (d *fileDocument) PageText(n int) (string, error) {
	p, err := d.page(n)
	if err != nil {
		return "", err
	}
	if d.fonts == nil {
		d.fonts = make(map[string]*lpdf.Font)
	}
	for _, name := range p.Fonts() {
		if _, ok := d.fonts[name]; !ok {
			f := p.Font(name)
			d.fonts[name] = &f
		}
	}
	return p.GetPlainText(d.fonts)
}

// columnGap is the horizontal distance, in points, that separates table cells.
const (
	columnGap     = 12.0
	avgGlyphWidth = 5.0
)

func (d *fileDocument) PageLines(n int) ([]string, error) {
	p, err := d.page(n)
	if err != nil {
		return nil, err
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		prevEnd := math.Inf(-1)
		for _, t := range row.Content {
			if b.Len() > 0 {
				if t.X-prevEnd > columnGap {
					b.WriteString("  ")
				} else if !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(t.S, " ") && t.X > prevEnd {
					b.WriteByte(' ')
				}
			}
			b.WriteString(t.S)
			width := t.W
			if width == 0 {
				width = float64(utf8.RuneCountInString(t.S)) * avgGlyphWidth
			}
			prevEnd = t.X + width
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return lines, nil
}

// PageImages decodes image XObjects stored as raw or Flate-compressed
// 8-bit DeviceRGB or DeviceGray samples. Other encodings are skipped.
func (d *fileDocument) PageImages(n int) (images []Image, err error) {
	p, err := d.page(n)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d images: %v", n, r)
		}
	}()

	xobjects := p.Resources().Key("XObject")
	names := xobjects.Keys()
	sort.Strings(names)
	for _, name := range names {
		obj := xobjects.Key(name)
		if obj.Key("Subtype").Name() != "Image" {
			continue
		}
		img, err := decodeSamples(obj)
		if err != nil {
			continue
		}
		images = append(images, Image{Page: n, Index: len(images), Name: name, Image: img})
	}
	return images, nil
}

func decodeSamples(v lpdf.Value) (image.Image, error) {
	switch f := v.Key("Filter"); f.Kind() {
	case lpdf.Null:
	case lpdf.Name:
		if f.Name() != "FlateDecode" {
			return nil, fmt.Errorf("unsupported image filter %s", f.Name())
		}
	default:
		return nil, fmt.Errorf("unsupported image filter chain")
	}
	if bpc := v.Key("BitsPerComponent").Int64(); bpc != 8 {
		return nil, fmt.Errorf("unsupported bits per component %d", bpc)
	}

	w, h := int(v.Key("Width").Int64()), int(v.Key("Height").Int64())
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", w, h)
	}

	var comps int
	switch v.Key("ColorSpace").Name() {
	case "DeviceRGB":
		comps = 3
	case "DeviceGray":
		comps = 1
	default:
		return nil, fmt.Errorf("unsupported color space")
	}

	rc := v.Reader()
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, int64(w*h*comps)))
	if err != nil {
		return nil, err
	}
	if len(data) < w*h*comps {
		return nil, fmt.Errorf("short image data: %d bytes", len(data))
	}

	if comps == 1 {
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, data)
		return img, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.SetRGBA(i%w, i/w, color.RGBA{R: data[i*3], G: data[i*3+1], B: data[i*3+2], A: 0xff})
	}
	return img, nil
}

func (d *fileDocument) Info() map[string]string {
	info := d.reader.Trailer().Key("Info")
	out := make(map[string]string)
	for _, key := range []string{"Title", "Author", "Subject", "Creator", "Producer", "CreationDate", "ModDate"} {
		if v := info.Key(key); !v.IsNull() {
			if s := strings.TrimSpace(v.Text()); s != "" {
				out[key] = s
			}
		}
	}
	return out
}

func (d *fileDocument) Close() error {
	return d.file.Close()
}
