// Package pdf opens legal PDFs and pulls out their text, layout lines and
// embedded images behind a small interface so the parser can be swapped.
package pdf

import (
	"image"
	"time"
)

// Default limits.
const (
	DefaultMaxSizeBytes = 500 << 20
	DefaultMaxPages     = 10000
	DefaultOpenTimeout  = 30 * time.Second
)

// Limits bound what a single document may cost.
type Limits struct {
	MaxSizeBytes int64
	MaxPages     int
	OpenTimeout  time.Duration
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxSizeBytes: DefaultMaxSizeBytes,
		MaxPages:     DefaultMaxPages,
		OpenTimeout:  DefaultOpenTimeout,
	}
}

// Image is a picture embedded in a page. Backends fill either Image with
// decoded pixels or Data with an encoded stream (JPEG, PNG, WebP ...).
type Image struct {
	Page  int
	Index int
	Name  string
	Image image.Image
	Data  []byte
}

// Document is an open PDF. Page numbers start at 1.
type Document interface {
	NumPages() int
	PageText(page int) (string, error)
	// PageLines returns the page text row by row, with wide horizontal gaps
	// rendered as runs of at least two spaces.
	PageLines(page int) ([]string, error)
	PageImages(page int) ([]Image, error)
	// Info returns the document information dictionary (Title, Author, ...).
	Info() map[string]string
	Close() error
}

// Opener opens documents from the filesystem.
type Opener interface {
	Open(path string) (Document, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Document, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Document, error) {
	return f(path)
}
