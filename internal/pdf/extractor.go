package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/logger"
)

// PageText is the raw text of one page.
type PageText struct {
	Number int
	Text   string
}

// Extraction is everything read from one document.
type Extraction struct {
	Path   string
	Pages  int
	Text   string
	Paged  []PageText
	Lines  [][]string
	Images []Image
	// ImageErrors holds per-page image failures; they never fail extraction.
	ImageErrors map[int]error
}

// ExtractOptions selects the optional parts of an extraction.
type ExtractOptions struct {
	Images bool
	Lines  bool
}

// Info summarizes a document without reading its text.
type Info struct {
	Path      string            `json:"path"`
	Filename  string            `json:"filename"`
	SizeBytes int64             `json:"size_bytes"`
	Pages     int               `json:"pages"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Extractor reads documents under size, page and time limits.
type Extractor struct {
	opener Opener
	limits Limits
}

// NewExtractor creates an Extractor. Zero limits fall back to defaults.
func NewExtractor(opener Opener, limits Limits) *Extractor {
	def := DefaultLimits()
	if limits.MaxSizeBytes <= 0 {
		limits.MaxSizeBytes = def.MaxSizeBytes
	}
	if limits.MaxPages <= 0 {
		limits.MaxPages = def.MaxPages
	}
	if limits.OpenTimeout <= 0 {
		limits.OpenTimeout = def.OpenTimeout
	}
	if opener == nil {
		opener = NewFileOpener()
	}
	return &Extractor{opener: opener, limits: limits}
}

// Limits returns the active limits.
func (e *Extractor) Limits() Limits {
	return e.limits
}

// Extract validates path and reads its pages. The open and parse steps share
// one deadline; when it passes a timeout error is returned and the parse
// goroutine releases the document once it finishes on its own.
func (e *Extractor) Extract(ctx context.Context, path string, opts ExtractOptions) (*Extraction, error) {
	ctx = logger.SetFile(ctx, path)
	if err := Validate(path, e.limits.MaxSizeBytes); err != nil {
		return nil, err
	}

	var out *Extraction
	err := e.withTimeout(ctx, path, func(ctx context.Context) error {
		ext, err := e.read(ctx, path, opts)
		out = ext
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Info returns page count, size and the information dictionary of path.
func (e *Extractor) Info(ctx context.Context, path string) (*Info, error) {
	if err := Validate(path, e.limits.MaxSizeBytes); err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, apperror.Input(path, "cannot stat file: %v", err)
	}

	info := &Info{Path: path, Filename: filepath.Base(path), SizeBytes: stat.Size()}
	err = e.withTimeout(ctx, path, func(ctx context.Context) error {
		return WithDocument(ctx, e.opener, path, e.limits, func(doc Document) error {
			info.Pages = doc.NumPages()
			info.Metadata = doc.Info()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (e *Extractor) withTimeout(ctx context.Context, path string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.limits.OpenTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.CtxWarn(ctx, "processing exceeded %s, abandoning %s", e.limits.OpenTimeout, path)
			return apperror.Timeout(path, "processing exceeded %s", e.limits.OpenTimeout)
		}
		return ctx.Err()
	}
}

func (e *Extractor) read(ctx context.Context, path string, opts ExtractOptions) (*Extraction, error) {
	out := &Extraction{Path: path}
	start := time.Now()

	err := WithDocument(ctx, e.opener, path, e.limits, func(doc Document) error {
		out.Pages = doc.NumPages()
		var texts []string
		for n := 1; n <= out.Pages; n++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := doc.PageText(n)
			if err != nil {
				return apperror.Corrupted(path, err, "cannot read page %d", n)
			}
			out.Paged = append(out.Paged, PageText{Number: n, Text: text})
			texts = append(texts, strings.TrimRight(text, " \t\n"))

			if opts.Lines {
				lines, err := doc.PageLines(n)
				if err != nil {
					return apperror.Corrupted(path, err, "cannot read layout of page %d", n)
				}
				out.Lines = append(out.Lines, lines)
			}
			if opts.Images {
				imgs, err := doc.PageImages(n)
				if err != nil {
					if out.ImageErrors == nil {
						out.ImageErrors = make(map[int]error)
					}
					out.ImageErrors[n] = err
					continue
				}
				out.Images = append(out.Images, imgs...)
			}
		}
		out.Text = strings.Join(texts, "\n\n")
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{}).
		WithPages(out.Pages).
		WithCount(len(out.Images)).
		WithDuration(time.Since(start).Milliseconds()).
		Debug(ctx, "extracted %s", filepath.Base(path))
	return out, nil
}
