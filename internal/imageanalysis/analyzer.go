// Package imageanalysis describes images embedded in filings with a vision model.
package imageanalysis

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/logger"
	"github.com/timmy/lexpdf/internal/pdf"
)

// Options bound image preparation.
type Options struct {
	MinDimension int
	MaxDimension int
	MaxBytes     int64
	Retry        RetryPolicy
}

// DefaultOptions mirrors the configured defaults.
func DefaultOptions() Options {
	return Options{
		MinDimension: 32,
		MaxDimension: 2048,
		MaxBytes:     4 << 20,
		Retry:        DefaultRetryPolicy(),
	}
}

// Analyzer prepares page images and asks a Describer about each one.
type Analyzer struct {
	describer Describer
	opts      Options
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(describer Describer, opts Options) *Analyzer {
	return &Analyzer{describer: describer, opts: opts}
}

// Analyze returns one note per image. Failures are recorded on the note and
// never abort the batch; images below the minimum size are left out.
func (a *Analyzer) Analyze(ctx context.Context, images []pdf.Image) []domain.ImageNote {
	ctx = logger.SetComponent(ctx, "imageanalysis")
	start := time.Now()

	notes := make([]domain.ImageNote, 0, len(images))
	failed := 0
	for _, img := range images {
		if ctx.Err() != nil {
			break
		}
		note := domain.ImageNote{Page: img.Page, Index: img.Index}

		desc, err := a.describe(ctx, img)
		if errors.Is(err, ErrTooSmall) {
			continue
		}
		if err != nil {
			failed++
			note.Error = err.Error()
			note.Description = "[Erro na análise da imagem]"
			logger.FromContext(ctx).WithError(err).Warnf("image %d on page %d not analysed", img.Index, img.Page)
		} else {
			note.Description = desc
		}
		notes = append(notes, note)
	}

	logger.With(logger.Fields{"failed": failed}).
		WithCount(len(notes)).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "analysed %d images", len(notes))
	return notes
}

func (a *Analyzer) describe(ctx context.Context, img pdf.Image) (string, error) {
	src := img.Image
	if src == nil {
		if len(img.Data) == 0 {
			return "", errors.New("image has no data")
		}
		decoded, _, err := Decode(img.Data)
		if err != nil {
			return "", err
		}
		src = decoded
	}

	data, err := Prepare(src, a.opts.MinDimension, a.opts.MaxDimension, a.opts.MaxBytes)
	if err != nil {
		return "", err
	}

	var desc string
	err = a.opts.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		desc, err = a.describer.Describe(ctx, data, "image/jpeg", img.Page)
		return err
	})
	return desc, err
}
