package pdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/logger"
)

// WithDocument opens path, checks its page count against limits and hands the
// document to fn. The document is closed on every exit path; a panic inside
// the parser or fn is reported as a corrupted document.
func WithDocument(ctx context.Context, opener Opener, path string, limits Limits, fn func(Document) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperror.Corrupted(path, fmt.Errorf("%v", r), "parser failure")
		}
	}()

	doc, err := opener.Open(path)
	if err != nil {
		return classifyOpenError(path, err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			logger.CtxWarn(ctx, "close %s: %v", path, cerr)
		}
	}()

	pages := doc.NumPages()
	if pages <= 0 {
		return apperror.Corrupted(path, nil, "document has no pages")
	}
	if limits.MaxPages > 0 && pages > limits.MaxPages {
		return apperror.PageLimit(path, pages, limits.MaxPages)
	}
	return fn(doc)
}

func classifyOpenError(path string, err error) error {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, ErrEncrypted):
		return apperror.Encrypted(path)
	case errors.Is(err, fs.ErrNotExist):
		return apperror.Input(path, "file not found")
	default:
		return apperror.Corrupted(path, err, "cannot parse document")
	}
}
