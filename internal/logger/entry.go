package logger

import (
	"context"
)

// Entry carries per-event fields for one log line: how many pages a PDF had,
// how long a merge took, which job kind finished. Unlike the job, file and
// process number set on the context, these fields do not follow later lines.
type Entry struct {
	logger *Logger
	fields Fields
}

// With starts an Entry from fields.
//
//	logger.With(logger.Fields{}).WithPages(12).WithDuration(340).Info(ctx, "text extracted")
func With(fields Fields) *Entry {
	return &Entry{
		logger: GetDefault(),
		fields: fields,
	}
}

// With returns a copy of e with fields added; e is not changed.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{
		logger: e.logger,
		fields: merged,
	}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.With(Fields{key: value})
}

// WithJobKind tags the line with the job kind, e.g. "extract" or "merge".
func (e *Entry) WithJobKind(kind string) *Entry {
	return e.WithField(FieldJobKind, kind)
}

// WithProcessNumber tags the line with the CNJ process number of a merge group.
func (e *Entry) WithProcessNumber(number string) *Entry {
	return e.WithField(FieldProcessNumber, number)
}

// WithDuration sets duration_ms.
func (e *Entry) WithDuration(ms int64) *Entry {
	return e.WithField(FieldDurationMs, ms)
}

// WithCount sets count: files in a batch, chunks indexed, tables found.
func (e *Entry) WithCount(count int) *Entry {
	return e.WithField(FieldCount, count)
}

// WithSize sets size in bytes, e.g. of an uploaded PDF.
func (e *Entry) WithSize(size int64) *Entry {
	return e.WithField(FieldSize, size)
}

// WithPages sets the page count of the document being processed.
func (e *Entry) WithPages(pages int) *Entry {
	return e.WithField(FieldPages, pages)
}

// WithStatus sets the job or file outcome status.
func (e *Entry) WithStatus(status string) *Entry {
	return e.WithField(FieldStatus, status)
}

// target prefers the context logger so job and file fields are kept.
func (e *Entry) target(ctx context.Context) *Logger {
	if ctx != nil {
		return FromContext(ctx)
	}
	return e.logger
}

func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).WithFields(e.fields).Debugf(format, args...)
}

func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).WithFields(e.fields).Infof(format, args...)
}

func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).WithFields(e.fields).Warnf(format, args...)
}

func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).WithFields(e.fields).Errorf(format, args...)
}
