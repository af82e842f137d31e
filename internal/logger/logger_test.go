package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func newBufferLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.Level = "debug"
	return New(cfg), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return m
}

func TestContextFields(t *testing.T) {
	l, buf := newBufferLogger(t)
	ctx := l.WithContext(context.Background())
	ctx = SetJobID(ctx, "job-1")
	ctx = SetFile(ctx, "/in/a.pdf")

	CtxInfo(ctx, "processing %d pages", 3)

	line := decodeLine(t, buf)
	if line[FieldJobID] != "job-1" || line[FieldFile] != "/in/a.pdf" {
		t.Errorf("context fields missing: %v", line)
	}
	if line["message"] != "processing 3 pages" {
		t.Errorf("message = %v", line["message"])
	}
	if line["service"] != "lexpdf" {
		t.Errorf("service = %v", line["service"])
	}
	if GetJobID(ctx) != "job-1" {
		t.Errorf("GetJobID() = %q", GetJobID(ctx))
	}
}

func TestEntryMetricFields(t *testing.T) {
	l, buf := newBufferLogger(t)
	ctx := l.WithContext(context.Background())

	With(Fields{}).WithDuration(12).WithPages(4).WithStatus("ok").Info(ctx, "done")

	line := decodeLine(t, buf)
	if line[FieldDurationMs] != float64(12) || line[FieldPages] != float64(4) || line[FieldStatus] != "ok" {
		t.Errorf("metric fields missing: %v", line)
	}
}

func TestEntryTagsAndCopies(t *testing.T) {
	l, buf := newBufferLogger(t)
	ctx := SetJobID(l.WithContext(context.Background()), "job-7")

	base := With(Fields{}).WithJobKind("merge")
	base.WithProcessNumber("0000865-32.2016.8.08.0012").WithCount(3).Info(ctx, "merged")

	line := decodeLine(t, buf)
	tests := []struct {
		key  string
		want interface{}
	}{
		{FieldJobID, "job-7"},
		{FieldJobKind, "merge"},
		{FieldProcessNumber, "0000865-32.2016.8.08.0012"},
		{FieldCount, float64(3)},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if line[tt.key] != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, line[tt.key], tt.want)
			}
		})
	}

	buf.Reset()
	base.Info(ctx, "queued")
	line = decodeLine(t, buf)
	if _, ok := line[FieldProcessNumber]; ok {
		t.Errorf("derived entry leaked fields into its parent: %v", line)
	}
}

func TestValidLevel(t *testing.T) {
	for level, want := range map[string]bool{"debug": true, "warn": true, "error": true, "loud": false} {
		if got := ValidLevel(level); got != want {
			t.Errorf("ValidLevel(%q) = %v, want %v", level, got, want)
		}
	}
}
