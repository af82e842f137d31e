package pdf

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timmy/lexpdf/internal/apperror"
)

type fakeDocument struct {
	pages  []string
	images map[int][]Image
	block  chan struct{}
	closed atomic.Bool
	panics bool
}

func (d *fakeDocument) NumPages() int { return len(d.pages) }

func (d *fakeDocument) PageText(n int) (string, error) {
	if d.block != nil {
		<-d.block
	}
	if d.panics {
		panic("broken xref")
	}
	return d.pages[n-1], nil
}

func (d *fakeDocument) PageLines(n int) ([]string, error) {
	return []string{d.pages[n-1]}, nil
}

func (d *fakeDocument) PageImages(n int) ([]Image, error) {
	if n == 2 {
		return nil, errors.New("unsupported filter")
	}
	return d.images[n], nil
}

func (d *fakeDocument) Info() map[string]string {
	return map[string]string{"Title": "Petição"}
}

func (d *fakeDocument) Close() error {
	d.closed.Store(true)
	return nil
}

func opener(doc *fakeDocument, err error) Opener {
	return OpenerFunc(func(string) (Document, error) {
		if err != nil {
			return nil, err
		}
		return doc, nil
	})
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("%PDF-1.4\ntest"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writePDF(t, dir, "a.pdf")
	upper := writePDF(t, dir, "B.PDF")

	txt := filepath.Join(dir, "a.txt")
	os.WriteFile(txt, []byte("%PDF-1.4"), 0o644)
	noHeader := filepath.Join(dir, "fake.pdf")
	os.WriteFile(noHeader, []byte("hello"), 0o644)
	empty := filepath.Join(dir, "empty.pdf")
	os.WriteFile(empty, nil, 0o644)
	sub := filepath.Join(dir, "sub.pdf")
	os.Mkdir(sub, 0o755)

	tests := []struct {
		name    string
		path    string
		maxSize int64
		want    apperror.Kind
	}{
		{"valid", good, 0, ""},
		{"uppercase extension", upper, 0, ""},
		{"missing", filepath.Join(dir, "nope.pdf"), 0, apperror.KindInput},
		{"directory", sub, 0, apperror.KindInput},
		{"wrong extension", txt, 0, apperror.KindInput},
		{"too large", good, 4, apperror.KindSizeLimit},
		{"no header", noHeader, 0, apperror.KindCorrupted},
		{"empty", empty, 0, apperror.KindCorrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.path, tt.maxSize)
			if got := apperror.KindOf(err); got != tt.want {
				t.Errorf("Validate() kind = %q, want %q (err=%v)", got, tt.want, err)
			}
		})
	}
}

func TestWithDocumentAlwaysCloses(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		doc := &fakeDocument{pages: []string{"a"}}
		err := WithDocument(ctx, opener(doc, nil), "x.pdf", DefaultLimits(), func(Document) error { return nil })
		if err != nil || !doc.closed.Load() {
			t.Errorf("err=%v closed=%v", err, doc.closed.Load())
		}
	})

	t.Run("callback error", func(t *testing.T) {
		doc := &fakeDocument{pages: []string{"a"}}
		want := errors.New("boom")
		err := WithDocument(ctx, opener(doc, nil), "x.pdf", DefaultLimits(), func(Document) error { return want })
		if !errors.Is(err, want) || !doc.closed.Load() {
			t.Errorf("err=%v closed=%v", err, doc.closed.Load())
		}
	})

	t.Run("panic becomes corrupted", func(t *testing.T) {
		doc := &fakeDocument{pages: []string{"a"}}
		err := WithDocument(ctx, opener(doc, nil), "x.pdf", DefaultLimits(), func(Document) error { panic("bad stream") })
		if !apperror.IsKind(err, apperror.KindCorrupted) || !doc.closed.Load() {
			t.Errorf("err=%v closed=%v", err, doc.closed.Load())
		}
	})

	t.Run("page limit", func(t *testing.T) {
		doc := &fakeDocument{pages: []string{"a", "b", "c"}}
		err := WithDocument(ctx, opener(doc, nil), "x.pdf", Limits{MaxPages: 2}, func(Document) error { return nil })
		if !apperror.IsKind(err, apperror.KindPageLimit) || !doc.closed.Load() {
			t.Errorf("err=%v closed=%v", err, doc.closed.Load())
		}
	})

	t.Run("no pages", func(t *testing.T) {
		doc := &fakeDocument{}
		err := WithDocument(ctx, opener(doc, nil), "x.pdf", DefaultLimits(), func(Document) error { return nil })
		if !apperror.IsKind(err, apperror.KindCorrupted) {
			t.Errorf("err=%v", err)
		}
	})
}

func TestWithDocumentOpenErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperror.Kind
	}{
		{"encrypted", ErrEncrypted, apperror.KindEncrypted},
		{"missing", os.ErrNotExist, apperror.KindInput},
		{"garbage", errors.New("malformed xref"), apperror.KindCorrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WithDocument(context.Background(), opener(nil, tt.err), "x.pdf", DefaultLimits(), func(Document) error { return nil })
			if got := apperror.KindOf(err); got != tt.want {
				t.Errorf("kind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	path := writePDF(t, t.TempDir(), "doc.pdf")
	img := Image{Page: 1, Index: 0, Name: "Im0", Image: image.NewGray(image.Rect(0, 0, 40, 40))}
	doc := &fakeDocument{
		pages:  []string{"Primeira página\n", "Segunda página"},
		images: map[int][]Image{1: {img}},
	}

	ext, err := NewExtractor(opener(doc, nil), Limits{}).Extract(context.Background(), path, ExtractOptions{Images: true, Lines: true})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if ext.Pages != 2 {
		t.Errorf("Pages = %d", ext.Pages)
	}
	if ext.Text != "Primeira página\n\nSegunda página" {
		t.Errorf("Text = %q", ext.Text)
	}
	if len(ext.Images) != 1 || len(ext.ImageErrors) != 1 {
		t.Errorf("images=%d imageErrors=%d", len(ext.Images), len(ext.ImageErrors))
	}
	if len(ext.Lines) != 2 {
		t.Errorf("Lines = %v", ext.Lines)
	}
	if !doc.closed.Load() {
		t.Error("document left open")
	}
}

func TestExtractParserPanic(t *testing.T) {
	path := writePDF(t, t.TempDir(), "doc.pdf")
	doc := &fakeDocument{pages: []string{"a"}, panics: true}

	_, err := NewExtractor(opener(doc, nil), Limits{}).Extract(context.Background(), path, ExtractOptions{})
	if !apperror.IsKind(err, apperror.KindCorrupted) {
		t.Errorf("err = %v, want corrupted", err)
	}
}

func TestExtractTimeout(t *testing.T) {
	path := writePDF(t, t.TempDir(), "slow.pdf")
	doc := &fakeDocument{pages: []string{"a"}, block: make(chan struct{})}

	ex := NewExtractor(opener(doc, nil), Limits{OpenTimeout: 20 * time.Millisecond})
	_, err := ex.Extract(context.Background(), path, ExtractOptions{})
	if !apperror.IsKind(err, apperror.KindTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}

	close(doc.block)
	deadline := time.Now().Add(2 * time.Second)
	for !doc.closed.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !doc.closed.Load() {
		t.Error("abandoned document was never closed")
	}
}

func TestInfo(t *testing.T) {
	path := writePDF(t, t.TempDir(), "doc.pdf")
	doc := &fakeDocument{pages: []string{"a", "b", "c"}}

	info, err := NewExtractor(opener(doc, nil), Limits{}).Info(context.Background(), path)
	if err != nil {
		t.Fatalf("Info() error: %v", err)
	}
	if info.Pages != 3 || info.Filename != "doc.pdf" || info.Metadata["Title"] != "Petição" {
		t.Errorf("Info() = %+v", info)
	}
	if info.SizeBytes != int64(len("%PDF-1.4\ntest")) {
		t.Errorf("SizeBytes = %d", info.SizeBytes)
	}
}
