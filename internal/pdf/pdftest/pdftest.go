// Package pdftest provides in-memory documents for tests of PDF consumers.
package pdftest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/timmy/lexpdf/internal/pdf"
)

// Document is an in-memory pdf.Document.
type Document struct {
	Pages    []string
	Lines    [][]string
	Images   map[int][]pdf.Image
	Metadata map[string]string
}

func (d *Document) NumPages() int { return len(d.Pages) }

func (d *Document) PageText(n int) (string, error) { return d.Pages[n-1], nil }

func (d *Document) PageLines(n int) ([]string, error) {
	if n-1 < len(d.Lines) {
		return d.Lines[n-1], nil
	}
	return []string{d.Pages[n-1]}, nil
}

func (d *Document) PageImages(n int) ([]pdf.Image, error) { return d.Images[n], nil }

func (d *Document) Info() map[string]string { return d.Metadata }

func (d *Document) Close() error { return nil }

// Opener serves documents keyed by file base name.
type Opener struct {
	mu    sync.Mutex
	docs  map[string]*Document
	opens map[string]int
}

// NewOpener creates an empty Opener.
func NewOpener() *Opener {
	return &Opener{docs: make(map[string]*Document), opens: make(map[string]int)}
}

// Add registers doc under name.
func (o *Opener) Add(name string, doc *Document) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.docs[name] = doc
}

// Opens returns how many times name was opened.
func (o *Opener) Opens(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[name]
}

func (o *Opener) Open(path string) (pdf.Document, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	name := filepath.Base(path)
	doc, ok := o.docs[name]
	if !ok {
		return nil, fmt.Errorf("malformed document %s", name)
	}
	o.opens[name]++
	return doc, nil
}

// WriteFile creates a file with a valid PDF header so validation passes.
func WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.4\n"+name), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
