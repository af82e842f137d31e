package pdf

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/timmy/lexpdf/internal/apperror"
)

var pdfMagic = []byte("%PDF-")

// ValidatePath checks that path names an existing regular file with a .pdf extension.
func ValidatePath(path string) (os.FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperror.Input(path, "empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.Input(path, "file not found")
		}
		return nil, apperror.Input(path, "cannot stat file: %v", err)
	}
	if !info.Mode().IsRegular() {
		return nil, apperror.Input(path, "not a regular file")
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, apperror.Input(path, "invalid extension %q, expected .pdf", filepath.Ext(path))
	}
	return info, nil
}

// Validate runs the cheap checks that need no parsing: path, size and header.
func Validate(path string, maxSize int64) error {
	info, err := ValidatePath(path)
	if err != nil {
		return err
	}
	if maxSize > 0 && info.Size() > maxSize {
		return apperror.SizeLimit(path, info.Size(), maxSize)
	}
	if info.Size() == 0 {
		return apperror.Corrupted(path, nil, "empty file")
	}

	f, err := os.Open(path)
	if err != nil {
		return apperror.Input(path, "cannot open file: %v", err)
	}
	defer f.Close()

	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return apperror.Corrupted(path, err, "cannot read header")
	}
	if !bytes.Contains(head[:n], pdfMagic) {
		return apperror.Corrupted(path, nil, "missing %%PDF header")
	}
	return nil
}
