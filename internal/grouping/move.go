package grouping

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/domain"
)

// Move is the relocation outcome of one member.
type Move struct {
	From string
	To   string
	Err  error
}

// Relocate moves every member of group from srcRoot to destRoot, keeping the
// path relative to srcRoot. Call it only once the merged output is durable.
func Relocate(group domain.ProcessGroup, srcRoot, destRoot string) []Move {
	moves := make([]Move, 0, len(group.Members))
	for _, src := range group.Members {
		m := Move{From: src}
		rel, err := filepath.Rel(srcRoot, src)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(src)
		}
		m.To, m.Err = moveFile(src, filepath.Join(destRoot, rel))
		moves = append(moves, m)
	}
	return moves
}

func moveFile(src, dest string) (string, error) {
	if _, err := os.Lstat(src); err != nil {
		if os.IsNotExist(err) {
			return "", apperror.Input(src, "file vanished before relocation")
		}
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}
	dest = freeName(dest)

	err := os.Rename(src, dest)
	if err == nil {
		return dest, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return "", fmt.Errorf("move %s: %w", src, err)
	}
	if err := copyFile(src, dest); err != nil {
		os.Remove(dest)
		return "", err
	}
	if err := os.Remove(src); err != nil {
		return dest, fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return dest, nil
}

// freeName appends _1, _2 ... before the extension until path does not exist.
func freeName(path string) string {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WriteDurable writes data to path through a synced temporary file and a rename,
// so readers never observe a partial file.
func WriteDurable(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
