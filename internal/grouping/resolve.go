package grouping

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/format"
	"github.com/timmy/lexpdf/internal/metadata"
	"github.com/timmy/lexpdf/internal/normalize"
	"github.com/timmy/lexpdf/internal/pdf"
)

var (
	sep = `[-._ ]?`
	// filenameCNJ accepts the CNJ grammar punctuated, partially punctuated or bare.
	filenameCNJ = regexp.MustCompile(`(?:^|\D)(\d{7})` + sep + `(\d{2})` + sep + `(\d{4})` + sep + `(\d)` + sep + `(\d{2})` + sep + `(\d{4})(?:\D|$)`)
	filenameRun = regexp.MustCompile(`(?:^|\D)(\d{7})(?:\D|$)`)
)

// ProcessNumberFromFilename derives a process number from a file name.
// A full CNJ number is canonicalized; otherwise a bare 7-digit run is used.
func ProcessNumberFromFilename(name string) (string, bool) {
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if m := filenameCNJ.FindStringSubmatch(name); m != nil {
		return m[1] + "-" + m[2] + "." + m[3] + "." + m[4] + "." + m[5] + "." + m[6], true
	}
	if m := filenameRun.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	return "", false
}

// Discover lists PDF files under root, sorted, skipping the relocation directory.
func (g *Grouper) Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, apperror.Input(root, "directory not found")
	}
	if !info.IsDir() {
		return nil, apperror.Input(root, "not a directory")
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && d.Name() == g.processedDir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Input(root, "cannot walk directory: %v", err)
	}
	sort.Strings(files)
	return files, nil
}

// ResolveProcessNumber returns the process number of file: the one found in
// its normalized text, then the one in its name, then UNKNOWN. Unreadable files fail.
func (g *Grouper) ResolveProcessNumber(ctx context.Context, file string) (string, error) {
	doc, err := g.load(ctx, file, true)
	if err != nil {
		return "", err
	}
	if doc.Metadata.ProcessNumber != "" {
		return doc.Metadata.ProcessNumber, nil
	}
	if n, ok := ProcessNumberFromFilename(file); ok {
		return n, nil
	}
	return domain.UnknownProcessNumber, nil
}

// load extracts file and parses its metadata, normalizing the text when clean is set.
func (g *Grouper) load(ctx context.Context, file string, clean bool) (format.Document, error) {
	ext, err := g.extractor.Extract(ctx, file, pdf.ExtractOptions{})
	if err != nil {
		return format.Document{}, err
	}
	text := ext.Text
	if clean {
		text = normalize.RemovePageMarkers(g.normalizer.Normalize(text))
	}
	return format.Document{Text: text, Metadata: metadata.Parse(text)}, nil
}

// Group buckets files by process number. resolved maps each file to its number.
// Groups are ordered by number and members by base name, then full path.
// Every UNKNOWN file becomes a group of its own.
func Group(resolved map[string]string) []domain.ProcessGroup {
	byNumber := make(map[string][]string)
	var unknown []string
	for file, number := range resolved {
		if number == domain.UnknownProcessNumber {
			unknown = append(unknown, file)
			continue
		}
		byNumber[number] = append(byNumber[number], file)
	}

	groups := make([]domain.ProcessGroup, 0, len(byNumber)+len(unknown))
	for number, members := range byNumber {
		sortMembers(members)
		groups = append(groups, domain.ProcessGroup{ProcessNumber: number, Members: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ProcessNumber < groups[j].ProcessNumber })

	sortMembers(unknown)
	for _, file := range unknown {
		groups = append(groups, domain.ProcessGroup{ProcessNumber: domain.UnknownProcessNumber, Members: []string{file}})
	}
	return groups
}

func sortMembers(files []string) {
	sort.Slice(files, func(i, j int) bool {
		bi, bj := filepath.Base(files[i]), filepath.Base(files[j])
		if bi != bj {
			return bi < bj
		}
		return files[i] < files[j]
	})
}
