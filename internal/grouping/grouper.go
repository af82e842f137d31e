// Package grouping merges multi-volume filings that share a process number.
package grouping

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/format"
	"github.com/timmy/lexpdf/internal/logger"
	"github.com/timmy/lexpdf/internal/normalize"
	"github.com/timmy/lexpdf/internal/pdf"
)

// DefaultProcessedDir receives relocated sources after a merge.
const DefaultProcessedDir = "processado"

// Options control a merge run.
type Options struct {
	// ProcessNumber restricts the run to one group and merges it even when it has a single member.
	ProcessNumber string
	Format        domain.OutputFormat
	// OutputDir receives merged files; empty means the input root.
	OutputDir       string
	Normalize       bool
	IncludeMetadata bool
	// KeepSources disables relocation.
	KeepSources bool
}

// DefaultOptions mirrors the merge command defaults.
func DefaultOptions() Options {
	return Options{Format: domain.FormatMarkdown, Normalize: true, IncludeMetadata: true}
}

// Report summarizes a Run.
type Report struct {
	Root     string                `json:"root"`
	Groups   []domain.ProcessGroup `json:"groups"`
	Outputs  []string              `json:"outputs"`
	Outcomes []domain.FileOutcome  `json:"outcomes"`
}

// Counts tallies the outcomes.
func (r *Report) Counts() (ok, failed, skipped int) {
	return domain.CountOutcomes(r.Outcomes)
}

// Grouper resolves, groups, merges and relocates PDF files.
type Grouper struct {
	extractor    *pdf.Extractor
	normalizer   *normalize.Normalizer
	processedDir string
}

// New creates a Grouper. An empty processedDir means DefaultProcessedDir.
func New(extractor *pdf.Extractor, normalizer *normalize.Normalizer, processedDir string) *Grouper {
	if processedDir == "" {
		processedDir = DefaultProcessedDir
	}
	if extractor == nil {
		extractor = pdf.NewExtractor(nil, pdf.DefaultLimits())
	}
	if normalizer == nil {
		normalizer = normalize.New(normalize.DefaultConfig())
	}
	return &Grouper{extractor: extractor, normalizer: normalizer, processedDir: processedDir}
}

// ProcessedDir returns the name of the relocation directory.
func (g *Grouper) ProcessedDir() string {
	return g.processedDir
}

// OutputName returns the merged file name for a process number.
func OutputName(processNumber string, f domain.OutputFormat) string {
	ext := ".md"
	if formatter, err := format.For(f); err == nil {
		ext = formatter.Extension()
	}
	safe := strings.NewReplacer("/", "-", `\`, "-").Replace(processNumber)
	return "processo_" + safe + "_merged" + ext
}

// Merge renders the members of group, in order, into outDir and returns the written path.
func (g *Grouper) Merge(ctx context.Context, group domain.ProcessGroup, outDir string, opts Options) (string, error) {
	members := make([]format.Member, 0, len(group.Members))
	for _, file := range group.Members {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		doc, err := g.load(ctx, file, opts.Normalize)
		if err != nil {
			return "", err
		}
		members = append(members, format.Member{File: filepath.Base(file), Document: doc})
	}

	content, err := format.RenderMerged(group.ProcessNumber, members, opts.Format, format.Options{
		IncludeMetadata: opts.IncludeMetadata,
	})
	if err != nil {
		return "", apperror.Configuration("%v", err)
	}

	path := filepath.Join(outDir, OutputName(group.ProcessNumber, opts.Format))
	if err := WriteDurable(path, content); err != nil {
		return "", fmt.Errorf("write merged output %s: %w", path, err)
	}
	return path, nil
}

// Run discovers the PDFs under root, groups them by ResolveProcessNumber and
// merges every group with at least two members (or only opts.ProcessNumber).
// Merged sources move to the processed directory. progress receives 10..95 as
// files complete.
func (g *Grouper) Run(ctx context.Context, root string, opts Options, progress func(int)) (*Report, error) {
	ctx = logger.SetComponent(ctx, "grouping")
	start := time.Now()
	if opts.Format == "" {
		opts.Format = domain.FormatMarkdown
	}
	outDir := opts.OutputDir
	if outDir == "" {
		outDir = root
	}

	files, err := g.Discover(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperror.Input(root, "no PDF files found")
	}

	report := &Report{Root: root}
	done := 0
	record := func(o domain.FileOutcome) {
		report.Outcomes = append(report.Outcomes, o)
		done++
		if progress != nil {
			progress(10 + 85*done/len(files))
		}
	}

	resolved := make(map[string]string, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		number, err := g.ResolveProcessNumber(ctx, file)
		if err != nil {
			logger.CtxWarn(ctx, "cannot resolve %s: %v", file, err)
			record(domain.FileOutcome{File: file, Status: domain.OutcomeFailed, Error: err.Error()})
			continue
		}
		resolved[file] = number
	}

	groups := Group(resolved)
	if opts.ProcessNumber != "" {
		var selected []domain.ProcessGroup
		for _, grp := range groups {
			if grp.ProcessNumber == opts.ProcessNumber {
				selected = append(selected, grp)
			} else {
				for _, f := range grp.Members {
					record(domain.FileOutcome{File: f, Status: domain.OutcomeSkipped, ProcessNumber: grp.ProcessNumber, Error: "not the requested process"})
				}
			}
		}
		if len(selected) == 0 {
			return nil, apperror.Input(root, "process %s not found", opts.ProcessNumber)
		}
		groups = selected
	}
	report.Groups = groups

	for _, grp := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case grp.ProcessNumber == domain.UnknownProcessNumber:
			for _, f := range grp.Members {
				record(domain.FileOutcome{File: f, Status: domain.OutcomeSkipped, ProcessNumber: grp.ProcessNumber, Error: "process number not found"})
			}
			continue
		case len(grp.Members) < 2 && opts.ProcessNumber == "":
			record(domain.FileOutcome{File: grp.Members[0], Status: domain.OutcomeSkipped, ProcessNumber: grp.ProcessNumber, Error: "single file, nothing to merge"})
			continue
		}

		out, err := g.Merge(ctx, grp, outDir, opts)
		if err != nil {
			logger.CtxError(ctx, "merge of process %s failed: %v", grp.ProcessNumber, err)
			for _, f := range grp.Members {
				record(domain.FileOutcome{File: f, Status: domain.OutcomeFailed, ProcessNumber: grp.ProcessNumber, Error: err.Error()})
			}
			continue
		}
		report.Outputs = append(report.Outputs, out)
		logger.With(logger.Fields{}).WithProcessNumber(grp.ProcessNumber).
			WithCount(len(grp.Members)).
			Info(ctx, "merged into %s", out)

		if opts.KeepSources {
			for _, f := range grp.Members {
				record(domain.FileOutcome{File: f, Status: domain.OutcomeOK, ProcessNumber: grp.ProcessNumber, Output: out})
			}
			continue
		}
		for _, m := range Relocate(grp, root, filepath.Join(root, g.processedDir)) {
			o := domain.FileOutcome{File: m.From, Status: domain.OutcomeOK, ProcessNumber: grp.ProcessNumber, Output: out}
			if m.Err != nil {
				o.Status = domain.OutcomeFailed
				o.Error = m.Err.Error()
			}
			record(o)
		}
	}

	ok, failed, skipped := report.Counts()
	logger.With(logger.Fields{}).
		WithCount(len(files)).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "merge run finished: %d ok, %d failed, %d skipped", ok, failed, skipped)
	return report, nil
}
