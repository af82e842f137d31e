package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/grouping"
	"github.com/timmy/lexpdf/internal/logger"
)

// Discoverer lists the PDFs under a root and names the directory processed
// sources are moved to.
type Discoverer interface {
	Discover(root string) ([]string, error)
	ProcessedDir() string
}

// BatchOptions control a batch run.
type BatchOptions struct {
	// OutputDir receives one output per input; empty means <root>/output.
	OutputDir   string
	KeepSources bool
}

// BatchReport lists the per-file outcomes of a batch run.
type BatchReport struct {
	Root      string               `json:"root"`
	OutputDir string               `json:"output_dir"`
	Outputs   []string             `json:"outputs"`
	Outcomes  []domain.FileOutcome `json:"outcomes"`
}

// Counts tallies the outcomes.
func (r *BatchReport) Counts() (ok, failed, skipped int) {
	return domain.CountOutcomes(r.Outcomes)
}

// Batch processes every PDF under root independently. A failing file is
// recorded and its siblings continue. progress receives 10..95.
func (c *Coordinator) Batch(ctx context.Context, d Discoverer, root string, opts domain.Options, bopts BatchOptions, progress ProgressFunc) (*BatchReport, error) {
	ctx = logger.SetComponent(ctx, "batch")
	start := time.Now()

	files, err := d.Discover(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperror.Input(root, "no PDF files found")
	}

	outDir := bopts.OutputDir
	if outDir == "" {
		outDir = filepath.Join(root, "output")
	}
	report := &BatchReport{Root: root, OutputDir: outDir}

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Outcomes = append(report.Outcomes, c.batchFile(ctx, d, root, outDir, file, opts, bopts))
		if o := report.Outcomes[len(report.Outcomes)-1]; o.Output != "" {
			report.Outputs = append(report.Outputs, o.Output)
		}
		progress.report(10 + 85*(i+1)/len(files))
	}

	ok, failed, _ := report.Counts()
	logger.With(logger.Fields{}).
		WithCount(len(files)).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "batch finished: %d ok, %d failed", ok, failed)
	return report, nil
}

func (c *Coordinator) batchFile(ctx context.Context, d Discoverer, root, outDir, file string, opts domain.Options, bopts BatchOptions) domain.FileOutcome {
	outcome := domain.FileOutcome{File: file, Status: domain.OutcomeFailed}

	res, err := c.ProcessFile(ctx, file, opts, nil)
	if err != nil {
		logger.CtxWarn(logger.SetFile(ctx, file), "batch item failed: %v", err)
		outcome.Error = err.Error()
		return outcome
	}
	outcome.ProcessNumber = res.Metadata.ProcessNumber

	rel, err := filepath.Rel(root, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(file)
	}
	target := filepath.Join(outDir, strings.TrimSuffix(rel, filepath.Ext(rel))+res.Extension)
	if err := grouping.WriteDurable(target, res.Content); err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Status = domain.OutcomeOK
	outcome.Output = target

	if bopts.KeepSources {
		return outcome
	}
	group := domain.ProcessGroup{ProcessNumber: outcome.ProcessNumber, Members: []string{file}}
	for _, m := range grouping.Relocate(group, root, filepath.Join(root, d.ProcessedDir())) {
		if m.Err != nil {
			outcome.Error = "output written but source not relocated: " + m.Err.Error()
		}
	}
	return outcome
}
