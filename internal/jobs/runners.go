package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/format"
	"github.com/timmy/lexpdf/internal/grouping"
	"github.com/timmy/lexpdf/internal/pipeline"
)

type artifact struct {
	content     []byte
	contentType string
	extension   string
	message     string
}

func jsonArtifact(v interface{}, message string) (*artifact, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &artifact{content: data, contentType: format.ContentTypeJSON, extension: ".json", message: message}, nil
}

func (m *Manager) run(ctx context.Context, svc *Services, job *domain.Job, progress pipeline.ProgressFunc) (*artifact, error) {
	switch job.Kind {
	case domain.JobKindExtract:
		return runExtract(ctx, svc, job, progress)
	case domain.JobKindBatch:
		return runBatch(ctx, svc, job, progress)
	case domain.JobKindMerge:
		return runMerge(ctx, svc, job, progress)
	case domain.JobKindTables:
		return runTables(ctx, svc, job, progress)
	case domain.JobKindInfo:
		return runInfo(ctx, svc, job)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}
}

func runExtract(ctx context.Context, svc *Services, job *domain.Job, progress pipeline.ProgressFunc) (*artifact, error) {
	res, err := svc.Coordinator.ProcessFile(ctx, job.Payload.Path, job.Options, progress)
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("finished: %d pages extracted", res.Processing.Pages)

	if job.Options.Chunk && job.Options.Index {
		document := job.Payload.OriginalFilename
		if document == "" {
			document = filepath.Base(job.Payload.Path)
		}
		n, err := svc.Indexer.Index(ctx, document, res.Chunks)
		if err != nil {
			return nil, fmt.Errorf("indexing failed: %w", err)
		}
		message = fmt.Sprintf("%s, %d chunks indexed", message, n)
	}

	return &artifact{
		content:     res.Content,
		contentType: res.ContentType,
		extension:   res.Extension,
		message:     message,
	}, nil
}

func runBatch(ctx context.Context, svc *Services, job *domain.Job, progress pipeline.ProgressFunc) (*artifact, error) {
	report, err := svc.Coordinator.Batch(ctx, svc.Grouper, job.Payload.Dir, job.Options,
		pipeline.BatchOptions{OutputDir: job.Payload.OutputDir}, progress)
	if err != nil {
		return nil, err
	}
	ok, failed, _ := report.Counts()
	total := len(report.Outcomes)
	if ok == 0 {
		return nil, fmt.Errorf("failed: 0/%d files succeeded (%d failed)", total, failed)
	}
	return jsonArtifact(report, fmt.Sprintf("finished: %d/%d files succeeded", ok, total))
}

func runMerge(ctx context.Context, svc *Services, job *domain.Job, progress pipeline.ProgressFunc) (*artifact, error) {
	opts := grouping.Options{
		ProcessNumber:   job.Payload.ProcessNumber,
		Format:          job.Options.Format,
		OutputDir:       job.Payload.OutputDir,
		Normalize:       job.Options.Normalize,
		IncludeMetadata: job.Options.IncludeMetadata,
	}
	report, err := svc.Grouper.Run(ctx, job.Payload.Dir, opts, progress)
	if err != nil {
		return nil, err
	}
	ok, failed, skipped := report.Counts()
	total := len(report.Outcomes)
	if ok == 0 {
		return nil, fmt.Errorf("failed: 0/%d files merged (%d failed, %d skipped)", total, failed, skipped)
	}
	return jsonArtifact(report, fmt.Sprintf("finished: %d/%d files merged into %d outputs", ok, total, len(report.Outputs)))
}

func runTables(ctx context.Context, svc *Services, job *domain.Job, progress pipeline.ProgressFunc) (*artifact, error) {
	res, err := svc.Coordinator.ExtractTables(ctx, job.Payload.Path, job.Options.TableFormat, progress)
	if err != nil {
		return nil, err
	}
	return &artifact{
		content:     res.Content,
		contentType: res.ContentType,
		extension:   res.Extension,
		message:     fmt.Sprintf("finished: %d tables found in %d pages", res.Count, res.Pages),
	}, nil
}

func runInfo(ctx context.Context, svc *Services, job *domain.Job) (*artifact, error) {
	info, err := svc.Coordinator.Extractor().Info(ctx, job.Payload.Path)
	if err != nil {
		return nil, err
	}
	return jsonArtifact(info, fmt.Sprintf("finished: %d pages", info.Pages))
}
