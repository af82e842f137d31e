// Package pipeline turns extracted text into formatted output or chunks.
package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/chunking"
	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/format"
	"github.com/timmy/lexpdf/internal/logger"
	"github.com/timmy/lexpdf/internal/metadata"
	"github.com/timmy/lexpdf/internal/normalize"
	"github.com/timmy/lexpdf/internal/pdf"
	"github.com/timmy/lexpdf/internal/tables"
)

// Progress checkpoints reported by ProcessFile.
const (
	ProgressValidated = 10
	ProgressExtracted = 40
	ProgressImages    = 60
	ProgressProcessed = 80
)

// ProgressFunc receives progress percentages. It may be nil.
type ProgressFunc func(progress int)

func (f ProgressFunc) report(p int) {
	if f != nil {
		f(p)
	}
}

// ImageAnalyzer describes page images.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, images []pdf.Image) []domain.ImageNote
}

// Config holds the knobs of the coordinator.
type Config struct {
	Normalize normalize.Config
	ChunkMin  int
	ChunkMax  int
	// Tables defaults to tables.LineDetector.
	Tables tables.Detector
}

// Coordinator runs normalize, metadata extraction and then formatting or chunking.
type Coordinator struct {
	normalizer *normalize.Normalizer
	metadata   *metadata.Extractor
	extractor  *pdf.Extractor
	analyzer   ImageAnalyzer
	detector   tables.Detector
	chunkMin   int
	chunkMax   int
}

// New creates a Coordinator. analyzer may be nil, in which case image analysis is skipped.
func New(cfg Config, extractor *pdf.Extractor, analyzer ImageAnalyzer) *Coordinator {
	if cfg.ChunkMin == 0 {
		cfg.ChunkMin = 100
	}
	if cfg.ChunkMax == 0 {
		cfg.ChunkMax = 10000
	}
	if extractor == nil {
		extractor = pdf.NewExtractor(nil, pdf.DefaultLimits())
	}
	if cfg.Tables == nil {
		cfg.Tables = tables.LineDetector{}
	}
	return &Coordinator{
		normalizer: normalize.New(cfg.Normalize),
		metadata:   metadata.New(),
		extractor:  extractor,
		analyzer:   analyzer,
		detector:   cfg.Tables,
		chunkMin:   cfg.ChunkMin,
		chunkMax:   cfg.ChunkMax,
	}
}

// Extractor returns the PDF extractor used by the coordinator.
func (c *Coordinator) Extractor() *pdf.Extractor {
	return c.extractor
}

// Normalizer returns the text normalizer used by the coordinator.
func (c *Coordinator) Normalizer() *normalize.Normalizer {
	return c.normalizer
}

// Input is raw document text plus optional image notes.
type Input struct {
	Text       string
	SourceName string
	Images     []domain.ImageNote
}

// Output is the result of Process.
type Output struct {
	Text        string
	Metadata    domain.DocumentMetadata
	Images      []domain.ImageNote
	Content     []byte
	ContentType string
	Extension   string
	Chunks      []domain.Chunk
}

// Document returns the output as formatter input.
func (o *Output) Document() format.Document {
	return format.Document{Text: o.Text, Metadata: o.Metadata, Images: o.Images}
}

// Process normalizes the text, extracts metadata and renders the content.
// With opts.Chunk the content is the JSON encoded chunk list instead.
func (c *Coordinator) Process(ctx context.Context, in Input, opts domain.Options) (*Output, error) {
	opts = opts.WithDefaults()
	ctx = logger.SetComponent(ctx, "pipeline")
	start := time.Now()

	text := in.Text
	if opts.Normalize {
		text = c.normalizer.Normalize(text)
	}
	out := &Output{
		Text:     text,
		Metadata: c.metadata.Parse(text),
		Images:   in.Images,
	}

	if opts.Chunk {
		chunks, err := chunking.Chunk(text, out.Metadata, opts.ChunkSize, c.chunkMin, c.chunkMax)
		if err != nil {
			return nil, err
		}
		content, err := json.MarshalIndent(chunkList{Source: in.SourceName, Count: len(chunks), Chunks: chunks}, "", "  ")
		if err != nil {
			return nil, err
		}
		out.Chunks = chunks
		out.Content = content
		out.ContentType = format.ContentTypeJSON
		out.Extension = ".json"
	} else {
		f, err := format.For(opts.Format)
		if err != nil {
			return nil, apperror.Configuration("%v", err)
		}
		content, err := f.Format(out.Document(), format.Options{
			IncludeMetadata: opts.IncludeMetadata,
			Structured:      opts.Structured,
		})
		if err != nil {
			return nil, err
		}
		out.Content = content
		out.ContentType = f.ContentType()
		out.Extension = f.Extension()
	}

	logger.With(logger.Fields{}).
		WithSize(int64(len(out.Content))).
		WithCount(len(out.Chunks)).
		WithDuration(time.Since(start).Milliseconds()).
		Debug(ctx, "processed %s", in.SourceName)
	return out, nil
}

type chunkList struct {
	Source string         `json:"source,omitempty"`
	Count  int            `json:"count"`
	Chunks []domain.Chunk `json:"chunks"`
}

// DocumentResult is the outcome of processing one PDF file.
type DocumentResult struct {
	*Output
	Processing domain.ProcessingInfo
}

// ProcessFile extracts path and runs Process on its text.
func (c *Coordinator) ProcessFile(ctx context.Context, path string, opts domain.Options, progress ProgressFunc) (*DocumentResult, error) {
	opts = opts.WithDefaults()
	ctx = logger.SetFile(ctx, path)
	start := time.Now()

	if err := pdf.Validate(path, c.extractor.Limits().MaxSizeBytes); err != nil {
		return nil, err
	}
	progress.report(ProgressValidated)

	analyze := opts.AnalyzeImages && c.analyzer != nil
	ext, err := c.extractor.Extract(ctx, path, pdf.ExtractOptions{Images: analyze})
	if err != nil {
		return nil, err
	}
	progress.report(ProgressExtracted)

	var notes []domain.ImageNote
	if analyze {
		for page, err := range ext.ImageErrors {
			logger.CtxWarn(ctx, "skipping images of page %d: %v", page, err)
		}
		notes = c.analyzer.Analyze(ctx, ext.Images)
	} else if opts.AnalyzeImages {
		logger.CtxWarn(ctx, "image analysis requested but no vision client is configured")
	}
	progress.report(ProgressImages)

	out, err := c.Process(ctx, Input{Text: ext.Text, SourceName: filepath.Base(path), Images: notes}, opts)
	if err != nil {
		return nil, err
	}
	progress.report(ProgressProcessed)

	return &DocumentResult{
		Output: out,
		Processing: domain.ProcessingInfo{
			Pages:                 ext.Pages,
			ProcessingTimeSeconds: time.Since(start).Seconds(),
			OriginalFilename:      filepath.Base(path),
		},
	}, nil
}

// TablesResult is the rendered table export of one file.
type TablesResult struct {
	Content     []byte
	ContentType string
	Extension   string
	Count       int
	Pages       int
}

// ExtractTables detects tables in the page layout of path and renders them as tf.
func (c *Coordinator) ExtractTables(ctx context.Context, path string, tf domain.TableFormat, progress ProgressFunc) (*TablesResult, error) {
	if tf == "" {
		tf = domain.TableMarkdown
	}
	if !tf.Valid() {
		return nil, apperror.Configuration("unsupported table format %q", tf)
	}
	ctx = logger.SetFile(ctx, path)

	if err := pdf.Validate(path, c.extractor.Limits().MaxSizeBytes); err != nil {
		return nil, err
	}
	progress.report(ProgressValidated)

	ext, err := c.extractor.Extract(ctx, path, pdf.ExtractOptions{Lines: true})
	if err != nil {
		return nil, err
	}
	progress.report(ProgressExtracted)

	found := c.detector.Detect(ext.Lines)
	content, contentType, err := tables.Render(found, tf)
	if err != nil {
		return nil, err
	}
	progress.report(ProgressProcessed)

	logger.With(logger.Fields{}).WithCount(len(found)).WithPages(ext.Pages).Info(ctx, "tables detected")
	return &TablesResult{
		Content:     content,
		ContentType: contentType,
		Extension:   tables.Extension(tf),
		Count:       len(found),
		Pages:       ext.Pages,
	}, nil
}
