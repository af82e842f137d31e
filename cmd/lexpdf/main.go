package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/timmy/lexpdf/internal/app"
	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/config"
	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/grouping"
	"github.com/timmy/lexpdf/internal/logger"
	"github.com/timmy/lexpdf/internal/pipeline"
)

const usage = `usage: lexpdf <command> [flags]

commands:
  extract  extract text from one PDF
  batch    extract every PDF under a directory
  merge    merge PDFs that share a process number
  info     print page count and document metadata
  tables   export tables found in a PDF
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1], os.Args[2:], os.Stdout)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "lexpdf: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for bad invocations and 1 for processing failures.
func exitCode(err error) int {
	if apperror.IsKind(err, apperror.KindConfiguration) {
		return 2
	}
	return 1
}

func run(ctx context.Context, cmd string, args []string, stdout io.Writer) error {
	switch cmd {
	case "extract":
		return runExtract(ctx, args, stdout)
	case "batch":
		return runBatch(ctx, args, stdout)
	case "merge":
		return runMerge(ctx, args, stdout)
	case "info":
		return runInfo(ctx, args, stdout)
	case "tables":
		return runTables(ctx, args, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return apperror.Configuration("unknown command %q", cmd)
	}
}

// setup loads configuration and installs the CLI logger.
func setup(configPath, level string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logCfg := cfg.LoggerConfig()
	if logCfg.File == "" {
		logCfg.Output = os.Stderr
	}
	logCfg.ServiceName = "lexpdf-cli"
	logger.SetDefaultLogger(logger.New(logCfg))
	return cfg, nil
}

func commonFlags(fs *flag.FlagSet) (configPath, level *string) {
	configPath = fs.String("config", "", "Path to config file")
	level = fs.String("log-level", "warn", "Log level (debug, info, warn, error)")
	return
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return apperror.Configuration("%v", err)
	}
	return nil
}

func runExtract(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	configPath, level := commonFlags(fs)
	input := fs.String("input", "", "PDF file to extract")
	output := fs.String("output", "", "Output file (default: input name with the format extension)")
	format := fs.String("format", string(domain.FormatMarkdown), "Output format: markdown, json or text")
	noNormalize := fs.Bool("no-normalize", false, "Keep the raw extracted text")
	noMetadata := fs.Bool("no-metadata", false, "Omit the metadata header")
	structured := fs.Bool("structured", false, "Detect and structure legal sections")
	chunk := fs.Bool("chunk", false, "Emit retrieval chunks as JSON")
	chunkSize := fs.Int("chunk-size", 1000, "Target chunk size in characters")
	analyzeImages := fs.Bool("analyze-images", false, "Describe embedded images with the vision model")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *input == "" {
		return apperror.Configuration("extract: -input is required")
	}
	cfg, err := setup(*configPath, *level)
	if err != nil {
		return err
	}

	opts := domain.Options{
		Format:          domain.OutputFormat(*format),
		Normalize:       !*noNormalize,
		IncludeMetadata: !*noMetadata,
		Structured:      *structured,
		Chunk:           *chunk,
		ChunkSize:       *chunkSize,
		AnalyzeImages:   *analyzeImages,
	}
	if !opts.Format.Valid() {
		return apperror.Configuration("unsupported format %q", *format)
	}
	if *chunk && (*chunkSize < cfg.Chunking.Min || *chunkSize > cfg.Chunking.Max) {
		return apperror.Configuration("chunk size %d outside [%d, %d]", *chunkSize, cfg.Chunking.Min, cfg.Chunking.Max)
	}

	coord := app.NewCoordinator(cfg)
	res, err := coord.ProcessFile(ctx, *input, opts, nil)
	if err != nil {
		return err
	}

	dest := *output
	if dest == "" {
		dest = strings.TrimSuffix(*input, filepath.Ext(*input)) + res.Extension
	}
	if err := grouping.WriteDurable(dest, res.Content); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	fmt.Fprintf(stdout, "%s: %d pages -> %s\n", filepath.Base(*input), res.Processing.Pages, dest)
	if len(res.Chunks) > 0 {
		fmt.Fprintf(stdout, "%d chunks\n", len(res.Chunks))
	}
	return nil
}

func runBatch(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	configPath, level := commonFlags(fs)
	input := fs.String("input", "", "Directory with PDF files")
	output := fs.String("output", "", "Output directory (default: <input>/output)")
	format := fs.String("format", string(domain.FormatMarkdown), "Output format: markdown, json or text")
	keep := fs.Bool("keep-sources", false, "Leave processed PDFs in place")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *input == "" {
		return apperror.Configuration("batch: -input is required")
	}
	cfg, err := setup(*configPath, *level)
	if err != nil {
		return err
	}

	opts := domain.DefaultOptions()
	opts.Format = domain.OutputFormat(*format)
	if !opts.Format.Valid() {
		return apperror.Configuration("unsupported format %q", *format)
	}

	coord := app.NewCoordinator(cfg)
	report, err := coord.Batch(ctx, app.NewGrouper(cfg, coord), *input, opts,
		pipeline.BatchOptions{OutputDir: *output, KeepSources: *keep}, nil)
	if err != nil {
		return err
	}
	printOutcomes(stdout, report.Outcomes)
	ok, failed, skipped := report.Counts()
	fmt.Fprintf(stdout, "%d/%d files succeeded (%d failed, %d skipped)\n", ok, len(report.Outcomes), failed, skipped)
	if ok == 0 {
		return fmt.Errorf("no file succeeded")
	}
	return nil
}

func runMerge(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	configPath, level := commonFlags(fs)
	input := fs.String("input", "", "Directory with PDF volumes")
	output := fs.String("output", "", "Directory for merged files (default: input)")
	processNumber := fs.String("process-number", "", "Merge only this process")
	format := fs.String("format", string(domain.FormatMarkdown), "Output format: markdown, json or text")
	noNormalize := fs.Bool("no-normalize", false, "Keep the raw extracted text")
	noMetadata := fs.Bool("no-metadata", false, "Omit metadata headers")
	keep := fs.Bool("keep-sources", false, "Leave merged PDFs in place")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *input == "" {
		return apperror.Configuration("merge: -input is required")
	}
	cfg, err := setup(*configPath, *level)
	if err != nil {
		return err
	}
	if !domain.OutputFormat(*format).Valid() {
		return apperror.Configuration("unsupported format %q", *format)
	}

	g := app.NewGrouper(cfg, app.NewCoordinator(cfg))
	report, err := g.Run(ctx, *input, grouping.Options{
		ProcessNumber:   *processNumber,
		Format:          domain.OutputFormat(*format),
		OutputDir:       *output,
		Normalize:       !*noNormalize,
		IncludeMetadata: !*noMetadata,
		KeepSources:     *keep,
	}, nil)
	if err != nil {
		return err
	}
	for _, grp := range report.Groups {
		fmt.Fprintf(stdout, "process %s: %d file(s)\n", grp.ProcessNumber, len(grp.Members))
	}
	printOutcomes(stdout, report.Outcomes)
	ok, failed, skipped := report.Counts()
	fmt.Fprintf(stdout, "%d/%d files merged into %d outputs (%d failed, %d skipped)\n",
		ok, len(report.Outcomes), len(report.Outputs), failed, skipped)
	if ok == 0 {
		return fmt.Errorf("no file merged")
	}
	return nil
}

func runInfo(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	configPath, level := commonFlags(fs)
	input := fs.String("input", "", "PDF file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *input == "" {
		return apperror.Configuration("info: -input is required")
	}
	cfg, err := setup(*configPath, *level)
	if err != nil {
		return err
	}

	info, err := app.NewExtractor(cfg).Info(ctx, *input)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func runTables(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tables", flag.ContinueOnError)
	configPath, level := commonFlags(fs)
	input := fs.String("input", "", "PDF file")
	format := fs.String("format", string(domain.TableMarkdown), "Table format: markdown, csv or xlsx")
	output := fs.String("output", "", "Output file (default: input name with the format extension)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *input == "" {
		return apperror.Configuration("tables: -input is required")
	}
	cfg, err := setup(*configPath, *level)
	if err != nil {
		return err
	}

	res, err := app.NewCoordinator(cfg).ExtractTables(ctx, *input, domain.TableFormat(*format), nil)
	if err != nil {
		return err
	}
	dest := *output
	if dest == "" {
		dest = strings.TrimSuffix(*input, filepath.Ext(*input)) + "_tables" + res.Extension
	}
	if err := grouping.WriteDurable(dest, res.Content); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	fmt.Fprintf(stdout, "%d tables found in %d pages -> %s\n", res.Count, res.Pages, dest)
	return nil
}

func printOutcomes(w io.Writer, outcomes []domain.FileOutcome) {
	for _, o := range outcomes {
		switch o.Status {
		case domain.OutcomeOK:
			fmt.Fprintf(w, "  ok      %s -> %s\n", o.File, o.Output)
		case domain.OutcomeSkipped:
			fmt.Fprintf(w, "  skipped %s (%s)\n", o.File, o.Error)
		default:
			fmt.Fprintf(w, "  failed  %s: %s\n", o.File, o.Error)
		}
	}
}
