package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/normalize"
	"github.com/timmy/lexpdf/internal/pdf"
	"github.com/timmy/lexpdf/internal/pdf/pdftest"
	"github.com/timmy/lexpdf/internal/tables"
)

const petition = `EXCELENTÍSSIMO SENHOR JUIZ DE DIREITO

Processo nº 1234567-89.2024.8.08.0012

Autor: Maria Silva
Réu: Banco XYZ S.A.

I - DOS FATOS

A autora contratou um empréstimo com o réu. Num. 12345678 - Pág. 1

II - DO DIREITO

Conforme o CPC, o pedido é procedente.`

func newCoordinator(opener pdf.Opener, analyzer ImageAnalyzer) *Coordinator {
	return New(Config{Normalize: normalize.DefaultConfig(), ChunkMin: 10, ChunkMax: 10000},
		pdf.NewExtractor(opener, pdf.DefaultLimits()), analyzer)
}

func TestProcessMarkdown(t *testing.T) {
	c := newCoordinator(nil, nil)
	out, err := c.Process(context.Background(), Input{Text: petition, SourceName: "a.pdf"}, domain.DefaultOptions())
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if out.Metadata.ProcessNumber != "1234567-89.2024.8.08.0012" {
		t.Errorf("process number = %q", out.Metadata.ProcessNumber)
	}
	if out.Metadata.DocumentType != domain.DocumentPetition {
		t.Errorf("document type = %q", out.Metadata.DocumentType)
	}
	if strings.Contains(out.Text, "Pág. 1") {
		t.Errorf("noise survived normalization: %q", out.Text)
	}
	if !strings.HasPrefix(string(out.Content), "# Processo 1234567-89.2024.8.08.0012") {
		t.Errorf("unexpected content: %s", out.Content)
	}
	if out.Extension != ".md" || out.Chunks != nil {
		t.Errorf("extension = %q, chunks = %v", out.Extension, out.Chunks)
	}
}

func TestProcessWithoutNormalization(t *testing.T) {
	opts := domain.DefaultOptions()
	opts.Normalize = false
	opts.Format = domain.FormatText

	out, err := newCoordinator(nil, nil).Process(context.Background(), Input{Text: petition}, opts)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if out.Text != petition {
		t.Error("text changed although normalization was disabled")
	}
	if out.ContentType != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", out.ContentType)
	}
}

func TestProcessChunks(t *testing.T) {
	opts := domain.DefaultOptions()
	opts.Chunk = true
	opts.ChunkSize = 60

	out, err := newCoordinator(nil, nil).Process(context.Background(), Input{Text: petition, SourceName: "a.pdf"}, opts)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(out.Chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(out.Chunks))
	}
	for i, ch := range out.Chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if out.Text[ch.Start:ch.End] != ch.Text {
			t.Errorf("chunk %d does not match its span", i)
		}
		if ch.Metadata.ProcessNumber != out.Metadata.ProcessNumber {
			t.Errorf("chunk %d lost metadata", i)
		}
	}

	var decoded chunkList
	if err := json.Unmarshal(out.Content, &decoded); err != nil {
		t.Fatalf("invalid chunk json: %v", err)
	}
	if decoded.Count != len(out.Chunks) || decoded.Source != "a.pdf" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestProcessRejectsBadChunkSize(t *testing.T) {
	opts := domain.DefaultOptions()
	opts.Chunk = true
	opts.ChunkSize = 5

	_, err := newCoordinator(nil, nil).Process(context.Background(), Input{Text: petition}, opts)
	if !apperror.IsKind(err, apperror.KindConfiguration) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

type recordingAnalyzer struct {
	calls int
}

func (a *recordingAnalyzer) Analyze(_ context.Context, images []pdf.Image) []domain.ImageNote {
	a.calls++
	notes := make([]domain.ImageNote, len(images))
	for i, img := range images {
		notes[i] = domain.ImageNote{Page: img.Page, Index: img.Index, Description: "carimbo"}
	}
	return notes
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "peticao.pdf")

	opener := pdftest.NewOpener()
	opener.Add("peticao.pdf", &pdftest.Document{
		Pages:  []string{petition, "Assinado eletronicamente por Fulano em 12/03/2024"},
		Images: map[int][]pdf.Image{2: {{Page: 2, Index: 0, Data: []byte("x")}}},
	})
	analyzer := &recordingAnalyzer{}
	c := newCoordinator(opener, analyzer)

	var mu sync.Mutex
	var seen []int
	progress := func(p int) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, p)
	}

	opts := domain.DefaultOptions()
	opts.AnalyzeImages = true
	res, err := c.ProcessFile(context.Background(), path, opts, progress)
	if err != nil {
		t.Fatalf("ProcessFile() error: %v", err)
	}

	if res.Processing.Pages != 2 || res.Processing.OriginalFilename != "peticao.pdf" {
		t.Errorf("processing = %+v", res.Processing)
	}
	if analyzer.calls != 1 || len(res.Images) != 1 {
		t.Errorf("analyzer calls = %d, notes = %d", analyzer.calls, len(res.Images))
	}
	if len(res.Metadata.SignatureDates) != 1 {
		t.Errorf("signature dates = %v", res.Metadata.SignatureDates)
	}
	if !strings.Contains(string(res.Content), "## Análise de Imagens") {
		t.Error("image notes missing from output")
	}

	want := []int{ProgressValidated, ProgressExtracted, ProgressImages, ProgressProcessed}
	if len(seen) != len(want) {
		t.Fatalf("progress = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("progress = %v, want %v", seen, want)
			break
		}
	}
}

func TestProcessFileMissing(t *testing.T) {
	_, err := newCoordinator(pdftest.NewOpener(), nil).ProcessFile(context.Background(), "/nao/existe.pdf", domain.DefaultOptions(), nil)
	if !apperror.IsKind(err, apperror.KindInput) {
		t.Errorf("err = %v, want input error", err)
	}
}

func TestExtractTables(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "planilha.pdf")

	opener := pdftest.NewOpener()
	opener.Add("planilha.pdf", &pdftest.Document{
		Pages: []string{"tabela"},
		Lines: [][]string{{
			"Relatório de parcelas",
			"Parcela   Vencimento   Valor",
			"1   10/01/2024   R$ 100,00",
			"2   10/02/2024   R$ 100,00",
		}},
	})

	res, err := newCoordinator(opener, nil).ExtractTables(context.Background(), path, domain.TableCSV, nil)
	if err != nil {
		t.Fatalf("ExtractTables() error: %v", err)
	}
	if res.Count != 1 || res.Extension != ".csv" {
		t.Errorf("count = %d, extension = %q", res.Count, res.Extension)
	}
	if !strings.Contains(string(res.Content), "Parcela,Vencimento,Valor") {
		t.Errorf("unexpected csv: %s", res.Content)
	}

	if _, err := newCoordinator(opener, nil).ExtractTables(context.Background(), path, "pdf", nil); !apperror.IsKind(err, apperror.KindConfiguration) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

type recordingDetector struct {
	pages [][]string
}

func (d *recordingDetector) Detect(pages [][]string) []tables.Table {
	d.pages = pages
	return []tables.Table{{Page: 1, Index: 1, Rows: [][]string{{"Evento", "Data"}, {"Citação", "05/03/2024"}}}}
}

func TestExtractTablesUsesConfiguredDetector(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "andamentos.pdf")

	opener := pdftest.NewOpener()
	opener.Add("andamentos.pdf", &pdftest.Document{
		Pages: []string{"andamentos"},
		Lines: [][]string{{"Evento: Citação em 05/03/2024"}},
	})

	detector := &recordingDetector{}
	c := New(Config{Normalize: normalize.DefaultConfig(), Tables: detector},
		pdf.NewExtractor(opener, pdf.DefaultLimits()), nil)

	res, err := c.ExtractTables(context.Background(), path, domain.TableMarkdown, nil)
	if err != nil {
		t.Fatalf("ExtractTables() error: %v", err)
	}
	if len(detector.pages) != 1 || detector.pages[0][0] != "Evento: Citação em 05/03/2024" {
		t.Errorf("detector saw %v", detector.pages)
	}
	if res.Count != 1 || !strings.Contains(string(res.Content), "| Evento | Data |") {
		t.Errorf("count = %d, content = %s", res.Count, res.Content)
	}
}
