package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/lexpdf/internal/config"
	"github.com/timmy/lexpdf/internal/indexing"
)

func writeConfig(t *testing.T, path, dir string, workers int) {
	t.Helper()
	body := fmt.Sprintf(`jobs:
  store: memory
  queue: memory
  workers: %d
storage:
  type: local
  local_dir: %s
image_analysis:
  enabled: true
  api_key: test-key
`, workers, filepath.Join(dir, "results"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestRuntime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, dir, 1)

	store, err := config.NewStore(path)
	require.NoError(t, err)

	rt, err := New(context.Background(), store)
	require.NoError(t, err)
	defer rt.Close()

	assert.NotNil(t, rt.Jobs)
	assert.NotNil(t, rt.Storage)

	_, err = rt.Search(context.Background(), indexing.SearchRequest{Query: "x"})
	assert.ErrorIs(t, err, ErrSearchDisabled)

	writeConfig(t, path, dir, 4)
	require.NoError(t, rt.Reload(context.Background()))
	assert.Equal(t, 4, rt.Config().Jobs.Workers)
}

func TestNewAnalyzer(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, NewAnalyzer(cfg))

	cfg.ImageAnalysis.Enabled = true
	cfg.ImageAnalysis.APIKey = "k"
	cfg.ImageAnalysis.Retry.MaxAttempts = 2
	assert.NotNil(t, NewAnalyzer(cfg))
}

func TestNewExtractorLimits(t *testing.T) {
	cfg := &config.Config{PDF: config.PDFConfig{MaxSizeMB: 2, MaxPages: 7}}
	limits := NewExtractor(cfg).Limits()
	assert.Equal(t, int64(2<<20), limits.MaxSizeBytes)
	assert.Equal(t, 7, limits.MaxPages)
}
