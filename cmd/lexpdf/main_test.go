package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/lexpdf/internal/apperror"
)

func TestRunRejectsBadInvocations(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		args []string
	}{
		{"unknown command", "convert", nil},
		{"extract without input", "extract", nil},
		{"batch without input", "batch", nil},
		{"merge without input", "merge", nil},
		{"info without input", "info", nil},
		{"tables without input", "tables", nil},
		{"undefined flag", "extract", []string{"-bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), tt.cmd, tt.args, &out)
			require.Error(t, err)
			assert.True(t, apperror.IsKind(err, apperror.KindConfiguration), "got %v", err)
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), "help", nil, &out))
	assert.Contains(t, out.String(), "usage: lexpdf")

	err := run(context.Background(), "extract", []string{"-h"}, &out)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestExtractMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.pdf")
	var out bytes.Buffer
	err := run(context.Background(), "extract", []string{"-input", missing}, &out)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInput))
	assert.Equal(t, 1, exitCode(err))
}

func TestExtractRejectsChunkSizeOutOfRange(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), "extract", []string{"-input", "x.pdf", "-chunk", "-chunk-size", "50"}, &out)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
}

func TestBatchEmptyDirectory(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), "batch", []string{"-input", t.TempDir()}, &out)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInput))
}
