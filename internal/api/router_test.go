package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/lexpdf/internal/api/middleware"
	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/indexing"
	"github.com/timmy/lexpdf/internal/jobs"
)

type submitCall struct {
	kind    domain.JobKind
	payload domain.Payload
	opts    domain.Options
}

type fakeJobs struct {
	calls     []submitCall
	submitErr error
	submitID  string
	jobs      map[string]*domain.Job
	results   map[string][]byte
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{submitID: "job-1", jobs: map[string]*domain.Job{}, results: map[string][]byte{}}
}

func (f *fakeJobs) Submit(_ context.Context, kind domain.JobKind, payload domain.Payload, opts domain.Options) (string, error) {
	f.calls = append(f.calls, submitCall{kind, payload, opts})
	return f.submitID, f.submitErr
}

func (f *fakeJobs) Get(_ context.Context, id string) (*domain.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return j, nil
}

func (f *fakeJobs) GetResult(_ context.Context, id string) ([]byte, string, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, "", jobs.ErrNotFound
	}
	if j.Status != domain.JobStatusFinished {
		return nil, "", jobs.ErrNotReady
	}
	return f.results[id], j.ResultContentType, nil
}

func (f *fakeJobs) Delete(_ context.Context, id string) error {
	if _, ok := f.jobs[id]; !ok {
		return jobs.ErrNotFound
	}
	delete(f.jobs, id)
	return nil
}

var errDisabled = errors.New("search disabled")

type fakeSearcher struct {
	last    indexing.SearchRequest
	err     error
	results []indexing.SearchHit
}

func (s *fakeSearcher) Search(_ context.Context, req indexing.SearchRequest) (*indexing.SearchResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperror.Input("", "empty query")
	}
	return &indexing.SearchResponse{Query: req.Query, Hits: s.results, Total: len(s.results)}, nil
}

func newTestRouter(t *testing.T, j *fakeJobs, s *fakeSearcher) http.Handler {
	t.Helper()
	return SetupRouter(j, s, RouterConfig{
		Mode:           "test",
		UploadDir:      t.TempDir(),
		CORS:           middleware.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		SearchDisabled: errDisabled,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(data))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(t, newFakeJobs(), &fakeSearcher{}), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestSubmitGeneric(t *testing.T) {
	j := newFakeJobs()
	h := newTestRouter(t, j, &fakeSearcher{})

	w := do(t, h, http.MethodPost, "/api/v1/jobs", map[string]any{
		"kind":    "extract",
		"payload": map[string]any{"path": "/data/a.pdf"},
		"options": map[string]any{"chunk": true, "chunk_size": 500},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp["job_id"])
	assert.Equal(t, "queued", resp["status"])

	require.Len(t, j.calls, 1)
	call := j.calls[0]
	assert.Equal(t, domain.JobKindExtract, call.kind)
	assert.Equal(t, "/data/a.pdf", call.payload.Path)
	assert.True(t, call.opts.Chunk)
	assert.Equal(t, 500, call.opts.ChunkSize)
	// Unset options keep their defaults.
	assert.True(t, call.opts.Normalize)
	assert.Equal(t, domain.FormatMarkdown, call.opts.Format)
}

func TestSubmitKindEndpoints(t *testing.T) {
	for _, kind := range []domain.JobKind{
		domain.JobKindExtract, domain.JobKindBatch, domain.JobKindMerge, domain.JobKindTables, domain.JobKindInfo,
	} {
		t.Run(string(kind), func(t *testing.T) {
			j := newFakeJobs()
			w := do(t, newTestRouter(t, j, &fakeSearcher{}), http.MethodPost, "/api/v1/"+string(kind), map[string]any{
				"dir":            "/data/in",
				"process_number": "0001234-56.2023.8.26.0100",
			})
			require.Equal(t, http.StatusAccepted, w.Code)
			require.Len(t, j.calls, 1)
			assert.Equal(t, kind, j.calls[0].kind)
			assert.Equal(t, "/data/in", j.calls[0].payload.Dir)
			assert.Equal(t, "0001234-56.2023.8.26.0100", j.calls[0].payload.ProcessNumber)
		})
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		err    error
		status int
	}{
		{"queue full", "", jobs.ErrQueueFull, http.StatusServiceUnavailable},
		{"closed", "", jobs.ErrClosed, http.StatusServiceUnavailable},
		{"unknown kind", "", jobs.ErrUnknownKind, http.StatusBadRequest},
		{"preflight", "job-9", apperror.Input("/x.pdf", "file not found"), http.StatusBadRequest},
		{"configuration", "job-9", apperror.Configuration("chunk size 50 outside [100, 10000]"), http.StatusBadRequest},
		{"internal", "", errors.New("boom"), http.StatusInternalServerError},
		{"storage", "", fmt.Errorf("failed to create job: %w", apperror.Timeout("", "database busy")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newFakeJobs()
			j.submitID, j.submitErr = tt.id, tt.err
			w := do(t, newTestRouter(t, j, &fakeSearcher{}), http.MethodPost, "/api/v1/info", map[string]any{"path": "/x.pdf"})
			assert.Equal(t, tt.status, w.Code)
			if tt.id != "" {
				assert.Contains(t, w.Body.String(), `"job_id":"job-9"`)
				assert.Contains(t, w.Body.String(), tt.err.Error())
			}
		})
	}
}

func TestSubmitRequiresKind(t *testing.T) {
	w := do(t, newTestRouter(t, newFakeJobs(), &fakeSearcher{}), http.MethodPost, "/api/v1/jobs", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobLifecycleEndpoints(t *testing.T) {
	j := newFakeJobs()
	now := time.Now()
	j.jobs["done"] = &domain.Job{ID: "done", Kind: domain.JobKindExtract, Status: domain.JobStatusFinished, Progress: 100,
		Message: "finished: 2 pages extracted", CreatedAt: now, StartedAt: &now, FinishedAt: &now, ResultContentType: "text/markdown; charset=utf-8"}
	j.results["done"] = []byte("# Doc")
	j.jobs["running"] = &domain.Job{ID: "running", Kind: domain.JobKindBatch, Status: domain.JobStatusStarted, Progress: 40, CreatedAt: now}
	h := newTestRouter(t, j, &fakeSearcher{})

	w := do(t, h, http.MethodGet, "/api/v1/jobs/done", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "finished", view["status"])
	assert.Equal(t, float64(100), view["progress"])
	assert.Equal(t, "finished: 2 pages extracted", view["message"])
	assert.Contains(t, view, "finished_at")

	w = do(t, h, http.MethodGet, "/api/v1/jobs/done/result", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# Doc", w.Body.String())
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/jobs/running/result", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/jobs/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/jobs/nope/result", nil).Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/jobs/done", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/v1/jobs/done", nil).Code)
}

func multipartRequest(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/extract", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestExtractUpload(t *testing.T) {
	j := newFakeJobs()
	h := newTestRouter(t, j, &fakeSearcher{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, multipartRequest(t, "peticao.pdf", map[string]string{"format": "json", "structured": "true", "chunk_size": "2000"}))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Len(t, j.calls, 1)
	call := j.calls[0]
	assert.Equal(t, domain.JobKindExtract, call.kind)
	assert.Equal(t, "peticao.pdf", call.payload.OriginalFilename)
	assert.Equal(t, "peticao.pdf", filepath.Base(call.payload.Path))
	assert.Equal(t, domain.FormatJSON, call.opts.Format)
	assert.True(t, call.opts.Structured)
	assert.Equal(t, 2000, call.opts.ChunkSize)
	assert.True(t, call.opts.Normalize)

	data, err := os.ReadFile(call.payload.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n", string(data))
}

func TestExtractUploadRejects(t *testing.T) {
	j := newFakeJobs()
	h := newTestRouter(t, j, &fakeSearcher{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, multipartRequest(t, "notes.txt", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, multipartRequest(t, "a.pdf", map[string]string{"normalize": "maybe"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, j.calls)
}

func TestSearchEndpoints(t *testing.T) {
	s := &fakeSearcher{results: []indexing.SearchHit{{Document: "a.pdf", Score: 0.9}}}
	h := newTestRouter(t, newFakeJobs(), s)

	w := do(t, h, http.MethodPost, "/api/v1/search", map[string]any{"query": "prescrição", "top_k": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, s.last.TopK)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = do(t, h, http.MethodGet, "/api/v1/search?q=dano&top_k=3&process_number=123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dano", s.last.Query)
	assert.Equal(t, 3, s.last.TopK)
	assert.Equal(t, "123", s.last.ProcessNumber)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/search", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/search?q=x&top_k=many", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/search", map[string]any{"query": "   "}).Code)

	s.err = errDisabled
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/v1/search?q=x", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t, newFakeJobs(), &fakeSearcher{})
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
