package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/jobs"
	"github.com/timmy/lexpdf/internal/logger"
)

// JobService is the part of the job manager the API needs.
type JobService interface {
	Submit(ctx context.Context, kind domain.JobKind, payload domain.Payload, opts domain.Options) (string, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	GetResult(ctx context.Context, id string) ([]byte, string, error)
	Delete(ctx context.Context, id string) error
}

// JobHandler handles job submission and polling endpoints.
type JobHandler struct {
	jobs      JobService
	uploadDir string
}

// NewJobHandler creates a new job handler.
// Parameters:
//   - jobs: job manager.
//   - uploadDir: directory receiving multipart uploads.
//
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(jobs JobService, uploadDir string) *JobHandler {
	return &JobHandler{jobs: jobs, uploadDir: uploadDir}
}

// SubmitRequest is the generic body of POST /api/v1/jobs.
type SubmitRequest struct {
	Kind    domain.JobKind `json:"kind" binding:"required"`
	Payload domain.Payload `json:"payload"`
	Options domain.Options `json:"options"`
}

// KindRequest is the body of the kind-specific endpoints.
type KindRequest struct {
	Path             string         `json:"path"`
	Dir              string         `json:"dir"`
	OutputDir        string         `json:"output_dir"`
	ProcessNumber    string         `json:"process_number"`
	OriginalFilename string         `json:"original_filename"`
	Options          domain.Options `json:"options"`
}

// SubmitResponse acknowledges a submission.
type SubmitResponse struct {
	JobID   string           `json:"job_id"`
	Status  domain.JobStatus `json:"status"`
	Message string           `json:"message,omitempty"`
}

// JobView is the polling representation of a job.
type JobView struct {
	ID         string           `json:"id"`
	Kind       domain.JobKind   `json:"kind"`
	Status     domain.JobStatus `json:"status"`
	Progress   int              `json:"progress"`
	Message    string           `json:"message,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

func viewOf(j *domain.Job) JobView {
	return JobView{
		ID:         j.ID,
		Kind:       j.Kind,
		Status:     j.Status,
		Progress:   j.Progress,
		Message:    j.Message,
		CreatedAt:  j.CreatedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
	}
}

// Submit handles POST /api/v1/jobs.
func (h *JobHandler) Submit(c *gin.Context) {
	req := SubmitRequest{Options: domain.DefaultOptions()}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.submit(c, req.Kind, req.Payload, req.Options)
}

// SubmitKind returns the handler of POST /api/v1/<kind>.
func (h *JobHandler) SubmitKind(kind domain.JobKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if kind == domain.JobKindExtract && strings.HasPrefix(c.ContentType(), "multipart/") {
			h.upload(c)
			return
		}
		req := KindRequest{Options: domain.DefaultOptions()}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		h.submit(c, kind, domain.Payload{
			Path:             req.Path,
			Dir:              req.Dir,
			OutputDir:        req.OutputDir,
			ProcessNumber:    req.ProcessNumber,
			OriginalFilename: req.OriginalFilename,
		}, req.Options)
	}
}

// upload stores a multipart PDF under the upload dir and submits an extract job for it.
func (h *JobHandler) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field 'file' is required"})
		return
	}
	name := filepath.Base(file.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are accepted"})
		return
	}
	opts, err := formOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	dir := filepath.Join(h.uploadDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}
	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}
	logger.With(logger.Fields{logger.FieldFile: name}).WithSize(file.Size).Info(c.Request.Context(), "upload stored")

	h.submit(c, domain.JobKindExtract, domain.Payload{Path: path, OriginalFilename: name}, opts)
}

func formOptions(c *gin.Context) (domain.Options, error) {
	opts := domain.DefaultOptions()
	if v := c.PostForm("format"); v != "" {
		opts.Format = domain.OutputFormat(v)
	}
	if v := c.PostForm("table_format"); v != "" {
		opts.TableFormat = domain.TableFormat(v)
	}
	bools := map[string]*bool{
		"normalize":        &opts.Normalize,
		"include_metadata": &opts.IncludeMetadata,
		"structured":       &opts.Structured,
		"chunk":            &opts.Chunk,
		"analyze_images":   &opts.AnalyzeImages,
		"index":            &opts.Index,
	}
	for field, dst := range bools {
		v := c.PostForm(field)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%s: %w", field, err)
		}
		*dst = b
	}
	if v := c.PostForm("chunk_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("chunk_size: %w", err)
		}
		opts.ChunkSize = n
	}
	return opts, nil
}

func (h *JobHandler) submit(c *gin.Context, kind domain.JobKind, payload domain.Payload, opts domain.Options) {
	id, err := h.jobs.Submit(c.Request.Context(), kind, payload, opts)
	if err == nil {
		c.JSON(http.StatusAccepted, SubmitResponse{JobID: id, Status: domain.JobStatusQueued})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, jobs.ErrUnknownKind), apperror.IsPreflight(err):
		status = http.StatusBadRequest
	}
	resp := gin.H{"error": err.Error()}
	if id != "" {
		resp["job_id"] = id
		resp["status"] = domain.JobStatusFailed
	}
	c.JSON(status, resp)
}

// Get handles GET /api/v1/jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(job))
}

// Result handles GET /api/v1/jobs/:id/result.
func (h *JobHandler) Result(c *gin.Context) {
	data, contentType, err := h.jobs.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotReady) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.lookupError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// Delete handles DELETE /api/v1/jobs/:id.
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.jobs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.lookupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) lookupError(c *gin.Context, err error) {
	if errors.Is(err, jobs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	logger.CtxError(c.Request.Context(), "job lookup failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}
