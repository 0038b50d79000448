// Package httpapi serves the job ledger read-only over HTTP, so the asset
// tree's generation history can be inspected while a batch runs.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/kingdom-assetgen/internal/blob"
	"github.com/example/kingdom-assetgen/internal/catalog"
	"github.com/example/kingdom-assetgen/internal/model"
)

// JobReader is the read side of the job ledger.
type JobReader interface {
	GetJob(ctx context.Context, id string) (model.Job, error)
	ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error)
}

type Server struct {
	Assets  blob.LocalFS
	Jobs    JobReader
	BaseURL string // optional, for generating absolute result URLs
	Logger  *zap.Logger
}

func (s Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Logger))
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/categories", s.handleListCategories)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/jobs/{id}/result", s.handleGetResult)
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	resp := make([]map[string]any, 0)
	for _, c := range catalog.All() {
		resp = append(resp, map[string]any{
			"name":   c.Name,
			"kind":   c.Kind,
			"assets": len(c.Assets),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	job, err := s.Jobs.GetJob(ctx, id)
	if err != nil {
		writeLookupErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jobResponse(job, s.BaseURL))
}

func (s Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	filter := model.JobFilter{
		Category: strings.TrimSpace(query.Get("category")),
		Limit:    25,
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := model.JobStatus(raw)
		if !status.Valid() {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid status: %s", raw))
			return
		}
		filter.Status = status
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", raw))
			return
		}
		if value > 100 {
			value = 100
		}
		filter.Limit = value
	}

	jobs, err := s.Jobs.ListJobs(ctx, filter)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	resp := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, jobResponse(job, s.BaseURL))
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetResult streams the artifact a finished job wrote. The file is
// whatever currently sits at the output path, so a later run of the same
// asset shows through.
func (s Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	job, err := s.Jobs.GetJob(ctx, id)
	if err != nil {
		writeLookupErr(w, err)
		return
	}
	if job.Status != model.JobDone || job.OutputPath == "" || !s.Assets.Exists(job.OutputPath) {
		writeErr(w, http.StatusNotFound, fmt.Errorf("result not ready"))
		return
	}
	f, err := s.Assets.Open(job.OutputPath)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	contentType := http.DetectContentType(buf[:n])
	if ext := filepath.Ext(job.OutputPath); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			if contentType == "application/octet-stream" || strings.HasPrefix(contentType, "text/plain") {
				contentType = mimeType
			}
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.Copy(w, f)
}

func jobResponse(job model.Job, baseURL string) map[string]any {
	resp := map[string]any{
		"id":         job.ID,
		"createdAt":  job.CreatedAt,
		"updatedAt":  job.UpdatedAt,
		"status":     job.Status,
		"category":   job.Category,
		"asset":      job.Asset,
		"promptId":   job.PromptID,
		"outputPath": filepath.ToSlash(job.OutputPath),
		"error":      job.Error,
	}
	if job.Status == model.JobDone && job.OutputPath != "" {
		base := strings.TrimRight(baseURL, "/")
		resp["resultUrl"] = fmt.Sprintf("%s/v1/jobs/%s/result", base, job.ID)
	}
	return resp
}

func writeLookupErr(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrNotFound) {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeErr(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
