package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/kingdom-assetgen/internal/blob"
	"github.com/example/kingdom-assetgen/internal/model"
	"github.com/example/kingdom-assetgen/internal/store"
)

const pngBytes = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

func newTestServer(t *testing.T) (http.Handler, *store.SQLite, string) {
	t.Helper()
	root := t.TempDir()
	jobs, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	s := Server{
		Assets:  blob.LocalFS{Root: root},
		Jobs:    jobs,
		BaseURL: "http://ledger.local/",
		Logger:  zaptest.NewLogger(t),
	}
	return s.Router(), jobs, root
}

func seed(t *testing.T, jobs *store.SQLite, id, category, asset string, status model.JobStatus, output string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, jobs.CreateJob(ctx, model.Job{
		ID: id, CreatedAt: now, UpdatedAt: now, Status: model.JobQueued, Category: category, Asset: asset,
	}))
	patch := model.JobPatch{Status: &status}
	if output != "" {
		patch.OutputPath = &output
	}
	require.NoError(t, jobs.UpdateJob(ctx, id, patch))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestGetJob(t *testing.T) {
	h, jobs, _ := newTestServer(t)
	seed(t, jobs, "j1", "title", "Title_Logo", model.JobDone, "Assets/Resources/UI/Title/Title_Logo.png")

	rec := get(t, h, "/v1/jobs/j1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Title_Logo", body["asset"])
	require.Equal(t, "done", body["status"])
	require.Equal(t, "http://ledger.local/v1/jobs/j1/result", body["resultUrl"])

	rec = get(t, h, "/v1/jobs/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs(t *testing.T) {
	h, jobs, _ := newTestServer(t)
	seed(t, jobs, "j1", "title", "Title_Logo", model.JobDone, "a.png")
	seed(t, jobs, "j2", "title", "Title_Background", model.JobError, "")
	seed(t, jobs, "j3", "hero", "DefaultHero_portrait", model.JobDone, "b.png")

	var body []map[string]any
	rec := get(t, h, "/v1/jobs?category=title&status=done")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "j1", body[0]["id"])

	rec = get(t, h, "/v1/jobs?limit=2")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)

	require.Equal(t, http.StatusBadRequest, get(t, h, "/v1/jobs?status=lost").Code)
	require.Equal(t, http.StatusBadRequest, get(t, h, "/v1/jobs?limit=-1").Code)
}

func TestGetResult(t *testing.T) {
	h, jobs, root := newTestServer(t)
	out := "Assets/Resources/UI/Title/Title_Logo.png"
	require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.Dir(out)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, out), []byte(pngBytes), 0o644))
	seed(t, jobs, "done", "title", "Title_Logo", model.JobDone, out)
	seed(t, jobs, "running", "title", "Title_BtnStart", model.JobRunning, "")

	rec := get(t, h, "/v1/jobs/done/result")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, pngBytes, rec.Body.String())

	require.Equal(t, http.StatusNotFound, get(t, h, "/v1/jobs/running/result").Code)
}

func TestListCategories(t *testing.T) {
	h, _, _ := newTestServer(t)
	var body []map[string]any
	rec := get(t, h, "/v1/categories")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 6)
	require.Equal(t, "title", body[0]["name"])
	require.Equal(t, float64(3), body[0]["assets"])
}
