package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"portraitlab/internal/adapter/repo"
	"portraitlab/internal/domain"
)

type stubBlobReader struct {
	blobs map[string][]byte
}

func (s *stubBlobReader) Read(_ context.Context, key string) ([]byte, error) {
	data, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("blob missing")
	}
	return data, nil
}

func TestDownloadRunArchivesSucceededResults(t *testing.T) {
	run := &domain.IterationRun{ID: "run-1", Status: domain.RunCompleted}
	store := &stubRunStore{
		run: run,
		results: []repo.ScoredResult{
			{Result: domain.GeneratedResult{
				ID:      "res-1",
				Job:     domain.GenerationJob{RunID: "run-1", Iteration: 1},
				BlobKey: "runs/run-1/iter01/res-1.png",
				MIME:    "image/png",
				Status:  domain.ResultSucceeded,
			}},
			{Result: domain.GeneratedResult{
				ID:     "res-2",
				Job:    domain.GenerationJob{RunID: "run-1", Iteration: 1},
				Status: domain.ResultFailed,
			}},
		},
	}
	app := newTestApp(store, &stubQueue{})
	app.Blobs = &stubBlobReader{blobs: map[string][]byte{
		"runs/run-1/iter01/res-1.png": []byte("png-bytes"),
	}}

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/runs/run-1/download", nil), "run_id", "run-1")
	app.DownloadRun(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("content type = %q", got)
	}
	reader, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(reader.File) != 1 {
		t.Fatalf("archive entries = %d, want 1", len(reader.File))
	}
	if reader.File[0].Name != "iter01-res-1.png" {
		t.Fatalf("entry name = %q", reader.File[0].Name)
	}
}

func TestDownloadRunEmpty(t *testing.T) {
	run := &domain.IterationRun{ID: "run-1", Status: domain.RunCompleted}
	app := newTestApp(&stubRunStore{run: run}, &stubQueue{})
	app.Blobs = &stubBlobReader{}

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/runs/run-1/download", nil), "run_id", "run-1")
	app.DownloadRun(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
