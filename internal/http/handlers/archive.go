package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portraitlab/internal/domain"
	"portraitlab/pkg/zip"
)

// DownloadRun streams every successfully generated image of a run as one zip
// archive. Failed results and results whose blob went missing are skipped.
func (a *App) DownloadRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if _, err := a.Runs.GetRun(r.Context(), runID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("http: get run")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load run")
		return
	}
	results, err := a.Runs.ListResults(r.Context(), runID)
	if err != nil {
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("http: list results")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load results")
		return
	}

	var assets []zip.Asset
	for _, scored := range results {
		result := scored.Result
		if result.Failed() || result.BlobKey == "" {
			continue
		}
		data, err := a.Blobs.Read(r.Context(), result.BlobKey)
		if err != nil {
			a.Logger.Warn().Err(err).Str("result_id", result.ID).Msg("http: read blob for archive")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("iter%02d-%s%s", result.Job.Iteration, result.ID, archiveExt(result.MIME)),
			MIME:     result.MIME,
			Data:     data,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "run has no downloadable results")
		return
	}

	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=run-%s.zip", runID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func archiveExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
