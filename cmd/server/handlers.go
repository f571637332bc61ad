package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pharmquiz/pharmquiz-server/internal/dataset"
	"github.com/pharmquiz/pharmquiz-server/internal/override"
	"github.com/pharmquiz/pharmquiz-server/internal/platform/cache"
)

// maxUploadBytes bounds one upload request. Huge files are out of scope.
const maxUploadBytes = 16 << 20

type handlers struct {
	loader    *dataset.Loader
	manager   *override.Manager
	resolver  *override.Resolver
	cache     *cache.Cache
	exportTTL time.Duration
}

func (h *handlers) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)

	mux.HandleFunc("POST /api/admin/validate", h.handleValidate)
	mux.HandleFunc("GET /api/admin/lint", h.handleLint)
	mux.HandleFunc("GET /api/admin/lint.xlsx", h.handleLintReport)
	mux.HandleFunc("GET /api/admin/export", h.handleExport)
	mux.HandleFunc("POST /api/admin/import", h.handleImport)
	mux.HandleFunc("GET /api/admin/overrides", h.handleListOverrides)
	mux.HandleFunc("POST /api/admin/overrides/{id}/activate", h.handleActivate)
	mux.HandleFunc("POST /api/admin/overrides/{id}/deactivate", h.handleDeactivate)
	mux.HandleFunc("DELETE /api/admin/overrides/{id}", h.handleDelete)
	return mux
}

func (h *handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		if err := h.cache.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "cache unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"cache":  h.loader.Stats(),
	})
}

// handleValidate accepts multipart uploads under the "files" field and
// validates each independently.
func (h *handlers) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "No files provided")
		return
	}

	files := make([]dataset.UploadedFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("reading %s", fh.Filename))
			return
		}
		text, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("reading %s", fh.Filename))
			return
		}
		files = append(files, dataset.UploadedFile{Name: fh.Filename, Text: text})
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": dataset.ValidateFiles(files)})
}

func (h *handlers) handleLint(w http.ResponseWriter, r *http.Request) {
	issues, ok := h.lintCurrent(w)
	if !ok {
		return
	}
	errs := 0
	for _, issue := range issues {
		if issue.Severity == dataset.SeverityError {
			errs++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"issues": issues,
		"summary": map[string]int{
			"total":    len(issues),
			"errors":   errs,
			"warnings": len(issues) - errs,
		},
	})
}

func (h *handlers) handleLintReport(w http.ResponseWriter, r *http.Request) {
	issues, ok := h.lintCurrent(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("lint-report-%d.xlsx", time.Now().Unix())))
	if err := dataset.WriteLintReport(issues, w); err != nil {
		slog.Error("failed to write lint report", "error", err)
	}
}

func (h *handlers) lintCurrent(w http.ResponseWriter) ([]dataset.LintIssue, bool) {
	bundle, err := h.resolver.Bundle()
	if err != nil {
		writeDatasetError(w, err)
		return nil, false
	}
	issues := dataset.LintDataset(bundle)
	if issues == nil {
		issues = []dataset.LintIssue{}
	}
	return issues, true
}

func (h *handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload []byte
	if h.cache != nil {
		if cached, ok := h.cache.GetExport(ctx); ok {
			payload = cached
		}
	}

	if payload == nil {
		env, err := h.resolver.Export(time.Now())
		if err != nil {
			writeDatasetError(w, err)
			return
		}
		payload, err = env.MarshalIndent()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to export dataset")
			return
		}
		if h.cache != nil {
			if err := h.cache.SetExport(ctx, payload, h.exportTTL); err != nil {
				slog.Warn("failed to cache export", "error", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("pharmacology-dataset-%d.json", time.Now().UnixMilli())))
	w.Write(payload)
}

func (h *handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	text, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	id, err := h.manager.Import(name, r.FormValue("description"), text, r.FormValue("createdBy"))
	if err != nil {
		writeDatasetError(w, err)
		return
	}

	h.invalidateExportCache(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"overrideId": id,
		"message":    "Dataset imported successfully",
	})
}

func (h *handlers) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.manager.List()
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"overrides": summaries})
}

func (h *handlers) handleActivate(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Activate(r.PathValue("id")); err != nil {
		writeDatasetError(w, err)
		return
	}
	h.invalidateExportCache(r)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *handlers) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Deactivate(r.PathValue("id")); err != nil {
		writeDatasetError(w, err)
		return
	}
	h.invalidateExportCache(r)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.PathValue("id")); err != nil {
		writeDatasetError(w, err)
		return
	}
	h.invalidateExportCache(r)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *handlers) invalidateExportCache(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateExport(r.Context()); err != nil {
		slog.Warn("failed to invalidate export cache", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeDatasetError maps a dataset error to its status and exposes the
// itemized issue list for validation failures. Load and database
// failures surface only the localized generic message.
func writeDatasetError(w http.ResponseWriter, err error) {
	var dsErr *dataset.Error
	if !errors.As(err, &dsErr) {
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	body := map[string]any{
		"error": dataset.UserMessage(dsErr, "en"),
		"code":  dsErr.Code,
	}
	if dsErr.Code == dataset.CodeValidationFailed {
		if issues, ok := dsErr.Context["issues"]; ok {
			body["issues"] = issues
		}
	}
	writeJSON(w, dsErr.Status, body)
}
