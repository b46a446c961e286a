package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/Bakery/pkg/bakery"
	"github.com/CTAG07/Bakery/pkg/templating"
	"github.com/natefinch/atomic"
)

// TemplateAPI holds the dependencies for the template API handlers.
type TemplateAPI struct {
	tm     *templating.TemplateManager
	cm     *ConfigManager
	logger *slog.Logger
}

// NewTemplateAPI creates a new instance of the TemplateAPI.
func NewTemplateAPI(tm *templating.TemplateManager, cm *ConfigManager, logger *slog.Logger) *TemplateAPI {
	return &TemplateAPI{
		tm:     tm,
		cm:     cm,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/templates endpoints.
func (t *TemplateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/templates/refresh", requireScope(scopeTemplatesWrite, scopeTemplatesWrite, t.handleRefresh))
	mux.HandleFunc("/api/templates/test", requireScope(scopeTemplatesRead, scopeTemplatesRead, t.handleTest))
	mux.HandleFunc("/api/templates/preview", requireScope(scopeTemplatesRead, scopeTemplatesRead, t.handlePreview))
	mux.HandleFunc("/api/templates", requireScope(scopeTemplatesRead, scopeTemplatesWrite, t.handleList))
	mux.HandleFunc("/api/templates/", requireScope(scopeTemplatesRead, scopeTemplatesWrite, t.handleFile))
}

// handleRefresh triggers a manual refresh of templates from disk.
func (t *TemplateAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := t.tm.Refresh(); err != nil {
		t.logger.Error("API triggered refresh failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to refresh templates: %v", err))
		return
	}
	t.logger.Info("Templates refreshed via API")
	w.WriteHeader(http.StatusNoContent)
}

// handleList returns the names of all files in the template dir.
func (t *TemplateAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{
		"templates": t.tm.GetTemplateNames(),
		"pages":     t.tm.GetPageNames(),
	})
}

// handleTest renders the request body without saving it. Query parameters
// are bound as they would be for a served page.
func (t *TemplateAPI) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}

	var buf bytes.Buffer
	err = t.tm.ExecuteTemplateString(&buf, string(body), t.previewData(r))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template execution failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handlePreview renders a saved page with bindings taken from the query.
func (t *TemplateAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'name' is required")
		return
	}

	var buf bytes.Buffer
	if err := t.tm.Execute(&buf, name, t.previewData(r)); err != nil {
		if errors.Is(err, templating.ErrTemplateNotFound) {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("Template '%s' not found", name))
			return
		}
		if errors.Is(err, bakery.ErrTemplate) {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to render preview: %v", err))
			return
		}
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render preview: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (t *TemplateAPI) previewData(r *http.Request) bakery.Bindings {
	cfg := t.cm.Get()
	data := bakery.Bindings{"base": cfg.Server.MountPoint, "path": cfg.Server.MountPoint}
	addQuery(data, r)
	delete(data, "query_name")
	return data
}

// handleFile manages CRUD operations for a single template file.
func (t *TemplateAPI) handleFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	if name == "" || strings.HasSuffix(name, "/") {
		respondWithError(w, http.StatusNotFound, "Not Found")
		return
	}

	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.Contains(name, "/.") {
		respondWithError(w, http.StatusBadRequest, "Invalid template name format")
		return
	}

	templateDir, err := filepath.Abs(t.tm.GetTemplateDir())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve template directory")
		return
	}

	path := filepath.Join(templateDir, filepath.FromSlash(name))
	absPath, err := filepath.Abs(path)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid path")
		return
	}

	if !strings.HasPrefix(absPath, templateDir+string(filepath.Separator)) {
		respondWithError(w, http.StatusForbidden, "Access denied: Path outside template directory")
		return
	}

	switch r.Method {
	case http.MethodGet:
		content, err := os.ReadFile(path)
		if err != nil {
			respondWithError(w, http.StatusNotFound, "Template not found")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(content)

	case http.MethodPut:
		maxSize := t.tm.GetConfig().MaxTemplateSize
		if maxSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read request body: %v", err))
			return
		}
		if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create template directory: %v", err))
			return
		}
		if err = atomic.WriteFile(path, bytes.NewReader(body)); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to write template file: %v", err))
			return
		}
		if err = t.tm.Refresh(); err != nil {
			t.logger.Error("Refresh after template write failed", "template", name, "error", err)
		}
		t.logger.Info("Template saved via API", "template", name)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				respondWithError(w, http.StatusNotFound, "Template not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete template file: %v", err))
			return
		}
		if err := t.tm.Refresh(); err != nil {
			t.logger.Error("Refresh after template delete failed", "template", name, "error", err)
		}
		t.logger.Info("Template deleted via API", "template", name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
