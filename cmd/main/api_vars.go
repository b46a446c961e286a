package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CTAG07/Bakery/pkg/varstore"
)

// VarsAPI serves the shared template variables.
type VarsAPI struct {
	store  *varstore.Store
	logger *slog.Logger
}

// NewVarsAPI creates a new instance of the VarsAPI.
func NewVarsAPI(store *varstore.Store, logger *slog.Logger) *VarsAPI {
	return &VarsAPI{
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/vars endpoints.
func (a *VarsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/vars", requireScope(scopeVarsRead, scopeVarsWrite, a.handleVars))
	mux.HandleFunc("/api/vars/", requireScope(scopeVarsRead, scopeVarsWrite, a.handleVar))
}

// handleVars lists every variable or sets one.
func (a *VarsAPI) handleVars(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		vars, err := a.store.List(r.Context())
		if err != nil {
			a.logger.Error("Failed to list variables", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve variables")
			return
		}
		respondWithJSON(w, http.StatusOK, vars)

	case http.MethodPost:
		var v varstore.Var
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		v.Name = strings.TrimSpace(v.Name)
		if err := v.Validate(); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.store.Set(r.Context(), v); err != nil {
			a.logger.Error("Failed to store variable", "name", v.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to store variable")
			return
		}
		a.logger.Info("Variable set", "name", v.Name, "kind", v.Kind)
		respondWithJSON(w, http.StatusCreated, v)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleVar reads or deletes a single variable.
func (a *VarsAPI) handleVar(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/vars/")
	if name == "" {
		respondWithError(w, http.StatusNotFound, "Not Found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		v, err := a.store.Get(r.Context(), name)
		if err != nil {
			if errors.Is(err, varstore.ErrNotFound) {
				respondWithError(w, http.StatusNotFound, "Variable not found")
				return
			}
			a.logger.Error("Failed to get variable", "name", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve variable")
			return
		}
		respondWithJSON(w, http.StatusOK, v)

	case http.MethodDelete:
		if err := a.store.Delete(r.Context(), name); err != nil {
			if errors.Is(err, varstore.ErrNotFound) {
				respondWithError(w, http.StatusNotFound, "Variable not found")
				return
			}
			a.logger.Error("Failed to delete variable", "name", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to delete variable")
			return
		}
		a.logger.Info("Variable deleted", "name", name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
