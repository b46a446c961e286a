package main

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/CTAG07/Bakery/pkg/bakery"
	"github.com/CTAG07/Bakery/pkg/templating"
	"github.com/CTAG07/Bakery/pkg/varstore"
)

type Server struct {
	cm          *ConfigManager
	db          *sql.DB
	logger      *slog.Logger
	tm          *templating.TemplateManager
	store       *varstore.Store
	templateAPI *TemplateAPI
	varsAPI     *VarsAPI
	statsAPI    *StatsAPI
	serverAPI   *ServerAPI
	authAPI     *AuthAPI
	pageMux     *http.ServeMux
	apiMux      *http.ServeMux
	// apiHandler is apiMux behind API key authentication.
	apiHandler  http.Handler
}

// NewServer wires the template manager, variable store and APIs together.
// The database schemas must already be set up.
func NewServer(cm *ConfigManager, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {
	config := cm.Get()

	store, err := varstore.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("error creating variable store: %w", err)
	}
	store.SetLogger(logger)

	tm, err := templating.NewTemplateManager(logger, store, config.Templates, config.Server.DataDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create template manager: %w", err)
	}
	cm.SetTemplateManager(tm)

	// create object, register routes to the mux, and return it
	server := &Server{
		cm:          cm,
		db:          db,
		logger:      logger,
		tm:          tm,
		store:       store,
		templateAPI: NewTemplateAPI(tm, cm, logger),
		varsAPI:     NewVarsAPI(store, logger),
		statsAPI:    NewStatsAPI(db, logger),
		serverAPI:   NewServerAPI(cm, db, actionChan, logger),
		authAPI:     NewAuthAPI(db, logger),
		pageMux:     http.NewServeMux(),
		apiMux:      http.NewServeMux(),
	}

	server.templateAPI.RegisterRoutes(server.apiMux)
	server.varsAPI.RegisterRoutes(server.apiMux)
	server.statsAPI.RegisterRoutes(server.apiMux)
	server.serverAPI.RegisterRoutes(server.apiMux)
	server.authAPI.RegisterRoutes(server.apiMux)
	server.apiHandler = server.authAPI.Authenticate(server.apiMux)

	server.pageMux.HandleFunc("/favicon.ico", handleFavicon)
	server.pageMux.HandleFunc("/", server.handlePage)

	return server, nil
}

// Close releases the variable store's statements. The database is owned by the caller.
func (s *Server) Close() {
	s.store.Close()
}

// handlePage serves <mount>/<path> from the page <path><ext>, or
// index<ext> for directory paths.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	config := s.cm.Get()
	ipAddr := getClientIP(r, s.cm)

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		s.serveSpecial(w, r, http.StatusBadRequest, config.Server)
		return
	}

	name, ok := pageName(config.Server.MountPoint, r.URL.Path, config.Templates.PageExtension)
	if !ok || !s.tm.HasTemplate(name) {
		s.logger.Debug("Page not found", "path", r.URL.Path, "remote_addr", ipAddr)
		s.recordHit(r, r.URL.Path, http.StatusNotFound)
		s.serveSpecial(w, r, http.StatusNotFound, config.Server)
		return
	}

	data := bakery.Bindings{
		"base": config.Server.MountPoint,
		"path": r.URL.Path,
	}
	addQuery(data, r)

	var buf bytes.Buffer
	err := s.tm.Execute(&buf, name, data)
	if err != nil {
		if errors.Is(err, templating.ErrTemplateNotFound) {
			// deleted between the check and the render
			s.recordHit(r, r.URL.Path, http.StatusNotFound)
			s.serveSpecial(w, r, http.StatusNotFound, config.Server)
			return
		}
		s.logger.Error("Failed to execute template", "template", name, "remote_addr", ipAddr, "error", err)
		s.recordHit(r, name, http.StatusInternalServerError)
		s.serveSpecial(w, r, http.StatusInternalServerError, config.Server)
		return
	}

	s.logger.Info("Serving page", "template", name, "remote_addr", ipAddr)
	s.recordHit(r, name, http.StatusOK)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) recordHit(r *http.Request, page string, status int) {
	if err := s.statsAPI.RecordHit(r.Context(), page, status); err != nil {
		s.logger.Warn("Failed to record page hit", "page", page, "error", err)
	}
}

// serveSpecial answers with the static error page for code: 404.html for
// not found and 50x.html for server errors. Other codes, and missing pages,
// fall back to a plain-text body.
func (s *Server) serveSpecial(w http.ResponseWriter, r *http.Request, code int, config *ServerConfig) {
	var file string
	switch {
	case code == http.StatusNotFound:
		file = "404.html"
	case code >= 500 && code < 600:
		file = "50x.html"
	}

	if file != "" {
		content, err := os.ReadFile(filepath.Join(config.SpecialDir, file))
		if err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(code)
			_, _ = w.Write(content)
			return
		}
		s.logger.Warn("Special page unavailable", "file", file, "error", err)
	}
	http.Error(w, http.StatusText(code), code)
}

// pageName maps a request path under mount to a page name. It reports false
// for paths outside the mount point or escaping it.
func pageName(mount, urlPath, ext string) (string, bool) {
	prefix := strings.TrimSuffix(mount, "/")
	rest, ok := strings.CutPrefix(urlPath, prefix)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return "", false
	}
	if rest == "" || strings.HasSuffix(rest, "/") {
		rest += "index"
	}
	cleaned := path.Clean(rest)
	if cleaned != rest || strings.Contains(cleaned, "/.") {
		return "", false
	}
	return strings.TrimPrefix(cleaned, "/") + ext, true
}

// addQuery binds each query parameter's first value as query_<key>.
func addQuery(data bakery.Bindings, r *http.Request) {
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			data["query_"+key] = values[0]
		}
	}
}

// getClientIP returns the client address, honouring X-Real-Ip and
// X-Forwarded-For only when the direct peer is a trusted proxy.
func getClientIP(r *http.Request, cm *ConfigManager) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If splitting fails (e.g., no port), use the address as is.
		ip = r.RemoteAddr
	}
	if !cm.IsTrusted(ip) {
		return ip
	}

	// The X-Real-Ip header contains the forwarded IP in some cases (like from nginx)
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}

	// The X-Forwarded-For header can contain a comma-separated list of IPs.
	// The first IP in the list is the original client IP.
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		ips := strings.Split(forwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}
	return ip
}

// handleFavicon returns no content, so favicon requests are not counted as
// missing pages.
func handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
