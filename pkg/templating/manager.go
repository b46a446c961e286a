package templating

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/CTAG07/Bakery/pkg/bakery"
)

// ErrTemplateNotFound is returned by Execute for names that are not pages.
var ErrTemplateNotFound = errors.New("template not found")

// VarSource supplies bindings shared by every render, such as a
// varstore.Store.
type VarSource interface {
	Bindings(ctx context.Context) (bakery.Bindings, error)
}

// previewName is the virtual file ExecuteTemplateString renders from. It
// lives in the template dir so relative wraps resolve as they would for a
// saved page.
const previewName = ".preview"

// TemplateManager is the central controller for the templating engine.
// It manages the template directory, configuration, shared variables, and
// the source cache, and executes pages in a concurrent-safe manner.
// All methods are concurrent-safe.
type TemplateManager struct {
	logger        *slog.Logger
	config        *TemplateConfig
	store         VarSource
	loader        *cachingLoader
	engine        *bakery.Engine
	globals       bakery.Bindings
	templateNames []string
	pages         map[string]struct{}
	templateDir   string
	mu            sync.RWMutex
}

// NewTemplateManager creates, initializes, and returns a new TemplateManager.
// store may be nil. Templates are read from the "templates" subdirectory of
// dataDir, which is created if missing. It performs an initial Refresh.
func NewTemplateManager(logger *slog.Logger, store VarSource, config *TemplateConfig, dataDir string) (*TemplateManager, error) {
	templateDir := filepath.Join(dataDir, "templates")
	if err := os.MkdirAll(templateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create template dir: %w", err)
	}

	tm := &TemplateManager{
		logger:      logger,
		store:       store,
		templateDir: templateDir,
		globals:     bakery.Bindings{},
	}
	tm.applyConfig(config)

	if err := tm.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized", "dir", templateDir)
	return tm, nil
}

// applyConfig must be called with mu held for writing, or before tm is shared.
func (tm *TemplateManager) applyConfig(config *TemplateConfig) {
	tm.config = config
	tm.loader = newCachingLoader(config)
	tm.engine = bakery.New(bakery.WithLoader(tm.loader))
}

// SetConfig applies a new configuration to the TemplateManager. The source
// cache is rebuilt and the page list reloaded, since the page extension may
// have changed.
func (tm *TemplateManager) SetConfig(config *TemplateConfig) error {
	tm.mu.Lock()
	tm.applyConfig(config)
	tm.mu.Unlock()
	return tm.Refresh()
}

// SetGlobals replaces the bindings added to every render, above the shared
// variables and below the per-call data.
func (tm *TemplateManager) SetGlobals(b bakery.Bindings) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.globals = maps.Clone(b)
	if tm.globals == nil {
		tm.globals = bakery.Bindings{}
	}
}

// Refresh rescans the template directory and drops all cached sources.
// This allows template edits without restarting the application.
func (tm *TemplateManager) Refresh() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.logger.Info("Loading template files...")

	var names []string
	pages := make(map[string]struct{})
	err := filepath.WalkDir(tm.templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(tm.templateDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		names = append(names, name)
		if strings.HasSuffix(name, tm.config.PageExtension) {
			pages[name] = struct{}{}
		}
		return nil
	})
	if err != nil {
		tm.logger.Error("failed to scan template dir", "error", err)
		return err
	}

	if len(pages) == 0 {
		tm.logger.Warn("No page files found", "dir", tm.templateDir, "extension", tm.config.PageExtension)
	}

	tm.templateNames = names
	tm.pages = pages
	tm.loader.Purge()
	tm.logger.Info("Loaded template files", "count", len(names), "pages", len(pages))
	return nil
}

// newContext builds the render context: directives, then shared variables,
// then globals, then data, each layer shadowing the one before.
// Callers must hold mu for reading.
func (tm *TemplateManager) newContext(data bakery.Bindings) (*bakery.Context, error) {
	b := directives(tm.config)
	if tm.store != nil {
		vars, err := tm.store.Bindings(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load shared variables: %w", err)
		}
		maps.Copy(b, vars)
	}
	maps.Copy(b, tm.globals)
	maps.Copy(b, data)
	return bakery.NewContext(b), nil
}

// Execute renders the page called name, writing the output to w only if
// rendering succeeds. data is layered above the shared variables and globals.
func (tm *TemplateManager) Execute(w io.Writer, name string, data bakery.Bindings) error {
	tm.mu.RLock()
	_, ok := tm.pages[name]
	if !ok {
		tm.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	ctx, err := tm.newContext(data)
	engine, path := tm.engine, filepath.Join(tm.templateDir, filepath.FromSlash(name))
	tm.mu.RUnlock()
	if err != nil {
		return err
	}

	out, err := engine.RenderFile(path, ctx)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// ExecuteTemplateString renders content as if it were a file in the template
// directory, so it can wrap saved layouts. This is ideal for testing or
// previewing templates without saving them to disk.
func (tm *TemplateManager) ExecuteTemplateString(w io.Writer, content string, data bakery.Bindings) error {
	tm.mu.RLock()
	ctx, err := tm.newContext(data)
	loader, virtual := tm.loader, filepath.Join(tm.templateDir, previewName)
	tm.mu.RUnlock()
	if err != nil {
		return err
	}

	engine := bakery.New(bakery.WithLoader(bakery.LoaderFunc(func(path string) (string, error) {
		if path == virtual {
			return content, nil
		}
		return loader.Load(path)
	})))

	out, err := engine.RenderFile(virtual, ctx)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// HasTemplate reports whether name is a page that Execute can render.
func (tm *TemplateManager) HasTemplate(name string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	_, ok := tm.pages[name]
	return ok
}

// GetConfig returns a copy of the current configuration.
// This mainly exists for concurrency-safety reasons.
func (tm *TemplateManager) GetConfig() TemplateConfig {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return *tm.config
}

// GetTemplateNames returns every file in the template dir, layouts
// included, as sorted slash-separated relative paths.
func (tm *TemplateManager) GetTemplateNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return slices.Sorted(slices.Values(tm.templateNames))
}

// GetPageNames returns the sorted names of the files Execute can render.
func (tm *TemplateManager) GetPageNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return slices.Sorted(maps.Keys(tm.pages))
}

// GetTemplateDir returns the template dir that the TemplateManager uses.
// This mainly exists for concurrency-safety reasons as well.
func (tm *TemplateManager) GetTemplateDir() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templateDir
}
