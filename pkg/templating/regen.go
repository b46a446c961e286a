package templating

import (
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"

	"github.com/CTAG07/Bakery/pkg/bakery"
	"github.com/natefinch/atomic"
)

// Regenerate walks root and renders every file ending in the config's regen
// source extension to a sibling file with the target extension, so
// "docs/index.htms" becomes "docs/index.html". Symlinks are skipped. Each
// output is written atomically. It stops at the first failure and returns
// the files written so far.
func Regenerate(logger *slog.Logger, root string, config TemplateConfig, vars bakery.Bindings) ([]string, error) {
	if config.RegenSourceExtension == "" || config.RegenSourceExtension == config.RegenTargetExtension {
		return nil, fmt.Errorf("invalid regen extensions %q -> %q", config.RegenSourceExtension, config.RegenTargetExtension)
	}

	b := directives(&config)
	maps.Copy(b, vars)

	// Every output is rendered from disk, so caching only helps shared layouts.
	engine := bakery.New(bakery.WithLoader(newCachingLoader(&config)))

	var written []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 || d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, config.RegenSourceExtension) {
			return nil
		}

		target := strings.TrimSuffix(path, config.RegenSourceExtension) + config.RegenTargetExtension
		logger.Info("Regenerating", "source", path, "target", target)

		out, err := engine.RenderFile(path, bakery.NewContext(b))
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", path, err)
		}
		if err = atomic.WriteFile(target, strings.NewReader(out)); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		written = append(written, target)
		return nil
	})
	return written, err
}
