package templating

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/CTAG07/Bakery/pkg/bakery"
	"github.com/golang/groupcache/lru"
)

// cachingLoader reads template files from disk, rejecting files over
// maxSize, and optionally keeps their contents in an LRU keyed by the
// cleaned path. groupcache's lru is not safe for concurrent use, hence mu.
type cachingLoader struct {
	mu      sync.Mutex
	cache   *lru.Cache // nil when caching is off
	size    int
	maxSize int64
}

func newCachingLoader(config *TemplateConfig) *cachingLoader {
	l := &cachingLoader{size: config.CacheSize, maxSize: config.MaxTemplateSize}
	if config.CacheTemplates {
		l.cache = lru.New(l.size)
	}
	return l
}

// Load implements bakery.Loader.
func (l *cachingLoader) Load(path string) (string, error) {
	key := filepath.Clean(path)

	l.mu.Lock()
	if l.cache != nil {
		if v, ok := l.cache.Get(key); ok {
			l.mu.Unlock()
			return v.(string), nil
		}
	}
	l.mu.Unlock()

	src, err := l.read(key)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	if l.cache != nil {
		l.cache.Add(key, src)
	}
	l.mu.Unlock()
	return src, nil
}

// read returns the file at path, failing once more than maxSize bytes have
// been read. The limit counts bytes read, not the size reported by stat.
func (l *cachingLoader) read(path string) (string, error) {
	if l.maxSize <= 0 {
		return bakery.FileLoader{}.Load(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	b, err := io.ReadAll(io.LimitReader(f, l.maxSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > l.maxSize {
		return "", fmt.Errorf("template %s is over the %d byte limit", path, l.maxSize)
	}
	return string(b), nil
}

// Purge drops every cached source.
func (l *cachingLoader) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache != nil {
		l.cache = lru.New(l.size)
	}
}

// Len returns the number of cached sources.
func (l *cachingLoader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache == nil {
		return 0
	}
	return l.cache.Len()
}
