package bakery

import "os"

// Loader reads template files for RenderFile and the wrap directive.
// Implementations must release any file handle before returning.
type Loader interface {
	Load(path string) (string, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (string, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (string, error) { return f(path) }

// FileLoader reads whole files from the local filesystem.
type FileLoader struct{}

// Load returns the contents of the file at path.
func (FileLoader) Load(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
