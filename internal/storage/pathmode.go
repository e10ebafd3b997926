package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/ansuz/internal/apperr"
)

// PathMode resolves file access for tabs backed by a bare base path instead
// of a workspace handle. Relative paths join against Base with the platform
// separator; absolute paths skip the join. Access is deliberately unrooted:
// a desktop tab may point anywhere the process can reach, and no MIME
// metadata is available on reads.
type PathMode struct {
	Base string
}

// Resolve returns the effective path for a read or write.
func (p PathMode) Resolve(path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) || p.Base == "" {
		return path
	}
	return filepath.Join(p.Base, path)
}

// Read returns the raw bytes at the resolved path.
func (p PathMode) Read(path string) ([]byte, error) {
	abs := p.Resolve(path)
	if abs == "" {
		return nil, fmt.Errorf("storage: empty path: %w", apperr.ErrInvalidPath)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", abs, err)
	}
	return data, nil
}

// Write atomically writes content to the resolved path.
func (p PathMode) Write(path string, content []byte) error {
	abs := p.Resolve(path)
	if abs == "" {
		return fmt.Errorf("storage: empty path: %w", apperr.ErrInvalidPath)
	}
	return atomicWrite(abs, content)
}
