// Package storage defines the workspace file-system abstraction. A Provider
// is the rooted, handle-backed accessor for a workspace directory; PathMode
// covers desktop tabs that carry only a base path.
package storage

import "time"

// Entry is lightweight file metadata returned by list and stat operations.
type Entry struct {
	Path     string    `json:"path"`
	Checksum string    `json:"checksum"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
}

// Provider is the interface for workspace file operations. All paths are
// relative to the workspace root.
type Provider interface {
	// List walks dir and returns metadata for every file whose name ends
	// with ext (e.g. ".json"); an empty ext matches every file.
	List(dir, ext string) ([]Entry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// ReadSniff returns the raw bytes plus the detected MIME type, from the
	// file extension when registered and from content sniffing otherwise.
	ReadSniff(path string) ([]byte, string, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Stat returns metadata for a single file.
	Stat(path string) (Entry, error)
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
