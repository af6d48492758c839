// Package storage defines the scope-directory file-system abstraction.
package storage

import "time"

// FileMeta describes one record file on disk.
type FileMeta struct {
	Path     string // relative to the scope root
	Checksum string // hex SHA-256 of the raw bytes
	ModTime  time.Time
}

// Provider is the interface for scope-directory file operations.
// All paths are relative to the scope root.
type Provider interface {
	// ListRecords returns metadata for every .md file at the scope root.
	ListRecords() ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether a file is present at path.
	Exists(path string) bool
}
