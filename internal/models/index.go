package models

import "time"

// IndexVersion is the current on-disk index format version.
const IndexVersion = 1

// IndexEntry is the lightweight metadata mirror of one record. Path is the
// record file path relative to the scope root.
type IndexEntry struct {
	ID        string     `json:"id"`
	Type      RecordType `json:"type"`
	Title     string     `json:"title"`
	Tags      []string   `json:"tags,omitempty"`
	Scope     Tier       `json:"scope"`
	Path      string     `json:"path"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Severity  Severity   `json:"severity,omitempty"`
}

// Index is the consolidated metadata table for one scope root. Entries keep
// insertion order; search uses that order to break score ties.
type Index struct {
	Version int          `json:"version"`
	Entries []IndexEntry `json:"entries"`
}

// NewIndex returns an empty index at the current version.
func NewIndex() *Index {
	return &Index{Version: IndexVersion, Entries: []IndexEntry{}}
}

// Find returns the entry with the given id and its position, or (nil, -1).
func (ix *Index) Find(id string) (*IndexEntry, int) {
	for i := range ix.Entries {
		if ix.Entries[i].ID == id {
			return &ix.Entries[i], i
		}
	}
	return nil, -1
}

// Upsert replaces the entry with the same id in place, or appends it.
// Returns true when the entry was newly added.
func (ix *Index) Upsert(e IndexEntry) bool {
	if _, i := ix.Find(e.ID); i >= 0 {
		ix.Entries[i] = e
		return false
	}
	ix.Entries = append(ix.Entries, e)
	return true
}

// Remove deletes the entry with the given id. Returns false if absent.
func (ix *Index) Remove(id string) bool {
	_, i := ix.Find(id)
	if i < 0 {
		return false
	}
	ix.Entries = append(ix.Entries[:i], ix.Entries[i+1:]...)
	return true
}
