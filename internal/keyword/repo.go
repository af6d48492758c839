package keyword

import (
	"encoding/json"
	"fmt"
	"time"
)

// Row represents one mirrored record.
type Row struct {
	ID        string
	Type      string
	Title     string
	Tags      []string
	Checksum  string
	UpdatedAt time.Time
}

// Hit is one keyword search result.
type Hit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Upsert inserts or replaces a mirrored record and its FTS entry.
func (db *DB) Upsert(r Row, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("keyword: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(r.Tags)

	_, err = tx.Exec(`
		INSERT INTO records (id, type, title, tags, body, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type       = excluded.type,
			title      = excluded.title,
			tags       = excluded.tags,
			body       = excluded.body,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, r.ID, r.Type, r.Title, string(tagsJSON), body, r.Checksum, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("keyword: upsert record: %w", err)
	}

	if err := ftsUpsert(tx, r.ID, r.Title, body, r.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a mirrored record and its FTS entry.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("keyword: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM records WHERE id = ?`, id)

	return tx.Commit()
}

// Checksum returns the stored checksum for a record, or empty if not found.
func (db *DB) Checksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM records WHERE id = ?`, id).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns every mirrored id with its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM records`)
	if err != nil {
		return nil, fmt.Errorf("keyword: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}
