package keyword

import (
	"log/slog"

	"github.com/ferrows/mnemo/internal/checksum"
	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/store"
)

// Source is the slice of the store the mirror syncs from.
type Source interface {
	Index() (*models.Index, error)
	Content(id string) (string, error)
}

var _ Source = (*store.Store)(nil)

// Sync brings the mirror up to date with the record index:
//   - new/changed records are upserted (checksum comparison on content)
//   - records removed from the index are deleted from the mirror
func Sync(db *DB, src Source, logger *slog.Logger) error {
	ix, err := src.Index()
	if err != nil {
		return err
	}

	mirrored, err := db.AllChecksums()
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(ix.Entries))
	for _, e := range ix.Entries {
		live[e.ID] = struct{}{}

		content, err := src.Content(e.ID)
		if err != nil {
			logger.Warn("keyword sync: read failed", slog.String("id", e.ID), slog.String("error", err.Error()))
			continue
		}
		cs := checksum.SumString(content)
		if mirrored[e.ID] == cs {
			continue
		}
		row := Row{
			ID:        e.ID,
			Type:      string(e.Type),
			Title:     e.Title,
			Tags:      e.Tags,
			Checksum:  cs,
			UpdatedAt: e.UpdatedAt,
		}
		if err := db.Upsert(row, content); err != nil {
			logger.Warn("keyword sync: upsert failed", slog.String("id", e.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("keyword sync: mirrored", slog.String("id", e.ID))
		}
	}

	for id := range mirrored {
		if _, ok := live[id]; !ok {
			if err := db.Delete(id); err != nil {
				logger.Warn("keyword sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("keyword sync: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}
