package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven change. kind is one of
// "created", "updated", "deleted"; id is the affected record id.
type EventCallback func(kind, id string)

// debounce is how long the watcher waits after the last event before
// resyncing derived state.
const debounce = 200 * time.Millisecond

// Watch observes the scope directory for out-of-band record edits until ctx
// is cancelled. After each burst of events it invokes resync (if non-nil),
// which typically rebuilds the index and the keyword mirror, and reports
// individual record events through cb.
//
// Only .md files directly under the scope root are considered; nested
// scope directories own their files.
func Watch(ctx context.Context, s *Store, logger *slog.Logger, resync func(), cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", s.dir))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			if resync != nil {
				resync()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, ".mnemo-tmp-") {
				continue
			}
			id := strings.TrimSuffix(name, ".md")

			switch {
			case ev.Op&fsnotify.Create != 0:
				if cb != nil {
					cb("created", id)
				}
			case ev.Op&fsnotify.Write != 0:
				if cb != nil {
					cb("updated", id)
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if cb != nil {
					cb("deleted", id)
				}
			default:
				continue
			}
			logger.Debug("watcher: event", slog.String("op", ev.Op.String()), slog.String("id", id))
			schedule()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: error", slog.String("error", err.Error()))
		}
	}
}
