package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

const exportExt = ".jsonl"

// Watcher monitors an export directory and emits one Event per complete
// appended line. The exporter rewrites a character's file at login, so a
// shrinking file means a new session and the offset resets to zero.
type Watcher struct {
	dir     string
	fsw     *fsnotify.Watcher
	events  chan Event
	offsets map[string]int64
	log     *slog.Logger
}

func NewWatcher(dir string, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:     dir,
		fsw:     fsw,
		events:  make(chan Event, 1024),
		offsets: make(map[string]int64),
		log:     log,
	}, nil
}

// Events delivers parsed exporter lines. The channel closes when Start
// returns after context cancellation.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return err
	}
	if err := w.readExisting(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return nil
		case err := <-w.fsw.Errors:
			if err != nil {
				return err
			}
		case event := <-w.fsw.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := w.tail(event.Name); err != nil {
					return err
				}
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(w.offsets, event.Name)
			}
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// readExisting replays files already present at startup. Export files hold
// one session, so replay reconstructs the current client state rather than
// stale history.
func (w *Watcher) readExisting() error {
	files, err := filepath.Glob(filepath.Join(w.dir, "*"+exportExt))
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := w.tail(path); err != nil {
			return err
		}
	}
	return nil
}

// tail reads everything appended to path since the last call and emits the
// complete lines. A trailing line without its newline is left for the next
// write event.
func (w *Watcher) tail(path string) error {
	if filepath.Ext(path) != exportExt {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}

	offset := w.offsets[path]
	if offset > info.Size() {
		w.log.Info("export file rewritten, replaying", "path", path)
		offset = 0
	}
	if offset == info.Size() {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if offset > int64(len(data)) {
		// Shrunk again between stat and read.
		offset = 0
	}

	character := characterFromPath(path)
	rest := data[offset:]
	consumed := offset
	for {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSpace(rest[:idx])
		rest = rest[idx+1:]
		consumed += int64(idx) + 1
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			w.log.Warn("bad export line, skipping", "path", path, "err", err)
			continue
		}
		if ev.Character == "" {
			ev.Character = character
		}
		select {
		case w.events <- ev:
		default:
			w.log.Warn("event dropped, channel full",
				"character", ev.Character, "type", ev.Type)
		}
	}
	w.offsets[path] = consumed
	return nil
}

func characterFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), exportExt)
}
