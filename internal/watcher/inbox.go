package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/markdave123-py/docingest/internal/models"
)

// InboxUserID is recorded as the owner of documents dropped in the inbox.
const InboxUserID = "inbox"

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Ingester is the part of the ingestion engine the inbox needs.
type Ingester interface {
	Ingest(ctx context.Context, data []byte, filename, userID string) *models.IngestionResult
}

// Inbox ingests files dropped into a directory. A file is picked up once
// it has not changed for the settle period, then moved to processed/ or
// failed/ next to it.
type Inbox struct {
	dir      string
	ingester Ingester
	maxBytes int64
	settle   time.Duration
	now      func() time.Time
}

func NewInbox(dir string, ingester Ingester, maxBytes int64) (*Inbox, error) {
	if dir == "" {
		return nil, errors.New("inbox directory is empty")
	}
	for _, sub := range []string{"", processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create inbox directory: %w", err)
		}
	}
	return &Inbox{
		dir:      dir,
		ingester: ingester,
		maxBytes: maxBytes,
		settle:   500 * time.Millisecond,
		now:      time.Now,
	}, nil
}

// Run watches the inbox until ctx is done. Files already present when it
// starts are ingested first.
func (b *Inbox) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(b.dir); err != nil {
		return fmt.Errorf("watch %s: %w", b.dir, err)
	}
	log.Printf("Inbox: watching %s", b.dir)

	pending := make(map[string]time.Time)
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && !hidden(e.Name()) {
			pending[filepath.Join(b.dir, e.Name())] = time.Time{}
		}
	}

	tick := time.NewTicker(b.settle / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				if filepath.Dir(ev.Name) == filepath.Clean(b.dir) && !hidden(filepath.Base(ev.Name)) {
					pending[ev.Name] = b.now()
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("Inbox: watcher error: %v", err)
		case <-tick.C:
			now := b.now()
			for path, seen := range pending {
				if now.Sub(seen) < b.settle {
					continue
				}
				delete(pending, path)
				b.handle(ctx, path)
			}
		}
	}
}

// handle ingests one file and moves it out of the inbox.
func (b *Inbox) handle(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	name := filepath.Base(path)

	if b.maxBytes > 0 && info.Size() > b.maxBytes {
		log.Printf("Inbox: %s is %d bytes, over the %d byte limit", name, info.Size(), b.maxBytes)
		b.move(path, failedDir)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Inbox: read %s: %v", name, err)
		return
	}

	res := b.ingester.Ingest(ctx, data, name, InboxUserID)
	if res.Success {
		log.Printf("Inbox: ingested %s as %s (%d chunks, cached=%t)", name, res.Fingerprint, res.DocumentsCount, res.Cached)
		b.move(path, processedDir)
		return
	}
	if ctx.Err() != nil {
		// Interrupted, not rejected: the next Run picks the file up again.
		log.Printf("Inbox: %s left in inbox, stopped during ingest: %v", name, res.Error)
		return
	}
	log.Printf("Inbox: %s failed: %v", name, res.Error)
	b.move(path, failedDir)
}

func (b *Inbox) move(path, sub string) {
	dst := filepath.Join(b.dir, sub, filepath.Base(path))
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(dst)
		dst = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(dst, ext), b.now().UnixNano(), ext)
	}
	if err := os.Rename(path, dst); err != nil {
		log.Printf("Inbox: move %s to %s: %v", path, sub, err)
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
