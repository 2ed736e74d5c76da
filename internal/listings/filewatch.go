package listings

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// LoadFile reads, validates and snapshots a local feed file.
func LoadFile(path string, opts ValidationOptions) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrapf(err, "open feed %s", path)
	}
	defer f.Close()

	feed, raw, err := DecodeFeed(f)
	if err != nil {
		return nil, xerrors.Wrapf(err, "feed %s", path)
	}
	if err := ValidateFeed(feed, opts); err != nil {
		return nil, err
	}
	snap := feed.Snapshot(raw, SourceFile)
	return &snap, nil
}

// FileWatcher reloads a local feed file into the Store whenever it changes.
// The parent directory is watched so editors that replace the file by rename
// are picked up.
type FileWatcher struct {
	Path     string
	Store    *Store
	Logger   log.Logger
	Debounce time.Duration
	OnSwap   func(snap *Snapshot)
}

// Run blocks until ctx is done.
func (fw *FileWatcher) Run(ctx context.Context) error {
	lg := fw.Logger
	if lg == nil {
		lg = log.Nop()
	}
	debounce := fw.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.Wrap(err, "create fsnotify watcher")
	}
	defer w.Close()

	abs, err := filepath.Abs(fw.Path)
	if err != nil {
		return xerrors.Wrap(err, "resolve feed path")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return xerrors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}
	lg.Info(ctx, "watching local listing feed", "path", abs)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			lg.Error(ctx, err, "fsnotify error", "path", abs)
		case <-timer.C:
			snap, err := LoadFile(abs, DefaultValidationOptions())
			if err != nil {
				lg.Error(ctx, err, "local listing feed rejected, keeping current catalog", "path", abs)
				continue
			}
			fw.Store.Set(*snap)
			lg.Info(ctx, "local listing feed reloaded",
				"version", snap.Meta.Version,
				"listings", snap.Catalog.Len(),
			)
			if fw.OnSwap != nil {
				fw.OnSwap(snap)
			}
		}
	}
}
