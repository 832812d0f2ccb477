package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/v2"
)

// DocumentWatcher monitors a single YAML/JSON/TOML document and invokes the
// supplied callback with the parsed tree whenever it changes. Stop must be
// called to release filesystem resources.
type DocumentWatcher struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop halts the watcher and waits for the underlying goroutine to exit.
func (w *DocumentWatcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
}

// WatchDocument parses path once, hands the result to onChange, then reparses
// on every write, create or rename touching the file. Parse failures go to
// onError and leave the previous document in place.
func WatchDocument(ctx context.Context, path string, onChange func(*koanf.Koanf), onError func(error)) (*DocumentWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("config: watch document requires a change callback")
	}
	if path == "" {
		return nil, fmt.Errorf("config: no document configured for watching")
	}

	resolved := path
	if abs, err := filepath.Abs(path); err == nil {
		resolved = abs
	}
	targetFile := filepath.Clean(resolved)

	doc, err := LoadDocument(targetFile)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("config: watch document: %w", err)
	}
	// Editors replace files atomically, so the parent directory is watched.
	if err := watcher.Add(filepath.Dir(targetFile)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil && onError != nil {
			onError(fmt.Errorf("config: watch document close: %w", closeErr))
		}
		cancel()
		return nil, fmt.Errorf("config: watch add %s: %w", filepath.Dir(targetFile), err)
	}
	onChange(doc)

	done := make(chan struct{})
	watch := &DocumentWatcher{cancel: cancel, done: done}

	go func() {
		defer close(done)
		defer func() {
			if err := watcher.Close(); err != nil && onError != nil {
				onError(fmt.Errorf("config: watch document close: %w", err))
			}
		}()

		reload := func() {
			doc, err := LoadDocument(targetFile)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				if onError != nil {
					onError(err)
				}
				return
			}
			onChange(doc)
		}

		const debounce = 25 * time.Millisecond
		var reloadTimer *time.Timer
		var reloadSignal <-chan time.Time
		scheduleReload := func() {
			if reloadTimer == nil {
				reloadTimer = time.NewTimer(debounce)
			} else {
				if !reloadTimer.Stop() {
					select {
					case <-reloadTimer.C:
					default:
					}
				}
				reloadTimer.Reset(debounce)
			}
			reloadSignal = reloadTimer.C
		}
		flushTimer := func() {
			if reloadTimer == nil {
				return
			}
			if !reloadTimer.Stop() {
				select {
				case <-reloadTimer.C:
				default:
				}
			}
			reloadSignal = nil
		}
		defer flushTimer()

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-reloadSignal:
				flushTimer()
				reload()
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != targetFile {
					continue
				}
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && onError != nil {
					onError(fmt.Errorf("config: document %s removed", targetFile))
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) != 0 {
					scheduleReload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(fmt.Errorf("config: watch error: %w", err))
				}
			}
		}
	}()

	return watch, nil
}
