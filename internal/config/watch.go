package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the configuration when its file changes
type Watcher struct {
	loader   *Loader
	file     string
	onChange func(*Config, error)
	watcher  *fsnotify.Watcher
	debounce time.Duration
	done     chan struct{}
}

// Watch starts watching the file the loader last read. onChange receives
// every reload, including failed ones, from a single goroutine.
func (l *Loader) Watch(onChange func(*Config, error)) (*Watcher, error) {
	file := l.v.ConfigFileUsed()
	if file == "" {
		return nil, errors.New("no config file to watch")
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		loader:   l,
		file:     abs,
		onChange: onChange,
		watcher:  fw,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if path, err := filepath.Abs(event.Name); err == nil && path == w.file {
				timer.Reset(w.debounce)
				fire = timer.C
			}

		case <-fire:
			fire = nil
			w.onChange(w.loader.Load())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onChange(nil, fmt.Errorf("watch config: %w", err))

		case <-w.done:
			return
		}
	}
}

// Stop ends watching
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
