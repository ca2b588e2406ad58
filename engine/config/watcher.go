package config

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/jinzhu/copier"
)

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := &Config{}
	if err := copier.CopyWithOption(out, c, copier.Option{DeepCopy: true}); err != nil {
		// Config holds only plain values; copier cannot fail on it.
		panic(err)
	}
	return out
}

// Watcher reloads a configuration file whenever it changes and publishes validated snapshots.
// A file that fails to load or validate is reported on Errors and the previous snapshot stays current.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	current *Config

	updates chan *Config
	errs    chan error
	done    chan struct{}
	wg      sync.WaitGroup
}

// Watch starts watching path. The directory is watched rather than the file so that editors which
// replace the file on save are still seen.
//
// Parameters:
//   - path: the configuration file
//   - initial: the configuration currently in use, usually the result of Load(path)
//
// Returns:
//   - *Watcher: the running watcher
//   - error: an fsnotify setup error
func Watch(path string, initial *Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:    abs,
		watcher: fw,
		current: initial.Clone(),
		updates: make(chan *Config, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Updates delivers a snapshot after every successful reload. Only the newest undelivered snapshot is kept.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Errors delivers reload failures. Only the newest undelivered error is kept.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Snapshot returns a deep copy of the current configuration.
func (w *Watcher) Snapshot() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.Clone()
}

// Close stops watching and waits for the event goroutine to exit.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			publish(w.errs, err)
		}
	}
}

func (w *Watcher) reload() {
	// A truncated file is an in-progress save; the write that follows triggers another reload.
	if info, err := os.Stat(w.path); err == nil && info.Size() == 0 {
		return
	}
	c, err := Load(w.path)
	if err != nil {
		log.Printf("[Config] reload of %s rejected: %v", w.path, err)
		publish(w.errs, err)
		return
	}

	w.mu.Lock()
	w.current = c
	w.mu.Unlock()

	log.Printf("[Config] reloaded %s", w.path)
	publish(w.updates, c.Clone())
}

// publish replaces any undelivered value in a one-slot channel with v.
func publish[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
