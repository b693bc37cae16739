package preset

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits after the last change
// before reloading.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger routes watcher logs to l.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// OnReload registers fn to be called after every reload attempt with its
// result.
func OnReload(fn func(error)) Option {
	return func(w *Watcher) { w.onReload = fn }
}

// Watcher reloads a rack whenever its preset file is written. It watches
// the parent directory so editors that replace the file are seen too.
type Watcher struct {
	rack     *rack.Rack
	path     string
	debounce time.Duration
	log      *log.Logger
	onReload func(error)

	fw *fsnotify.Watcher
}

// NewWatcher starts watching path for r. Call Run to process events.
func NewWatcher(r *rack.Rack, path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}

	w := &Watcher{
		rack:     r,
		path:     abs,
		debounce: defaultDebounce,
		log:      log.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("preset watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("preset watcher: %w", err)
	}
	w.fw = fw

	return w, nil
}

// Path returns the watched preset file.
func (w *Watcher) Path() string { return w.path }

// Run processes file events until ctx is cancelled, then closes the
// watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Printf("[preset] watch error: %v", err)
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	err := Load(w.rack, w.path)
	if err != nil {
		w.log.Printf("[preset] %v", err)
	} else {
		w.log.Printf("[preset] reloaded %s", filepath.Base(w.path))
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
