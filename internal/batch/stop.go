package batch

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/ladder/internal/logging"
)

// StopSignal asks a batch to finish the running job and start no more.
// It can be set once; later requests are no-ops.
type StopSignal struct {
	once sync.Once
	done chan struct{}
}

// NewStopSignal creates an unset StopSignal.
func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Request sets the signal. Safe to call from any goroutine.
func (s *StopSignal) Request() {
	s.once.Do(func() { close(s.done) })
}

// Requested reports whether Request has been called.
func (s *StopSignal) Requested() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed when the signal is set.
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

// NotifyOnInterrupt sets stop on SIGINT or SIGTERM until ctx ends. A second
// interrupt is left to the default handler so the process can still be
// killed from the terminal.
func NotifyOnInterrupt(ctx context.Context, stop *StopSignal, log *logging.Logger) {
	if log == nil {
		log = logging.Global()
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			log.Warn("stop requested, finishing the current job", "signal", sig.String())
			stop.Request()
		case <-ctx.Done():
		}
	}()
}

// WatchStopFile sets stop when path exists, checking once immediately and
// then on every create event in its directory. It returns after the watch
// is established; the watcher runs until ctx ends or stop is set.
func WatchStopFile(ctx context.Context, path string, stop *StopSignal, log *logging.Logger) error {
	if log == nil {
		log = logging.Global()
	}
	if fileExists(path) {
		log.Warn("stop file present, no new jobs will start", "path", path)
		stop.Request()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	log.Debug("watching for stop file", "path", path)

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					log.Warn("stop file created, finishing the current job", "path", path)
					stop.Request()
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("stop file watcher error", "error", err)
			}
		}
	}()

	// The file may have appeared between the first check and Add.
	if fileExists(path) {
		stop.Request()
	}
	return nil
}

// RequestStop creates the stop file watched by a running batch.
func RequestStop(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// ClearStopFile removes a stop file left behind by an earlier run. A
// missing file is not an error.
func ClearStopFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
