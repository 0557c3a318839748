package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileProvider watches a configuration file and fans out validated
// snapshots to subscribers when it changes.
type FileProvider struct {
	path        string
	logger      *slog.Logger
	mu          sync.RWMutex
	current     Config
	subscribers []chan Config
	watcher     *fsnotify.Watcher
	cancel      context.CancelFunc
}

// NewFileProvider loads the file once and starts watching its directory.
// Editors replace files rather than writing in place, so the watch is on the
// directory and filtered by name.
func NewFileProvider(path string, logger *slog.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &FileProvider{
		path:    absPath,
		logger:  logger,
		watcher: watcher,
		cancel:  cancel,
	}

	cfg, err := Load(absPath)
	if err != nil {
		_ = watcher.Close()
		cancel()
		return nil, err
	}
	p.current = cfg

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		cancel()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	go p.watchLoop(ctx)

	return p, nil
}

// Current returns the latest valid configuration.
func (p *FileProvider) Current() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe returns a channel receiving configuration updates, seeded with
// the current state.
func (p *FileProvider) Subscribe() <-chan Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Config, 1)
	p.subscribers = append(p.subscribers, ch)
	ch <- p.current
	return ch
}

// Close stops the watcher and cleans up resources.
func (p *FileProvider) Close() error {
	p.cancel()
	return p.watcher.Close()
}

func (p *FileProvider) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != p.path {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Chmod) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, p.reload)
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("config watcher error", "error", err)
		}
	}
}

// reload re-reads the file; an invalid document keeps the previous snapshot
// in place rather than disturbing a running pipeline.
func (p *FileProvider) reload() {
	cfg, err := Load(p.path)
	if err != nil {
		p.logger.Warn("config reload failed, keeping previous", "path", p.path, "error", err)
		return
	}

	p.mu.Lock()
	p.current = cfg
	subscribers := make([]chan Config, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	p.logger.Info("configuration reloaded", "path", p.path)

	for _, ch := range subscribers {
		select {
		case ch <- cfg:
		default:
			// Skip if channel is full (slow consumer)
		}
	}
}
