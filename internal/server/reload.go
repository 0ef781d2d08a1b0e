package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches the config file and triggers webhook hot-reload.
type Reloader struct {
	watcher *fsnotify.Watcher
	server  *Server
}

// NewReloader creates a file watcher for the server's config file.
// Returns nil if the file does not exist (nothing to watch).
func NewReloader(server *Server) (*Reloader, error) {
	if server.cfgPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(server.cfgPath); err != nil {
		return nil, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(server.cfgPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", server.cfgPath, err)
	}

	return &Reloader{watcher: watcher, server: server}, nil
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait 500ms after last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := r.server.ReloadWebhooks(); err != nil {
						r.server.logger.Error("hot-reload failed", "error", err)
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.server.logger.Error("file watcher error", "error", err)
		}
	}
}
