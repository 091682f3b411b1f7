package artifacts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const defaultDebounceDuration = 250 * time.Millisecond

// Watcher rediscovers artifacts when files under the artifact root change.
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	debounce time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher over the registry's artifact root.
func NewWatcher(registry *Registry) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		registry: registry,
		watcher:  fw,
		debounce: defaultDebounceDuration,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching the artifact root.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.registry.Root()); err != nil {
		return fmt.Errorf("adding watch for %s: %w", w.registry.Root(), err)
	}

	w.wg.Add(1)
	go w.eventLoop()

	log.Info().Str("path", w.registry.Root()).Msg("Watching artifact root")
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() error {
	w.cancel()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleReload(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Artifact watcher error")
		}
	}
}

func (w *Watcher) scheduleReload(changed string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		log.Debug().Str("file", changed).Msg("Artifact change detected, rediscovering")
		if err := w.registry.Reload(); err != nil {
			log.Error().Err(err).Msg("Failed to rediscover artifacts")
		}
	})
}
