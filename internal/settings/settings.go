// Package settings manages the file-backed generation settings. The
// backing JSON file is watched so operator edits take effect without a
// restart.
package settings

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/playforge/playforge-server/internal/domain"
	domainerrors "github.com/playforge/playforge-server/internal/errors"
	"github.com/playforge/playforge-server/internal/generator"
)

// reloadDebounce coalesces the burst of events editors produce when
// rewriting a file.
const reloadDebounce = 200 * time.Millisecond

// Service holds the current generation settings and keeps them in sync
// with the backing file.
type Service struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	current domain.GenerationSettings

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// New loads settings from path, creating the file with defaults when it
// does not exist yet.
func New(path string, logger *slog.Logger) (*Service, error) {
	s := &Service{
		path:   path,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		if err := s.save(domain.GenerationSettings{}); err != nil {
			return nil, fmt.Errorf("write default settings: %w", err)
		}
	}

	return s, nil
}

// Watch starts watching the settings file for external edits. Blocks
// until ctx is canceled or Close is called.
func (s *Service) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}

	// Watch the parent directory: editors replace files rather than
	// writing in place, which would drop a file-level watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch settings dir: %w", err)
	}
	s.watcher = watcher

	s.wg.Add(1)
	go s.processEvents(ctx)

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

// Close stops the watcher.
func (s *Service) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.watcher != nil {
		err := s.watcher.Close()
		s.wg.Wait()
		return err
	}
	return nil
}

func (s *Service) processEvents(ctx context.Context) {
	defer s.wg.Done()

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := s.load(); err != nil {
					if s.logger != nil {
						s.logger.Warn("failed to reload settings", "path", s.path, "error", err)
					}
					return
				}
				if s.logger != nil {
					s.logger.Info("settings reloaded", "path", s.path)
				}
			})
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if s.logger != nil {
				s.logger.Warn("settings watcher error", "error", err)
			}
		}
	}
}

// Generation returns the current settings. Implements the generator's
// settings provider.
func (s *Service) Generation() domain.GenerationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and persists new settings. Custom prompts must pass
// validation before they are stored with UseCustomPrompts enabled; the
// failure reason is surfaced for inline display.
func (s *Service) Update(settings domain.GenerationSettings) error {
	if settings.UseCustomPrompts {
		if settings.CustomMainPrompt != "" {
			if ok, reason := generator.ValidateCustomPrompt(settings.CustomMainPrompt); !ok {
				return domainerrors.Validation("main prompt: " + reason)
			}
		}
		if settings.CustomRefinementPrompt != "" {
			if ok, reason := generator.ValidateCustomPrompt(settings.CustomRefinementPrompt); !ok {
				return domainerrors.Validation("refinement prompt: " + reason)
			}
		}
		if settings.CustomMainPrompt == "" && settings.CustomRefinementPrompt == "" {
			return domainerrors.Validation("custom prompts enabled but none provided")
		}
	}

	return s.save(settings)
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var settings domain.GenerationSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("parse settings file: %w", err)
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return nil
}

func (s *Service) save(settings domain.GenerationSettings) error {
	data, err := json.Marshal(&settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return nil
}
