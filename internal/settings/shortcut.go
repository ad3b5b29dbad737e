package settings

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// GlobalShortcutKey is the settings key for the user-chosen shortcut
const GlobalShortcutKey = "globalShortcut"

// ShortcutRegistrar binds accelerator strings with the host OS
type ShortcutRegistrar interface {
	Register(shortcut string) error
	Unregister(shortcut string) error
}

// ShortcutState owns the currently registered shortcut for the process
type ShortcutState struct {
	registrar ShortcutRegistrar
	store     *Store
	current   string // "" when disabled
	mu        sync.Mutex
	logger    *slog.Logger
}

// NewShortcutState creates the shortcut owner; call Restore to apply the saved value
func NewShortcutState(registrar ShortcutRegistrar, store *Store, logger *slog.Logger) *ShortcutState {
	return &ShortcutState{
		registrar: registrar,
		store:     store,
		logger:    logger.With("component", "shortcut"),
	}
}

// Restore registers the shortcut saved in the store, if any
func (s *ShortcutState) Restore() {
	saved, ok := s.store.GetString(GlobalShortcutKey)
	if !ok {
		return
	}
	saved = strings.TrimSpace(saved)
	if saved == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Registering initial global shortcut", "shortcut", saved)
	if err := s.registrar.Register(saved); err != nil {
		s.logger.Warn("Failed to register initial global shortcut", "error", err)
		return
	}
	s.current = saved
}

// Current returns the registered shortcut, or "" when disabled
func (s *ShortcutState) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update replaces the registered shortcut. Blank input disables it.
// It reports whether anything changed.
func (s *ShortcutState) Update(shortcut string) (bool, error) {
	next := strings.TrimSpace(shortcut)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == next {
		s.logger.Debug("Global shortcut unchanged")
		return false, nil
	}

	if prev := s.current; prev != "" {
		if err := s.registrar.Unregister(prev); err != nil {
			s.logger.Warn("Failed to unregister existing shortcut", "shortcut", prev, "error", err)
		} else {
			s.current = ""
		}
	}

	if next == "" {
		s.logger.Info("Global shortcut disabled")
		s.current = ""
	} else {
		s.logger.Info("Registering global shortcut", "shortcut", next)
		if err := s.registrar.Register(next); err != nil {
			return false, fmt.Errorf("failed to register shortcut %q: %w", next, err)
		}
		s.current = next
	}

	if err := s.store.Set(GlobalShortcutKey, next); err != nil {
		return true, err
	}
	if err := s.store.Save(); err != nil {
		return true, err
	}
	return true, nil
}

// LogRegistrar records shortcut changes without binding OS hotkeys.
// It stands in when no window host is attached.
type LogRegistrar struct {
	Logger *slog.Logger
}

func (r LogRegistrar) Register(shortcut string) error {
	r.Logger.Debug("shortcut registered", "shortcut", shortcut)
	return nil
}

func (r LogRegistrar) Unregister(shortcut string) error {
	r.Logger.Debug("shortcut unregistered", "shortcut", shortcut)
	return nil
}
