package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
)

// Preferences are the session modes that survive restarts.
type Preferences struct {
	Muted   bool
	Shuffle bool
	Repeat  domain.RepeatMode
}

// ModeController is the part of the engine preferences are applied to.
type ModeController interface {
	SetMuted(ctx context.Context, muted bool) error
	SetShuffle(ctx context.Context, enabled bool) error
	SetRepeat(ctx context.Context, mode domain.RepeatMode) error
}

// PreferenceService keeps the persisted session modes in sync with the engine.
// It restores them at startup and saves them whenever the engine publishes a
// mute or mode change.
// All operations are thread-safe via sync.RWMutex.
type PreferenceService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	repository ports.PreferencesRepository
	bus        ports.EventBus

	// Cached preferences
	prefs    Preferences
	subs     []domain.SubscriptionID
	applying bool

	mu sync.RWMutex
}

// NewPreferenceService loads the saved preferences, falling back to defaults
// for anything never saved, and starts saving engine changes.
func NewPreferenceService(
	logger *slog.Logger,
	repository ports.PreferencesRepository,
	bus ports.EventBus,
	defaults Preferences,
) *PreferenceService {
	s := &PreferenceService{
		logger:     logger.With(slog.String("service", "preferences")),
		repository: repository,
		bus:        bus,
		prefs:      defaults,
	}

	s.loadPreferences()

	s.subs = append(s.subs,
		bus.Subscribe(domain.EventMuteToggled, s.onMuteToggled),
		bus.Subscribe(domain.EventModeChanged, s.onModeChanged),
	)

	s.logger.Debug("preference service initialized",
		slog.Bool("muted", s.prefs.Muted),
		slog.Bool("shuffle", s.prefs.Shuffle),
		slog.String("repeat", s.prefs.Repeat.String()))
	return s
}

// loadPreferences overlays saved values on the defaults.
func (s *PreferenceService) loadPreferences() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if muted, err := s.repository.LoadMuted(); err == nil {
		s.prefs.Muted = muted
	} else {
		s.logLoadError("muted", err)
	}

	if shuffle, err := s.repository.LoadShuffle(); err == nil {
		s.prefs.Shuffle = shuffle
	} else {
		s.logLoadError("shuffle", err)
	}

	if repeat, err := s.repository.LoadRepeatMode(); err == nil {
		s.prefs.Repeat = repeat
	} else {
		s.logLoadError("repeat", err)
	}
}

func (s *PreferenceService) logLoadError(key string, err error) {
	if errors.Is(err, domain.ErrPreferenceNotSet) {
		return
	}
	s.logger.Warn("failed to load preference, using default",
		slog.String("key", key),
		slog.Any("error", err))
}

// Get returns the current preferences.
func (s *PreferenceService) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Apply pushes the preferences into the engine. The engine events it causes
// are not saved, so overridden values stay out of storage.
func (s *PreferenceService) Apply(ctx context.Context, engine ModeController) error {
	s.mu.Lock()
	prefs := s.prefs
	s.applying = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.applying = false
		s.mu.Unlock()
	}()

	if err := engine.SetMuted(ctx, prefs.Muted); err != nil {
		return domain.NewServiceError("PreferenceService", "Apply", "set muted", err)
	}
	if err := engine.SetShuffle(ctx, prefs.Shuffle); err != nil {
		return domain.NewServiceError("PreferenceService", "Apply", "set shuffle", err)
	}
	if err := engine.SetRepeat(ctx, prefs.Repeat); err != nil {
		return domain.NewServiceError("PreferenceService", "Apply", "set repeat", err)
	}
	return nil
}

// Override replaces the cached preferences without saving them. Used for
// one-off command line flags; later engine changes are saved as usual.
func (s *PreferenceService) Override(prefs Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs
}

// ResetToDefaults clears the saved preferences and caches defaults.
func (s *PreferenceService) ResetToDefaults(defaults Preferences) error {
	if err := s.repository.Clear(); err != nil {
		return err
	}

	s.mu.Lock()
	s.prefs = defaults
	s.mu.Unlock()
	return nil
}

func (s *PreferenceService) onMuteToggled(e domain.Event) {
	ev, ok := e.(domain.MuteToggledEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	applying := s.applying
	if !applying {
		s.prefs.Muted = ev.Muted
	}
	s.mu.Unlock()
	if applying {
		return
	}

	if err := s.repository.SaveMuted(ev.Muted); err != nil {
		s.logger.Warn("failed to save mute state", slog.Any("error", err))
	}
}

func (s *PreferenceService) onModeChanged(e domain.Event) {
	ev, ok := e.(domain.ModeChangedEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	applying := s.applying
	if !applying {
		s.prefs.Shuffle = ev.Shuffle
		s.prefs.Repeat = ev.Repeat
	}
	s.mu.Unlock()
	if applying {
		return
	}

	if err := s.repository.SaveShuffle(ev.Shuffle); err != nil {
		s.logger.Warn("failed to save shuffle", slog.Any("error", err))
	}
	if err := s.repository.SaveRepeatMode(ev.Repeat); err != nil {
		s.logger.Warn("failed to save repeat mode", slog.Any("error", err))
	}
}

// Shutdown stops saving engine changes.
func (s *PreferenceService) Shutdown() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, id := range subs {
		s.bus.Unsubscribe(id)
	}
	return nil
}
