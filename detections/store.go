package detections

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// modelHandle counts the holders of a model so that a replaced model is
// closed only once the last of them releases it.
type modelHandle struct {
	model Model
	log   logrus.FieldLogger

	mu      sync.Mutex
	refs    int
	retired bool
}

func (h *modelHandle) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retired {
		return false
	}
	h.refs++
	return true
}

func (h *modelHandle) release() {
	h.mu.Lock()
	h.refs--
	closeNow := h.retired && h.refs == 0
	h.mu.Unlock()
	if closeNow {
		h.close()
	}
}

func (h *modelHandle) retire() {
	h.mu.Lock()
	h.retired = true
	closeNow := h.refs == 0
	h.mu.Unlock()
	if closeNow {
		h.close()
	}
}

func (h *modelHandle) close() {
	if err := h.model.Close(); err != nil {
		h.log.Warnf("Error closing previous model %s: %v", h.model.Path(), err)
	}
}

// Store owns the process-wide model handle. Readers get lock-free snapshots;
// Load swaps the handle atomically and retires the previous model.
type Store struct {
	primaryPath  string
	fallbackPath string
	load         Loader
	log          logrus.FieldLogger

	mu      sync.Mutex // serializes Load and Close
	current atomic.Pointer[modelHandle]
}

func NewStore(primaryPath, fallbackPath string, load Loader, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		primaryPath:  primaryPath,
		fallbackPath: fallbackPath,
		load:         load,
		log:          log,
	}
}

// Load tries the configured model, then the fallback model. When both fail
// the handle is left unset and the combined error is returned.
func (s *Store) Load() (Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	model, err := s.loadWithFallback()
	s.swap(model)
	return model, err
}

func (s *Store) loadWithFallback() (Model, error) {
	model, err := s.load(s.primaryPath)
	if err == nil {
		s.log.Infof("Model loaded successfully from %s", s.primaryPath)
		return model, nil
	}
	s.log.Errorf("Error loading model %s: %v", s.primaryPath, err)

	if s.fallbackPath == "" || s.fallbackPath == s.primaryPath {
		return nil, err
	}

	fallback, fallbackErr := s.load(s.fallbackPath)
	if fallbackErr != nil {
		s.log.Errorf("Error loading fallback model %s: %v", s.fallbackPath, fallbackErr)
		return nil, errors.Join(err, fmt.Errorf("fallback: %w", fallbackErr))
	}
	s.log.Warnf("Using pretrained model %s as fallback", s.fallbackPath)
	return fallback, nil
}

func (s *Store) swap(model Model) {
	var next *modelHandle
	if model != nil {
		next = &modelHandle{model: model, log: s.log}
	}
	if prev := s.current.Swap(next); prev != nil {
		prev.retire()
	}
}

// Current returns the loaded model, or nil when no model is loaded.
func (s *Store) Current() Model {
	h := s.current.Load()
	if h == nil {
		return nil
	}
	return h.model
}

// Acquire returns the loaded model and a release func the caller must invoke
// when done with it. A model replaced by Load stays open until every holder
// has released it. Returns ErrModelUnavailable when no model is loaded.
func (s *Store) Acquire() (Model, func(), error) {
	for {
		h := s.current.Load()
		if h == nil {
			return nil, nil, ErrModelUnavailable
		}
		if h.acquire() {
			return h.model, h.release, nil
		}
		// Retired between the load and the acquire; the swap has already
		// published its replacement.
	}
}

func (s *Store) Loaded() bool {
	return s.Current() != nil
}

// ModelPath is the configured primary model path.
func (s *Store) ModelPath() string {
	return s.primaryPath
}

func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swap(nil)
}
