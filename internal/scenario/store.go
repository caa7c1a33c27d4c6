package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/kagami/internal/assets"
)

// LoadError reports a failed scenario load: fetch failure, schema rejection,
// or decode failure. The caller never receives a partial scenario.
type LoadError struct {
	ScenarioID string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load scenario %q: %v", e.ScenarioID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err is a scenario load failure.
// Uses errors.As to handle wrapped errors.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Store fetches, validates, and caches scenario documents.
//
// Loaded scenarios are immutable and cached for the lifetime of the
// process; the cache is the only mutable state here. Safe for concurrent
// use.
type Store struct {
	fetcher assets.Fetcher

	mu    sync.Mutex
	cache map[string]*Scenario
}

// NewStore creates a Store reading documents through the given fetcher.
func NewStore(fetcher assets.Fetcher) *Store {
	return &Store{
		fetcher: fetcher,
		cache:   make(map[string]*Scenario),
	}
}

// Load fetches and parses the scenario document for id, probing the
// `scenarios/{id}.{ext}` convention for each supported extension.
//
// The parsed scenario is cached by id; subsequent loads return the cached
// instance. All failure modes collapse into *LoadError - the caller must
// not assume partial results.
func (s *Store) Load(ctx context.Context, id string) (*Scenario, error) {
	if id == "" {
		return nil, &LoadError{ScenarioID: id, Err: fmt.Errorf("scenario id is empty")}
	}

	s.mu.Lock()
	if cached, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	data, format, path, err := s.fetch(ctx, id)
	if err != nil {
		return nil, &LoadError{ScenarioID: id, Err: err}
	}

	if err := Validate(data, format, path); err != nil {
		return nil, &LoadError{ScenarioID: id, Err: err}
	}

	scn, err := Decode(data, format)
	if err != nil {
		return nil, &LoadError{ScenarioID: id, Err: err}
	}

	if scn.ID != id {
		slog.Warn("scenario document id differs from requested id",
			"requested", id,
			"document", scn.ID,
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent load may have won; keep the first cached instance so
	// everyone shares one immutable scenario.
	if cached, ok := s.cache[id]; ok {
		return cached, nil
	}
	s.cache[id] = scn

	slog.Debug("scenario loaded", "id", id, "path", path, "scenes", len(scn.Scenes))
	return scn, nil
}

// fetch probes the supported extensions in order and returns the first
// document found. Only the last fetch error is reported; earlier misses
// are expected.
func (s *Store) fetch(ctx context.Context, id string) ([]byte, Format, string, error) {
	var lastErr error
	for _, ext := range assets.ScenarioExts {
		path := assets.ScenarioPath(id, ext)
		data, err := s.fetcher.Fetch(ctx, path)
		if err != nil {
			lastErr = err
			continue
		}
		format, _ := FormatForExt(ext)
		return data, format, path, nil
	}
	return nil, "", "", fmt.Errorf("no scenario document found: %w", lastErr)
}

// Scene looks up a scene by id within a loaded scenario.
// Pure lookup; the returned pointer shares the scenario's backing array
// and must be treated as read-only.
func (s *Scenario) Scene(id string) (*Scene, bool) {
	for i := range s.Scenes {
		if s.Scenes[i].ID == id {
			return &s.Scenes[i], true
		}
	}
	return nil, false
}

// FirstScene returns the first scene of the scenario sequence.
// Fails (ok=false) when the scene list is empty.
func (s *Scenario) FirstScene() (*Scene, bool) {
	if len(s.Scenes) == 0 {
		return nil, false
	}
	return &s.Scenes[0], true
}

// ScenarioRef reports whether a scene's `next` names another scenario
// document rather than a scene id (a cross-scenario jump), and if so
// returns the referenced scenario id.
func ScenarioRef(next string) (string, bool) {
	for _, ext := range assets.ScenarioExts {
		suffix := "." + ext
		if strings.HasSuffix(next, suffix) {
			return strings.TrimSuffix(next, suffix), true
		}
	}
	return "", false
}
