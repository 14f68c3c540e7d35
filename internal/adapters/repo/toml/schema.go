package toml

import "fmt"

const (
	currentSharedSchemaVersion       = 1
	currentSessionsSchemaVersion     = 1
	currentPresentationSchemaVersion = 1
)

type sharedFileSchema struct {
	Version int                 `toml:"version"`
	Lists   map[string][]string `toml:"lists"`
	Values  map[string]string   `toml:"values"`
}

func (s *sharedFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSharedSchemaVersion
	}
	if s.Lists == nil {
		s.Lists = map[string][]string{}
	}
	if s.Values == nil {
		s.Values = map[string]string{}
	}
}

func (s sharedFileSchema) validateVersion() error {
	if s.Version > currentSharedSchemaVersion {
		return fmt.Errorf("unsupported shared store schema version %d (current %d)", s.Version, currentSharedSchemaVersion)
	}

	return nil
}

type sessionsFileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *sessionsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSessionsSchemaVersion
	}
}

func (s sessionsFileSchema) validateVersion() error {
	if s.Version > currentSessionsSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSessionsSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ActivityID     string `toml:"activity_id"`
	Name           string `toml:"name"`
	PresentationID string `toml:"presentation_id,omitempty"`
	StartedAt      string `toml:"started_at"`
	EndedAt        string `toml:"ended_at,omitempty"`
}

type presentationsFileSchema struct {
	Version       int                  `toml:"version"`
	Presentations []presentationSchema `toml:"presentations"`
}

func (s *presentationsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentPresentationSchemaVersion
	}
}

func (s presentationsFileSchema) validateVersion() error {
	if s.Version > currentPresentationSchemaVersion {
		return fmt.Errorf("unsupported presentations schema version %d (current %d)", s.Version, currentPresentationSchemaVersion)
	}

	return nil
}

type presentationSchema struct {
	ID         string `toml:"id"`
	ActivityID string `toml:"activity_id,omitempty"`
	LaunchedAt string `toml:"launched_at"`
}
