package config

import (
	"sync"
	"sync/atomic"
)

// Store holds the current configuration snapshot. Readers never see a
// partially applied reload.
type Store struct {
	path    string
	current atomic.Pointer[Config]
	mu      sync.Mutex
}

// NewStore loads and validates path once.
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(cfg)
	return s, nil
}

// NewStaticStore wraps an already built configuration.
func NewStaticStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Reload re-reads the file. On error the previous snapshot stays active.
func (s *Store) Reload() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := Load(s.path)
	if err != nil {
		return s.current.Load(), err
	}
	if err := cfg.Validate(); err != nil {
		return s.current.Load(), err
	}
	s.current.Store(cfg)
	return cfg, nil
}
