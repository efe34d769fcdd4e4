package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"runpay/internal/core"
	"runpay/internal/seed"

	"gopkg.in/yaml.v3"
)

// Store serves a seed held in memory, optionally loaded from a YAML file.
type Store struct {
	mu     sync.Mutex
	seed   core.Seed
	source string
}

func New(s core.Seed) *Store {
	return &Store{seed: s, source: "builtin"}
}

// NewFromFile parses the YAML seed at path. A missing file yields the
// built-in seed; a malformed one is an error.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(seed.Default()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return &Store{seed: s, source: path}, nil
}

// Parse decodes a YAML seed. Integrations default to the built-in set when
// the document lists none.
func Parse(data []byte) (core.Seed, error) {
	var s core.Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return core.Seed{}, fmt.Errorf("parse yaml: %w", err)
	}
	if s.Treasury.ID == "" {
		s.Treasury.ID = core.TreasuryID
	}
	if len(s.Integrations) == 0 {
		s.Integrations = seed.DefaultIntegrations()
	}
	if err := s.Validate(); err != nil {
		return core.Seed{}, err
	}
	return s, nil
}

// ReadSeed returns a copy of the held seed.
func (s *Store) ReadSeed(_ context.Context) (core.Seed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.seed.Validate(); err != nil {
		return core.Seed{}, err
	}
	out := s.seed
	out.Employees = append([]core.Employee(nil), s.seed.Employees...)
	out.Integrations = append([]core.Integration(nil), s.seed.Integrations...)
	return out, nil
}

// Source names where the seed came from: a file path or "builtin".
func (s *Store) Source() string { return s.source }
