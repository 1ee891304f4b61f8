// Package strategy provides the persuasion strategy store and tag matching.
// Strategies are named snippets of persuasive-communication guidance, each
// tagged with applicability keywords, loaded once at startup and read-only
// afterwards.
package strategy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed strategies.json
var defaultStrategyData []byte

// Strategy is a single persuasion strategy. Identity is the title.
type Strategy struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Store holds the loaded strategies in load order.
type Store struct {
	strategies []Strategy
}

// NewStore creates a store from an explicit strategy list. Mostly useful
// for tests.
func NewStore(strategies []Strategy) *Store {
	return &Store{strategies: strategies}
}

// Default returns a store populated with the embedded strategy set.
func Default() *Store {
	store, err := parse(defaultStrategyData)
	if err != nil {
		// The embedded data is validated by tests; a parse failure here is
		// a build defect, not a runtime condition.
		panic(fmt.Sprintf("embedded strategy data is invalid: %v", err))
	}
	return store
}

// Load reads strategies from a JSON file. A missing or unreadable file is a
// configuration-time condition: callers should degrade to an empty store
// and keep the pipeline running.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file %s: %w", path, err)
	}
	store, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse strategy file %s: %w", path, err)
	}
	return store, nil
}

// Empty returns a store with no strategies. The matcher treats it as
// "nothing matches", which downstream stages must render rather than skip.
func Empty() *Store {
	return &Store{}
}

func parse(data []byte) (*Store, error) {
	var strategies []Strategy
	if err := json.Unmarshal(data, &strategies); err != nil {
		return nil, err
	}
	for i, s := range strategies {
		if s.Title == "" {
			return nil, fmt.Errorf("strategy %d has no title", i)
		}
	}
	return &Store{strategies: strategies}, nil
}

// All returns the strategies in load order.
func (s *Store) All() []Strategy {
	return s.strategies
}

// Len returns the number of loaded strategies.
func (s *Store) Len() int {
	return len(s.strategies)
}
