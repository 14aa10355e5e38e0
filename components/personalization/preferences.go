package personalization

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryPreferenceStore provides a concurrency-safe default store for tests
// and single-process deployments.
type InMemoryPreferenceStore struct {
	mu   sync.RWMutex
	data map[string]Preferences
}

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		data: make(map[string]Preferences),
	}
}

// Fetch returns the stored document for the user, ok=false when absent.
func (s *InMemoryPreferenceStore) Fetch(_ context.Context, userID string) (Preferences, bool, error) {
	if userID == "" {
		return Preferences{}, false, fmt.Errorf("personalize: preference store requires user id")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefs, ok := s.data[userID]
	if !ok {
		return Preferences{}, false, nil
	}
	return prefs.Clone(), true, nil
}

// Replace overwrites the stored document wholesale.
func (s *InMemoryPreferenceStore) Replace(_ context.Context, userID string, prefs Preferences) error {
	if userID == "" {
		return fmt.Errorf("personalize: preference store requires user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = prefs.Clone()
	return nil
}
