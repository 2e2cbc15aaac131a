// Package settings holds the SettingsStore backends the agent reads windows from.
package settings

import (
	"context"
	"strconv"
	"sync"

	"github.com/ghalamif/TrackGate/internal/ports"
)

// Static is an in-memory store. Set may be called while tracking; the next
// sample sees the new value.
type Static struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStatic(values map[string]string) *Static {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Static{values: cp}
}

func (s *Static) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Static) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func (s *Static) GetString(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Static) GetBool(ctx context.Context, key string) (bool, error) {
	v, ok, err := s.GetString(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return parseBool(key, v)
}

func parseBool(key, v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ValueError{Key: key, Value: v}
	}
	return b, nil
}

// ValueError reports a stored value that does not fit the requested type.
type ValueError struct {
	Key   string
	Value string
}

func (e *ValueError) Error() string {
	return "settings: value " + strconv.Quote(e.Value) + " for " + e.Key + " is not a boolean"
}

var _ ports.SettingsStore = (*Static)(nil)
