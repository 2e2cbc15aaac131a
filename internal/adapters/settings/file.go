package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/TrackGate/internal/ports"
)

// File reads a flat YAML mapping of setting keys. The file is re-parsed when its
// modification time changes, so operators can edit windows in place.
//
//	commute_start_morning: "07:00"
//	commute_end_morning: "09:30"
//	skip_commute_time_check: false
type File struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	values  map[string]string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) GetString(_ context.Context, key string) (string, bool, error) {
	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *File) GetBool(ctx context.Context, key string) (bool, error) {
	v, ok, err := f.GetString(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return parseBool(key, v)
}

func (f *File) load() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.values = nil
		f.modTime = time.Time{}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings file: %w", err)
	}
	if f.values != nil && info.ModTime().Equal(f.modTime) && info.Size() == f.size {
		return f.values, nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("settings file: %w", err)
	}
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("settings file %s: %w", f.path, err)
	}
	values := make(map[string]string, len(doc))
	for k, n := range doc {
		if n.Kind != yaml.ScalarNode {
			continue
		}
		values[k] = n.Value
	}

	f.values = values
	f.modTime = info.ModTime()
	f.size = info.Size()
	return values, nil
}

var _ ports.SettingsStore = (*File)(nil)
