// Package production provides production integrations for embedx instances:
// snapshot persistence, notification forwarding and lifecycle visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comalice/embedx"
)

// codec is the serialization used by a fileStore.
type codec struct {
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var (
	jsonCodec = codec{
		ext:       ".json",
		marshal:   func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
		unmarshal: json.Unmarshal,
	}
	yamlCodec = codec{
		ext:       ".yaml",
		marshal:   yaml.Marshal,
		unmarshal: yaml.Unmarshal,
	}
)

// fileStore keeps one file per instance in dir.
type fileStore struct {
	dir   string
	codec codec
}

func newFileStore(dir string, c codec) (fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fileStore{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return fileStore{dir: dir, codec: c}, nil
}

func (s fileStore) path(instanceID string) (string, error) {
	if instanceID == "" || strings.ContainsAny(instanceID, `/\`) || instanceID == "." || instanceID == ".." {
		return "", fmt.Errorf("invalid instance id %q", instanceID)
	}
	return filepath.Join(s.dir, instanceID+s.codec.ext), nil
}

func (s fileStore) save(ctx context.Context, snapshot embedx.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, err := s.path(snapshot.InstanceID)
	if err != nil {
		return err
	}
	data, err := s.codec.marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", s.codec.ext, err)
	}

	// Write then rename so a reader never sees a partial file.
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", fn, err)
	}
	return nil
}

func (s fileStore) load(ctx context.Context, instanceID string) (embedx.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return embedx.Snapshot{}, err
	}
	fn, err := s.path(instanceID)
	if err != nil {
		return embedx.Snapshot{}, err
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return embedx.Snapshot{}, fmt.Errorf("instance %q: %w", instanceID, os.ErrNotExist)
		}
		return embedx.Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}

	var snapshot embedx.Snapshot
	if err := s.codec.unmarshal(data, &snapshot); err != nil {
		return embedx.Snapshot{}, fmt.Errorf("unmarshal %s: %w", fn, err)
	}
	snapshot.InstanceID = instanceID
	return snapshot, nil
}

// JSONStore is a file-based embedx.SnapshotStore using JSON.
type JSONStore struct {
	fs fileStore
}

// NewJSONStore creates a JSONStore, ensuring the directory exists.
func NewJSONStore(dir string) (*JSONStore, error) {
	fs, err := newFileStore(dir, jsonCodec)
	if err != nil {
		return nil, err
	}
	return &JSONStore{fs: fs}, nil
}

func (s *JSONStore) Save(ctx context.Context, snapshot embedx.Snapshot) error {
	return s.fs.save(ctx, snapshot)
}

func (s *JSONStore) Load(ctx context.Context, instanceID string) (embedx.Snapshot, error) {
	return s.fs.load(ctx, instanceID)
}

// YAMLStore is a file-based embedx.SnapshotStore using YAML.
type YAMLStore struct {
	fs fileStore
}

// NewYAMLStore creates a YAMLStore, ensuring the directory exists.
func NewYAMLStore(dir string) (*YAMLStore, error) {
	fs, err := newFileStore(dir, yamlCodec)
	if err != nil {
		return nil, err
	}
	return &YAMLStore{fs: fs}, nil
}

func (s *YAMLStore) Save(ctx context.Context, snapshot embedx.Snapshot) error {
	return s.fs.save(ctx, snapshot)
}

func (s *YAMLStore) Load(ctx context.Context, instanceID string) (embedx.Snapshot, error) {
	return s.fs.load(ctx, instanceID)
}

// NewStore picks the store for format ("json" or "yaml").
func NewStore(format, dir string) (embedx.SnapshotStore, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return NewJSONStore(dir)
	case "yaml", "yml":
		return NewYAMLStore(dir)
	}
	return nil, fmt.Errorf("unknown snapshot format %q", format)
}
