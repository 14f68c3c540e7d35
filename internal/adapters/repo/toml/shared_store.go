package toml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/ports"
	"github.com/spf13/viper"
)

const (
	storePathKey   = "store.path"
	sharedFileName = "shared.toml"
)

// SharedStore keeps the app-group namespace in a single TOML file. Every
// write rewrites the whole file from the snapshot this process just read,
// so two processes appending at the same moment can lose one append.
type SharedStore struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SharedStore = (*SharedStore)(nil)

func NewSharedStore(cfg *viper.Viper) (*SharedStore, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path, err := resolvePath(cfg.GetString(storePathKey), sharedFileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), dataDirMode); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %w", domain.ErrStoreUnavailable, err)
	}

	return &SharedStore{path: path, mu: lockForPath(path)}, nil
}

func (s *SharedStore) Path() string {
	return s.path
}

func (s *SharedStore) ReadList(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}

	values := file.Lists[key]
	out := make([]string, len(values))
	copy(out, values)
	return out, nil
}

func (s *SharedStore) AppendAndPersist(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	file.Lists[key] = append(file.Lists[key], value)

	return s.writeSchema(file)
}

func (s *SharedStore) ReplaceList(ctx context.Context, key string, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	if len(values) == 0 {
		delete(file.Lists, key)
	} else {
		file.Lists[key] = append([]string(nil), values...)
	}

	return s.writeSchema(file)
}

func (s *SharedStore) ReadValue(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return "", false, err
	}

	value, ok := file.Values[key]
	return value, ok, nil
}

func (s *SharedStore) WriteValues(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	for key, value := range values {
		file.Values[key] = value
	}

	return s.writeSchema(file)
}

func (s *SharedStore) DeleteKeys(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	for _, key := range keys {
		delete(file.Values, key)
		delete(file.Lists, key)
	}

	return s.writeSchema(file)
}

func (s *SharedStore) readSchema() (sharedFileSchema, error) {
	var file sharedFileSchema
	if _, err := readTOMLFile(s.path, &file); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return sharedFileSchema{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return sharedFileSchema{}, fmt.Errorf("read shared store: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return sharedFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (s *SharedStore) writeSchema(file sharedFileSchema) error {
	file.applyDefaults()

	if err := writeTOMLFile(s.path, file); err != nil {
		return fmt.Errorf("write shared store: %w", err)
	}

	return nil
}
