// Package redis is a ports.SharedStore backed by a Redis server reachable by
// every process of the group.
//
// Lists are kept as a JSON array inside a single string key, the same
// layout Android SharedPreferences uses for the ledger. Appending is a GET
// followed by a SET, not an RPUSH: the store offers the same last-writer-wins
// contract as the file backend, and the ledger is written to tolerate it.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	addrKey     = "redis.addr"
	passwordKey = "redis.password"
	dbKey       = "redis.db"
	prefixKey   = "redis.prefix"

	defaultAddr   = "127.0.0.1:6379"
	defaultPrefix = "activitylog:"
	pingTimeout   = 2 * time.Second
)

type SharedStore struct {
	client *backend.Client
	prefix string
}

var _ ports.SharedStore = (*SharedStore)(nil)

type Option func(*SharedStore)

// WithPrefix sets the namespace every key is stored under.
func WithPrefix(prefix string) Option {
	return func(s *SharedStore) {
		s.prefix = prefix
	}
}

// NewSharedStore connects using the redis.* keys of cfg and pings the server.
func NewSharedStore(ctx context.Context, cfg *viper.Viper) (*SharedStore, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	cfg.SetDefault(addrKey, defaultAddr)
	cfg.SetDefault(prefixKey, defaultPrefix)

	client := backend.NewClient(&backend.Options{
		Addr:     cfg.GetString(addrKey),
		Password: cfg.GetString(passwordKey),
		DB:       cfg.GetInt(dbKey),
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis at %s: %w", domain.ErrStoreUnavailable, cfg.GetString(addrKey), err)
	}

	return NewFromClient(client, WithPrefix(cfg.GetString(prefixKey))), nil
}

func NewFromClient(client *backend.Client, opts ...Option) *SharedStore {
	store := &SharedStore{
		client: client,
		prefix: defaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *SharedStore) listKey(key string) string {
	return s.prefix + "list:" + key
}

func (s *SharedStore) valueKey(key string) string {
	return s.prefix + "value:" + key
}

func (s *SharedStore) ReadList(ctx context.Context, key string) ([]string, error) {
	raw, err := s.readRawList(ctx, key)
	if err != nil {
		return nil, err
	}

	items := gjson.Parse(raw).Array()
	values := make([]string, 0, len(items))
	for _, item := range items {
		values = append(values, item.String())
	}

	return values, nil
}

func (s *SharedStore) AppendAndPersist(ctx context.Context, key string, value string) error {
	raw, err := s.readRawList(ctx, key)
	if err != nil {
		return err
	}

	updated, err := sjson.Set(raw, "-1", value)
	if err != nil {
		return fmt.Errorf("append to list %q: %w", key, err)
	}

	if err := s.client.Set(ctx, s.listKey(key), updated, 0).Err(); err != nil {
		return fmt.Errorf("write list %q: %w", key, err)
	}

	return nil
}

func (s *SharedStore) ReplaceList(ctx context.Context, key string, values []string) error {
	if len(values) == 0 {
		if err := s.client.Del(ctx, s.listKey(key)).Err(); err != nil {
			return fmt.Errorf("delete list %q: %w", key, err)
		}
		return nil
	}

	raw := "[]"
	for _, value := range values {
		var err error
		raw, err = sjson.Set(raw, "-1", value)
		if err != nil {
			return fmt.Errorf("encode list %q: %w", key, err)
		}
	}

	if err := s.client.Set(ctx, s.listKey(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("write list %q: %w", key, err)
	}

	return nil
}

func (s *SharedStore) ReadValue(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.valueKey(key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read value %q: %w", key, err)
	}

	return value, true, nil
}

func (s *SharedStore) WriteValues(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for key, value := range values {
		pipe.Set(ctx, s.valueKey(key), value, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write values: %w", err)
	}

	return nil
}

func (s *SharedStore) DeleteKeys(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	redisKeys := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		redisKeys = append(redisKeys, s.valueKey(key), s.listKey(key))
	}

	if err := s.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}

	return nil
}

func (s *SharedStore) Close() error {
	return s.client.Close()
}

func (s *SharedStore) readRawList(ctx context.Context, key string) (string, error) {
	raw, err := s.client.Get(ctx, s.listKey(key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "[]", nil
		}
		return "", fmt.Errorf("read list %q: %w", key, err)
	}

	if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		return "", fmt.Errorf("decode list %q: stored value is not a JSON array", key)
	}

	return raw, nil
}
