package ports

import "context"

// SecretStore holds credentials for store backends, keyed by a reference
// such as "activitylog/redis".
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
