package ports

import "context"

// SharedStore is the durable key-value namespace visible to every process
// of the app group. Writes are durable for the calling process before they
// return, but a read-modify-write is not atomic across processes: the last
// writer wins.
type SharedStore interface {
	ReadList(ctx context.Context, key string) ([]string, error)
	AppendAndPersist(ctx context.Context, key string, value string) error
	ReplaceList(ctx context.Context, key string, values []string) error

	ReadValue(ctx context.Context, key string) (string, bool, error)
	WriteValues(ctx context.Context, values map[string]string) error
	DeleteKeys(ctx context.Context, keys ...string) error
}
