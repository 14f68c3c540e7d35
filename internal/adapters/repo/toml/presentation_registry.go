package toml

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/ports"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	presentationsPathKey  = "presentations.path"
	presentationsFileName = "presentations.toml"
)

// PresentationRegistry stands in for the OS list of live presentations of
// the session kind. Instance ids are issued here, never by the app.
type PresentationRegistry struct {
	path  string
	mu    *sync.RWMutex
	now   func() string
	newID func() string
}

var (
	_ ports.PresentationRegistry = (*PresentationRegistry)(nil)
	_ ports.PresentationLauncher = (*PresentationRegistry)(nil)
)

func NewPresentationRegistry(cfg *viper.Viper, clock ports.Clock) (*PresentationRegistry, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	path, err := resolvePath(cfg.GetString(presentationsPathKey), presentationsFileName)
	if err != nil {
		return nil, err
	}

	return &PresentationRegistry{
		path:  path,
		mu:    lockForPath(path),
		now:   func() string { return formatTime(clock.Now()) },
		newID: uuid.NewString,
	}, nil
}

func (r *PresentationRegistry) Launch(ctx context.Context, activityID domain.ActivityID) (domain.PresentationID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return "", err
	}

	id := r.newID()
	file.Presentations = append(file.Presentations, presentationSchema{
		ID:         id,
		ActivityID: string(activityID),
		LaunchedAt: r.now(),
	})

	if err := writeTOMLFile(r.path, file); err != nil {
		return "", fmt.Errorf("write presentations file: %w", err)
	}

	return domain.PresentationID(id), nil
}

func (r *PresentationRegistry) LiveHandles(ctx context.Context) ([]ports.PresentationHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	handles := make([]ports.PresentationHandle, 0, len(file.Presentations))
	for _, entry := range file.Presentations {
		handles = append(handles, &presentationHandle{
			registry:   r,
			id:         domain.PresentationID(entry.ID),
			activityID: domain.ActivityID(entry.ActivityID),
		})
	}

	return handles, nil
}

// Dismissing a presentation that is already gone is a no-op, as it is for
// the OS.
func (r *PresentationRegistry) dismiss(ctx context.Context, id domain.PresentationID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	kept := file.Presentations[:0]
	removed := false
	for _, entry := range file.Presentations {
		if entry.ID == string(id) {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return nil
	}
	file.Presentations = kept

	if err := writeTOMLFile(r.path, file); err != nil {
		return fmt.Errorf("write presentations file: %w", err)
	}

	return nil
}

func (r *PresentationRegistry) readSchema() (presentationsFileSchema, error) {
	var file presentationsFileSchema
	if _, err := readTOMLFile(r.path, &file); err != nil {
		return presentationsFileSchema{}, fmt.Errorf("read presentations file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return presentationsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

type presentationHandle struct {
	registry   *PresentationRegistry
	id         domain.PresentationID
	activityID domain.ActivityID
}

var _ ports.ActivityIdentified = (*presentationHandle)(nil)

func (h *presentationHandle) ID() domain.PresentationID {
	return h.id
}

func (h *presentationHandle) ActivityID() domain.ActivityID {
	return h.activityID
}

func (h *presentationHandle) Dismiss(ctx context.Context) error {
	return h.registry.dismiss(ctx, h.id)
}
