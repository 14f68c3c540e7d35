package toml

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/ports"
	"github.com/spf13/viper"
)

const (
	sessionsPathKey  = "sessions.path"
	sessionsFileName = "sessions.toml"
)

// Only the foreground app writes sessions; other contexts go through the ledger.
type SessionRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(cfg *viper.Viper) (*SessionRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path, err := resolvePath(cfg.GetString(sessionsPathKey), sessionsFileName)
	if err != nil {
		return nil, err
	}

	return &SessionRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *SessionRepository) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSessionSchema(session)
	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].ActivityID == encoded.ActivityID {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	file.applyDefaults()
	if err := writeTOMLFile(r.path, file); err != nil {
		return fmt.Errorf("write sessions file: %w", err)
	}

	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id domain.ActivityID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Session{}, err
	}

	for _, entry := range file.Sessions {
		if entry.ActivityID == string(id) {
			return fromSessionSchema(entry), nil
		}
	}

	return domain.Session{}, domain.ErrSessionNotFound
}

func (r *SessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(file.Sessions))
	for _, entry := range file.Sessions {
		sessions = append(sessions, fromSessionSchema(entry))
	}

	return sessions, nil
}

func (r *SessionRepository) readSchema() (sessionsFileSchema, error) {
	var file sessionsFileSchema
	if _, err := readTOMLFile(r.path, &file); err != nil {
		return sessionsFileSchema{}, fmt.Errorf("read sessions file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return sessionsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toSessionSchema(session domain.Session) sessionSchema {
	return sessionSchema{
		ActivityID:     string(session.ActivityID),
		Name:           session.Name,
		PresentationID: string(session.PresentationID),
		StartedAt:      formatTime(session.StartedAt),
		EndedAt:        formatTime(session.EndedAt),
	}
}

func fromSessionSchema(schema sessionSchema) domain.Session {
	return domain.Session{
		ActivityID:     domain.ActivityID(schema.ActivityID),
		Name:           schema.Name,
		PresentationID: domain.PresentationID(schema.PresentationID),
		StartedAt:      parseTime(schema.StartedAt),
		EndedAt:        parseTime(schema.EndedAt),
	}
}
