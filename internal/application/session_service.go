package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/logging"
	"github.com/bnema/activity-ledger/internal/ports"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// The termination protocol does not depend on SessionService.
type SessionService struct {
	sessions  ports.SessionRepository
	launcher  ports.PresentationLauncher
	registry  ports.PresentationRegistry
	directory *PresentationDirectory
	clock     ports.Clock
	logger    *log.Logger
}

func NewSessionService(sessions ports.SessionRepository, launcher ports.PresentationLauncher, registry ports.PresentationRegistry, directory *PresentationDirectory, clock ports.Clock, logger *log.Logger) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SessionService{
		sessions:  sessions,
		launcher:  launcher,
		registry:  registry,
		directory: directory,
		clock:     clock,
		logger:    logging.Component(logger, "sessions"),
	}
}

type StartSessionCommand struct {
	ActivityID domain.ActivityID
	Name       string
	Theme      *domain.Theme
}

type LiveSession struct {
	PresentationID domain.PresentationID
	Attributes     domain.SessionAttributes
	Err            error
}

func (s *SessionService) Start(ctx context.Context, cmd StartSessionCommand) (domain.Session, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Session{}, fmt.Errorf("session name is required")
	}

	id := cmd.ActivityID
	if id == "" {
		id = domain.ActivityID(uuid.NewString())
	}
	if err := id.Validate(); err != nil {
		return domain.Session{}, err
	}

	existing, err := s.sessions.GetByID(ctx, id)
	switch {
	case err == nil && !existing.Ended():
		return domain.Session{}, fmt.Errorf("session %q is already running", id)
	case err != nil && !errors.Is(err, domain.ErrSessionNotFound):
		return domain.Session{}, fmt.Errorf("look up session %q: %w", id, err)
	}

	theme := domain.DefaultTheme()
	if cmd.Theme != nil {
		theme = *cmd.Theme
	}

	startedAt := s.clock.Now()
	presentationID, err := s.launcher.Launch(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("launch presentation: %w", err)
	}

	if err := s.directory.Publish(ctx, domain.SessionAttributes{
		PresentationID:          presentationID,
		ActivityID:              id,
		ActivityName:            name,
		SessionStartEpochMillis: startedAt.UnixMilli(),
		Theme:                   theme,
	}); err != nil {
		return domain.Session{}, s.abandon(ctx, presentationID, err)
	}

	session := domain.Session{
		ActivityID:     id,
		Name:           name,
		PresentationID: presentationID,
		StartedAt:      startedAt,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Session{}, s.abandon(ctx, presentationID, fmt.Errorf("save session: %w", err))
	}

	s.logger.Info("session started", "activity_id", id, "presentation_id", presentationID)
	return session, nil
}

func (s *SessionService) abandon(ctx context.Context, id domain.PresentationID, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}

	if err := s.directory.Unpublish(ctx, id); err != nil {
		errs = append(errs, err)
	}

	handles, err := s.registry.LiveHandles(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("list live presentations: %w", err))
	}
	for _, handle := range handles {
		if handle.ID() != id {
			continue
		}
		if err := handle.Dismiss(ctx); err != nil {
			errs = append(errs, fmt.Errorf("dismiss presentation %q: %w", id, err))
		}
	}

	s.logger.Warn("session start abandoned", "presentation_id", id, "err", cause)
	return errors.Join(errs...)
}

func (s *SessionService) Live(ctx context.Context) ([]LiveSession, error) {
	handles, err := s.registry.LiveHandles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list live presentations: %w", err)
	}

	live := make([]LiveSession, 0, len(handles))
	for _, handle := range handles {
		attrs, err := s.directory.AttributesFor(ctx, handle.ID())
		live = append(live, LiveSession{PresentationID: handle.ID(), Attributes: attrs, Err: err})
	}

	return live, nil
}

func (s *SessionService) List(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}
