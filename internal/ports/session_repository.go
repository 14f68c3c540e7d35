package ports

import (
	"context"

	"github.com/bnema/activity-ledger/internal/domain"
)

type SessionRepository interface {
	GetByID(ctx context.Context, id domain.ActivityID) (domain.Session, error)
	List(ctx context.Context) ([]domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
}
