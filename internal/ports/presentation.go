package ports

import (
	"context"

	"github.com/bnema/activity-ledger/internal/domain"
)

type PresentationHandle interface {
	ID() domain.PresentationID
	Dismiss(ctx context.Context) error
}

// ActivityIdentified is implemented by handles that know their own app-level
// activity id, e.g. a notification keyed by activity id.
type ActivityIdentified interface {
	ActivityID() domain.ActivityID
}

type PresentationRegistry interface {
	LiveHandles(ctx context.Context) ([]PresentationHandle, error)
}

// PresentationLauncher asks the OS to show a new presentation instance.
type PresentationLauncher interface {
	Launch(ctx context.Context, activityID domain.ActivityID) (domain.PresentationID, error)
}
