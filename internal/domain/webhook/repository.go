package webhook

import "context"

type Repository interface {
	// Insert persists a freshly received event. The provider event id is
	// unique; inserting a duplicate returns a conflict error.
	Insert(ctx context.Context, e *Event) error

	Update(ctx context.Context, e *Event) error

	GetByProviderEventID(ctx context.Context, providerEventID string) (*Event, error)
}
