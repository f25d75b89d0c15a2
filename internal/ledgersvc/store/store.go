package store

import (
	"context"
	"errors"

	"github.com/railgo/kiosk-services/internal/ledgersvc/models"
)

var ErrNotFound = errors.New("store: record not found")

// ApplicationStore holds card application records keyed by application id.
type ApplicationStore interface {
	ListApplications(ctx context.Context) (map[string]models.Application, error)
	CreateApplication(ctx context.Context, app models.Application) (string, error)
	ApproveApplication(ctx context.Context, id, rfidUid string) error
}

// JourneyStore holds journey records keyed by ticket id. Put is an upsert;
// kiosks write the full record on both tap-in and tap-out.
type JourneyStore interface {
	ListJourneys(ctx context.Context) (map[string]models.Journey, error)
	GetJourney(ctx context.Context, ticketID string) (*models.Journey, error)
	PutJourney(ctx context.Context, journey models.Journey) error
}

// Store is what the handlers need; both backends satisfy it.
type Store interface {
	ApplicationStore
	JourneyStore
}
