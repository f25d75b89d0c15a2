package session

import (
	"context"

	"github.com/railgo/kiosk-services/internal/kiosksvc/models"
)

// Ledger is the data-access surface the manager needs from the remote
// ledger client.
type Ledger interface {
	FindUserByUID(ctx context.Context, uid models.CardUID) *models.User
	FindActiveSession(ctx context.Context, uid models.CardUID) (*models.JourneySession, error)
	PutSession(ctx context.Context, session *models.JourneySession) error
}

// Display is the two-line character display collaborator.
type Display interface {
	Show(line1, line2 string)
}

// Feedback drives the buzzer/LED style cues.
type Feedback interface {
	Tap()
	Success()
	Error()
}

// Catalog resolves station and class ids to display names.
type Catalog interface {
	DestinationName(id int) string
	ClassName(id int) string
}

// EventPublisher receives journey lifecycle notifications. Implementations
// must not block; publish failures are theirs to swallow.
type EventPublisher interface {
	JourneyStarted(session *models.JourneySession)
	JourneyEnded(session *models.JourneySession)
}
