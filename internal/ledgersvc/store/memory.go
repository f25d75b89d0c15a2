package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/railgo/kiosk-services/internal/ledgersvc/models"
)

// MemoryStore is the default backend for local development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	apps     map[string]models.Application
	journeys map[string]models.Journey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		apps:     make(map[string]models.Application),
		journeys: make(map[string]models.Journey),
	}
}

func (s *MemoryStore) ListApplications(ctx context.Context) (map[string]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Application, len(s.apps))
	for id, app := range s.apps {
		out[id] = app
	}
	return out, nil
}

func (s *MemoryStore) CreateApplication(ctx context.Context, app models.Application) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	s.apps[id] = app
	return id, nil
}

func (s *MemoryStore) ApproveApplication(ctx context.Context, id, rfidUid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return ErrNotFound
	}
	app.RfidUid = rfidUid
	app.Status = models.StatusApproved
	s.apps[id] = app
	return nil
}

func (s *MemoryStore) ListJourneys(ctx context.Context) (map[string]models.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Journey, len(s.journeys))
	for id, j := range s.journeys {
		out[id] = j
	}
	return out, nil
}

func (s *MemoryStore) GetJourney(ctx context.Context, ticketID string) (*models.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.journeys[ticketID]
	if !ok {
		return nil, ErrNotFound
	}
	return &j, nil
}

func (s *MemoryStore) PutJourney(ctx context.Context, journey models.Journey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.journeys[journey.TicketID] = journey
	return nil
}
