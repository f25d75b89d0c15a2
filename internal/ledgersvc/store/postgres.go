package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/railgo/kiosk-services/internal/ledgersvc/models"
)

// PostgresStore backs the ledger with Postgres. Timestamps are kept in the
// wire's RFC3339 text form; the ledger never interprets them.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the ledger tables if this is a fresh database.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := `
        CREATE TABLE IF NOT EXISTS rfid_applications (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            rfid_uid TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending'
        );
        CREATE TABLE IF NOT EXISTS journeys (
            ticket_id TEXT PRIMARY KEY,
            rfid_uid TEXT NOT NULL,
            start_timestamp TEXT NOT NULL,
            end_timestamp TEXT NOT NULL DEFAULT '',
            origin_station INT NOT NULL,
            selected_class INT NOT NULL,
            selected_destination INT NOT NULL,
            actual_destination INT NOT NULL DEFAULT 0,
            travel_duration BIGINT NOT NULL DEFAULT 0,
            is_fraud_suspected BOOLEAN NOT NULL DEFAULT FALSE,
            current_state INT NOT NULL
        );
    `
	_, err := s.db.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("could not ensure ledger schema: %v", err)
	}
	return nil
}

func (s *PostgresStore) ListApplications(ctx context.Context) (map[string]models.Application, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, name, rfid_uid, status
        FROM rfid_applications
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.Application)
	for rows.Next() {
		var id string
		var app models.Application
		if err := rows.Scan(&id, &app.Name, &app.RfidUid, &app.Status); err != nil {
			return nil, err
		}
		out[id] = app
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateApplication(ctx context.Context, app models.Application) (string, error) {
	id := uuid.New().String()
	if app.Status == "" {
		app.Status = models.StatusPending
	}

	_, err := s.db.Exec(ctx, `
        INSERT INTO rfid_applications (id, name, rfid_uid, status)
        VALUES ($1, $2, $3, $4)
    `, id, app.Name, app.RfidUid, app.Status)
	if err != nil {
		return "", fmt.Errorf("could not create application: %v", err)
	}
	return id, nil
}

func (s *PostgresStore) ApproveApplication(ctx context.Context, id, rfidUid string) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE rfid_applications
        SET rfid_uid = $2, status = $3
        WHERE id = $1
    `, id, rfidUid, models.StatusApproved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListJourneys(ctx context.Context) (map[string]models.Journey, error) {
	rows, err := s.db.Query(ctx, `
        SELECT ticket_id, rfid_uid, start_timestamp, end_timestamp, origin_station,
               selected_class, selected_destination, actual_destination,
               travel_duration, is_fraud_suspected, current_state
        FROM journeys
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.Journey)
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		out[j.TicketID] = *j
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetJourney(ctx context.Context, ticketID string) (*models.Journey, error) {
	row := s.db.QueryRow(ctx, `
        SELECT ticket_id, rfid_uid, start_timestamp, end_timestamp, origin_station,
               selected_class, selected_destination, actual_destination,
               travel_duration, is_fraud_suspected, current_state
        FROM journeys
        WHERE ticket_id = $1
    `, ticketID)

	j, err := scanJourney(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (s *PostgresStore) PutJourney(ctx context.Context, journey models.Journey) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO journeys (ticket_id, rfid_uid, start_timestamp, end_timestamp,
            origin_station, selected_class, selected_destination, actual_destination,
            travel_duration, is_fraud_suspected, current_state)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (ticket_id) DO UPDATE SET
            rfid_uid = EXCLUDED.rfid_uid,
            start_timestamp = EXCLUDED.start_timestamp,
            end_timestamp = EXCLUDED.end_timestamp,
            origin_station = EXCLUDED.origin_station,
            selected_class = EXCLUDED.selected_class,
            selected_destination = EXCLUDED.selected_destination,
            actual_destination = EXCLUDED.actual_destination,
            travel_duration = EXCLUDED.travel_duration,
            is_fraud_suspected = EXCLUDED.is_fraud_suspected,
            current_state = EXCLUDED.current_state
    `, journey.TicketID, journey.RfidUid, journey.StartTimestamp, journey.EndTimestamp,
		journey.OriginStation, journey.SelectedClass, journey.SelectedDestinationStation,
		journey.ActualDestinationStation, journey.TravelDuration, journey.IsFraudSuspected,
		journey.CurrentState)
	if err != nil {
		return fmt.Errorf("could not upsert journey: %v", err)
	}
	return nil
}

func scanJourney(row pgx.Row) (*models.Journey, error) {
	j := &models.Journey{}
	err := row.Scan(
		&j.TicketID,
		&j.RfidUid,
		&j.StartTimestamp,
		&j.EndTimestamp,
		&j.OriginStation,
		&j.SelectedClass,
		&j.SelectedDestinationStation,
		&j.ActualDestinationStation,
		&j.TravelDuration,
		&j.IsFraudSuspected,
		&j.CurrentState,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}
