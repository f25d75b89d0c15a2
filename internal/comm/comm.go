package comm

import (
	"encoding/json"
	"time"
)

// Envelope wraps every message crossing NATS between kiosk services.
type Envelope struct {
	Type    string          `json:"type"` // e.g. "journey-started", "kiosk-heartbeat"
	Data    json.RawMessage `json:"data"`
	KioskId string          `json:"kioskid"`
}

// Envelope types published on SubjectJourneyEvents.
const (
	TypeJourneyStarted = "journey-started"
	TypeJourneyEnded   = "journey-ended"
	TypeHeartbeat      = "kiosk-heartbeat"
)

// SubjectJourneyEvents is the subject kiosks publish lifecycle events on.
const SubjectJourneyEvents = "journey.events"

// JourneyNotification is the payload for journey-started / journey-ended.
type JourneyNotification struct {
	TicketID            string    `json:"ticketId"`
	RfidUid             string    `json:"rfidUid"`
	OriginStation       int       `json:"originStation"`
	SelectedClass       int       `json:"selectedClass"`
	SelectedDestination int       `json:"selectedDestination"`
	ActualDestination   int       `json:"actualDestination,omitempty"`
	StartTime           time.Time `json:"startTime"`
	EndTime             time.Time `json:"endTime,omitempty"`
	DurationSeconds     int64     `json:"durationSeconds,omitempty"`
	FraudSuspected      bool      `json:"fraudSuspected,omitempty"`
	Active              bool      `json:"active"`
}

// KioskHeartbeat is published periodically so auditsvc can spot dead kiosks.
type KioskHeartbeat struct {
	KioskId   string    `json:"kioskid"`
	StationId int       `json:"stationId"`
	Timestamp time.Time `json:"timestamp"`
}
