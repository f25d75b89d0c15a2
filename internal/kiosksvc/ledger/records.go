package ledger

import (
	"time"

	"github.com/railgo/kiosk-services/internal/kiosksvc/models"
)

// Wire records mirror the remote ledger's JSON schema. Field names are a
// contract with the card-issue web app; do not rename them.

type applicationRecord struct {
	Name    string `json:"name"`
	RfidUid string `json:"rfidUid"`
	Status  string `json:"status"`
}

type journeyRecord struct {
	TicketID                   string `json:"ticketID"`
	RfidUid                    string `json:"rfidUid"`
	StartTimestamp             string `json:"startTimestamp"`
	EndTimestamp               string `json:"endTimestamp,omitempty"`
	OriginStation              int    `json:"originStation"`
	SelectedClass              int    `json:"selectedClass"`
	SelectedDestinationStation int    `json:"selectedDestinationStation"`
	ActualDestinationStation   int    `json:"actualDestinationStation,omitempty"`
	TravelDuration             int64  `json:"travelDuration,omitempty"`
	IsFraudSuspected           bool   `json:"isFraudSuspected,omitempty"`
	CurrentState               int    `json:"currentState"`
}

const timestampLayout = "2006-01-02T15:04:05Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toJourneyRecord(s *models.JourneySession) journeyRecord {
	rec := journeyRecord{
		TicketID:                   s.TicketID,
		RfidUid:                    s.UID.Hex(),
		StartTimestamp:             formatTimestamp(s.StartTime),
		OriginStation:              s.OriginStation,
		SelectedClass:              s.SelectedClass,
		SelectedDestinationStation: s.SelectedDestination,
		CurrentState:               int(s.State),
	}
	if !s.EndTime.IsZero() {
		rec.EndTimestamp = formatTimestamp(s.EndTime)
		rec.ActualDestinationStation = s.ActualDestination
		rec.TravelDuration = int64(s.Duration / time.Second)
		rec.IsFraudSuspected = s.FraudSuspected
	}
	return rec
}

func fromJourneyRecord(rec journeyRecord, uid models.CardUID) *models.JourneySession {
	s := &models.JourneySession{
		TicketID:            rec.TicketID,
		UID:                 append(models.CardUID(nil), uid...),
		OriginStation:       rec.OriginStation,
		SelectedClass:       rec.SelectedClass,
		SelectedDestination: rec.SelectedDestinationStation,
		ActualDestination:   rec.ActualDestinationStation,
		StartTime:           parseTimestamp(rec.StartTimestamp),
		Duration:            time.Duration(rec.TravelDuration) * time.Second,
		State:               models.JourneyState(rec.CurrentState),
		FraudSuspected:      rec.IsFraudSuspected,
	}
	if rec.EndTimestamp != "" {
		s.EndTime = parseTimestamp(rec.EndTimestamp)
	}
	return s
}
