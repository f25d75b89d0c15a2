package models

import (
	"time"
)

// JourneyState mirrors the ledger's currentState field.
type JourneyState int

const (
	JourneyInactive JourneyState = 0
	JourneyActive   JourneyState = 1
)

// JourneySession is one tap-in/tap-out lifecycle. Origin and the selected
// fields are fixed at creation; only the closing fields (ActualDestination,
// EndTime, Duration, FraudSuspected, State) are written at tap-out.
type JourneySession struct {
	TicketID            string        `json:"ticket_id"`
	UID                 CardUID       `json:"uid"`
	OriginStation       int           `json:"origin_station"`
	SelectedClass       int           `json:"selected_class"`
	SelectedDestination int           `json:"selected_destination"`
	ActualDestination   int           `json:"actual_destination,omitempty"`
	StartTime           time.Time     `json:"start_time"`
	EndTime             time.Time     `json:"end_time,omitempty"`
	Duration            time.Duration `json:"duration,omitempty"`
	State               JourneyState  `json:"state"`
	FraudSuspected      bool          `json:"fraud_suspected,omitempty"`
}
