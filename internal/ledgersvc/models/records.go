package models

// Application is one card application record, keyed by application id.
// Issued by the card-issue web app; the kiosk only ever reads these.
type Application struct {
	Name    string `json:"name"`
	RfidUid string `json:"rfidUid"`
	Status  string `json:"status"` // "pending" until a card is issued, then "approved"
}

// Journey mirrors the wire schema kiosks PUT; the ledger stores it as-is
// and never interprets the fields.
type Journey struct {
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

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)
