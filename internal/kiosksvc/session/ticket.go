package session

import (
	"crypto/rand"

	log "github.com/sirupsen/logrus"
)

const (
	ticketAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	ticketIDLength = 15
)

// NewTicketID draws a fresh fixed-width alphanumeric ticket id. Ids are not
// checked against the ledger; at 36^15 the collision odds are negligible.
func NewTicketID() string {
	buf := make([]byte, ticketIDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken, but a dead
		// kiosk helps nobody; fall back to a degenerate id and log it.
		log.Errorf("ticket id entropy source failed: %v", err)
	}
	id := make([]byte, ticketIDLength)
	for i, b := range buf {
		id[i] = ticketAlphabet[int(b)%len(ticketAlphabet)]
	}
	return string(id)
}
