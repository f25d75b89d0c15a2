package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/railgo/kiosk-services/internal/comm"
	"github.com/railgo/kiosk-services/internal/kiosksvc/models"
	log "github.com/sirupsen/logrus"
)

// Publisher pushes journey lifecycle notifications onto NATS. Publishing is
// fire-and-forget; a down broker never blocks or fails a fare transaction.
type Publisher struct {
	conn    *nats.Conn
	kioskId string
}

func NewPublisher(conn *nats.Conn, kioskId string) *Publisher {
	return &Publisher{conn: conn, kioskId: kioskId}
}

func (p *Publisher) JourneyStarted(session *models.JourneySession) {
	p.publish(comm.TypeJourneyStarted, toNotification(session))
}

func (p *Publisher) JourneyEnded(session *models.JourneySession) {
	p.publish(comm.TypeJourneyEnded, toNotification(session))
}

// Heartbeat announces the kiosk is alive at its station.
func (p *Publisher) Heartbeat(stationId int) {
	p.publish(comm.TypeHeartbeat, comm.KioskHeartbeat{
		KioskId:   p.kioskId,
		StationId: stationId,
		Timestamp: time.Now(),
	})
}

func (p *Publisher) publish(msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("events: marshal %s: %v", msgType, err)
		return
	}
	env := comm.Envelope{
		Type:    msgType,
		Data:    data,
		KioskId: p.kioskId,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		log.Errorf("events: marshal envelope: %v", err)
		return
	}
	if err := p.conn.Publish(comm.SubjectJourneyEvents, raw); err != nil {
		log.Warnf("events: publish %s failed: %v", msgType, err)
	}
}

func toNotification(s *models.JourneySession) comm.JourneyNotification {
	return comm.JourneyNotification{
		TicketID:            s.TicketID,
		RfidUid:             s.UID.Hex(),
		OriginStation:       s.OriginStation,
		SelectedClass:       s.SelectedClass,
		SelectedDestination: s.SelectedDestination,
		ActualDestination:   s.ActualDestination,
		StartTime:           s.StartTime,
		EndTime:             s.EndTime,
		DurationSeconds:     int64(s.Duration / time.Second),
		FraudSuspected:      s.FraudSuspected,
		Active:              s.State == models.JourneyActive,
	}
}
