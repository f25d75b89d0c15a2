package main

import (
	"context"
	"encoding/json"
	"time"

	config "github.com/railgo/kiosk-services/configs"
	"github.com/railgo/kiosk-services/internal/comm"
	"github.com/railgo/kiosk-services/internal/db"
	natscli "github.com/railgo/kiosk-services/internal/nats"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const SERVICE_NAME = "audit"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

// heartbeatTTL is how long a kiosk heartbeat stays in the archive.
const heartbeatTTL = 24 * time.Hour

func main() {
	// Mongo connection for the archive
	database, cancel, err := db.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer cancel()
	log.Printf("mongo connection established successfully")

	if err := db.CreateTTLIndexForCollection(database, "kiosk_heartbeats"); err != nil {
		log.Errorf("failed to create heartbeat TTL index: %v", err)
	}

	// NATS connection
	n, err := natscli.Connect(SERVICE_NAME)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer n.Conn.Close()
	log.Infof("NATS connected at %s", n.Url)

	// Archive every kiosk lifecycle event published on journey.events
	_, err = n.Conn.Subscribe(comm.SubjectJourneyEvents, func(m *nats.Msg) {
		handleEvent(database, m)
	})
	if err != nil {
		log.Fatalf("Subscribe %s error: %v", comm.SubjectJourneyEvents, err)
	}

	select {} // run forever
}

// handleEvent routes one envelope into its archive collection.
func handleEvent(database *mongo.Database, msg *nats.Msg) {
	var env comm.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.Errorf("invalid envelope: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch env.Type {
	case comm.TypeJourneyStarted, comm.TypeJourneyEnded:
		var note comm.JourneyNotification
		if err := json.Unmarshal(env.Data, &note); err != nil {
			log.Errorf("invalid journey notification: %v", err)
			return
		}

		doc := bson.M{
			"event":            env.Type,
			"kioskid":          env.KioskId,
			"ticket_id":        note.TicketID,
			"rfid_uid":         note.RfidUid,
			"origin_station":   note.OriginStation,
			"selected_class":   note.SelectedClass,
			"selected_dest":    note.SelectedDestination,
			"actual_dest":      note.ActualDestination,
			"start_time":       note.StartTime,
			"end_time":         note.EndTime,
			"duration_seconds": note.DurationSeconds,
			"fraud_suspected":  note.FraudSuspected,
			"archived_at":      time.Now(),
		}
		if _, err := database.Collection("journey_events").InsertOne(ctx, doc); err != nil {
			log.Errorf("failed to archive %s for ticket %s: %v", env.Type, note.TicketID, err)
			return
		}
		if note.FraudSuspected {
			log.Warnf("archived fraud-flagged journey %s from kiosk %s", note.TicketID, env.KioskId)
		}

	case comm.TypeHeartbeat:
		var hb comm.KioskHeartbeat
		if err := json.Unmarshal(env.Data, &hb); err != nil {
			log.Errorf("invalid heartbeat: %v", err)
			return
		}

		doc := bson.M{
			"kioskid":    hb.KioskId,
			"station_id": hb.StationId,
			"timestamp":  hb.Timestamp,
			"expires_at": time.Now().Add(heartbeatTTL),
		}
		if _, err := database.Collection("kiosk_heartbeats").InsertOne(ctx, doc); err != nil {
			log.Errorf("failed to archive heartbeat from %s: %v", hb.KioskId, err)
		}

	default:
		log.Warnf("unknown event received: %s", env.Type)
	}
}
