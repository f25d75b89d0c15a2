package main

import (
	"context"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	config "github.com/railgo/kiosk-services/configs"
	"github.com/railgo/kiosk-services/internal/kiosksvc/events"
	"github.com/railgo/kiosk-services/internal/kiosksvc/ledger"
	"github.com/railgo/kiosk-services/internal/kiosksvc/models"
	"github.com/railgo/kiosk-services/internal/kiosksvc/panel"
	"github.com/railgo/kiosk-services/internal/kiosksvc/rfid"
	"github.com/railgo/kiosk-services/internal/kiosksvc/session"
	"github.com/railgo/kiosk-services/internal/kiosksvc/stations"
	natscli "github.com/railgo/kiosk-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "kiosk"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

// catalog adapts the stations package to the session manager's port.
type catalog struct{}

func (catalog) DestinationName(id int) string { return stations.DestinationName(id) }
func (catalog) ClassName(id int) string       { return stations.ClassName(id) }

const (
	cardPollInterval  = 200 * time.Millisecond
	heartbeatInterval = 30 * time.Second
	// tapCooldown keeps a card still resting on the reader from being
	// handled as a second tap.
	tapCooldown = 3 * time.Second
	// simCardDwell is how long a simulated tap keeps the card in the field.
	simCardDwell = 2 * time.Second
)

func main() {
	stationID := envInt("STATION_ID", 1)

	// Remote ledger client
	ledgerClient := ledger.NewClient(os.Getenv("LEDGER_URL"), os.Getenv("LEDGER_AUTH_TOKEN"))

	// Panel: dev display/keypad surface over websocket
	p := panel.NewPanel()
	go servePanel(p)

	// Transceiver bus: simulated unless real hardware wiring is provided
	var sim *rfid.SimBus
	if os.Getenv("KIOSK_BUS") != "none" {
		sim = rfid.NewSimBus()
	}
	if sim == nil {
		log.Fatal("no transceiver bus configured; set KIOSK_BUS=sim")
	}
	drv := rfid.NewDriver(sim, nil)
	if err := drv.Reset(); err != nil {
		log.Fatalf("transceiver reset failed: %v", err)
	}
	log.Info("transceiver initialized")

	mgr := session.NewManager(ledgerClient, p, p, catalog{},
		stationID, stations.NumDestinations(), stations.NumClasses())

	// Journey events over NATS; the kiosk works fine without a broker.
	var pub *events.Publisher
	if n, err := natscli.Connect(SERVICE_NAME); err != nil {
		log.Warnf("NATS unavailable, journey events disabled: %v", err)
	} else {
		defer n.Conn.Close()
		pub = events.NewPublisher(n.Conn, instanceId)
		mgr.SetEventPublisher(pub)
		log.Infof("NATS connection established successfully %s", n.Url)
	}

	simUID := simCardUID()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	mgr.ShowWelcome()
	log.Infof("kiosk running at station %d (%s)", stationID, stations.DestinationName(stationID))

	runLoop(mgr, drv, sim, p, pub, stationID, simUID, stop)

	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

// runLoop is the single sequential control loop: card polling, keypad
// events and heartbeats all funnel through here, one at a time.
func runLoop(mgr *session.Manager, drv *rfid.Driver, sim *rfid.SimBus, p *panel.Panel,
	pub *events.Publisher, stationID int, simUID models.CardUID, stop <-chan os.Signal) {

	ctx := context.Background()

	poll := time.NewTicker(cardPollInterval)
	defer poll.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	var lastTap time.Time

	for {
		select {
		case <-stop:
			return

		case key := <-p.Keys():
			// In sim mode 'T' on the panel stands in for a physical tap.
			if sim != nil && (key == 'T' || key == 't') {
				sim.PresentCard(simUID)
				time.AfterFunc(simCardDwell, sim.RemoveCard)
				continue
			}
			mgr.OnKey(ctx, key)

		case <-heartbeat.C:
			if pub != nil {
				pub.Heartbeat(stationID)
			}

		case <-poll.C:
			if mgr.State() != session.StateWaitCard {
				continue
			}
			if time.Since(lastTap) < tapCooldown {
				continue
			}
			if !drv.DetectPresence() {
				continue
			}

			uid, err := drv.ReadUID()
			if err != nil {
				log.Errorf("failed to read card UID: %v", err)
				p.Error()
				p.Show("Card read error!", "Try again!")
				continue
			}

			lastTap = time.Now()
			log.Infof("card detected, uid %s", uid.Hex())
			mgr.OnCard(ctx, uid)
		}
	}
}

func servePanel(p *panel.Panel) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	p.SetRoutes(r)

	port := os.Getenv("PANEL_PORT")
	if port == "" {
		port = "8091"
	}

	log.Infof("panel listening at port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Errorf("panel server stopped: %v", err)
	}
}

// simCardUID is the UID the simulated card answers with.
func simCardUID() models.CardUID {
	raw := os.Getenv("KIOSK_SIM_UID")
	if raw == "" {
		raw = "04A1B2C3"
	}
	uid, err := hex.DecodeString(raw)
	if err != nil || len(uid) < 4 {
		log.Fatalf("invalid KIOSK_SIM_UID %q", raw)
	}
	return models.CardUID(uid)
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("Invalid %s value: %v", key, err)
	}
	return v
}
