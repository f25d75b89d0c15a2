package panel

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Panel is the development stand-in for the kiosk's LCD, buzzer and keypad.
// It broadcasts display lines and feedback cues to connected browsers over
// websocket and feeds single-character key presses back as keypad events.
// It satisfies the session manager's Display and Feedback ports.
type Panel struct {
	upgrader websocket.Upgrader
	connMap  sync.Map // socketId -> *websocket.Conn
	writeMu  sync.Mutex
	keys     chan byte
}

// frame is what the browser receives per update.
type frame struct {
	Type  string `json:"type"` // "display" or "cue"
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
	Cue   string `json:"cue,omitempty"` // "tap", "success", "error"
}

type keyMessage struct {
	Key string `json:"key"`
}

func NewPanel() *Panel {
	return &Panel{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		keys: make(chan byte, 16),
	}
}

// Keys delivers keypad characters pressed on any connected panel.
func (p *Panel) Keys() <-chan byte {
	return p.keys
}

// Show implements session.Display.
func (p *Panel) Show(line1, line2 string) {
	p.broadcast(frame{Type: "display", Line1: line1, Line2: line2})
}

// Tap implements session.Feedback.
func (p *Panel) Tap() { p.cue("tap") }

// Success implements session.Feedback.
func (p *Panel) Success() { p.cue("success") }

// Error implements session.Feedback.
func (p *Panel) Error() { p.cue("error") }

func (p *Panel) cue(name string) {
	p.broadcast(frame{Type: "cue", Cue: name})
}

func (p *Panel) broadcast(f frame) {
	raw, err := json.Marshal(f)
	if err != nil {
		log.Errorf("panel: marshal frame: %v", err)
		return
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.connMap.Range(func(key, value interface{}) bool {
		conn := value.(*websocket.Conn)
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			log.Infof("panel: dropping connection %s: %v", key, err)
			conn.Close()
			p.connMap.Delete(key)
		}
		return true
	})
}

// SetRoutes mounts the panel endpoint on the kiosk's router.
func (p *Panel) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/panel", p.handleWebSocket)
	})
}

func (p *Panel) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("panel: failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	p.connMap.Store(socketId, conn)
	log.Infof("panel connection established: %s", socketId)

	go p.handleConnection(conn, socketId)
}

func (p *Panel) handleConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("closing panel connection: %s", socketId)
		conn.Close()
		p.connMap.Delete(socketId)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("panel unexpected close for socket %s: %v", socketId, err)
			}
			return
		}

		var msg keyMessage
		if err := json.Unmarshal(raw, &msg); err != nil || len(msg.Key) != 1 {
			log.Warnf("panel: ignoring malformed key message from %s", socketId)
			continue
		}

		select {
		case p.keys <- msg.Key[0]:
		default:
			// Keypad buffer full; drop rather than block the socket reader.
			log.Warn("panel: key buffer full, dropping key press")
		}
	}
}
