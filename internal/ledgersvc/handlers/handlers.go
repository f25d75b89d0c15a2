package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/railgo/kiosk-services/internal/ledgersvc/models"
	"github.com/railgo/kiosk-services/internal/ledgersvc/store"
	log "github.com/sirupsen/logrus"
)

// Handler serves the Firebase-shaped device endpoints the kiosks talk to,
// plus a jwt-guarded admin surface for the card-issue flow.
type Handler struct {
	store     store.Store
	authToken string
	tokenAuth *jwtauth.JWTAuth
}

func NewHandler(s store.Store) *Handler {
	return &Handler{
		store:     s,
		authToken: os.Getenv("LEDGER_AUTH_TOKEN"),
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

// writeDocument emits a bare JSON document the way Firebase RTDB does:
// no envelope, and a literal null when there is nothing stored.
func (h *Handler) writeDocument(w http.ResponseWriter, doc interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

// queryTokenAuth guards the device routes with the ?auth= query token.
func (h *Handler) queryTokenAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authToken != "" && r.URL.Query().Get("auth") != h.authToken {
			http.Error(w, "Permission denied", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "ledger service is running at port " + os.Getenv("LEDGER_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	json.NewEncoder(w).Encode(rsp)
}

// ListApplications is GET /rfidApplications.json for the kiosks.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.store.ListApplications(r.Context())
	if err != nil {
		log.Errorf("list applications: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(apps) == 0 {
		h.writeDocument(w, nil)
		return
	}
	h.writeDocument(w, apps)
}

// ListJourneys is GET /journeys.json for the kiosks.
func (h *Handler) ListJourneys(w http.ResponseWriter, r *http.Request) {
	journeys, err := h.store.ListJourneys(r.Context())
	if err != nil {
		log.Errorf("list journeys: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(journeys) == 0 {
		h.writeDocument(w, nil)
		return
	}
	h.writeDocument(w, journeys)
}

func (h *Handler) GetJourney(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	journey, err := h.store.GetJourney(r.Context(), ticketID)
	if err == store.ErrNotFound {
		h.writeDocument(w, nil)
		return
	}
	if err != nil {
		log.Errorf("get journey %s: %v", ticketID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeDocument(w, journey)
}

// PutJourney is the kiosks' upsert, keyed by the ticket id in the path.
func (h *Handler) PutJourney(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	var journey models.Journey
	if err := json.NewDecoder(r.Body).Decode(&journey); err != nil {
		http.Error(w, "malformed journey record", http.StatusBadRequest)
		return
	}
	if journey.TicketID == "" {
		journey.TicketID = ticketID
	}
	if journey.TicketID != ticketID {
		http.Error(w, "ticket id mismatch", http.StatusBadRequest)
		return
	}

	if err := h.store.PutJourney(r.Context(), journey); err != nil {
		log.Errorf("put journey %s: %v", ticketID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeDocument(w, journey)
}

// AdminListApplications backs the card-issue dashboard.
func (h *Handler) AdminListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.store.ListApplications(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Message: "failed", Error: err.Error()})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Message: "ok", Data: apps})
}

func (h *Handler) AdminCreateApplication(w http.ResponseWriter, r *http.Request) {
	var app models.Application
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
		h.CreateResponse(w, Response{Code: 400, Message: "malformed application", Error: err.Error()})
		return
	}
	if app.Name == "" {
		h.CreateResponse(w, Response{Code: 400, Message: "application name required"})
		return
	}

	id, err := h.store.CreateApplication(r.Context(), app)
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Message: "failed", Error: err.Error()})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Message: "ok", Data: map[string]string{"id": id}})
}

// AdminApproveApplication assigns a card UID and flips the status, the same
// transition the card-issue web app performs.
func (h *Handler) AdminApproveApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		RfidUid string `json:"rfidUid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RfidUid == "" {
		h.CreateResponse(w, Response{Code: 400, Message: "rfidUid required"})
		return
	}

	err := h.store.ApproveApplication(r.Context(), id, body.RfidUid)
	if err == store.ErrNotFound {
		h.CreateResponse(w, Response{Code: 404, Message: "application not found"})
		return
	}
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Message: "failed", Error: err.Error()})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Message: "ok"})
}
