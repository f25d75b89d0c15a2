package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	// Firebase-shaped device routes, guarded by the ?auth= query token.
	r.Group(func(r chi.Router) {
		r.Use(h.queryTokenAuth)

		r.Get("/rfidApplications.json", h.ListApplications)
		r.Get("/journeys.json", h.ListJourneys)
		r.Get("/journeys/{ticketID}.json", h.GetJourney)
		r.Put("/journeys/{ticketID}.json", h.PutJourney)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/applications", h.AdminListApplications)
			r.Post("/applications", h.AdminCreateApplication)
			r.Put("/applications/{id}/approve", h.AdminApproveApplication)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003022,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
