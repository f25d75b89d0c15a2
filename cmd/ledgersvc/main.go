package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"

	config "github.com/railgo/kiosk-services/configs"
	"github.com/railgo/kiosk-services/internal/ledgersvc/handlers"
	"github.com/railgo/kiosk-services/internal/ledgersvc/models"
	"github.com/railgo/kiosk-services/internal/ledgersvc/store"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "ledger"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	s, cleanup, err := buildStore()
	if err != nil {
		log.Fatalf("Failed to initialize ledger store: %v", err)
	}
	defer cleanup()

	seedDemoApplication(s)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	if rateLimitStr == "" {
		rateLimitStr = "600"
	}
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(s)
	h.InitAuth()
	h.SetRoutes(r)

	port := os.Getenv("LEDGER_SERVICE_PORT")
	if port == "" {
		port = "8090"
	}

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

// buildStore picks the backend: Postgres when LEDGER_STORE=postgres,
// in-memory otherwise.
func buildStore() (store.Store, func(), error) {
	if os.Getenv("LEDGER_STORE") != "postgres" {
		log.Info("ledger using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}

	dsn := os.Getenv("POSTGRES_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	pg := store.NewPostgresStore(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	log.Info("ledger using postgres store")
	return pg, pool.Close, nil
}

// seedDemoApplication registers one approved card so a fresh dev setup can
// tap straight away. Controlled by LEDGER_SEED_UID / LEDGER_SEED_NAME.
func seedDemoApplication(s store.Store) {
	uid := os.Getenv("LEDGER_SEED_UID")
	if uid == "" {
		return
	}
	name := os.Getenv("LEDGER_SEED_NAME")
	if name == "" {
		name = "Demo Rider"
	}

	id, err := s.CreateApplication(context.Background(), models.Application{
		Name:    name,
		RfidUid: uid,
		Status:  models.StatusApproved,
	})
	if err != nil {
		log.Errorf("failed to seed demo application: %v", err)
		return
	}
	log.Infof("seeded approved application %s for uid %s", id, uid)
}
