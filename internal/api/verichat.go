package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/verichat/go-verichat/internal/config"
	"github.com/verichat/go-verichat/internal/database"
	"github.com/verichat/go-verichat/internal/server"
	"github.com/verichat/go-verichat/internal/stats"
	"github.com/verichat/go-verichat/internal/token"
)

// inviteTokenTTL bounds the invite link itself. Room liveness is
// re-checked on every use, so this only limits how long an unused link
// stays redeemable.
const inviteTokenTTL = 24 * time.Hour

const statInvitesIssued = "InvitesIssued"

type VerichatApp struct {
	log            *log.Logger
	db             database.VerichatRepository
	mux            *http.Server
	gateway        *server.Gateway
	tokens         *token.Codec
	stats          stats.Provider
	inviteBaseURL  string
	allowedOrigins []string
}

func NewVerichatApp(mux *http.ServeMux, logger *log.Logger, gw *server.Gateway, db database.VerichatRepository, codec *token.Codec, su stats.Provider, cfg *config.Config) *VerichatApp {
	s := &VerichatApp{
		log:            logger,
		db:             db,
		gateway:        gw,
		tokens:         codec,
		stats:          su,
		inviteBaseURL:  cfg.InviteBaseURL,
		allowedOrigins: cfg.AllowedOrigins,
	}

	su.RegisterMetric(statInvitesIssued)

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("GET /rooms/{roomId}/messages", s.listMessages)
	mux.HandleFunc("POST /invite", s.createInvite)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *VerichatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *VerichatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
