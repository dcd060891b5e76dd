// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/codr1/Footy/internal/api"
	pickerapi "github.com/codr1/Footy/internal/api/picker"
	"github.com/codr1/Footy/internal/api/records"
	"github.com/codr1/Footy/internal/config"
	"github.com/codr1/Footy/internal/picker"
	"github.com/codr1/Footy/internal/seasons"
)

func newServer(cfg *config.Config, pickerEngine *picker.Engine, seasonEngine *seasons.Engine) *http.Server {
	pickerapi.InitHandlers(pickerEngine)
	records.InitHandlers(seasonEngine)

	router := http.NewServeMux()
	registerRoutes(router, rate.NewLimiter(rate.Limit(cfg.App.TriggerRateLimit), cfg.App.TriggerBurst))

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Picker.TimeBudget + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, limiter *rate.Limiter) {
	limited := api.WithRateLimit(limiter)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Team picker routes
	mux.Handle("POST /api/v1/gamedays/{id}/picker", limited(http.HandlerFunc(pickerapi.HandleBalance)))
	mux.HandleFunc("GET /api/v1/gamedays/{id}/picker", pickerapi.HandleSnapshot)

	// Season ranking routes
	mux.Handle("POST /api/v1/seasons/{year}/records", limited(http.HandlerFunc(records.HandleRecompute)))
	mux.HandleFunc("GET /api/v1/seasons/{year}/records", records.HandleList)
}
