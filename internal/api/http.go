// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the controller's command surface over HTTP. It is the
// only external entry point that mutates controller state.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/replayd/internal/control"
	"github.com/ManuGH/replayd/internal/history"
	"github.com/ManuGH/replayd/internal/store"
)

// Options configure the API server.
type Options struct {
	Controller *control.Controller
	Store      *store.Store
	History    *history.Store // optional

	// SpeedDefault applies when a play request omits the speed.
	SpeedDefault float64

	// RateLimit is requests per minute per client IP; zero disables.
	RateLimit int
}

// Server carries the handler dependencies.
type Server struct {
	opts Options
}

// NewServer builds the API server.
func NewServer(opts Options) *Server {
	if opts.SpeedDefault == 0 {
		opts.SpeedDefault = 1.0
	}
	return &Server{opts: opts}
}

// Router assembles the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog)
	if s.opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(s.opts.RateLimit, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)

		r.Post("/record/start", s.handleRecordStart)
		r.Post("/record/stop", s.handleRecordStop)

		r.Post("/playback/start", s.handlePlaybackStart)
		r.Post("/playback/pause", s.handlePause)
		r.Post("/playback/resume", s.handleResume)
		r.Post("/playback/stop", s.handleStop)
		r.Post("/emergency-stop", s.handleEmergencyStop)

		r.Get("/macros", s.handleMacroList)
		r.Get("/macros/{id}", s.handleMacroGet)
		r.Delete("/macros/{id}", s.handleMacroDelete)

		r.Get("/humanization/report", s.handleReport)
		r.Get("/history", s.handleHistory)

		r.Post("/spammer/start", s.handleSpammerStart)
		r.Post("/spammer/stop", s.handleSpammerStop)
		r.Post("/clicker/start", s.handleClickerStart)
		r.Post("/clicker/stop", s.handleClickerStop)
	})

	return otelhttp.NewHandler(r, "replayd-api")
}
