package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/shashiX07/webhook-service/internal/config"
	"github.com/shashiX07/webhook-service/internal/handler"
	"github.com/shashiX07/webhook-service/internal/store"
	"github.com/shashiX07/webhook-service/ui"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer s.Close()

	h := handler.NewHandler(s, log, cfg.Sweep.IdleWindow)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Request logger - skip capture routes to keep the hot path quiet
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.HasPrefix(req.URL.Path, "/webhook/") {
				next.ServeHTTP(w, req)
				return
			}
			middleware.Logger(next).ServeHTTP(w, req)
		})
	})

	// Static client
	r.Handle("/static/*", http.FileServer(http.FS(ui.FS)))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		// http.ServeFileFS equivalent; not available before Go 1.22
		f, err := ui.FS.Open("static/index.html")
		if err != nil {
			http.NotFound(w, req)
			return
		}
		defer f.Close()
		http.ServeContent(w, req, "index.html", time.Time{}, f.(io.ReadSeeker))
	})

	// Management API
	r.Get("/api/generate-webhook", h.GenerateWebhook)
	r.Get("/api/webhook/{endpointID}/requests", h.ListRequests)
	r.Delete("/api/webhook/{endpointID}/requests", h.ClearRequests)
	r.Delete("/api/refresh", h.Refresh)

	// Live feed
	r.Get("/ws/{endpointID}", h.LiveFeed)

	// Webhook receiver (any method)
	r.HandleFunc("/webhook/{endpointID}", h.Capture)

	// Idle endpoint sweeper
	go func() {
		ticker := time.NewTicker(cfg.Sweep.Interval)
		for range ticker.C {
			cutoff := time.Now().UTC().Add(-cfg.Sweep.IdleWindow)
			deleted, err := s.SweepIdle(context.Background(), cutoff)
			if err != nil {
				log.WithError(err).Error("sweep failed")
				continue
			}
			if len(deleted) > 0 {
				log.WithField("deleted", len(deleted)).Info("swept idle endpoints")
			}
		}
	}()

	log.WithField("port", cfg.Server.Port).Info("starting server")
	if err := http.ListenAndServe(":"+cfg.Server.Port, r); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
