package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"rfpmarket/db"
	"rfpmarket/db/migrations"
	"rfpmarket/internal/auth"
	"rfpmarket/internal/config"
	"rfpmarket/internal/handlers"
	"rfpmarket/internal/logging"
	"rfpmarket/internal/mail"
	"rfpmarket/internal/notify"
	"rfpmarket/internal/payments"
	"rfpmarket/internal/upload"
	"rfpmarket/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()
	if cfg.PostgresConn == "" {
		log.Fatal("POSTGRES_CONN env variable is not set")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET env variable is not set")
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx := context.Background()

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		log.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	migrations.Run()

	store := db.NewStorage(dbConn)
	sessions := auth.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	hub := ws.NewHub()
	notifier := notify.NewService(store, hub, logger)

	var uploader upload.Uploader
	uploader, err = upload.NewS3Uploader(ctx, upload.S3Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Fatalf("Cannot init object storage: %v", err)
	}

	var mailer mail.Mailer = mail.Noop{}
	if cfg.ResendAPIKey != "" {
		mailer = mail.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom)
	}

	h := handlers.NewHandler(handlers.Deps{
		Store:    store,
		Sessions: sessions,
		Log:      logger,
		Hub:      hub,
		Notifier: notifier,
		Uploader: uploader,
		Payments: payments.Manual{},
		Mailer:   mailer,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)

		r.Post("/auth/register", h.RegisterHandler)
		r.Post("/auth/login", h.LoginHandler)
		r.Post("/auth/logout", h.LogoutHandler)

		r.Get("/rfps", h.GetRfpsHandler)
		r.Get("/rfps/{rfpId}", h.GetRfpHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Get("/auth/me", h.MeHandler)
			r.Put("/auth/me", h.UpdateProfileHandler)

			r.Post("/rfps", h.CreateRfpHandler)
			r.Get("/rfps/my", h.GetUserRfpsHandler)
			r.Put("/rfps/{rfpId}", h.UpdateRfpHandler)
			r.Delete("/rfps/{rfpId}", h.DeleteRfpHandler)
			r.Post("/rfps/{rfpId}/feature", h.FeatureRfpHandler)

			r.Post("/rfps/{rfpId}/rfis", h.CreateRfiHandler)
			r.Get("/rfps/{rfpId}/rfis", h.GetRfpRfisHandler)
			r.Put("/rfps/{rfpId}/rfi/{rfiId}/status", h.UpdateRfiStatusHandler)
			r.Get("/rfis/my", h.GetMyRfisHandler)
			r.Put("/rfis/bulk-status", h.BulkRfiStatusHandler)
			r.Get("/rfis/{id}/messages", h.GetRfiMessagesHandler)
			r.Post("/rfis/{id}/messages", h.PostRfiMessageHandler)
			r.Delete("/rfis/{id}", h.DeleteRfiHandler)
			r.Get("/attachments/{attachmentId}/download", h.DownloadAttachmentHandler)

			r.Get("/notifications", h.GetNotificationsHandler)
			r.Get("/notifications/unread-count", h.GetUnreadCountHandler)
			r.Patch("/notifications/{id}/read", h.MarkNotificationReadHandler)
			r.Patch("/notifications/read-all", h.MarkAllNotificationsReadHandler)
			r.Delete("/notifications/{id}", h.DeleteNotificationHandler)

			r.Post("/analytics/track-view", h.TrackViewHandler)
			r.Post("/analytics/track-bid", h.TrackBidHandler)
			r.Get("/analytics/boosted", h.GetBoostedAnalyticsHandler)
		})
	})

	r.Get("/ws", h.WebSocketHandler)

	log.Printf("Starting server on %s", cfg.ServerAddress)
	log.Fatal(http.ListenAndServe(cfg.ServerAddress, r))
}
