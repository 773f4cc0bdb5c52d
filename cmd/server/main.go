package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	emailPkg "liftlog/internal/adapters/email"
	web "liftlog/internal/adapters/http"
	"liftlog/internal/adapters/http/middleware"
	"liftlog/internal/adapters/storage"
	accountStore "liftlog/internal/adapters/storage/account"
	workoutStore "liftlog/internal/adapters/storage/workout"
	"liftlog/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("failed to read .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	slog.SetDefault(slog.New(middleware.LogHandler{Handler: base}))
	if cfg.GeneratedKeys {
		slog.Warn("config_event", "event", "generated_keys",
			"detail", "set LIFTLOG_SESSION_KEY and LIFTLOG_CSRF_KEY to keep sessions across restarts")
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.MigrateDB(ctx, db, cfg.DBDriver); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	log.Println("Database initialized successfully!")

	// Stores go through the timed wrapper for slow-query logging.
	timedDB := storage.NewTimedDB(db, cfg.SlowQuery)
	stores := &web.Stores{
		UserStore:    accountStore.NewSQLStore(timedDB),
		WorkoutStore: workoutStore.NewSQLStore(timedDB),
	}

	if cfg.ResendKey != "" {
		web.SetEmailSender(emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom), cfg.EmailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		web.SetEmailSender(emailPkg.NewNoopSender(), cfg.EmailFrom)
		if cfg.Production() {
			log.Println("WARNING: LIFTLOG_RESEND_KEY is not set, welcome emails are DISABLED in production")
		} else {
			log.Println("Email sender configured (noop, set LIFTLOG_RESEND_KEY for real delivery)")
		}
	}

	mux := web.NewMux(stores, web.Options{
		SessionKey:  cfg.SessionKey,
		CSRFKey:     cfg.CSRFKey,
		Secure:      cfg.Production(),
		SlowRequest: cfg.SlowRequest,
	})

	log.Printf("Liftlog %s starting on %s (env=%s, db=%s, schema=%d)",
		version, cfg.Addr, cfg.Env, cfg.DBDriver, storage.LatestSchemaVersion())
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
