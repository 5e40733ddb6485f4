package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	api "github.com/mind-engage/fungiquest/internal/api/http"
	"github.com/mind-engage/fungiquest/internal/auth"
	"github.com/mind-engage/fungiquest/internal/backend/sqltables"
	"github.com/mind-engage/fungiquest/internal/config"
	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/db"
	"github.com/mind-engage/fungiquest/internal/events"
	"github.com/mind-engage/fungiquest/internal/logger"
	"github.com/mind-engage/fungiquest/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(string(cfg.Mode), cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatal("db open failed", "driver", cfg.DBDriver, "error", err)
	}
	defer dbh.Close()

	store := sqltables.New(dbh, cfg.DBDriver)
	cc := content.New(store, content.WithLogger(log.With("component", "content")))

	// --- Auth (local JWT; the API key is the anonymous bearer) ---
	authSvc := auth.NewAuthService(cfg.HMACSecret, cfg.TokenTTL)
	if cfg.AdminPassHash == "" {
		log.Warn("ADMIN_PASS_HASH not set; admin login disabled")
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath, cfg.PublicURL)
	if err != nil {
		log.Fatal("blob store", "path", cfg.BlobBasePath, "error", err)
	}

	h := api.NewRouter(api.Deps{
		Store:   store,
		Content: cc,
		Auth: &auth.Handlers{
			Svc:           authSvc,
			Users:         auth.NewUserStore(dbh, bcrypt.DefaultCost),
			Links:         auth.NewMagicLinks(dbh, cfg.MagicLinkTTL, nil),
			Mailer:        auth.LogMailer{Log: log},
			Log:           log.With("component", "auth"),
			PublicURL:     cfg.PublicURL,
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
		},
		APIKey:      cfg.APIKey,
		Blobs:       bs,
		Events:      events.NewLog(dbh, siteID()),
		Log:         log.With("component", "http"),
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", "error", err)
	}
}

// siteID tags this gateway's events; several gateways may share one database.
func siteID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "local"
}
