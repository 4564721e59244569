package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/field-ledger/internal/backend"
	"github.com/Dan9191/field-ledger/internal/config"
	"github.com/Dan9191/field-ledger/internal/handler"
	"github.com/Dan9191/field-ledger/internal/invoice"
	"github.com/Dan9191/field-ledger/internal/repository"
	"github.com/Dan9191/field-ledger/internal/service"
	"github.com/Dan9191/field-ledger/internal/session"
	"github.com/Dan9191/field-ledger/internal/slips"
	"github.com/Dan9191/field-ledger/internal/validation"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Submission journal
	var journal repository.Journal
	if cfg.DBConn != "" {
		db, err := repository.Open(ctx, cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		pg := repository.NewPostgresJournal(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatalf("Failed to prepare database: %v", err)
		}
		journal = pg
	} else {
		logger.Warn("DB_CONN not set, submissions are journaled in memory")
		journal = repository.NewMemoryJournal()
	}

	// Slip storage
	var uploader slips.Uploader = slips.Disabled{}
	if cfg.GCSBucket != "" {
		gcs, err := slips.NewGCSUploader(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON, cfg.SlipMaxWidth, logger)
		if err != nil {
			logger.Fatalf("Failed to init slip storage: %v", err)
		}
		defer gcs.Close()
		uploader = gcs
	} else {
		logger.Warn("GCS_BUCKET not set, slip photos will not be uploaded")
	}

	// Session and backend client
	client := backend.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, logger)
	store, err := session.NewFileStore(cfg.TokenFile, cfg.EncryptionKey)
	if err != nil {
		logger.Fatalf("Failed to init token store: %v", err)
	}
	sess := session.New(store, client, logger)
	client.SetTokenSource(sess)
	if err := sess.Load(ctx); err != nil && !errors.Is(err, session.ErrNotLoggedIn) {
		logger.Warnf("Could not restore session: %v", err)
	}
	if err := sess.Start(cfg.SessionRefresh); err != nil {
		logger.Fatalf("Failed to schedule session refresh: %v", err)
	}
	defer sess.Stop()

	// Initialize layers
	mailer := invoice.NewMailer(invoice.MailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SenderEmail,
	}, logger)
	svc := service.NewService(service.Deps{
		API:      client,
		Journal:  journal,
		Gate:     validation.NewGate(cfg.PhoneRegion, loc),
		Uploader: uploader,
		Mailer:   mailer,
		Session:  sess,
	}, logger, cfg)
	h := handler.NewHandler(svc, logger)
	r := handler.NewRouter(h, sess.Active, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 2*time.Minute,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
