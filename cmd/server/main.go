// Package main initializes and starts the StoreIt server, setting up
// configuration, logging, the database, token and object stores, mail,
// services, handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/NiketSingh147/StoreIt/internal/certgen"
	"github.com/NiketSingh147/StoreIt/internal/config"
	"github.com/NiketSingh147/StoreIt/internal/credstore"
	"github.com/NiketSingh147/StoreIt/internal/db"
	"github.com/NiketSingh147/StoreIt/internal/logger"
	"github.com/NiketSingh147/StoreIt/internal/mail"
	"github.com/NiketSingh147/StoreIt/internal/metrics"
	"github.com/NiketSingh147/StoreIt/internal/objectstore"
	"github.com/NiketSingh147/StoreIt/internal/rate"
	"github.com/NiketSingh147/StoreIt/internal/repository"
	"github.com/NiketSingh147/StoreIt/internal/server/handler/http"
	"github.com/NiketSingh147/StoreIt/internal/service"
	"github.com/NiketSingh147/StoreIt/internal/tokenstore"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Parse flags, config file, .env and environment.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel, options.AppEnv == config.EnvDev); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(2)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, options config.Config, zapLogger *zap.Logger) error {
	// Initialize PostgreSQL connection and apply migrations.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("cannot init database: %w", err)
	}
	defer postgresDB.Close()

	// Remove sign-ups that never completed verification.
	db.StartSignupCleaner(ctx, postgresDB,
		options.CleanupInterval.Std(),
		options.SignupRetention.Std(),
		zapLogger,
	)

	tokens, limiter, err := newTokenBackends(ctx, options, zapLogger)
	if err != nil {
		return err
	}

	blobs, err := objectstore.New(ctx, objectstore.Options{
		Endpoint:   options.S3Endpoint,
		Region:     options.S3Region,
		Bucket:     options.S3Bucket,
		AccessKey:  options.S3AccessKey,
		SecretKey:  options.S3SecretKey,
		PresignTTL: options.PresignTTL.Std(),
	})
	if err != nil {
		return fmt.Errorf("cannot init object store: %w", err)
	}

	var sender mail.Sender
	if options.SMTPHost != "" {
		sender = mail.NewSMTPSender(options.SMTPHost, options.SMTPPort, options.SMTPFrom,
			options.SMTPUser, options.SMTPPassword, options.SMTPTLSMode, zapLogger)
	} else {
		zapLogger.Warn("smtp_host is empty, emails are written to the log")
		sender = mail.NewLogSender(zapLogger)
	}

	// Initialize repositories.
	identityRepo := repository.NewPostgresIdentityRepository(postgresDB)
	profileRepo := repository.NewPostgresProfileRepository(postgresDB)
	fileRepo := repository.NewPostgresFileRepository(postgresDB)

	// The credential store is both the privileged and the session gateway.
	creds := credstore.New(identityRepo, tokens, sender, credstore.Options{
		SecretKey:   []byte(options.SecretKey),
		SessionTTL:  options.SessionTTL.Std(),
		OTPTTL:      options.OTPTTL.Std(),
		RecoveryTTL: options.RecoveryTTL.Std(),
		AppURL:      options.AppURL,
	}, zapLogger)

	// Initialize business-logic services.
	verificationService := service.NewVerificationService(creds, creds, profileRepo, options.AvatarPlaceholderURL, zapLogger)
	sessionService := service.NewSessionService(creds, creds, profileRepo, zapLogger)
	recoveryService := service.NewRecoveryService(creds, creds, zapLogger)
	fileService := service.NewFileService(fileRepo, blobs, sender, service.FileOptions{
		QuotaBytes:     options.QuotaBytes,
		MaxUploadBytes: options.MaxUploadBytes,
		AppURL:         options.AppURL,
	}, zapLogger)

	m := metrics.New()

	// Create HTTP handlers and build the router.
	router := http.NewRouter(http.Handlers{
		Auth: &http.AuthHandler{
			Verification:  verificationService,
			Sessions:      sessionService,
			Metrics:       m,
			Log:           zapLogger,
			SecureCookies: options.Secure(),
			SessionTTL:    options.SessionTTL.Std(),
		},
		Recovery: &http.RecoveryHandler{Recovery: recoveryService, Metrics: m, Log: zapLogger},
		Files: &http.FileHandler{
			Files:          fileService,
			Sessions:       sessionService,
			Log:            zapLogger,
			MaxUploadBytes: options.MaxUploadBytes,
		},
	}, sessionService, limiter, m, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	useTLS := options.TLSCertFile != "" && options.TLSKeyFile != ""
	if useTLS && options.AppEnv == config.EnvDev {
		host, _, err := net.SplitHostPort(options.Port)
		if err != nil || host == "" {
			host = "localhost"
		}
		created, err := certgen.EnsureFiles(options.TLSCertFile, options.TLSKeyFile, []string{host})
		if err != nil {
			return fmt.Errorf("cannot create dev certificate: %w", err)
		}
		if created {
			zapLogger.Info("generated self-signed certificate", zap.String("cert", options.TLSCertFile))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting server", zap.String("addr", options.Port), zap.Bool("tls", useTLS))
		if useTLS {
			errCh <- server.ListenAndServeTLS(options.TLSCertFile, options.TLSKeyFile)
		} else {
			errCh <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newTokenBackends picks the token store and rate limiter backends.
func newTokenBackends(ctx context.Context, options config.Config, zapLogger *zap.Logger) (tokenstore.Store, rate.Limiter, error) {
	window := options.RateWindow.Std()
	if options.TokenStore != "redis" {
		zapLogger.Info("using in-memory token store")
		return tokenstore.NewMemory(), rate.NewMemoryLimiter(options.RateLimit, window), nil
	}

	client, err := tokenstore.Dial(ctx, options.RedisAddr, options.RedisPassword, options.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to redis: %w", err)
	}
	return tokenstore.NewRedis(client, "storeit"), rate.NewRedisLimiter(client, "storeit:rl:", options.RateLimit, window), nil
}
