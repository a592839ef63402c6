package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	authHandler "policydesk/internal/auth/handler"
	authService "policydesk/internal/auth/service"
	issuanceHandler "policydesk/internal/issuance/handler"
	issuanceMetrics "policydesk/internal/issuance/metrics"
	issuanceService "policydesk/internal/issuance/service"
	sessionStore "policydesk/internal/issuance/store/session"
	jwttoken "policydesk/internal/jwt_token"
	"policydesk/internal/notify"
	"policydesk/internal/photo"
	"policydesk/internal/platform/config"
	"policydesk/internal/platform/httpserver"
	"policydesk/internal/platform/kafka"
	"policydesk/internal/platform/logger"
	platformMetrics "policydesk/internal/platform/metrics"
	redisclient "policydesk/internal/platform/redis"
	policyHandler "policydesk/internal/policy/handler"
	policyRender "policydesk/internal/policy/render"
	policyService "policydesk/internal/policy/service"
	policyStore "policydesk/internal/policy/store"
	quoteHandler "policydesk/internal/quote/handler"
	quoteService "policydesk/internal/quote/service"
	quoteStore "policydesk/internal/quote/store"
	"policydesk/internal/ratelimit"
	"policydesk/internal/storage"
	httptransport "policydesk/internal/transport/http"
	"policydesk/internal/wizard"
)

const (
	shutdownGrace       = 10 * time.Second
	wizardSweepInterval = time.Minute
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	// .env is optional; real deployments use the environment
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New(cfg.Env).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("policydesk stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	health := map[string]httptransport.HealthCheck{}

	sessions, closeSessions, err := buildSessionStore(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer closeSessions()

	sink, closeSink := buildNotificationSink(ctx, cfg, log)
	defer closeSink()

	quotes := quoteStore.NewSeeded()
	blobs := storage.NewInMemoryBlobStore()
	policies := policyService.New(policyStore.New(), blobs, policyRender.NewPDF(),
		policyService.WithLogger(log))

	metrics := issuanceMetrics.New()
	issuance := issuanceService.New(sessions, quotes, blobs, policies,
		issuanceService.WithLogger(log),
		issuanceService.WithMetrics(metrics),
	)
	quoteSvc := quoteService.New(quotes,
		quoteService.WithLogger(log),
		quoteService.WithIssuanceLookup(issuance),
	)

	downsize := photo.DefaultDownsizeOptions()
	downsize.MaxBytes = cfg.Photo.MaxBytes
	downsize.MaxDimension = cfg.Photo.MaxDimension
	downsize.Quality = cfg.Photo.JPEGQuality

	previews := photo.NewPreviewRegistry()
	wizards := wizard.NewRegistry(issuance, quoteSvc, log,
		wizard.WithSink(sink),
		wizard.WithPreviews(previews),
		wizard.WithDownsize(downsize),
		wizard.WithMetrics(metrics),
		wizard.WithLogger(log),
	)
	defer wizards.Close()
	if cfg.Wizard.IdleTTL > 0 {
		go wizards.RunJanitor(ctx, wizardSweepInterval, cfg.Wizard.IdleTTL)
	}

	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	auth := authService.New(jwt,
		authService.WithTokenTTL(cfg.Auth.TokenTTL, cfg.Auth.RememberTTL),
		authService.WithLogger(log),
	)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Validator: jwttoken.NewJWTServiceAdapter(jwt),
		Public: []httptransport.Registrar{
			authHandler.New(auth, log, authHandler.WithThrottle(
				ratelimit.ByClientIP(ratelimit.NewWindow(cfg.Auth.LoginAttempts, cfg.Auth.LoginWindow), log),
			)),
		},
		Protected: []httptransport.Registrar{
			quoteHandler.New(quoteSvc, log),
			issuanceHandler.New(wizards, issuance, previews, log,
				issuanceHandler.WithJPEGQuality(cfg.Photo.JPEGQuality),
				issuanceHandler.WithMaxPhotoBytes(cfg.Photo.UploadMaxBytes),
			),
			policyHandler.New(policies, log),
		},
		Metrics:        platformMetrics.New(prometheus.DefaultRegisterer),
		MetricsHandler: promhttp.Handler(),
		Health:         health,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	log.Info("starting policydesk",
		"addr", cfg.Server.Addr,
		"env", cfg.Env,
		"redis", cfg.Redis.URL != "",
		"kafka", len(cfg.Kafka.Brokers) > 0,
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Server.Addr, router), shutdownGrace, log)
}

// buildSessionStore picks Redis when REDIS_URL is set and memory otherwise.
func buildSessionStore(ctx context.Context, cfg config.Config, log *slog.Logger, health map[string]httptransport.HealthCheck) (issuanceService.Store, func(), error) {
	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set; issuance sessions are kept in memory")
		return sessionStore.New(), func() {}, nil
	}
	health["redis"] = client.Health
	return sessionStore.NewRedis(client.Client), func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close redis client", "error", err)
		}
	}, nil
}

// buildNotificationSink logs every notification and, when brokers are configured,
// publishes them to Kafka with the log sink as fallback.
func buildNotificationSink(ctx context.Context, cfg config.Config, log *slog.Logger) (notify.Sink, func()) {
	logSink := notify.NewLogSink(log)
	if len(cfg.Kafka.Brokers) == 0 {
		return logSink, func() {}
	}

	client, err := kafka.NewProducer(kafka.Config{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		log.Error("kafka producer unavailable; notifications are only logged", "error", err)
		return logSink, func() {}
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.NotifyTopic, cfg.Kafka.Partitions, cfg.Kafka.Replication, log); err != nil {
		log.Warn("failed to ensure notification topic", "topic", cfg.Kafka.NotifyTopic, "error", err)
	}
	sink := notify.NewKafkaSink(client, cfg.Kafka.NotifyTopic, log, notify.WithFallback(logSink))
	return sink, func() { closeProducer(client, log) }
}

func closeProducer(client *kgo.Client, log *slog.Logger) {
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Flush(flushCtx); err != nil {
		log.Warn("failed to flush notifications", "error", err)
	}
	client.Close()
}
