package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"campus-mobility/internal/config"
	"campus-mobility/internal/events"
	"campus-mobility/internal/messaging"
	"campus-mobility/internal/middleware"
	"campus-mobility/internal/places"
	"campus-mobility/internal/pricing"
	"campus-mobility/internal/respond"
	"campus-mobility/internal/rides"
	"campus-mobility/internal/stats"
	"campus-mobility/internal/universities"
	"campus-mobility/internal/users"
	"campus-mobility/migrations"
	"campus-mobility/pkg/db"
	"campus-mobility/pkg/jwt"
	"campus-mobility/pkg/kafka"
	"campus-mobility/pkg/logger"
	"campus-mobility/pkg/mailer"
	rredis "campus-mobility/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger.Init(cfg.Server.Env)
	defer logger.Sync()
	log := logger.Named("main")

	// ── 1. JWT secret ──
	tokens, err := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	if err != nil {
		log.Fatal("jwt setup failed", zap.Error(err))
	}

	// ── 2. PostgreSQL ──
	database, err := db.Connect(ctx, cfg.Database.URL, 10, 2*time.Second)
	if err != nil {
		log.Fatal("postgres unavailable", zap.Error(err))
	}
	defer database.Close()

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	// ── 3. Redis (optional university cache) ──
	var cache universities.Cache
	if cfg.Redis.Addr != "" {
		redisClient, err := rredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, 5)
		if err != nil {
			log.Fatal("redis unavailable", zap.Error(err))
		}
		defer redisClient.Close()
		cache = redisClient
	} else {
		log.Info("REDIS_ADDR not set, university lookups are not cached")
	}

	// ── 4. Kafka (optional ride events) ──
	emitter := events.NewEmitter(nil)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient := kafka.NewClient(cfg.Kafka.Brokers)
		if err := kafkaClient.EnsureTopics(ctx, 10, kafka.Topics...); err != nil {
			log.Fatal("kafka topics", zap.Error(err))
		}
		defer kafkaClient.Close()
		emitter = events.NewEmitter(kafkaClient)
	} else {
		log.Info("KAFKA_BROKERS not set, ride events are dropped")
	}

	// ── 5. Metrics ──
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	// ── 6. Email fallback chain: Gmail → SendGrid → console ──
	var senders []mailer.Sender
	gmail, err := mailer.NewGmail(ctx, cfg.Email.GmailCredentialsJSON, cfg.Email.GmailTokenJSON, cfg.Email.GmailSender)
	switch {
	case err != nil:
		log.Warn("gmail disabled", zap.Error(err))
	case gmail != nil:
		senders = append(senders, gmail)
	}
	if sg := mailer.NewSendGrid(cfg.Email.SendGridAPIKey, cfg.Email.SendGridFromEmail, cfg.Email.SendGridFromName, cfg.Email.SendGridHost); sg != nil {
		senders = append(senders, sg)
	}
	senders = append(senders, mailer.Console{})
	mail := mailer.NewChain(senders...)
	mail.OnDelivered = metrics.EmailDelivered
	log.Info("email providers", zap.Strings("chain", mail.Providers()))

	// ── 7. University detection ──
	var ai universities.Completer
	if chat := universities.NewChatClient(cfg.Groq.APIKey, cfg.Groq.BaseURL, cfg.Groq.Model); chat != nil {
		ai = chat
	} else {
		log.Info("GROQ_API_KEY not set, only known university domains are accepted")
	}
	detector := universities.NewDetector(ai, cache)

	// ── 8. Services ──
	userSvc := users.NewService(users.NewPGStore(database.Pool), tokens, detector, mail, users.Options{
		CodeExpiry:             cfg.Auth.CodeExpiry,
		DeleteOwnedWithAccount: cfg.Rides.DeleteOwnedWithAccount,
	})

	chatStore := messaging.NewPGStore(database.Pool)
	rideSvc := rides.NewService(rides.NewPGStore(database.Pool), userSvc, chatStore, emitter, rides.Policy{
		CreatorLeave:           cfg.Rides.CreatorLeavePolicy,
		CascadeDelete:          cfg.Rides.CascadeDelete,
		BlockDeleteWithRiders:  cfg.Rides.BlockDeleteWithRiders,
		DefaultMaxParticipants: cfg.Rides.DefaultMaxParticipants,
	})
	userSvc.SetRideCleaner(rideSvc)

	hub := messaging.NewHub()
	chatSvc := messaging.NewService(chatStore, rideSvc, userSvc, hub)

	priceSvc := pricing.NewService(
		pricing.NewUberClient(cfg.Uber.ServerToken, cfg.Uber.BaseURL),
		pricing.NewRoutesClient(cfg.Google.RoutesAPIKey, cfg.Google.RoutesURL),
	)
	priceSvc.OnUnavailable = metrics.UpstreamUnavailable

	placeSvc, err := places.NewService(cfg.Google.PlacesAPIKey)
	if err != nil {
		log.Fatal("places client", zap.Error(err))
	}

	statSvc := stats.NewService(rideSvc, userSvc)

	// ── 9. HTTP router ──
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(metrics.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(tokens.OptionalAuth)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if err := database.Pool.Ping(r.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		respond.JSON(w, code, map[string]string{"status": status, "service": "campus-mobility"})
	})
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"message": "pong"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	users.NewHandler(userSvc).Routes(r)
	rides.NewHandler(rideSvc).Routes(r)
	messaging.NewHandler(chatSvc, hub).Routes(r)
	pricing.NewHandler(priceSvc).Routes(r)
	places.NewHandler(placeSvc).Routes(r)
	stats.NewHandler(statSvc).Routes(r)

	// ── 10. Start server ──
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("campus-mobility listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	// ── 11. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
}
