package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/avelichko/notesservice/internal/auth"
	"github.com/avelichko/notesservice/internal/broadcast"
	"github.com/avelichko/notesservice/internal/cache"
	"github.com/avelichko/notesservice/internal/config"
	"github.com/avelichko/notesservice/internal/handlers"
	"github.com/avelichko/notesservice/internal/metrics"
	"github.com/avelichko/notesservice/internal/notify"
	"github.com/avelichko/notesservice/internal/ratelimit"
	"github.com/avelichko/notesservice/internal/storage"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.LoadConfig()

	dbConn, err := storage.Open(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MySQL")
	}
	defer dbConn.Close()
	store := storage.NewMySQL(dbConn)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// The limiter fails open and the cache degrades to direct reads,
		// so an unreachable Redis is not fatal at startup.
		log.Warn().Err(err).Msg("redis unreachable, limiter and cache degraded")
	}
	cancelPing()

	mqConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer mqConn.Close()
	mqChannel, err := mqConn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open RabbitMQ channel")
	}
	publisher, err := notify.NewPublisher(mqChannel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to declare email queue")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	notesCache := cache.New(rdb)
	hub := broadcast.NewHub(log)

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:    handlers.NewAuthHandler(store, tokens, log),
		Notes:   handlers.NewNotesHandler(store, notesCache, log),
		Email:   handlers.NewEmailHandler(publisher, log),
		Tokens:  tokens,
		Users:   store,
		Hub:     hub,
		Log:     log,
		Metrics: metrics.New(),
		RateLimit: ratelimit.Middleware(ratelimit.Options{
			Counter: ratelimit.NewRedisCounter(rdb),
			Limit:   int64(cfg.RateLimit),
			Window:  cfg.RateWindow,
			Log:     log,
		}),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}
