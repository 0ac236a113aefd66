package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/avelichko/notesservice/internal/config"
	"github.com/avelichko/notesservice/internal/notify"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.LoadConfig()

	mqConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer mqConn.Close()

	mqChannel, err := mqConn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open RabbitMQ channel")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := notify.RunWorker(ctx, mqChannel, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker error")
	}
	log.Info().Msg("worker stopped")
}
