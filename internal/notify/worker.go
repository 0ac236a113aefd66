package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// sendDelay stands in for the latency of an actual mail provider call.
const sendDelay = 5 * time.Second

// RunWorker consumes email jobs until the context is cancelled. Failed
// sends are logged and dropped; retrying is not this worker's job.
func RunWorker(ctx context.Context, ch *amqp.Channel, log zerolog.Logger) error {
	if _, err := ch.QueueDeclare(EmailQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	deliveries, err := ch.Consume(EmailQueue, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue: %w", err)
	}

	log.Info().Str("queue", EmailQueue).Msg("email worker started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			var job EmailJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Warn().Err(err).Msg("discarding malformed email job")
				continue
			}
			sendEmail(job, log)
		}
	}
}

func sendEmail(job EmailJob, log zerolog.Logger) {
	log.Info().Str("job_id", job.ID).Str("email", job.Email).Msg("sending email")
	time.Sleep(sendDelay)
	log.Info().Str("job_id", job.ID).Str("email", job.Email).Msg("email sent")
}
