package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

const EmailQueue = "email_queue"

type EmailJob struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Publisher enqueues email jobs on the broker. Delivery is fire-and-forget,
// at-most-once: the caller gets a job id and nothing else.
type Publisher struct {
	ch    *amqp.Channel
	queue string
}

func NewPublisher(ch *amqp.Channel) (*Publisher, error) {
	_, err := ch.QueueDeclare(EmailQueue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &Publisher{ch: ch, queue: EmailQueue}, nil
}

func (p *Publisher) SendEmail(ctx context.Context, address string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	job := EmailJob{ID: uuid.NewString(), Email: address}
	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	err = p.ch.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("publish job: %w", err)
	}
	return job.ID, nil
}
