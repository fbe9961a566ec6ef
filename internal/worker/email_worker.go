package worker

// email_worker.go
// Processes email jobs from QueueEmail. Sends go through the SMTP circuit
// breaker with retry; a job that exhausts its attempts is dead-lettered.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const emailMaxAttempts = 3

// MailSender is satisfied by *infra.Mailer.
type MailSender interface {
	Configured() bool
	Send(msg infra.Mail) error
}

// EmailWorker processes email jobs from QueueEmail.
type EmailWorker struct {
	mailer  MailSender
	cb      *infra.CircuitBreaker
	backoff time.Duration
	dlq     deadLetterFunc
}

// NewEmailWorker creates an EmailWorker. rdb receives dead-lettered jobs.
func NewEmailWorker(mailer MailSender, cb *infra.CircuitBreaker, rdb *redis.Client) *EmailWorker {
	return &EmailWorker{
		mailer:  mailer,
		cb:      cb,
		backoff: time.Second,
		dlq:     NewDeadLetters(rdb).Push,
	}
}

// Process sends one email.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		w.dlq(ctx, QueueEmail, JobEmail, raw, "invalid payload: "+err.Error(), 0)
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.To == "" {
		log.Warn().Str("subject", payload.Subject).Msg("email_worker: empty recipient, skipping")
		return nil
	}
	if !w.mailer.Configured() {
		log.Warn().Str("to", payload.To).Msg("email_worker: SMTP not configured, dropping mail")
		return nil
	}

	msg := infra.Mail{To: []string{payload.To}, Subject: payload.Subject, Body: payload.Body}
	for _, a := range payload.Attachments {
		msg.Attachments = append(msg.Attachments, infra.Attachment{Name: a.Name, ContentType: a.ContentType, Data: a.Data})
	}

	attempts := 0
	err := withRetry(ctx, emailMaxAttempts, w.backoff, func(attempt int) error {
		attempts = attempt + 1
		err := w.cb.Execute(func() error { return w.mailer.Send(msg) })
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempts).Str("to", payload.To).Msg("email_worker: send failed")
		}
		return err
	})
	if err != nil {
		reason := err.Error()
		if errors.Is(err, infra.ErrCircuitOpen) {
			reason = "smtp circuit open"
		}
		w.dlq(ctx, QueueEmail, JobEmail, raw, reason, attempts)
		return fmt.Errorf("email_worker: send to %s: %w", payload.To, err)
	}
	log.Info().Str("to", payload.To).Str("subject", payload.Subject).Msg("email_worker: mail sent")
	return nil
}
