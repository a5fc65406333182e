package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/atpstore/backend-atp/internal/mail"
	"github.com/atpstore/backend-atp/internal/obs"
)

// TypeEmailDeliver is the task type for outbound email delivery.
const TypeEmailDeliver = "email:deliver"

// QueueEmails is the queue outbound email runs on.
const QueueEmails = "emails"

// EmailPayload is the serialized body of an email delivery task. The HTML is
// rendered before enqueueing so the worker does not need the template
// bundles.
type EmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Kind     string `json:"kind"`
	Language string `json:"language"`
}

// NewEmailDeliveryTask builds the asynq task for one email.
func NewEmailDeliveryTask(payload EmailPayload) (*asynq.Task, error) {
	if payload.To == "" {
		return nil, errors.New("tasks: email recipient is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tasks: encode email payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDeliver, body, asynq.Queue(QueueEmails), asynq.MaxRetry(5)), nil
}

// Enqueuer hands tasks to the redis-backed queue.
type Enqueuer struct {
	Client *asynq.Client
	Logger zerolog.Logger
}

// EnqueueEmail schedules one email for delivery.
func (e *Enqueuer) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	if e == nil || e.Client == nil {
		return errors.New("tasks: enqueuer not configured")
	}
	task, err := NewEmailDeliveryTask(payload)
	if err != nil {
		return err
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if err != nil {
		obs.CountEmailDelivery("enqueue_error")
		return fmt.Errorf("tasks: enqueue email: %w", err)
	}
	e.Logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Str("kind", payload.Kind).Msg("email task enqueued")
	return nil
}

// EmailHandler delivers queued emails over the configured sender.
type EmailHandler struct {
	Sender mail.Sender
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler for TypeEmailDeliver.
func (h *EmailHandler) ProcessTask(_ context.Context, task *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		obs.CountEmailDelivery("decode_error")
		// a malformed payload never becomes deliverable; do not retry
		return fmt.Errorf("tasks: decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if h.Sender == nil {
		return errors.New("tasks: mail sender not configured")
	}
	if err := h.Sender.Send(payload.To, payload.Subject, payload.HTML); err != nil {
		obs.CountEmailDelivery("error")
		h.Logger.Error().Err(err).Str("kind", payload.Kind).Msg("email delivery failed")
		return fmt.Errorf("tasks: send email: %w", err)
	}
	obs.CountEmailDelivery("ok")
	h.Logger.Info().Str("kind", payload.Kind).Str("language", payload.Language).Msg("email delivered")
	return nil
}
