package tasks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/atpstore/backend-atp/internal/mail"
	"github.com/atpstore/backend-atp/internal/tasks"
)

func TestNewEmailDeliveryTask(t *testing.T) {
	task, err := tasks.NewEmailDeliveryTask(tasks.EmailPayload{
		To:      "admin@atpstore.se",
		Subject: "General Inquiry",
		HTML:    "<p>hello</p>",
		Kind:    "contact_admin",
	})
	require.NoError(t, err)
	require.Equal(t, tasks.TypeEmailDeliver, task.Type())
}

func TestNewEmailDeliveryTaskRequiresRecipient(t *testing.T) {
	_, err := tasks.NewEmailDeliveryTask(tasks.EmailPayload{Subject: "x"})
	require.Error(t, err)
}

func TestProcessTaskDelivers(t *testing.T) {
	outbox := &mail.Outbox{}
	handler := &tasks.EmailHandler{Sender: outbox, Logger: zerolog.Nop()}

	task, err := tasks.NewEmailDeliveryTask(tasks.EmailPayload{
		To: "admin@atpstore.se", Subject: "General Inquiry", HTML: "<p>hi</p>",
	})
	require.NoError(t, err)

	require.NoError(t, handler.ProcessTask(context.Background(), task))
	require.Len(t, outbox.Messages, 1)
	require.Equal(t, "admin@atpstore.se", outbox.Messages[0].To)
}

func TestProcessTaskMalformedPayloadSkipsRetry(t *testing.T) {
	handler := &tasks.EmailHandler{Sender: &mail.Outbox{}, Logger: zerolog.Nop()}

	err := handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeEmailDeliver, []byte("{not json")))
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessTaskSenderFailureRetries(t *testing.T) {
	handler := &tasks.EmailHandler{
		Sender: mail.SenderFunc(func(string, string, string) error { return errors.New("smtp 421") }),
		Logger: zerolog.Nop(),
	}

	task, err := tasks.NewEmailDeliveryTask(tasks.EmailPayload{To: "a@b.se", Subject: "s", HTML: "h"})
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}
