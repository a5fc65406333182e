package gql_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/atpstore/backend-atp/internal/gql"
)

func newObserver(notifier gql.Notifier) (gql.Observer, *bytes.Buffer) {
	var logs bytes.Buffer
	return gql.Observer{
		Notifier: notifier,
		Logger:   zerolog.New(&logs),
	}, &logs
}

func TestObserveNetworkErrorWinsOverOperationErrors(t *testing.T) {
	capture := &gql.CaptureNotifier{}
	observer, logs := newObserver(capture)

	observer.Observe(&gql.OperationError{
		NetworkError:  errors.New("dial tcp: connection refused"),
		GraphQLErrors: []gql.GraphQLError{{Message: "should be ignored"}},
	})

	require.Len(t, capture.Notifications, 1)
	require.Equal(t, gql.CategoryNetwork, capture.Notifications[0].Category)
	require.Equal(t, 1, strings.Count(logs.String(), "\n"), "exactly one diagnostic entry")
}

func TestObserveClassifiesByErrorCode(t *testing.T) {
	capture := &gql.CaptureNotifier{}
	observer, _ := newObserver(capture)

	observer.Observe(&gql.OperationError{GraphQLErrors: []gql.GraphQLError{
		{Message: "denied", Extensions: map[string]any{"code": "access-denied"}},
		{Message: "expired", Extensions: map[string]any{"code": "invalid-jwt"}},
		{Message: "column does not exist", Extensions: map[string]any{"code": "postgres-error"}},
		{Message: ""},
	}})

	// one notification per structured error, never a merged one
	require.Len(t, capture.Notifications, 4)
	require.Equal(t, gql.CategoryPermissionDenied, capture.Notifications[0].Category)
	require.Equal(t, gql.CategorySessionExpired, capture.Notifications[1].Category)
	require.Equal(t, gql.CategoryGeneric, capture.Notifications[2].Category)
	require.Equal(t, "column does not exist", capture.Notifications[2].Message)
	require.Equal(t, "Something went wrong", capture.Notifications[3].Message)
}

func TestObserveLogsWithoutNotifierAndNeverPanics(t *testing.T) {
	observer, logs := newObserver(nil)

	observer.Observe(nil)
	observer.Observe(&gql.OperationError{GraphQLErrors: []gql.GraphQLError{{Message: "boom"}}})

	require.Contains(t, logs.String(), "boom")
}
