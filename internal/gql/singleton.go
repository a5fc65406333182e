package gql

import (
	"context"
	"errors"
	"sync"
)

// The process-wide client is created lazily on first use and reused for every
// subsequent operation. There is no teardown in normal operation; Reset
// exists for test isolation.
var (
	defaultMu      sync.Mutex
	defaultClient  *Client
	defaultFactory func() (*Client, error)
)

// SetFactory installs the constructor used to build the process-wide client
// on first use. Installing a factory does not eagerly construct the client.
func SetFactory(factory func() (*Client, error)) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultFactory = factory
	defaultClient = nil
}

// Default returns the process-wide client, constructing it on first call.
func Default() (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient != nil {
		return defaultClient, nil
	}
	if defaultFactory == nil {
		return nil, errors.New("gql: no client factory configured")
	}
	client, err := defaultFactory()
	if err != nil {
		return nil, err
	}
	defaultClient = client
	return defaultClient, nil
}

// Reset discards the process-wide client so the next Default call rebuilds
// it. In-flight operations keep the instance they already resolved.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultClient = nil
}

// Request resolves the process-wide client and issues a read operation.
func Request(ctx context.Context, doc Document, variables map[string]any) (Result, error) {
	client, err := Default()
	if err != nil {
		return Result{}, err
	}
	return client.Request(ctx, doc, variables)
}

// Mutate resolves the process-wide client and issues a write operation.
func Mutate(ctx context.Context, doc Document, variables map[string]any) (Result, error) {
	client, err := Default()
	if err != nil {
		return Result{}, err
	}
	return client.Mutate(ctx, doc, variables)
}
