package gql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/atpstore/backend-atp/internal/obs"
)

// Doer abstracts the resilient HTTP transport fronting the data layer.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Result is the operation result envelope. Data is left as raw JSON for the
// caller to decode; Error is set when the data layer reported structured
// operation errors or when the transport failed.
type Result struct {
	Data  json.RawMessage
	Error *OperationError
}

// Client issues read and write operations against the hosted GraphQL data
// layer. Every call performs exactly one logical operation; the client does
// not batch, deduplicate or serialize concurrent calls, and enforces no
// timeout of its own beyond what the transport is configured with.
type Client struct {
	Endpoint string
	HTTP     Doer
	Headers  map[string]string
	Logger   zerolog.Logger
}

type wireRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type wireResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Request issues a read operation. A nil variables map is sent as an empty
// object, never omitted. Transport-level failures are returned as a non-nil
// error alongside an envelope carrying the same failure for observers;
// structured operation errors live only in the envelope.
func (c *Client) Request(ctx context.Context, doc Document, variables map[string]any) (Result, error) {
	return c.do(ctx, "query", doc, variables)
}

// Mutate issues a write operation with the same contract as Request.
func (c *Client) Mutate(ctx context.Context, doc Document, variables map[string]any) (Result, error) {
	return c.do(ctx, "mutation", doc, variables)
}

func (c *Client) do(ctx context.Context, kind string, doc Document, variables map[string]any) (Result, error) {
	if c == nil {
		return Result{}, errors.New("gql: client not configured")
	}
	if variables == nil {
		variables = map[string]any{}
	}
	body, err := json.Marshal(wireRequest{Query: doc.Source(), Variables: variables})
	if err != nil {
		opErr := newNetworkError(err)
		return Result{Error: opErr}, opErr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		opErr := newNetworkError(err)
		return Result{Error: opErr}, opErr
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.Headers {
		req.Header.Set(key, value)
	}
	if session, ok := sessionTokenFrom(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+session)
	}

	resp, err := c.transport().Do(ctx, req)
	if err != nil {
		obs.CountUpstream("hasura", kind, "network_error")
		opErr := newNetworkError(err)
		return Result{Error: opErr}, opErr
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		obs.CountUpstream("hasura", kind, "network_error")
		opErr := newNetworkError(err)
		return Result{Error: opErr}, opErr
	}

	var decoded wireResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		obs.CountUpstream("hasura", kind, "network_error")
		opErr := newNetworkError(fmt.Errorf("status %d: %w", resp.StatusCode, err))
		return Result{Error: opErr}, opErr
	}

	if len(decoded.Errors) > 0 {
		obs.CountUpstream("hasura", kind, "graphql_error")
		return Result{Data: decoded.Data, Error: newOperationError(decoded.Errors)}, nil
	}
	obs.CountUpstream("hasura", kind, "ok")
	return Result{Data: decoded.Data}, nil
}

func (c *Client) transport() Doer {
	if c.HTTP != nil {
		return c.HTTP
	}
	return plainDoer{client: http.DefaultClient}
}

type plainDoer struct {
	client *http.Client
}

func (d plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return d.client.Do(req.WithContext(ctx))
}
