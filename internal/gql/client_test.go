package gql_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atpstore/backend-atp/internal/gql"
)

func TestDocumentSource(t *testing.T) {
	require.Equal(t, "query { products { id } }", gql.Raw("query { products { id } }").Source())
	require.Equal(t, "", gql.Raw("").Source())

	parsed := gql.Parsed(gql.ParsedDocument{Loc: &gql.Location{Source: gql.Source{Body: "mutation { m }"}}})
	require.Equal(t, "mutation { m }", parsed.Source())

	// a parsed document without pre-computed source text resolves to ""
	require.Equal(t, "", gql.Parsed(gql.ParsedDocument{}).Source())
}

func TestRequestSendsEmptyDocumentAndConcreteVariables(t *testing.T) {
	var captured map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer server.Close()

	client := &gql.Client{Endpoint: server.URL}
	result, err := client.Request(context.Background(), gql.Raw(""), nil)
	require.NoError(t, err)
	require.Nil(t, result.Error)
	require.JSONEq(t, `{"ok":true}`, string(result.Data))

	require.Equal(t, `""`, string(captured["query"]))
	// variables must be a concrete empty object, never null or absent
	require.Equal(t, `{}`, string(captured["variables"]))
}

func TestRequestForwardsVariablesAndHeaders(t *testing.T) {
	var gotAuth, gotSecret string
	var captured struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSecret = r.Header.Get("X-Hasura-Admin-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	client := &gql.Client{
		Endpoint: server.URL,
		Headers:  map[string]string{"X-Hasura-Admin-Secret": "shh"},
	}
	ctx := gql.WithSessionToken(context.Background(), "tok-123")
	_, err := client.Request(ctx, gql.Raw("query Q($id: uuid!) { product(id: $id) { id } }"), map[string]any{"id": "p-1"})
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", gotAuth)
	require.Equal(t, "shh", gotSecret)
	require.Equal(t, map[string]any{"id": "p-1"}, captured.Variables)
}

func TestRequestSurfacesGraphQLErrorsInEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"field not found","path":["q"],"extensions":{"code":"validation-failed"}}]}`))
	}))
	defer server.Close()

	client := &gql.Client{Endpoint: server.URL}
	result, err := client.Request(context.Background(), gql.Raw("query { q }"), nil)
	// operation errors live in the envelope; only transport failures reject
	require.NoError(t, err)
	require.NotNil(t, result.Error)
	require.Nil(t, result.Error.NetworkError)
	require.Len(t, result.Error.GraphQLErrors, 1)
	require.Equal(t, "field not found", result.Error.GraphQLErrors[0].Message)
	require.Equal(t, "validation-failed", result.Error.GraphQLErrors[0].Code())
}

func TestRequestPropagatesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	client := &gql.Client{Endpoint: server.URL}
	result, err := client.Mutate(context.Background(), gql.Raw("mutation { m }"), nil)
	require.Error(t, err)
	require.NotNil(t, result.Error)
	require.Error(t, result.Error.NetworkError)
}

func TestSingletonLazyInitAndReset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	var built int
	gql.SetFactory(func() (*gql.Client, error) {
		built++
		return &gql.Client{Endpoint: server.URL}, nil
	})
	defer gql.SetFactory(nil)

	require.Zero(t, built, "factory must not run before first use")

	_, err := gql.Request(context.Background(), gql.Raw("query { a }"), nil)
	require.NoError(t, err)
	_, err = gql.Mutate(context.Background(), gql.Raw("mutation { b }"), nil)
	require.NoError(t, err)
	require.Equal(t, 1, built, "singleton must be reused across calls")

	gql.Reset()
	_, err = gql.Request(context.Background(), gql.Raw("query { c }"), nil)
	require.NoError(t, err)
	require.Equal(t, 2, built, "reset must force a rebuild on next use")
}
