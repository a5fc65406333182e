package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/atpstore/backend-atp/internal/cart"
	"github.com/atpstore/backend-atp/internal/checkout"
	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/gql"
)

type stubMutator struct {
	result gql.Result
	err    error
	vars   map[string]any
	calls  int
}

func (s *stubMutator) Mutate(_ context.Context, _ gql.Document, vars map[string]any) (gql.Result, error) {
	s.calls++
	s.vars = vars
	return s.result, s.err
}

func confirmationPayload() json.RawMessage {
	return json.RawMessage(`{
		"insert_orders_one": {
			"order_number": "ATP-2026-000123",
			"order_date": "2026-08-28",
			"customer": {"title": "Maria Andersson"},
			"dispatch_address": {"address_line_1": "Storgatan 1", "city": "Stockholm", "postal_code": "111 22", "country": "SE"},
			"invoice_address": {"address_line_1": "Storgatan 1", "city": "Stockholm", "postal_code": "111 22", "country": "SE"}
		}
	}`)
}

func newCartService(t *testing.T) *cart.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &cart.Service{
		Store:             cart.Store{R: client, TTL: time.Hour},
		MaxQuantity:       10,
		DefaultVATPercent: 25,
	}
}

func seedCart(t *testing.T, carts *cart.Service) string {
	t.Helper()
	ctx := context.Background()
	view, err := carts.Create(ctx)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, view.ID, cart.AddItemInput{
		ProductID: "p-1", Name: "Brake pads", Quantity: 2, UnitPrice: 200,
	})
	require.NoError(t, err)
	return view.ID
}

func TestSubmitHappyPath(t *testing.T) {
	carts := newCartService(t)
	cartID := seedCart(t, carts)
	mutator := &stubMutator{result: gql.Result{Data: confirmationPayload()}}
	svc := &checkout.Service{GQL: mutator, Carts: carts, Logger: zerolog.Nop()}

	conf, err := svc.Submit(context.Background(), "user-1", checkout.Input{
		CartID:            cartID,
		DispatchAddressID: "addr-1",
		InvoiceAddressID:  "addr-2",
	})
	require.NoError(t, err)
	require.Equal(t, "ATP-2026-000123", conf.OrderNumber)
	require.Equal(t, "Maria Andersson", conf.CustomerTitle)
	require.Equal(t, "Stockholm", conf.DispatchAddress.City)

	// submitted totals come from the engine
	order := mutator.vars["order"].(map[string]any)
	require.InDelta(t, 400.0, order["subtotal"].(float64), 1e-9)
	require.InDelta(t, 100.0, order["vat_total"].(float64), 1e-9)
	require.InDelta(t, 500.0, order["grand_total"].(float64), 1e-9)

	// cart is cleared on success
	view, err := carts.Get(context.Background(), cartID)
	require.NoError(t, err)
	require.Empty(t, view.Items)
}

func TestSubmitEmptyCart(t *testing.T) {
	carts := newCartService(t)
	view, err := carts.Create(context.Background())
	require.NoError(t, err)
	mutator := &stubMutator{}
	svc := &checkout.Service{GQL: mutator, Carts: carts, Logger: zerolog.Nop()}

	_, err = svc.Submit(context.Background(), "user-1", checkout.Input{
		CartID: view.ID, DispatchAddressID: "a", InvoiceAddressID: "b",
	})
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.Zero(t, mutator.calls)
}

func TestSubmitMissingUser(t *testing.T) {
	carts := newCartService(t)
	svc := &checkout.Service{GQL: &stubMutator{}, Carts: carts, Logger: zerolog.Nop()}

	_, err := svc.Submit(context.Background(), "", checkout.Input{CartID: "c"})
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}

func TestSubmitUpstreamFailure(t *testing.T) {
	carts := newCartService(t)
	cartID := seedCart(t, carts)
	opErr := &gql.OperationError{NetworkError: errors.New("connection refused")}
	mutator := &stubMutator{result: gql.Result{Error: opErr}, err: opErr}
	svc := &checkout.Service{GQL: mutator, Carts: carts, Logger: zerolog.Nop()}

	_, err := svc.Submit(context.Background(), "user-1", checkout.Input{
		CartID: cartID, DispatchAddressID: "a", InvoiceAddressID: "b",
	})
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)

	// cart stays intact when the order did not go through
	view, err := carts.Get(context.Background(), cartID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
}

func TestSubmitOperationError(t *testing.T) {
	carts := newCartService(t)
	cartID := seedCart(t, carts)
	mutator := &stubMutator{result: gql.Result{
		Error: &gql.OperationError{GraphQLErrors: []gql.GraphQLError{{Message: "constraint violation"}}},
	}}
	svc := &checkout.Service{GQL: mutator, Carts: carts, Logger: zerolog.Nop()}

	_, err := svc.Submit(context.Background(), "user-1", checkout.Input{
		CartID: cartID, DispatchAddressID: "a", InvoiceAddressID: "b",
	})
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}
