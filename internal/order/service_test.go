package order_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/gql"
	"github.com/atpstore/backend-atp/internal/order"
)

type stubRequester struct {
	result gql.Result
	err    error
	vars   map[string]any
}

func (s *stubRequester) Request(_ context.Context, _ gql.Document, vars map[string]any) (gql.Result, error) {
	s.vars = vars
	return s.result, s.err
}

func TestListScopedToUser(t *testing.T) {
	stub := &stubRequester{result: gql.Result{Data: json.RawMessage(`{
		"orders": [
			{"order_number": "ATP-2026-000123", "order_date": "2026-08-28", "status": "confirmed", "grand_total": 500},
			{"order_number": "ATP-2026-000101", "order_date": "2026-08-01", "status": "dispatched", "grand_total": 359.97}
		],
		"orders_aggregate": {"aggregate": {"count": 12}}
	}`)}}
	svc := &order.Service{GQL: stub}

	orders, meta, err := svc.List(context.Background(), "user-1", 2, 5)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "ATP-2026-000123", orders[0].OrderNumber)
	require.InDelta(t, 359.97, orders[1].GrandTotal, 1e-9)
	require.Equal(t, "user-1", stub.vars["customerId"])
	require.Equal(t, 5, stub.vars["limit"])
	require.Equal(t, 5, stub.vars["offset"])
	require.Equal(t, common.Pagination{Page: 2, PerPage: 5, TotalItems: 12}, meta)
}

func TestListRequiresUser(t *testing.T) {
	svc := &order.Service{GQL: &stubRequester{}}
	_, _, err := svc.List(context.Background(), " ", 1, 20)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}

func TestGetDecodesLines(t *testing.T) {
	stub := &stubRequester{result: gql.Result{Data: json.RawMessage(`{
		"orders": [{
			"order_number": "ATP-2026-000123", "order_date": "2026-08-28", "status": "confirmed",
			"subtotal": 400, "vat_total": 100, "grand_total": 500,
			"order_lines": [
				{"stock_id": "p-1", "line_info": "Brake pads", "quantity": 2, "unit_price": 200, "vat_percent": 25, "vat_amount": 100, "line_total": 500}
			]
		}]
	}`)}}
	svc := &order.Service{GQL: stub}

	detail, err := svc.Get(context.Background(), "user-1", "ATP-2026-000123")
	require.NoError(t, err)
	require.Len(t, detail.Lines, 1)
	require.Equal(t, "Brake pads", detail.Lines[0].LineInfo)
	require.InDelta(t, 500.0, detail.Lines[0].LineTotal, 1e-9)
}

func TestGetUnknownOrder(t *testing.T) {
	stub := &stubRequester{result: gql.Result{Data: json.RawMessage(`{"orders": []}`)}}
	svc := &order.Service{GQL: stub}

	_, err := svc.Get(context.Background(), "user-1", "missing")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestGetSurfacesOperationError(t *testing.T) {
	stub := &stubRequester{result: gql.Result{
		Error: &gql.OperationError{GraphQLErrors: []gql.GraphQLError{{Message: "permission denied", Extensions: map[string]any{"code": "access-denied"}}}},
	}}
	svc := &order.Service{GQL: stub}

	_, err := svc.Get(context.Background(), "user-1", "ATP-2026-000123")
	require.Error(t, err)
}
