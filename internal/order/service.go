package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/gql"
)

// Requester issues read operations against the hosted GraphQL data layer.
type Requester interface {
	Request(ctx context.Context, doc gql.Document, variables map[string]any) (gql.Result, error)
}

// Line is one immutable order line as recorded at submission time.
type Line struct {
	StockID    string  `json:"stockId"`
	LineInfo   string  `json:"lineInfo"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	VATPercent float64 `json:"vatPercent"`
	VATAmount  float64 `json:"vatAmount"`
	LineTotal  float64 `json:"lineTotal"`
}

// Summary is one entry in the customer's order history listing.
type Summary struct {
	OrderNumber string  `json:"orderNumber"`
	OrderDate   string  `json:"orderDate"`
	Status      string  `json:"status"`
	GrandTotal  float64 `json:"grandTotal"`
}

// Detail is the full order payload.
type Detail struct {
	OrderNumber string  `json:"orderNumber"`
	OrderDate   string  `json:"orderDate"`
	Status      string  `json:"status"`
	Subtotal    float64 `json:"subtotal"`
	VATTotal    float64 `json:"vatTotal"`
	GrandTotal  float64 `json:"grandTotal"`
	Lines       []Line  `json:"lines"`
}

// Service reads customer order history. Every query is scoped to the
// authenticated user id; there is no unscoped variant.
type Service struct {
	GQL      Requester
	Observer *gql.Observer
}

var (
	docListOrders = gql.Raw(`query OrdersByCustomer($customerId: String!, $limit: Int!, $offset: Int!) {
  orders(where: {customer_id: {_eq: $customerId}}, order_by: {order_date: desc}, limit: $limit, offset: $offset) {
    order_number order_date status grand_total
  }
  orders_aggregate(where: {customer_id: {_eq: $customerId}}) {
    aggregate { count }
  }
}`)
	docGetOrder = gql.Raw(`query OrderByNumber($customerId: String!, $orderNumber: String!) {
  orders(where: {_and: [{customer_id: {_eq: $customerId}}, {order_number: {_eq: $orderNumber}}]}, limit: 1) {
    order_number order_date status subtotal vat_total grand_total
    order_lines { stock_id line_info quantity unit_price vat_percent vat_amount line_total }
  }
}`)
)

type wireOrder struct {
	OrderNumber string  `json:"order_number"`
	OrderDate   string  `json:"order_date"`
	Status      string  `json:"status"`
	Subtotal    float64 `json:"subtotal"`
	VATTotal    float64 `json:"vat_total"`
	GrandTotal  float64 `json:"grand_total"`
	OrderLines  []struct {
		StockID    string  `json:"stock_id"`
		LineInfo   string  `json:"line_info"`
		Quantity   int     `json:"quantity"`
		UnitPrice  float64 `json:"unit_price"`
		VATPercent float64 `json:"vat_percent"`
		VATAmount  float64 `json:"vat_amount"`
		LineTotal  float64 `json:"line_total"`
	} `json:"order_lines"`
}

// List returns one page of the customer's order history, newest first.
func (s *Service) List(ctx context.Context, userID string, page, perPage int) ([]Summary, common.Pagination, error) {
	if s == nil || s.GQL == nil {
		return nil, common.Pagination{}, errors.New("order service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, common.Pagination{}, common.NewAppError("UNAUTHORIZED", "user is required", http.StatusUnauthorized, nil)
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	var payload struct {
		Orders          []wireOrder `json:"orders"`
		OrdersAggregate struct {
			Aggregate struct {
				Count int `json:"count"`
			} `json:"aggregate"`
		} `json:"orders_aggregate"`
	}
	vars := map[string]any{
		"customerId": userID,
		"limit":      perPage,
		"offset":     (page - 1) * perPage,
	}
	if err := s.query(ctx, docListOrders, vars, &payload); err != nil {
		return nil, common.Pagination{}, fmt.Errorf("list orders: %w", err)
	}
	result := make([]Summary, 0, len(payload.Orders))
	for _, row := range payload.Orders {
		result = append(result, Summary{
			OrderNumber: row.OrderNumber,
			OrderDate:   row.OrderDate,
			Status:      row.Status,
			GrandTotal:  row.GrandTotal,
		})
	}
	meta := common.Pagination{Page: page, PerPage: perPage, TotalItems: payload.OrdersAggregate.Aggregate.Count}
	return result, meta, nil
}

// Get returns one order by number, still scoped to the customer.
func (s *Service) Get(ctx context.Context, userID, orderNumber string) (Detail, error) {
	if s == nil || s.GQL == nil {
		return Detail{}, errors.New("order service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Detail{}, common.NewAppError("UNAUTHORIZED", "user is required", http.StatusUnauthorized, nil)
	}
	if strings.TrimSpace(orderNumber) == "" {
		return Detail{}, common.NewAppError("BAD_REQUEST", "order number is required", http.StatusBadRequest, nil)
	}
	var payload struct {
		Orders []wireOrder `json:"orders"`
	}
	vars := map[string]any{"customerId": userID, "orderNumber": orderNumber}
	if err := s.query(ctx, docGetOrder, vars, &payload); err != nil {
		return Detail{}, fmt.Errorf("get order: %w", err)
	}
	if len(payload.Orders) == 0 {
		return Detail{}, common.NewAppError("NOT_FOUND", "order not found", http.StatusNotFound, nil)
	}
	row := payload.Orders[0]
	detail := Detail{
		OrderNumber: row.OrderNumber,
		OrderDate:   row.OrderDate,
		Status:      row.Status,
		Subtotal:    row.Subtotal,
		VATTotal:    row.VATTotal,
		GrandTotal:  row.GrandTotal,
	}
	detail.Lines = make([]Line, 0, len(row.OrderLines))
	for _, line := range row.OrderLines {
		detail.Lines = append(detail.Lines, Line(line))
	}
	return detail, nil
}

func (s *Service) query(ctx context.Context, doc gql.Document, vars map[string]any, dst any) error {
	result, err := s.GQL.Request(ctx, doc, vars)
	if err != nil {
		s.observe(result.Error)
		return err
	}
	if result.Error != nil {
		s.observe(result.Error)
		return result.Error
	}
	if len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (s *Service) observe(opErr *gql.OperationError) {
	if s.Observer != nil && opErr != nil {
		s.Observer.Observe(opErr)
	}
}
