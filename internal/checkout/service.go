package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/atpstore/backend-atp/internal/cart"
	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/gql"
	"github.com/atpstore/backend-atp/internal/obs"
	"github.com/atpstore/backend-atp/internal/pricing"
)

// Mutator issues write operations against the hosted GraphQL data layer.
type Mutator interface {
	Mutate(ctx context.Context, doc gql.Document, variables map[string]any) (gql.Result, error)
}

// Input is the checkout request payload.
type Input struct {
	CartID            string `json:"cartId" validate:"required"`
	DispatchAddressID string `json:"dispatchAddressId" validate:"required"`
	InvoiceAddressID  string `json:"invoiceAddressId" validate:"required"`
}

// Address is the customer-facing address shape in the confirmation payload.
type Address struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
}

// Confirmation is returned after a successful order submission. Everything
// here comes back from the data layer, not from the request.
type Confirmation struct {
	OrderNumber     string  `json:"orderNumber"`
	OrderDate       string  `json:"orderDate"`
	CustomerTitle   string  `json:"customerTitle"`
	DispatchAddress Address `json:"dispatchAddress"`
	InvoiceAddress  Address `json:"invoiceAddress"`
}

// Service submits orders built from an open cart.
type Service struct {
	GQL      Mutator
	Observer *gql.Observer
	Carts    *cart.Service
	Logger   zerolog.Logger
}

var docInsertOrder = gql.Raw(`mutation InsertOrder($order: orders_insert_input!) {
  insert_orders_one(object: $order) {
    order_number
    order_date
    customer { title }
    dispatch_address { address_line_1 address_line_2 city postal_code country }
    invoice_address { address_line_1 address_line_2 city postal_code country }
  }
}`)

type wireAddress struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

func (a wireAddress) address() Address {
	return Address{
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
	}
}

type wireConfirmation struct {
	InsertOrdersOne *struct {
		OrderNumber string `json:"order_number"`
		OrderDate   string `json:"order_date"`
		Customer    struct {
			Title string `json:"title"`
		} `json:"customer"`
		DispatchAddress wireAddress `json:"dispatch_address"`
		InvoiceAddress  wireAddress `json:"invoice_address"`
	} `json:"insert_orders_one"`
}

// Submit turns the cart into an order. The price audit runs before anything
// leaves the process; on success the cart is cleared best effort.
func (s *Service) Submit(ctx context.Context, userID string, in Input) (Confirmation, error) {
	if s == nil || s.GQL == nil || s.Carts == nil {
		return Confirmation{}, errors.New("checkout service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Confirmation{}, common.NewAppError("UNAUTHORIZED", "user is required for checkout", http.StatusUnauthorized, nil)
	}

	view, err := s.Carts.Get(ctx, in.CartID)
	if err != nil {
		return Confirmation{}, err
	}
	if len(view.Items) == 0 {
		return Confirmation{}, common.NewAppError("BAD_REQUEST", "cart is empty", http.StatusBadRequest, nil)
	}
	if !pricing.ValidateLines(view.Lines) {
		obs.CountOrderSubmitted("audit_failed")
		s.Logger.Error().Str("cart_id", in.CartID).Msg("order amount audit failed before submission")
		return Confirmation{}, common.NewAppError("INTERNAL", "order amounts failed validation", http.StatusInternalServerError, nil)
	}

	lines := make([]map[string]any, 0, len(view.Lines))
	for _, line := range view.Lines {
		lines = append(lines, map[string]any{
			"stock_id":    line.StockID,
			"line_info":   line.LineInfo,
			"quantity":    line.Quantity,
			"unit_price":  line.UnitPrice,
			"vat_percent": line.VATPercent,
			"vat_amount":  line.VATAmount,
			"line_total":  line.LineTotal,
		})
	}
	vars := map[string]any{
		"order": map[string]any{
			"customer_id":         userID,
			"dispatch_address_id": in.DispatchAddressID,
			"invoice_address_id":  in.InvoiceAddressID,
			"subtotal":            view.Totals.Subtotal,
			"vat_total":           view.Totals.VATTotal,
			"grand_total":         view.Totals.GrandTotal,
			"order_lines":         map[string]any{"data": lines},
		},
	}

	result, err := s.GQL.Mutate(ctx, docInsertOrder, vars)
	if err != nil {
		s.observe(result.Error)
		obs.CountOrderSubmitted("network_error")
		return Confirmation{}, common.NewAppError("UPSTREAM_UNAVAILABLE", "could not submit order", http.StatusBadGateway, err)
	}
	if result.Error != nil {
		s.observe(result.Error)
		obs.CountOrderSubmitted("graphql_error")
		return Confirmation{}, common.NewAppError("INTERNAL", "could not submit order", http.StatusInternalServerError, result.Error)
	}

	var decoded wireConfirmation
	if err := json.Unmarshal(result.Data, &decoded); err != nil {
		obs.CountOrderSubmitted("decode_error")
		return Confirmation{}, fmt.Errorf("decode order confirmation: %w", err)
	}
	if decoded.InsertOrdersOne == nil {
		obs.CountOrderSubmitted("decode_error")
		return Confirmation{}, common.NewAppError("INTERNAL", "order confirmation missing from response", http.StatusInternalServerError, nil)
	}

	if _, err := s.Carts.Clear(ctx, in.CartID); err != nil {
		s.Logger.Warn().Err(err).Str("cart_id", in.CartID).Msg("could not clear cart after checkout")
	}

	obs.CountOrderSubmitted("ok")
	row := decoded.InsertOrdersOne
	return Confirmation{
		OrderNumber:     row.OrderNumber,
		OrderDate:       row.OrderDate,
		CustomerTitle:   row.Customer.Title,
		DispatchAddress: row.DispatchAddress.address(),
		InvoiceAddress:  row.InvoiceAddress.address(),
	}, nil
}

func (s *Service) observe(opErr *gql.OperationError) {
	if s.Observer != nil && opErr != nil {
		s.Observer.Observe(opErr)
	}
}
