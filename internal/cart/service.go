package cart

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/obs"
	"github.com/atpstore/backend-atp/internal/pricing"
)

// AddItemInput carries product data captured at add time. Prices are
// snapshotted here so the cart total is stable even if the catalog changes
// underneath it.
type AddItemInput struct {
	ProductID       string   `json:"productId" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	Quantity        int      `json:"quantity" validate:"required,min=1"`
	UnitPrice       float64  `json:"unitPrice" validate:"min=0"`
	DiscountedPrice *float64 `json:"discountedPrice,omitempty"`
	VATRate         *float64 `json:"vatRate,omitempty"`
}

// View is a cart with its computed price preview.
type View struct {
	ID     string                             `json:"id"`
	Items  []Item                             `json:"items"`
	Lines  []pricing.OrderLineWithCalculations `json:"lines"`
	Totals pricing.OrderTotals                `json:"totals"`
}

// Service owns cart mutations and the price preview.
type Service struct {
	Store             Store
	MaxQuantity       int
	DefaultVATPercent float64
}

// Create opens an empty cart.
func (s Service) Create(ctx context.Context) (View, error) {
	cartID, err := s.Store.Create(ctx)
	if err != nil {
		obs.CountCartOp("create", "error")
		return View{}, common.NewAppError("INTERNAL", "could not create cart", http.StatusInternalServerError, err)
	}
	obs.CountCartOp("create", "ok")
	return View{ID: cartID, Items: []Item{}, Lines: []pricing.OrderLineWithCalculations{}}, nil
}

// Get returns the cart with freshly computed line calculations and totals.
func (s Service) Get(ctx context.Context, cartID string) (View, error) {
	cart, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return View{}, s.wrap("get", err)
	}
	return s.view(cart), nil
}

// AddItem adds a product to the cart, merging with an existing entry for the
// same product. Quantity is clamped to the configured maximum.
func (s Service) AddItem(ctx context.Context, cartID string, in AddItemInput) (View, error) {
	cart, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return View{}, s.wrap("add_item", err)
	}
	item := Item{
		ID:              uuid.NewString(),
		ProductID:       in.ProductID,
		Name:            in.Name,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		DiscountedPrice: in.DiscountedPrice,
		VATRate:         in.VATRate,
		AddedAt:         time.Now().UnixNano(),
	}
	for _, existing := range cart.Items {
		if existing.ProductID == in.ProductID {
			item = existing
			item.Quantity += in.Quantity
			item.UnitPrice = in.UnitPrice
			item.DiscountedPrice = in.DiscountedPrice
			item.VATRate = in.VATRate
			break
		}
	}
	item.Quantity = s.clamp(item.Quantity)
	if err := s.Store.Put(ctx, cartID, item); err != nil {
		obs.CountCartOp("add_item", "error")
		return View{}, s.wrap("add_item", err)
	}
	obs.CountCartOp("add_item", "ok")
	return s.Get(ctx, cartID)
}

// UpdateQuantity sets the quantity of one item. Zero removes the item.
func (s Service) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (View, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, cartID, itemID)
	}
	item, err := s.Store.GetItem(ctx, cartID, itemID)
	if err != nil {
		return View{}, s.wrap("update_item", err)
	}
	item.Quantity = s.clamp(quantity)
	if err := s.Store.Put(ctx, cartID, item); err != nil {
		obs.CountCartOp("update_item", "error")
		return View{}, s.wrap("update_item", err)
	}
	obs.CountCartOp("update_item", "ok")
	return s.Get(ctx, cartID)
}

// RemoveItem deletes one item from the cart.
func (s Service) RemoveItem(ctx context.Context, cartID, itemID string) (View, error) {
	if err := s.Store.Remove(ctx, cartID, itemID); err != nil {
		obs.CountCartOp("remove_item", "error")
		return View{}, s.wrap("remove_item", err)
	}
	obs.CountCartOp("remove_item", "ok")
	return s.Get(ctx, cartID)
}

// Clear empties the cart.
func (s Service) Clear(ctx context.Context, cartID string) (View, error) {
	if err := s.Store.Clear(ctx, cartID); err != nil {
		obs.CountCartOp("clear", "error")
		return View{}, s.wrap("clear", err)
	}
	obs.CountCartOp("clear", "ok")
	return s.Get(ctx, cartID)
}

// Lines converts cart items to immutable order lines for checkout. The
// discounted price, when present, becomes the unit price of the line.
func (s Service) Lines(cart Cart) []pricing.OrderLine {
	lines := make([]pricing.OrderLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, s.line(item))
	}
	return lines
}

func (s Service) line(item Item) pricing.OrderLine {
	unitPrice := item.UnitPrice
	if item.DiscountedPrice != nil {
		unitPrice = *item.DiscountedPrice
	}
	vatPercent := s.DefaultVATPercent
	if item.VATRate != nil {
		vatPercent = *item.VATRate
	}
	return pricing.OrderLine{
		StockID:    item.ProductID,
		LineInfo:   item.Name,
		Quantity:   item.Quantity,
		UnitPrice:  unitPrice,
		VATPercent: vatPercent,
	}
}

func (s Service) view(cart Cart) View {
	lines := pricing.ComputeLines(s.Lines(cart))
	return View{
		ID:     cart.ID,
		Items:  cart.Items,
		Lines:  lines,
		Totals: pricing.ComputeTotals(lines),
	}
}

func (s Service) clamp(quantity int) int {
	if s.MaxQuantity > 0 && quantity > s.MaxQuantity {
		return s.MaxQuantity
	}
	return quantity
}

func (s Service) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, err)
	case errors.Is(err, ErrItemNotFound):
		return common.NewAppError("NOT_FOUND", "cart item not found", http.StatusNotFound, err)
	default:
		return common.NewAppError("INTERNAL", "cart operation failed", http.StatusInternalServerError, err)
	}
}
