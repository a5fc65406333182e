package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned for unknown or expired carts.
var ErrNotFound = errors.New("cart: not found")

// ErrItemNotFound is returned when an item id is absent from the cart.
var ErrItemNotFound = errors.New("cart: item not found")

// Item is one entry in an open cart. Mutable while the cart is open; it is
// converted into an immutable order line at checkout.
type Item struct {
	ID              string   `json:"id"`
	ProductID       string   `json:"productId"`
	Name            string   `json:"name"`
	Quantity        int      `json:"quantity"`
	UnitPrice       float64  `json:"unitPrice"`
	DiscountedPrice *float64 `json:"discountedPrice,omitempty"`
	VATRate         *float64 `json:"vatRate,omitempty"`
	AddedAt         int64    `json:"addedAt"`
}

// Cart holds the items of one open cart.
type Cart struct {
	ID    string `json:"id"`
	Items []Item `json:"items"`
}

const metaField = "__cart"

type cartMeta struct {
	CreatedAt int64 `json:"createdAt"`
}

// Store keeps open carts in redis, one hash per cart with one field per
// item. Carts are session state with a TTL; durable order data lives in the
// hosted data layer, never here.
type Store struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s Store) key(cartID string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "cart:"
	}
	return prefix + cartID
}

// Create allocates an empty cart and returns its identifier.
func (s Store) Create(ctx context.Context) (string, error) {
	cartID := uuid.NewString()
	meta, err := json.Marshal(cartMeta{CreatedAt: time.Now().Unix()})
	if err != nil {
		return "", err
	}
	key := s.key(cartID)
	pipe := s.R.TxPipeline()
	pipe.HSet(ctx, key, metaField, meta)
	pipe.Expire(ctx, key, s.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("cart: create: %w", err)
	}
	return cartID, nil
}

// Get loads a cart with its items sorted by insertion time.
func (s Store) Get(ctx context.Context, cartID string) (Cart, error) {
	fields, err := s.R.HGetAll(ctx, s.key(cartID)).Result()
	if err != nil {
		return Cart{}, fmt.Errorf("cart: load: %w", err)
	}
	if len(fields) == 0 {
		return Cart{}, ErrNotFound
	}
	cart := Cart{ID: cartID, Items: make([]Item, 0, len(fields)-1)}
	for field, value := range fields {
		if field == metaField {
			continue
		}
		var item Item
		if err := json.Unmarshal([]byte(value), &item); err != nil {
			return Cart{}, fmt.Errorf("cart: decode item %s: %w", field, err)
		}
		cart.Items = append(cart.Items, item)
	}
	sort.Slice(cart.Items, func(i, j int) bool {
		if cart.Items[i].AddedAt != cart.Items[j].AddedAt {
			return cart.Items[i].AddedAt < cart.Items[j].AddedAt
		}
		return cart.Items[i].ID < cart.Items[j].ID
	})
	return cart, nil
}

// Put writes one item and refreshes the cart TTL.
func (s Store) Put(ctx context.Context, cartID string, item Item) error {
	if err := s.ensureExists(ctx, cartID); err != nil {
		return err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	key := s.key(cartID)
	pipe := s.R.TxPipeline()
	pipe.HSet(ctx, key, item.ID, data)
	pipe.Expire(ctx, key, s.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cart: put item: %w", err)
	}
	return nil
}

// GetItem loads a single item.
func (s Store) GetItem(ctx context.Context, cartID, itemID string) (Item, error) {
	if itemID == metaField {
		return Item{}, ErrItemNotFound
	}
	value, err := s.R.HGet(ctx, s.key(cartID), itemID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("cart: load item: %w", err)
	}
	var item Item
	if err := json.Unmarshal([]byte(value), &item); err != nil {
		return Item{}, fmt.Errorf("cart: decode item: %w", err)
	}
	return item, nil
}

// Remove deletes one item from the cart.
func (s Store) Remove(ctx context.Context, cartID, itemID string) error {
	if err := s.ensureExists(ctx, cartID); err != nil {
		return err
	}
	if itemID == metaField {
		return ErrItemNotFound
	}
	removed, err := s.R.HDel(ctx, s.key(cartID), itemID).Result()
	if err != nil {
		return fmt.Errorf("cart: remove item: %w", err)
	}
	if removed == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Clear empties the cart but keeps it open.
func (s Store) Clear(ctx context.Context, cartID string) error {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		return nil
	}
	fields := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		fields = append(fields, item.ID)
	}
	if err := s.R.HDel(ctx, s.key(cartID), fields...).Err(); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

func (s Store) ensureExists(ctx context.Context, cartID string) error {
	exists, err := s.R.Exists(ctx, s.key(cartID)).Result()
	if err != nil {
		return fmt.Errorf("cart: probe: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return nil
}
