package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/gql"
)

// Requester issues read operations against the hosted GraphQL data layer.
type Requester interface {
	Request(ctx context.Context, doc gql.Document, variables map[string]any) (gql.Result, error)
}

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	gql          Requester
	observer     *gql.Observer
	cache        *Cache
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	GQL          Requester
	Observer     *gql.Observer
	Cache        *Cache
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	InStock  *bool
	Sort     string
	Page     int
	Limit    int
}

// ProductListItem represents an entry in list/related responses.
type ProductListItem struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Price           float64  `json:"price"`
	DiscountedPrice *float64 `json:"discountedPrice,omitempty"`
	VATPercent      float64  `json:"vatPercent"`
	InStock         bool     `json:"inStock"`
	Thumbnail       *string  `json:"thumbnail,omitempty"`
}

// ProductDetail aggregates the full detail payload.
type ProductDetail struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description,omitempty"`
	Price           float64  `json:"price"`
	DiscountedPrice *float64 `json:"discountedPrice,omitempty"`
	VATPercent      float64  `json:"vatPercent"`
	InStock         bool     `json:"inStock"`
	Images          []string `json:"images"`
	Specs           []Spec   `json:"specs"`
	Brand           *Mini    `json:"brand,omitempty"`
	CategoryPath    []string `json:"categoryPath,omitempty"`
}

// Spec represents a key/value specification entry.
type Spec struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Mini is a minimal representation for brand metadata.
type Mini struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Category represents the public category payload.
type Category struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	ParentID *string `json:"parentId,omitempty"`
}

// Brand represents the public brand payload.
type Brand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductListItem
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.GQL == nil {
		return nil, errors.New("catalog: gql requester is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		gql:          cfg.GQL,
		observer:     cfg.Observer,
		cache:        cfg.Cache,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

var (
	docBrands = gql.Raw(`query Brands {
  brands(order_by: {name: asc}) { id name slug }
}`)
	docCategories = gql.Raw(`query Categories {
  categories(order_by: {name: asc}) { id name slug parent_id }
}`)
	docProducts = gql.Raw(`query Products($where: products_bool_exp!, $orderBy: [products_order_by!], $limit: Int!, $offset: Int!) {
  products(where: $where, order_by: $orderBy, limit: $limit, offset: $offset) {
    id name slug price discounted_price vat_percent in_stock thumbnail
  }
  products_aggregate(where: $where) { aggregate { count } }
}`)
	docProductBySlug = gql.Raw(`query ProductBySlug($slug: String!) {
  products(where: {slug: {_eq: $slug}}, limit: 1) {
    id name slug description price discounted_price vat_percent in_stock thumbnail
    images(order_by: {position: asc}) { url }
    specs(order_by: {position: asc}) { key value }
    brand { id name slug }
    category { slug parent { slug parent { slug } } }
  }
}`)
	docRelated = gql.Raw(`query RelatedProducts($categorySlug: String!, $slug: String!, $limit: Int!) {
  products(where: {_and: [{category: {slug: {_eq: $categorySlug}}}, {slug: {_neq: $slug}}]}, limit: $limit) {
    id name slug price discounted_price vat_percent in_stock thumbnail
  }
}`)
)

type productRow struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"`
	DiscountedPrice *float64 `json:"discounted_price"`
	VATPercent      float64  `json:"vat_percent"`
	InStock         bool     `json:"in_stock"`
	Thumbnail       *string  `json:"thumbnail"`
	Images          []struct {
		URL string `json:"url"`
	} `json:"images"`
	Specs []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"specs"`
	Brand    *Mini        `json:"brand"`
	Category *categoryRef `json:"category"`
}

type categoryRef struct {
	Slug   string       `json:"slug"`
	Parent *categoryRef `json:"parent"`
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Page:  s.defaultPage,
		Limit: s.defaultLimit,
	}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))
	params.Brand = strings.TrimSpace(values.Get("brand"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}

	limit := s.defaultLimit
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		limit = l
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	params.Limit = limit

	if v := strings.TrimSpace(values.Get("minPrice")); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, badRequest("minPrice", "minPrice must be a valid number", err)
		}
		params.MinPrice = &parsed
	}
	if v := strings.TrimSpace(values.Get("maxPrice")); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, badRequest("maxPrice", "maxPrice must be a valid number", err)
		}
		params.MaxPrice = &parsed
	}
	if params.MinPrice != nil && params.MaxPrice != nil && *params.MinPrice > *params.MaxPrice {
		return params, badRequest("price", "minPrice cannot be greater than maxPrice", fmt.Errorf("invalid price range"))
	}

	if v := strings.TrimSpace(values.Get("inStock")); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return params, badRequest("inStock", "inStock must be true or false", err)
		}
		params.InStock = &b
	}

	params.Sort = normalizeSort(values.Get("sort"))
	return params, nil
}

// ListBrands returns the list of brands sorted by name.
func (s *Service) ListBrands(ctx context.Context) ([]Brand, error) {
	var payload struct {
		Brands []Brand `json:"brands"`
	}
	if err := s.query(ctx, docBrands, nil, &payload); err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	if payload.Brands == nil {
		payload.Brands = []Brand{}
	}
	return payload.Brands, nil
}

// ListCategories returns all categories with parent linkage.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var payload struct {
		Categories []struct {
			ID       string  `json:"id"`
			Name     string  `json:"name"`
			Slug     string  `json:"slug"`
			ParentID *string `json:"parent_id"`
		} `json:"categories"`
	}
	if err := s.query(ctx, docCategories, nil, &payload); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	result := make([]Category, 0, len(payload.Categories))
	for _, row := range payload.Categories {
		result = append(result, Category{ID: row.ID, Name: row.Name, Slug: row.Slug, ParentID: row.ParentID})
	}
	return result, nil
}

// ListProducts returns a filtered product list with pagination metadata.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	key, shouldUseCache := s.listCacheKey(params)
	if shouldUseCache && s.cache != nil {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	offset := (params.Page - 1) * params.Limit
	if offset < 0 {
		offset = 0
	}
	vars := map[string]any{
		"where":   productsWhere(params),
		"orderBy": productsOrderBy(params.Sort),
		"limit":   params.Limit,
		"offset":  offset,
	}
	var payload struct {
		Products  []productRow `json:"products"`
		Aggregate struct {
			Aggregate struct {
				Count int64 `json:"count"`
			} `json:"aggregate"`
		} `json:"products_aggregate"`
	}
	if err := s.query(ctx, docProducts, vars, &payload); err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]ProductListItem, 0, len(payload.Products))
	for _, row := range payload.Products {
		items = append(items, listItem(row))
	}
	result := ProductListResult{Items: items, Total: payload.Aggregate.Aggregate.Count, Page: params.Page, Limit: params.Limit}
	if shouldUseCache && s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: result.Total})
	}
	return result, nil
}

// GetProductDetail returns the full product payload for one slug.
func (s *Service) GetProductDetail(ctx context.Context, slug string) (ProductDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetail{}, badRequest("slug", "slug is required", nil)
	}
	cacheKey := detailCacheKey(slug)
	if s.cache != nil {
		var cached ProductDetail
		ok, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	var payload struct {
		Products []productRow `json:"products"`
	}
	if err := s.query(ctx, docProductBySlug, map[string]any{"slug": slug}, &payload); err != nil {
		return ProductDetail{}, fmt.Errorf("get product by slug: %w", err)
	}
	if len(payload.Products) == 0 {
		return ProductDetail{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound}
	}
	row := payload.Products[0]
	detail := ProductDetail{
		ID:              row.ID,
		Name:            row.Name,
		Slug:            row.Slug,
		Description:     row.Description,
		Price:           row.Price,
		DiscountedPrice: row.DiscountedPrice,
		VATPercent:      row.VATPercent,
		InStock:         row.InStock,
		Brand:           row.Brand,
		CategoryPath:    categoryPath(row.Category),
	}
	detail.Images = make([]string, 0, len(row.Images))
	for _, img := range row.Images {
		detail.Images = append(detail.Images, img.URL)
	}
	detail.Specs = make([]Spec, 0, len(row.Specs))
	for _, spec := range row.Specs {
		detail.Specs = append(detail.Specs, Spec{Key: spec.Key, Value: spec.Value})
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cacheKey, detail)
	}
	return detail, nil
}

// ListRelatedProducts fetches products sharing the category of the given slug.
func (s *Service) ListRelatedProducts(ctx context.Context, slug string) ([]ProductListItem, error) {
	detail, err := s.GetProductDetail(ctx, slug)
	if err != nil {
		return nil, err
	}
	if len(detail.CategoryPath) == 0 {
		return []ProductListItem{}, nil
	}
	leaf := detail.CategoryPath[len(detail.CategoryPath)-1]
	vars := map[string]any{"categorySlug": leaf, "slug": slug, "limit": 8}
	var payload struct {
		Products []productRow `json:"products"`
	}
	if err := s.query(ctx, docRelated, vars, &payload); err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}
	items := make([]ProductListItem, 0, len(payload.Products))
	for _, row := range payload.Products {
		items = append(items, listItem(row))
	}
	return items, nil
}

func (s *Service) query(ctx context.Context, doc gql.Document, vars map[string]any, dst any) error {
	result, err := s.gql.Request(ctx, doc, vars)
	if err != nil {
		s.observe(result.Error)
		return err
	}
	if result.Error != nil {
		s.observe(result.Error)
		return result.Error
	}
	if dst == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (s *Service) observe(opErr *gql.OperationError) {
	if s.observer != nil && opErr != nil {
		s.observer.Observe(opErr)
	}
}

func listItem(row productRow) ProductListItem {
	return ProductListItem{
		ID:              row.ID,
		Name:            row.Name,
		Slug:            row.Slug,
		Price:           row.Price,
		DiscountedPrice: row.DiscountedPrice,
		VATPercent:      row.VATPercent,
		InStock:         row.InStock,
		Thumbnail:       row.Thumbnail,
	}
}

func productsWhere(params ListParams) map[string]any {
	conditions := []map[string]any{}
	if params.Query != "" {
		conditions = append(conditions, map[string]any{"name": map[string]any{"_ilike": "%" + params.Query + "%"}})
	}
	if params.Category != "" {
		conditions = append(conditions, map[string]any{"category": map[string]any{"slug": map[string]any{"_eq": params.Category}}})
	}
	if params.Brand != "" {
		conditions = append(conditions, map[string]any{"brand": map[string]any{"slug": map[string]any{"_eq": params.Brand}}})
	}
	if params.MinPrice != nil {
		conditions = append(conditions, map[string]any{"price": map[string]any{"_gte": *params.MinPrice}})
	}
	if params.MaxPrice != nil {
		conditions = append(conditions, map[string]any{"price": map[string]any{"_lte": *params.MaxPrice}})
	}
	if params.InStock != nil {
		conditions = append(conditions, map[string]any{"in_stock": map[string]any{"_eq": *params.InStock}})
	}
	return map[string]any{"_and": conditions}
}

func productsOrderBy(sort string) []map[string]any {
	switch sort {
	case "price:asc":
		return []map[string]any{{"price": "asc"}}
	case "price:desc":
		return []map[string]any{{"price": "desc"}}
	case "name:asc":
		return []map[string]any{{"name": "asc"}}
	case "name:desc":
		return []map[string]any{{"name": "desc"}}
	default:
		return []map[string]any{{"name": "asc"}}
	}
}

func categoryPath(ref *categoryRef) []string {
	var path []string
	for current := ref; current != nil; current = current.Parent {
		if slug := strings.TrimSpace(current.Slug); slug != "" {
			path = append([]string{slug}, path...)
		}
	}
	return path
}

type cachedList struct {
	Items []ProductListItem `json:"items"`
	Total int64             `json:"total"`
}

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if params.Page != s.defaultPage {
		return "", false
	}
	if params.Limit != s.defaultLimit {
		return "", false
	}
	if params.Query != "" || params.Category != "" || params.Brand != "" || params.MinPrice != nil || params.MaxPrice != nil || params.InStock != nil || params.Sort != "" {
		return "", false
	}
	return "catalog:products:list:popular", true
}

func detailCacheKey(slug string) string {
	return "catalog:products:detail:" + slug
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean: %s", value)
	}
}

func normalizeSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "price:asc", "price:desc", "name:asc", "name:desc":
		return s
	default:
		return ""
	}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
