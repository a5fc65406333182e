package catalog

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atpstore/backend-atp/internal/gql"
)

type stubRequester struct {
	responses map[string]gql.Result
	err       error
	calls     []string
}

func (s *stubRequester) Request(_ context.Context, doc gql.Document, _ map[string]any) (gql.Result, error) {
	source := doc.Source()
	s.calls = append(s.calls, source)
	if s.err != nil {
		return gql.Result{}, s.err
	}
	for prefix, result := range s.responses {
		if len(source) >= len(prefix) && source[:len(prefix)] == prefix {
			return result, nil
		}
	}
	return gql.Result{Data: json.RawMessage(`{}`)}, nil
}

func newTestService(t *testing.T, stub *stubRequester) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{GQL: stub, DefaultLimit: 20, MaxLimit: 100})
	require.NoError(t, err)
	return svc
}

func TestParseListParamsDefaults(t *testing.T) {
	svc := newTestService(t, &stubRequester{})
	params, err := svc.ParseListParams(url.Values{})
	require.NoError(t, err)
	require.Equal(t, 1, params.Page)
	require.Equal(t, 20, params.Limit)
	require.Empty(t, params.Sort)
}

func TestParseListParamsRejectsBadPage(t *testing.T) {
	svc := newTestService(t, &stubRequester{})
	_, err := svc.ParseListParams(url.Values{"page": {"zero"}})
	require.Error(t, err)
}

func TestParseListParamsPriceRange(t *testing.T) {
	svc := newTestService(t, &stubRequester{})
	_, err := svc.ParseListParams(url.Values{"minPrice": {"200"}, "maxPrice": {"100"}})
	require.Error(t, err)

	params, err := svc.ParseListParams(url.Values{"minPrice": {"99.5"}, "maxPrice": {"199.5"}})
	require.NoError(t, err)
	require.InDelta(t, 99.5, *params.MinPrice, 1e-9)
	require.InDelta(t, 199.5, *params.MaxPrice, 1e-9)
}

func TestListProductsDecodesRows(t *testing.T) {
	stub := &stubRequester{responses: map[string]gql.Result{
		"query Products(": {Data: json.RawMessage(`{
			"products": [
				{"id":"p-1","name":"Brake pads","slug":"brake-pads","price":200,"vat_percent":25,"in_stock":true},
				{"id":"p-2","name":"Wiper blade","slug":"wiper-blade","price":99.99,"discounted_price":79.99,"vat_percent":25,"in_stock":false}
			],
			"products_aggregate": {"aggregate": {"count": 2}}
		}`)},
	}}
	svc := newTestService(t, stub)

	result, err := svc.ListProducts(context.Background(), ListParams{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.EqualValues(t, 2, result.Total)
	require.Len(t, result.Items, 2)
	require.Equal(t, "Brake pads", result.Items[0].Name)
	require.Nil(t, result.Items[0].DiscountedPrice)
	require.NotNil(t, result.Items[1].DiscountedPrice)
	require.InDelta(t, 79.99, *result.Items[1].DiscountedPrice, 1e-9)
}

func TestGetProductDetailNotFound(t *testing.T) {
	stub := &stubRequester{responses: map[string]gql.Result{
		"query ProductBySlug(": {Data: json.RawMessage(`{"products": []}`)},
	}}
	svc := newTestService(t, stub)

	_, err := svc.GetProductDetail(context.Background(), "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "product not found")
}

func TestGetProductDetailCategoryPath(t *testing.T) {
	stub := &stubRequester{responses: map[string]gql.Result{
		"query ProductBySlug(": {Data: json.RawMessage(`{"products": [{
			"id":"p-1","name":"Brake pads","slug":"brake-pads","price":200,"vat_percent":25,"in_stock":true,
			"images":[{"url":"https://cdn.example/1.jpg"}],
			"specs":[{"key":"material","value":"ceramic"}],
			"brand":{"id":"b-1","name":"ATP","slug":"atp"},
			"category":{"slug":"brakes","parent":{"slug":"parts"}}
		}]}`)},
	}}
	svc := newTestService(t, stub)

	detail, err := svc.GetProductDetail(context.Background(), "brake-pads")
	require.NoError(t, err)
	require.Equal(t, []string{"parts", "brakes"}, detail.CategoryPath)
	require.Equal(t, []string{"https://cdn.example/1.jpg"}, detail.Images)
	require.Equal(t, "ATP", detail.Brand.Name)
}

func TestQuerySurfacesOperationErrors(t *testing.T) {
	stub := &stubRequester{responses: map[string]gql.Result{
		"query Brands": {Error: &gql.OperationError{GraphQLErrors: []gql.GraphQLError{{Message: "field not found"}}}},
	}}
	svc := newTestService(t, stub)

	_, err := svc.ListBrands(context.Background())
	require.Error(t, err)
}
