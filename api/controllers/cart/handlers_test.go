package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-core/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-core/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

type stubCartService struct {
	items []cartsvc.Item
	err   error

	syncIdentity string
	synced       *cartsvc.LocalCart
	loadIdentity string
}

func (s *stubCartService) Sync(_ context.Context, identity string, local cartsvc.LocalCart) ([]cartsvc.Item, error) {
	s.syncIdentity = identity
	s.synced = &local
	return s.items, s.err
}

func (s *stubCartService) Load(_ context.Context, identity string) ([]cartsvc.Item, error) {
	s.loadIdentity = identity
	return s.items, s.err
}

func withUser(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), "user-1", "customer"))
}

func TestSyncPassesLocalCart(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{items: []cartsvc.Item{{ProductID: productID, Quantity: 3, Name: "Mug", Price: decimal.NewFromInt(500)}}}
	body := `{"items":[{"productId":"` + productID.String() + `","quantity":1},{"productId":"` + productID.String() + `","quantity":2}]}`

	resp := httptest.NewRecorder()
	Sync(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/cart/sync", strings.NewReader(body))))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "user-1", svc.syncIdentity)
	require.NotNil(t, svc.synced)
	assert.Len(t, svc.synced.Items, 2)

	var envelope struct {
		Data struct {
			Items []cartsvc.Item `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Items, 1)
	assert.Equal(t, 3, envelope.Data.Items[0].Quantity)
}

func TestSyncAcceptsEmptyCart(t *testing.T) {
	svc := &stubCartService{items: []cartsvc.Item{}}
	resp := httptest.NewRecorder()
	Sync(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/cart/sync", strings.NewReader(`{"items":[]}`))))

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.synced)
	assert.Empty(t, svc.synced.Items)
}

func TestSyncRejectsBadQuantity(t *testing.T) {
	svc := &stubCartService{}
	body := `{"items":[{"productId":"` + uuid.NewString() + `","quantity":0}]}`
	resp := httptest.NewRecorder()
	Sync(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/cart/sync", strings.NewReader(body))))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Nil(t, svc.synced)
}

func TestSyncPropagatesUnauthorized(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to sync your cart")}
	resp := httptest.NewRecorder()
	Sync(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/cart/sync", strings.NewReader(`{"items":[]}`)))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "", svc.syncIdentity)
}

func TestLoadReturnsItems(t *testing.T) {
	svc := &stubCartService{items: []cartsvc.Item{{ProductID: uuid.New(), Quantity: 1, Name: "Shirt"}}}
	resp := httptest.NewRecorder()
	Load(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodGet, "/cart/sync", nil)))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "user-1", svc.loadIdentity)
	assert.Contains(t, resp.Body.String(), `"name":"Shirt"`)
}

func TestMergeKeepsServerCopyAndAttachments(t *testing.T) {
	shared := uuid.New()
	localOnly := uuid.New()
	dropped := uuid.New()
	svc := &stubCartService{items: []cartsvc.Item{{ProductID: shared, Quantity: 5, UnitPrice: decimal.NewFromInt(100)}}}
	body := `{"items":[
		{"productId":"` + shared.String() + `","quantity":1,"unitPrice":100},
		{"productId":"` + dropped.String() + `","quantity":1,"unitPrice":10},
		{"productId":"` + localOnly.String() + `","quantity":2,"unitPrice":20,"attachment":"upload-1"}
	]}`

	resp := httptest.NewRecorder()
	Merge(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/cart/merge", strings.NewReader(body))))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data struct {
			Items []cartsvc.LocalItem `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Items, 2)
	assert.Equal(t, shared, envelope.Data.Items[0].ProductID)
	assert.Equal(t, 5, envelope.Data.Items[0].Quantity)
	assert.Equal(t, localOnly, envelope.Data.Items[1].ProductID)
	require.NotNil(t, envelope.Data.Items[1].Attachment)
	assert.Equal(t, "upload-1", *envelope.Data.Items[1].Attachment)
	assert.Nil(t, svc.synced)
}
