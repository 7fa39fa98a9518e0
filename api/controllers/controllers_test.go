package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furnihub/marketplace-backend/api/middleware"
	"github.com/furnihub/marketplace-backend/internal/coupons"
	"github.com/furnihub/marketplace-backend/internal/orders"
	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/internal/products"
	"github.com/furnihub/marketplace-backend/pkg/config"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	rec := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"db": ok, "redis": ok}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Furnihub-Env"))

	rec = httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"db": ok, "redis": down}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type stubProductService struct {
	quote       *products.Quote
	err         error
	lastVariant *uint
	lastQty     int
}

func (s *stubProductService) QuoteUnitPrice(ctx context.Context, productID uint, variantID *uint, qty int) (*products.Quote, error) {
	s.lastVariant, s.lastQty = variantID, qty
	return s.quote, s.err
}

func (s *stubProductService) ResolveForCart(ctx context.Context, productID uint, variantID *uint) (*pricing.Resolution, error) {
	return nil, errors.New("not used")
}

func priceRequest(target, productID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productId", productID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestProductPrice(t *testing.T) {
	stub := &stubProductService{quote: &products.Quote{ProductID: 3, UnitPrice: decimal.NewFromInt(100000), LineTotal: decimal.NewFromInt(180000)}}
	rec := httptest.NewRecorder()
	ProductPrice(stub, testLogger()).ServeHTTP(rec, priceRequest("/api/v1/products/3/price?variant_id=8&qty=2", "3"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.lastVariant)
	assert.Equal(t, uint(8), *stub.lastVariant)
	assert.Equal(t, 2, stub.lastQty)

	var envelope struct {
		Data products.Quote `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.True(t, envelope.Data.LineTotal.Equal(decimal.NewFromInt(180000)))
}

func TestProductPriceDefaultsAndErrors(t *testing.T) {
	stub := &stubProductService{quote: &products.Quote{}}
	rec := httptest.NewRecorder()
	ProductPrice(stub, testLogger()).ServeHTTP(rec, priceRequest("/api/v1/products/3/price", "3"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, stub.lastVariant)
	assert.Equal(t, 1, stub.lastQty)

	rec = httptest.NewRecorder()
	ProductPrice(stub, testLogger()).ServeHTTP(rec, priceRequest("/api/v1/products/abc/price", "abc"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stub.err = pkgerrors.New(pkgerrors.CodeNoPurchasableUnit, "product 3 has no variants")
	rec = httptest.NewRecorder()
	ProductPrice(stub, testLogger()).ServeHTTP(rec, priceRequest("/api/v1/products/3/price", "3"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type stubCouponService struct {
	claim       *models.UserCoupon
	preview     *coupons.PreviewResult
	err         error
	lastCode    string
	lastPreview coupons.PreviewInput
}

func (s *stubCouponService) Claim(ctx context.Context, userID uint, code string) (*models.UserCoupon, error) {
	s.lastCode = code
	return s.claim, s.err
}

func (s *stubCouponService) Preview(ctx context.Context, userID uint, input coupons.PreviewInput) (*coupons.PreviewResult, error) {
	s.lastPreview = input
	return s.preview, s.err
}

func (s *stubCouponService) Redeem(ctx context.Context, userID, couponID uint, orderID *uint) error {
	return s.err
}

func TestCouponClaim(t *testing.T) {
	stub := &stubCouponService{claim: &models.UserCoupon{CouponID: 11}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/OAK20/claim", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("code", "OAK20")
	req = req.WithContext(middleware.WithUserID(context.WithValue(req.Context(), chi.RouteCtxKey, rc), 5))

	rec := httptest.NewRecorder()
	CouponClaim(stub, testLogger()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "OAK20", stub.lastCode)
}

func TestCouponPreview(t *testing.T) {
	stub := &stubCouponService{preview: &coupons.PreviewResult{Code: "SITE10", Discount: decimal.NewFromInt(23000)}}
	body := `{"code":"SITE10","subtotal":"230000","shop_id":4}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/preview", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), 5))

	rec := httptest.NewRecorder()
	CouponPreview(stub, testLogger()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SITE10", stub.lastPreview.Code)
	assert.True(t, stub.lastPreview.Subtotal.Equal(decimal.NewFromInt(230000)))
	require.NotNil(t, stub.lastPreview.ShopID)
	assert.Equal(t, uint(4), *stub.lastPreview.ShopID)

	stub.err = pricing.CouponNotApplicable("SITE10", pricing.ConditionExpired)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/coupons/preview", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), 5))
	rec = httptest.NewRecorder()
	CouponPreview(stub, testLogger()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type stubCheckoutService struct {
	order *orders.OrderDTO
	err   error
	user  uint
}

func (s *stubCheckoutService) Execute(ctx context.Context, userID uint) (*orders.OrderDTO, error) {
	s.user = userID
	return s.order, s.err
}

func TestCheckout(t *testing.T) {
	stub := &stubCheckoutService{order: &orders.OrderDTO{ID: 90, TotalPrice: decimal.NewFromInt(267000)}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 5))

	rec := httptest.NewRecorder()
	Checkout(stub, testLogger()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint(5), stub.user)

	rec = httptest.NewRecorder()
	Checkout(stub, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
