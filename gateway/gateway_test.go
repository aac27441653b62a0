package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/account"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/cart"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/catalog"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/config"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/lock"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/notification"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/order"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/payment"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const callbackSecret = "whsec_test"

type stubGateway struct{}

func (stubGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (payment.Intent, error) {
	return payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil
}

type discardPublisher struct{}

func (discardPublisher) Publish(notification.Message) {}

type stubProber map[string]error

func (p stubProber) Probe(context.Context) map[string]error { return p }

type apiFixture struct {
	handler http.Handler
	user    *models.User
	item    *models.MenuItem
}

func newAPI(t *testing.T, health HealthProber) *apiFixture {
	t.Helper()
	db := testkit.NewTestDB(t)
	store := repository.NewStore(db)
	locker := lock.NewLocalLocker()
	composer, err := notification.NewComposer("http://shop.test/payment?orderid=", "http://shop.test")
	require.NoError(t, err)

	pub := discardPublisher{}
	auditor := order.NewAuditor(nil, "order-service", zap.NewNop())
	cfg := &config.Config{Payment: config.PaymentConfig{CallbackSecret: callbackSecret}}

	g := NewGateway(cfg, zap.NewNop(), Services{
		Carts:       cart.NewService(store, catalog.NewStoreLookup(store, time.Second), locker, zap.NewNop()),
		Builder:     order.NewBuilder(store, locker, composer, pub, auditor, zap.NewNop()),
		Coordinator: order.NewCoordinator(store, nil, stubGateway{}, "usd", composer, pub, auditor, zap.NewNop()),
		Accounts:    account.NewService(store, composer, pub, zap.NewNop()),
		Health:      health,
	})
	g.SetupRoutes()

	return &apiFixture{
		handler: g.Handler(),
		user:    testkit.SeedUser(t, db, "221B Baker St"),
		item:    testkit.SeedMenuItem(t, db, "Margherita", "5.00"),
	}
}

func (f *apiFixture) do(t *testing.T, method, path, userID, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode(t, rec)["error"].(map[string]interface{})["code"].(string)
}

func TestIdentityIsRequired(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/cart", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	rec = f.do(t, http.MethodGet, "/api/v1/orders", f.user.ID, "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/orders", "admin-1", RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlaceOrderWithEmptyCart(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/orders", f.user.ID, "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "EMPTY_CART", errorCode(t, rec))
}

func TestAddItemRejectsBadBody(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items", f.user.ID, "", map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", errorCode(t, rec))

	rec = f.do(t, http.MethodPost, "/api/v1/cart/items/abc/increment", f.user.ID, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderAndPaymentFlow(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items", f.user.ID, "",
		map[string]interface{}{"menu_item_id": f.item.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/orders", f.user.ID, "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := decode(t, rec)["id"].(string)

	rec = f.do(t, http.MethodGet, "/api/v1/cart", f.user.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["lines"])

	rec = f.do(t, http.MethodPost, "/api/v1/payments/intents", f.user.ID, "",
		map[string]interface{}{"order_id": orderID, "amount": "10.00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "pi_1_secret", decode(t, rec)["client_secret"])

	rec = f.do(t, http.MethodGet, "/api/v1/orders/"+orderID, "someone-else", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, err := json.Marshal(map[string]interface{}{
		"orderId":       orderID,
		"transactionId": "tx-1",
		"amount":        "10.00",
		"success":       true,
	})
	require.NoError(t, err)

	callback := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(body))
		req.Header.Set(payment.SignatureHeader, signature)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		return rec
	}

	rec = callback("deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = callback(payment.Sign(body, callbackSecret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["applied"])

	rec = callback(payment.Sign(body, callbackSecret))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["applied"])

	rec = f.do(t, http.MethodGet, "/api/v1/orders/"+orderID, f.user.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "COMPLETED", decode(t, rec)["payment_status"])

	rec = f.do(t, http.MethodPut, "/api/v1/orders/"+orderID+"/status", "admin-1", RoleAdmin,
		map[string]string{"status": "PREPARING"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PREPARING", decode(t, rec)["order_status"])

	rec = f.do(t, http.MethodPut, "/api/v1/orders/"+orderID+"/status", "admin-1", RoleAdmin,
		map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/customers/count", "admin-1", RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/api/v1/payments?status=COMPLETED", "admin-1", RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])
}

func TestAccountDeactivation(t *testing.T) {
	f := newAPI(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/account", f.user.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["active"])

	rec = f.do(t, http.MethodPost, "/api/v1/account/deactivate", f.user.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/account/deactivate", f.user.ID, "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthReportsFailingDependencies(t *testing.T) {
	f := newAPI(t, stubProber{"redis": errors.New("connection refused")})

	rec := f.do(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "connection refused", decode(t, rec)["dependencies"].(map[string]interface{})["redis"])

	ok := newAPI(t, stubProber{})
	rec = ok.do(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
