package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gulhayo05/Surprise-Bag/internal/bags"
	"github.com/Gulhayo05/Surprise-Bag/internal/businesses"
	"github.com/Gulhayo05/Surprise-Bag/internal/notifications"
	"github.com/Gulhayo05/Surprise-Bag/internal/orders"
	pkgAuth "github.com/Gulhayo05/Surprise-Bag/pkg/auth"
	"github.com/Gulhayo05/Surprise-Bag/pkg/config"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/metrics"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) Ping(context.Context) error {
	return nil
}

func (f *fakeRedis) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

type stubBags struct{}

func (stubBags) Create(ctx context.Context, ownerID uuid.UUID, input bags.CreateInput) (*models.Bag, error) {
	return &models.Bag{ID: uuid.New(), BusinessID: ownerID}, nil
}

func (stubBags) Update(ctx context.Context, ownerID, bagID uuid.UUID, input bags.UpdateInput) (*models.Bag, error) {
	return &models.Bag{ID: bagID}, nil
}

func (stubBags) Delete(ctx context.Context, ownerID, bagID uuid.UUID) error {
	return nil
}

func (stubBags) Get(ctx context.Context, bagID uuid.UUID) (*models.Bag, error) {
	return &models.Bag{ID: bagID}, nil
}

func (stubBags) List(ctx context.Context, params bags.ListParams) (*bags.BagList, error) {
	return &bags.BagList{Items: []models.Bag{}}, nil
}

type stubBusinesses struct{}

func (stubBusinesses) Create(ctx context.Context, ownerID uuid.UUID, input businesses.CreateInput) (*models.Business, error) {
	return &models.Business{ID: ownerID, Name: input.Name}, nil
}

func (stubBusinesses) Get(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	return &models.Business{ID: id}, nil
}

func (stubBusinesses) List(ctx context.Context, params businesses.ListParams) (*businesses.BusinessList, error) {
	return &businesses.BusinessList{Items: []models.Business{}}, nil
}

func (stubBusinesses) Update(ctx context.Context, ownerID, id uuid.UUID, input businesses.UpdateInput) (*models.Business, error) {
	return &models.Business{ID: id}, nil
}

func (stubBusinesses) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return nil
}

func (stubBusinesses) SetApproved(ctx context.Context, id uuid.UUID, approved bool) (*models.Business, error) {
	return &models.Business{ID: id, IsApproved: approved}, nil
}

type stubOrders struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubOrders) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubOrders) Place(ctx context.Context, actor orders.Actor, input orders.PlaceInput) (*models.Order, error) {
	s.record("place")
	return &models.Order{ID: uuid.New(), BagID: input.BagID, Quantity: input.Quantity, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrders) Confirm(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Order, error) {
	s.record("confirm:" + orderID.String())
	return &models.Order{ID: orderID, Status: enums.OrderStatusConfirmed}, nil
}

func (s *stubOrders) Complete(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Order, error) {
	s.record("complete")
	return &models.Order{ID: orderID, Status: enums.OrderStatusCompleted}, nil
}

func (s *stubOrders) Cancel(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Order, error) {
	s.record("cancel")
	return &models.Order{ID: orderID, Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrders) Rate(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input orders.RateInput) (*models.Order, error) {
	s.record("rate")
	return &models.Order{ID: orderID}, nil
}

func (s *stubOrders) Get(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*orders.OrderDetail, error) {
	s.record("get")
	return &orders.OrderDetail{Order: models.Order{ID: orderID}}, nil
}

func (s *stubOrders) List(ctx context.Context, actor orders.Actor, params orders.ListParams) (*orders.OrderList, error) {
	s.record("list")
	return &orders.OrderList{Items: []orders.OrderDetail{}}, nil
}

func (s *stubOrders) ListBusinessReviews(ctx context.Context, businessID uuid.UUID, params pagination.Params) (*orders.ReviewList, error) {
	s.record("reviews")
	return &orders.ReviewList{Items: []orders.Review{}}, nil
}

type stubNotifications struct{}

func (stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []models.Notification{}}, nil
}

func (stubNotifications) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotifications) Get(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	return &models.Notification{ID: notificationID, UserID: userID}, nil
}

func (stubNotifications) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotifications) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

type testRouter struct {
	handler http.Handler
	cfg     *config.Config
	orders  *stubOrders
}

func newTestRouter(t *testing.T) testRouter {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "surprisebag", ExpirationMinutes: 60},
	}
	reg := prometheus.NewRegistry()
	metrics.NewOrderMetrics(reg).IncReservation(metrics.ReservationReserved)

	ordersSvc := &stubOrders{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	handler := NewRouter(cfg, logg, stubPinger{}, newFakeRedis(), reg, stubBusinesses{}, stubBags{}, ordersSvc, stubNotifications{})
	return testRouter{handler: handler, cfg: cfg, orders: ordersSvc}
}

func (tr testRouter) token(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(tr.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return token
}

func (tr testRouter) do(method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	tr.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	tr := newTestRouter(t)

	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/health/live", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/health/ready", "", "", nil).Code)

	rec := tr.do(http.MethodGet, "/metrics", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "surprisebag_reservations_total")
}

func TestPublicRoutesNeedNoToken(t *testing.T) {
	tr := newTestRouter(t)

	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/public/bags", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/public/bags/"+uuid.NewString(), "", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/public/businesses/"+uuid.NewString()+"/reviews", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/public/businesses", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/public/businesses/"+uuid.NewString(), "", "", nil).Code)
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	tr := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, tr.do(http.MethodGet, "/api/v1/orders", "", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, tr.do(http.MethodGet, "/api/v1/notifications", "", "", nil).Code)
}

func TestPlaceOrderRoute(t *testing.T) {
	tr := newTestRouter(t)
	customer := tr.token(t, enums.UserRoleCustomer)
	body := `{"bag_id":"` + uuid.NewString() + `","quantity":1}`

	rec := tr.do(http.MethodPost, "/api/v1/orders", customer, body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "idempotency key required")

	headers := map[string]string{"Idempotency-Key": "k1"}
	first := tr.do(http.MethodPost, "/api/v1/orders", customer, body, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	replay := tr.do(http.MethodPost, "/api/v1/orders", customer, body, headers)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, []string{"place"}, tr.orders.calls)

	owner := tr.token(t, enums.UserRoleBusinessOwner)
	assert.Equal(t, http.StatusForbidden, tr.do(http.MethodPost, "/api/v1/orders", owner, body, map[string]string{"Idempotency-Key": "k2"}).Code)
}

func TestOrderTransitionRoles(t *testing.T) {
	tr := newTestRouter(t)
	customer := tr.token(t, enums.UserRoleCustomer)
	owner := tr.token(t, enums.UserRoleBusinessOwner)
	admin := tr.token(t, enums.UserRoleAdmin)
	orderID := uuid.NewString()

	assert.Equal(t, http.StatusForbidden, tr.do(http.MethodPost, "/api/v1/orders/"+orderID+"/confirm", customer, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, "/api/v1/orders/"+orderID+"/confirm", owner, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, "/api/v1/orders/"+orderID+"/complete", owner, "", nil).Code)
	assert.Equal(t, http.StatusForbidden, tr.do(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", admin, "", map[string]string{"Idempotency-Key": "c0"}).Code)
	assert.Equal(t, http.StatusBadRequest, tr.do(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", customer, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", customer, "", map[string]string{"Idempotency-Key": "c1"}).Code)
	assert.Equal(t, http.StatusForbidden, tr.do(http.MethodPost, "/api/v1/orders/"+orderID+"/review", owner, `{"rating":5}`, nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, "/api/v1/orders/"+orderID+"/review", customer, `{"rating":5}`, nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/v1/orders/"+orderID, admin, "", nil).Code)

	assert.Equal(t, []string{"confirm:" + orderID, "complete", "cancel", "rate", "get"}, tr.orders.calls)
}

func TestBagRoutesRequireOwner(t *testing.T) {
	tr := newTestRouter(t)
	customer := tr.token(t, enums.UserRoleCustomer)
	owner := tr.token(t, enums.UserRoleBusinessOwner)
	bagID := uuid.NewString()

	assert.Equal(t, http.StatusForbidden, tr.do(http.MethodDelete, "/api/v1/bags/"+bagID, customer, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodDelete, "/api/v1/bags/"+bagID, owner, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPatch, "/api/v1/bags/"+bagID, owner, `{"is_active":false}`, nil).Code)

	body := `{"title":"Box","original_price":"5","discount_price":"2","quantity_available":3,"pickup_start":"2026-10-15T17:00:00Z","pickup_end":"2026-10-15T18:00:00Z"}`
	assert.Equal(t, http.StatusBadRequest, tr.do(http.MethodPost, "/api/v1/bags", owner, body, nil).Code)
	assert.Equal(t, http.StatusCreated, tr.do(http.MethodPost, "/api/v1/bags", owner, body, map[string]string{"Idempotency-Key": "b1"}).Code)
}

func TestBusinessRoutesRoles(t *testing.T) {
	tr := newTestRouter(t)
	customer := tr.token(t, enums.UserRoleCustomer)
	owner := tr.token(t, enums.UserRoleBusinessOwner)
	admin := tr.token(t, enums.UserRoleAdmin)
	businessID := uuid.NewString()

	body := `{"name":"Corner Deli"}`
	assert.Equal(t, http.StatusForbidden, tr.do(http.MethodPost, "/api/v1/businesses", customer, body, map[string]string{"Idempotency-Key": "s0"}).Code)
	assert.Equal(t, http.StatusBadRequest, tr.do(http.MethodPost, "/api/v1/businesses", owner, body, nil).Code)
	assert.Equal(t, http.StatusCreated, tr.do(http.MethodPost, "/api/v1/businesses", owner, body, map[string]string{"Idempotency-Key": "s1"}).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/v1/businesses/me", owner, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPatch, "/api/v1/businesses/"+businessID, owner, `{"address":"3 Oak Ave"}`, nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodDelete, "/api/v1/businesses/"+businessID, owner, "", nil).Code)

	approve := "/api/v1/businesses/" + businessID + "/approve"
	assert.Equal(t, http.StatusForbidden, tr.do(http.MethodPost, approve, owner, `{"approved":true}`, nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, approve, admin, `{"approved":true}`, nil).Code)
}

func TestNotificationRoutes(t *testing.T) {
	tr := newTestRouter(t)
	customer := tr.token(t, enums.UserRoleCustomer)

	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/v1/notifications?unread_only=true", customer, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, "/api/v1/notifications/read-all", customer, "", map[string]string{"Idempotency-Key": "r1"}).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, "/api/v1/notifications/"+uuid.NewString()+"/read", customer, "", map[string]string{"Idempotency-Key": "r2"}).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/v1/notifications/unread-count", customer, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/v1/notifications/"+uuid.NewString(), customer, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(http.MethodDelete, "/api/v1/notifications/"+uuid.NewString(), customer, "", nil).Code)
}
