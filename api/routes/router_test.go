package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

	"github.com/inkhouse/backoffice/api/controllers"
	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/internal/balances"
	"github.com/inkhouse/backoffice/internal/customers"
	"github.com/inkhouse/backoffice/internal/orders"
	"github.com/inkhouse/backoffice/internal/reports"
	"github.com/inkhouse/backoffice/pkg/config"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/db/dbtest"
	"github.com/inkhouse/backoffice/pkg/logger"
	"github.com/inkhouse/backoffice/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

type testServer struct {
	handler http.Handler
	actor   uuid.UUID
}

func newTestServer(t *testing.T, readiness map[string]controllers.Pinger) testServer {
	t.Helper()
	conn := dbtest.Open(t)
	tx := db.Wrap(conn)
	reg := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(reg)

	activitySvc, err := activity.NewService(activity.NewRepository(conn))
	require.NoError(t, err)
	customerRepo := customers.NewRepository(conn)
	customerSvc, err := customers.NewService(customerRepo, tx, activitySvc)
	require.NoError(t, err)
	orderRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:      orderRepo,
		Customers: customerRepo,
		Tx:        tx,
		Activity:  activitySvc,
		Numbers:   orders.NewDBNumberSource(orderRepo, "ORD-", 6),
		Metrics:   ledgerMetrics,
	})
	require.NoError(t, err)
	balanceRepo := balances.NewRepository(conn)
	balanceSvc, err := balances.NewService(balances.ServiceParams{
		Repo:      balanceRepo,
		Customers: customerRepo,
		Orders:    orderSvc,
		Tx:        tx,
		Activity:  activitySvc,
		Metrics:   ledgerMetrics,
	})
	require.NoError(t, err)
	reportSvc, err := reports.NewService(customerSvc, orderSvc, balanceSvc, balanceRepo)
	require.NoError(t, err)

	cfg := &config.Config{
		App:    config.AppConfig{Env: "test", RequestTimeout: 5 * time.Second},
		Ledger: config.LedgerConfig{CORSAllowedOrigins: []string{"http://localhost:3000"}},
	}
	handler := NewRouter(Deps{
		Config:           cfg,
		Logger:           logger.Nop(),
		Readiness:        readiness,
		Gatherer:         reg,
		IdempotencyStore: &memoryStore{data: map[string]string{}},
		Customers:        customerSvc,
		Orders:           orderSvc,
		Balances:         balanceSvc,
		Activity:         activitySvc,
		Reports:          reportSvc,
	})
	return testServer{handler: handler, actor: uuid.New()}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s testServer) do(t *testing.T, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", s.actor.String())
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

type idView struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	AmountPaid  string `json:"amount_paid"`
	Status      string `json:"status"`
}

func (s testServer) createCustomer(t *testing.T) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/customers", `{"display_name":"Kapoor Labels","phone":"98200 00000"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var customer idView
	require.NoError(t, json.Unmarshal(env.Data, &customer))
	return customer.ID
}

func (s testServer) createOrder(t *testing.T, customerID, total, paid string) idView {
	t.Helper()
	body := fmt.Sprintf(`{"customer_id":%q,"total_amount":%q}`, customerID, total)
	if paid != "" {
		body = fmt.Sprintf(`{"customer_id":%q,"total_amount":%q,"initial_payment":{"amount":%q,"payment_method":"Cash"}}`, customerID, total, paid)
	}
	rec, env := s.do(t, http.MethodPost, "/api/v1/orders", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order idView
	require.NoError(t, json.Unmarshal(env.Data, &order))
	return order
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, map[string]controllers.Pinger{"database": stubPinger{}, "redis": nil})

	rec, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Backoffice-Env"))

	rec, _ = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	s := newTestServer(t, map[string]controllers.Pinger{"database": stubPinger{err: fmt.Errorf("down")}})
	rec, env := s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DEPENDENCY_ERROR", env.Error.Code)
}

func TestMutationsRequireActor(t *testing.T) {
	s := newTestServer(t, nil)
	rec, env := s.do(t, http.MethodPost, "/api/v1/customers", `{"display_name":"x"}`, map[string]string{"X-Actor-Id": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestOrderPaymentFlow(t *testing.T) {
	s := newTestServer(t, nil)
	customerID := s.createCustomer(t)
	order := s.createOrder(t, customerID, "1000", "100")
	assert.Equal(t, "ORD-000001", order.OrderNumber)
	assert.Equal(t, "pending", order.Status)

	payPath := "/api/v1/orders/" + order.ID + "/payments"
	headers := map[string]string{"Idempotency-Key": "pay-1"}
	rec, env := s.do(t, http.MethodPost, payPath, `{"amount":"250.50","payment_method":"UPI","payment_date":"2026-03-01"}`, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var paid idView
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Equal(t, "350.5", paid.AmountPaid)

	rec, _ = s.do(t, http.MethodPost, payPath, `{"amount":"250.50","payment_method":"UPI","payment_date":"2026-03-01"}`, headers)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))

	rec, env = s.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		Order        idView `json:"order"`
		PaymentCount int    `json:"payment_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 2, summary.PaymentCount)
	assert.Equal(t, "350.5", summary.Order.AmountPaid)

	rec, env = s.do(t, http.MethodPost, payPath, `{"amount":"700","payment_method":"Cash"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "OVERPAYMENT", env.Error.Code)

	rec, env = s.do(t, http.MethodPost, payPath, `{"amount":"10","payment_method":"Cheque"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestCreateOrderInitialPaymentMethodRules(t *testing.T) {
	s := newTestServer(t, nil)
	customerID := s.createCustomer(t)

	body := fmt.Sprintf(`{"customer_id":%q,"total_amount":"300","initial_payment":{"amount":0}}`, customerID)
	rec, env := s.do(t, http.MethodPost, "/api/v1/orders", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order idView
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "0", order.AmountPaid)

	body = fmt.Sprintf(`{"customer_id":%q,"total_amount":"300","initial_payment":{"amount":"50"}}`, customerID)
	rec, env = s.do(t, http.MethodPost, "/api/v1/orders", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestStatusTransitions(t *testing.T) {
	s := newTestServer(t, nil)
	customerID := s.createCustomer(t)
	order := s.createOrder(t, customerID, "500", "")
	statusPath := "/api/v1/orders/" + order.ID + "/status"

	rec, env := s.do(t, http.MethodPost, statusPath, `{"status":"completed"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, statusPath, `{"status":"in_progress"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/orders/"+order.ID, "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeletePendingOrder(t *testing.T) {
	s := newTestServer(t, nil)
	customerID := s.createCustomer(t)
	order := s.createOrder(t, customerID, "500", "50")

	rec, _ := s.do(t, http.MethodDelete, "/api/v1/orders/"+order.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env := s.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestBalanceSettlementAndStatement(t *testing.T) {
	s := newTestServer(t, nil)
	customerID := s.createCustomer(t)
	s.createOrder(t, customerID, "1000", "100")
	base := "/api/v1/customers/" + customerID

	rec, _ := s.do(t, http.MethodPost, base+"/previous-balance", `{"total_amount":"500"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodPost, base+"/balance-payments", `{"amount":"200","payment_method":"Bank Transfer"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := s.do(t, http.MethodGet, base+"/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		TotalBalance       string `json:"total_balance"`
		PendingOrdersCount int    `json:"pending_orders_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "1200", summary.TotalBalance)
	assert.Equal(t, 1, summary.PendingOrdersCount)

	rec, env = s.do(t, http.MethodPost, base+"/settlements", `{"amount":"5000","payment_method":"Cash"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "OVERPAYMENT", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, base+"/settlements", `{"amount":"400","payment_method":"Cash"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = s.do(t, http.MethodGet, base+"/orders?limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Orders []idView `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Orders, 1)
	assert.Equal(t, "200", list.Orders[0].AmountPaid)

	rec, _ = s.do(t, http.MethodGet, base+"/statement.xlsx", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "statement-"+customerID)
	assert.Greater(t, rec.Body.Len(), 0)

	rec, env = s.do(t, http.MethodGet, "/api/v1/activity/customer/"+customerID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trail struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &trail))
	assert.NotEmpty(t, trail.Entries)
}

func TestRejectsMalformedIdentifiers(t *testing.T) {
	s := newTestServer(t, nil)
	rec, _ := s.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/activity/invoice/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
