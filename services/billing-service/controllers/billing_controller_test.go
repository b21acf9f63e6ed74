package controllers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/chat-billing/services/billing-service/controllers"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	"github.com/yashrajoria/chat-billing/services/billing-service/services"
	"github.com/yashrajoria/chat-billing/services/common/auth"
	apperrors "github.com/yashrajoria/chat-billing/services/common/errors"
	"github.com/yashrajoria/chat-billing/services/common/middleware"
)

const jwtSecret = "controller-test-secret"

// ---- mock service ----

type mockBillingSvc struct {
	gotUID, gotEmail string
	gotReq           models.CheckoutRequest

	checkout    *models.CheckoutResponse
	checkoutErr error
	portal      *models.PortalResponse
	portalErr   error
	plan        *models.UserPlanRecord
	planErr     error
}

func (m *mockBillingSvc) CreateCheckout(_ context.Context, uid, email string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	m.gotUID, m.gotEmail, m.gotReq = uid, email, req
	return m.checkout, m.checkoutErr
}

func (m *mockBillingSvc) CreatePortal(_ context.Context, uid string) (*models.PortalResponse, error) {
	m.gotUID = uid
	return m.portal, m.portalErr
}

func (m *mockBillingSvc) GetPlan(_ context.Context, uid string) (*models.UserPlanRecord, error) {
	m.gotUID = uid
	return m.plan, m.planErr
}

var _ services.BillingService = (*mockBillingSvc)(nil)

// ---- helpers ----

func setupBillingRouter(svc services.BillingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	bc := controllers.NewBillingController(svc)

	api := r.Group("/api", middleware.JWTAuth(auth.NewTokenParser(jwtSecret)))
	api.GET("/plan", bc.GetPlan)
	api.POST("/stripe/checkout", bc.CreateCheckout)
	api.POST("/stripe/portal", bc.CreatePortal)
	return r
}

func bearer(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(r *gin.Engine, method, path, authz string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---- tests ----

func TestCreateCheckout_Success(t *testing.T) {
	svc := &mockBillingSvc{checkout: &models.CheckoutResponse{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}}
	r := setupBillingRouter(svc)

	w := do(r, http.MethodPost, "/api/stripe/checkout", bearer(t, jwt.MapClaims{"uid": "U1", "email": "u1@example.com"}), []byte(`{"plan":"pro"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"cs_1","url":"https://checkout.stripe.com/c/cs_1"}`, w.Body.String())
	assert.Equal(t, "U1", svc.gotUID)
	assert.Equal(t, "u1@example.com", svc.gotEmail)
	assert.Equal(t, "pro", svc.gotReq.Plan)
}

func TestCreateCheckout_BadBody(t *testing.T) {
	svc := &mockBillingSvc{}
	r := setupBillingRouter(svc)
	token := bearer(t, jwt.MapClaims{"sub": "U1"})

	w := do(r, http.MethodPost, "/api/stripe/checkout", token, []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid_plan"}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/stripe/checkout", token, []byte(`{"plan":"Pro","email":"nope"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCheckout_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"invalid plan", apperrors.ErrInvalidPlan, http.StatusBadRequest, `{"error":"invalid_plan"}`},
		{"price missing", apperrors.ErrPriceNotConfigured, http.StatusInternalServerError, `{"error":"price_not_configured"}`},
		{"stripe not configured", apperrors.ErrStripeNotConfigured, http.StatusInternalServerError, `{"error":"stripe_not_configured"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupBillingRouter(&mockBillingSvc{checkoutErr: tt.err})
			w := do(r, http.MethodPost, "/api/stripe/checkout", bearer(t, jwt.MapClaims{"uid": "U1"}), []byte(`{"plan":"Pro"}`))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestCreatePortal(t *testing.T) {
	r := setupBillingRouter(&mockBillingSvc{portalErr: apperrors.ErrNoCustomer})
	w := do(r, http.MethodPost, "/api/stripe/portal", bearer(t, jwt.MapClaims{"uid": "U1"}), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"no_customer"}`, w.Body.String())

	r = setupBillingRouter(&mockBillingSvc{portal: &models.PortalResponse{URL: "https://billing.stripe.com/p/1"}})
	w = do(r, http.MethodPost, "/api/stripe/portal", bearer(t, jwt.MapClaims{"uid": "U1"}), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://billing.stripe.com/p/1"}`, w.Body.String())
}

func TestGetPlan(t *testing.T) {
	svc := &mockBillingSvc{plan: &models.UserPlanRecord{UID: "U1", Plan: models.PlanFree}}
	r := setupBillingRouter(svc)

	w := do(r, http.MethodGet, "/api/plan", bearer(t, jwt.MapClaims{"uid": "U1"}), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"U1","plan":"Free"}`, w.Body.String())
}

func TestBillingRoutes_RequireAuth(t *testing.T) {
	r := setupBillingRouter(&mockBillingSvc{})

	w := do(r, http.MethodGet, "/api/plan", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/plan", "Bearer not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := bearer(t, jwt.MapClaims{"uid": "U1", "exp": time.Now().Add(-time.Hour).Unix()})
	w = do(r, http.MethodGet, "/api/plan", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
