package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/entitle/internal/checkout/domain"
	identitydomain "github.com/smallbiznis/entitle/internal/identity/domain"
	reconciledomain "github.com/smallbiznis/entitle/internal/reconcile/domain"
	"go.uber.org/zap"
)

type fakeIdentityService struct {
	user *identitydomain.User
	err  error
}

func (f *fakeIdentityService) Resolve(ctx context.Context, bearerToken string) (*identitydomain.User, error) {
	_ = ctx
	_ = bearerToken
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeReconcileService struct {
	result  *reconciledomain.Result
	err     error
	called  bool
	lastReq reconciledomain.Request
}

func (f *fakeReconcileService) VerifySession(ctx context.Context, req reconciledomain.Request) (*reconciledomain.Result, error) {
	f.called = true
	f.lastReq = req
	_ = ctx
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestRouter(identitySvc identitydomain.Service, reconcileSvc reconciledomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	srv := &Server{
		log:          zap.NewNop(),
		identitySvc:  identitySvc,
		reconcileSvc: reconcileSvc,
	}

	router := gin.New()
	router.Use(CORSMiddleware())
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/checkout/verify", srv.AuthRequired(), srv.VerifyCheckoutSession)
	return router
}

func doVerify(router *gin.Engine, body, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/verify", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestVerifyHandlerActivates(t *testing.T) {
	identitySvc := &fakeIdentityService{user: &identitydomain.User{ID: "u1"}}
	reconcileSvc := &fakeReconcileService{result: &reconciledomain.Result{
		Success:  true,
		Message:  "Subscription activated successfully",
		PlanName: "Pro",
	}}
	router := newTestRouter(identitySvc, reconcileSvc)

	resp := doVerify(router, `{"sessionId":"cs_test_1"}`, "Bearer token-1")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["success"] != true || body["plan"] != "Pro" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, exists := body["alreadyExists"]; exists {
		t.Fatalf("alreadyExists must be omitted on fresh activation, got %v", body)
	}
	if reconcileSvc.lastReq.UserID != "u1" || reconcileSvc.lastReq.SessionID != "cs_test_1" {
		t.Fatalf("unexpected request %+v", reconcileSvc.lastReq)
	}
}

func TestVerifyHandlerAlreadyExists(t *testing.T) {
	identitySvc := &fakeIdentityService{user: &identitydomain.User{ID: "u1"}}
	reconcileSvc := &fakeReconcileService{result: &reconciledomain.Result{
		Success:       true,
		Message:       "Subscription already exists",
		AlreadyExists: true,
	}}
	router := newTestRouter(identitySvc, reconcileSvc)

	resp := doVerify(router, `{"sessionId":"cs_test_1"}`, "Bearer token-1")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["alreadyExists"] != true {
		t.Fatalf("expected alreadyExists, got %v", body)
	}
}

func TestVerifyHandlerPaymentPending(t *testing.T) {
	identitySvc := &fakeIdentityService{user: &identitydomain.User{ID: "u1"}}
	reconcileSvc := &fakeReconcileService{result: &reconciledomain.Result{
		NotPaid:       true,
		PaymentStatus: "unpaid",
	}}
	router := newTestRouter(identitySvc, reconcileSvc)

	resp := doVerify(router, `{"sessionId":"cs_test_1"}`, "Bearer token-1")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["success"] != false || body["error"] != "Payment not completed" || body["status"] != "unpaid" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestVerifyHandlerMissingAuthHeader(t *testing.T) {
	reconcileSvc := &fakeReconcileService{}
	router := newTestRouter(&fakeIdentityService{user: &identitydomain.User{ID: "u1"}}, reconcileSvc)

	resp := doVerify(router, `{"sessionId":"cs_test_1"}`, "")

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if reconcileSvc.called {
		t.Fatal("reconcile must not run without credentials")
	}
}

func TestVerifyHandlerRejectedToken(t *testing.T) {
	identitySvc := &fakeIdentityService{err: identitydomain.ErrUnauthenticated}
	reconcileSvc := &fakeReconcileService{}
	router := newTestRouter(identitySvc, reconcileSvc)

	resp := doVerify(router, `{"sessionId":"cs_test_1"}`, "Bearer bad-token")

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if reconcileSvc.called {
		t.Fatal("reconcile must not run for rejected tokens")
	}
}

func TestVerifyHandlerInvalidBody(t *testing.T) {
	identitySvc := &fakeIdentityService{user: &identitydomain.User{ID: "u1"}}
	reconcileSvc := &fakeReconcileService{err: reconciledomain.ErrInvalidRequest}
	router := newTestRouter(identitySvc, reconcileSvc)

	resp := doVerify(router, `{`, "Bearer token-1")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "invalid_request" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestVerifyHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"forbidden", reconciledomain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"upstream", checkoutdomain.ErrSessionLookup, http.StatusBadGateway, "upstream_error"},
		{"plan missing", reconciledomain.ErrPlanIDMissing, http.StatusUnprocessableEntity, "invalid_session_state"},
		{"session busy", reconciledomain.ErrSessionBusy, http.StatusConflict, "conflict"},
		{"persistence", context.DeadlineExceeded, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			identitySvc := &fakeIdentityService{user: &identitydomain.User{ID: "u1"}}
			router := newTestRouter(identitySvc, &fakeReconcileService{err: tc.err})

			resp := doVerify(router, `{"sessionId":"cs_test_1"}`, "Bearer token-1")

			if resp.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, resp.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["success"] != false || body["code"] != tc.wantCode {
				t.Fatalf("unexpected body %v", body)
			}
		})
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	reconcileSvc := &fakeReconcileService{}
	router := newTestRouter(&fakeIdentityService{}, reconcileSvc)

	req := httptest.NewRequest(http.MethodOptions, "/api/checkout/verify", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("expected empty preflight body, got %q", resp.Body.String())
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected permissive origin header")
	}
	if reconcileSvc.called {
		t.Fatal("preflight must not reach handlers")
	}
}
