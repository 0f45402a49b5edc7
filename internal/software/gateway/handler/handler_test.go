package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"order-notifier/internal/domain/user"
	"order-notifier/internal/general/jwt"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"
	"order-notifier/internal/software/gateway/service"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeGateway struct {
	online  ports.GoOnlineInput
	backend ports.SetBackendInput
	offline string
	err     error
}

func (f *fakeGateway) GoOnline(_ context.Context, in ports.GoOnlineInput) (ports.GoOnlineResult, error) {
	f.online = in
	return ports.GoOnlineResult{DriverID: in.DriverID, CompanyID: in.CompanyID, IsOnline: true}, f.err
}

func (f *fakeGateway) GoOffline(_ context.Context, driverID string) (ports.GoOfflineResult, error) {
	f.offline = driverID
	return ports.GoOfflineResult{DriverID: driverID}, f.err
}

func (f *fakeGateway) SetBackend(_ context.Context, in ports.SetBackendInput) (ports.SetBackendResult, error) {
	f.backend = in
	return ports.SetBackendResult{DriverID: in.DriverID, BaseURL: in.BaseURL}, f.err
}

func (f *fakeGateway) RunPushConsumer(context.Context) error { return nil }

type fixedCount int

func (c fixedCount) ConnectedDrivers() int { return int(c) }

func setup(svc *fakeGateway) (*http.ServeMux, *jwt.Manager) {
	return setupWith(svc, false)
}

func setupWith(svc *fakeGateway, devTokens bool) (*http.ServeMux, *jwt.Manager) {
	mgr := jwt.NewManager("secret", time.Hour)
	ws := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }
	mux := http.NewServeMux()
	h := NewGatewayHTTPHandler(svc, logger.Discard(), mgr, ws, fixedCount(3))
	if devTokens {
		h.EnableDevTokens()
	}
	h.RegisterRoutes(mux)
	return mux, mgr
}

func do(mux *http.ServeMux, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestGoOnlineRoute(t *testing.T) {
	svc := &fakeGateway{}
	mux, mgr := setup(svc)
	tok, _, _ := mgr.IssueUserToken("d1", user.RoleDriver)

	rec := do(mux, http.MethodPost, "/drivers/d1/online", tok, `{"company_id":"c1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if svc.online.DriverID != "d1" || svc.online.CompanyID != "c1" {
		t.Fatalf("input = %+v", svc.online)
	}

	if rec := do(mux, http.MethodPost, "/drivers/d2/online", tok, `{"company_id":"c1"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign driver status = %d", rec.Code)
	}
	if rec := do(mux, http.MethodPost, "/drivers/d1/online", tok, `{"company":"c1"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/drivers/d1/online", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("no content type status = %d", rr.Code)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest},
		{"postgres", fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "57P01"}), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, mgr := setup(&fakeGateway{err: tt.err})
			tok, _, _ := mgr.IssueUserToken("d1", user.RoleDriver)
			if rec := do(mux, http.MethodPost, "/drivers/d1/offline", tok, ""); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSetBackendRoute(t *testing.T) {
	svc := &fakeGateway{}
	mux, mgr := setup(svc)
	tok, _, _ := mgr.IssueUserToken("d1", user.RoleDriver)

	rec := do(mux, http.MethodPut, "/drivers/d1/backend", tok, `{"base_url":"https://x.supabase.co","api_key":"k"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.backend.BaseURL != "https://x.supabase.co" || svc.backend.APIKey != "k" {
		t.Fatalf("input = %+v", svc.backend)
	}
	if strings.Contains(rec.Body.String(), `"k"`) {
		t.Fatal("api key echoed back")
	}
}

func TestTokenRouteAbsentByDefault(t *testing.T) {
	mux, _ := setup(&fakeGateway{})

	rec := do(mux, http.MethodPost, "/tokens", "", `{"user_id":"d1","role":"OPERATOR"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("tokens status = %d, want 404", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "token") {
		t.Fatalf("token leaked: %s", rec.Body)
	}
}

func TestTokensHealthAndWebSocketRoutes(t *testing.T) {
	mux, mgr := setupWith(&fakeGateway{}, true)

	rec := do(mux, http.MethodPost, "/tokens", "", `{"user_id":"d1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("tokens status = %d", rec.Code)
	}
	var tr TokenResponse
	_ = json.NewDecoder(rec.Body).Decode(&tr)
	if tr.Role != user.RoleDriver {
		t.Fatalf("role = %q", tr.Role)
	}
	if _, claims, err := mgr.ParseAndValidate(tr.Token); err != nil || claims.Subject != "d1" {
		t.Fatalf("minted token invalid: %v", err)
	}

	if rec := do(mux, http.MethodPost, "/tokens", "", `{"user_id":"d1","role":"admin"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad role status = %d", rec.Code)
	}

	rec = do(mux, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"connected_drivers":3`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body)
	}

	if rec := do(mux, http.MethodGet, "/ws/drivers/d1", "", ""); rec.Code != http.StatusTeapot {
		t.Fatalf("ws route status = %d", rec.Code)
	}
}
