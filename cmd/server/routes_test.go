package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"coinledger.backend/internal/interfaces/http/handlers"
)

func TestApplyCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	applyCORSMiddleware(r)
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	// with origin
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin: %s", got)
	}

	// options preflight
	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRegisterHealthRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerHealthRoute(r)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "coinledger-backend" {
		t.Fatalf("unexpected health payload: %+v", body)
	}
}

func TestRegisterMetricsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerMetricsRoute(r)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus output, got: %.120s", rec.Body.String())
	}
}

func TestRegisterAPIV1Routes_Table(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	pass := func(c *gin.Context) { c.Next() }
	registerAPIV1Routes(r, routeDeps{
		notifyHandler:   handlers.NewNotifyHandler(nil),
		ledgerHandler:   handlers.NewLedgerHandler(nil, nil),
		transferHandler: handlers.NewTransferHandler(nil, nil, false),
		adminHandler:    handlers.NewAdminHandler(nil, nil, nil),
		authMiddleware:  pass,
		notifyAuth:      pass,
	})

	want := map[string]string{
		"POST /api/v1/notify/:currency/wallet": "",
		"POST /api/v1/notify/:currency/block":  "",
		"GET /api/v1/users/:id/balances":       "",
		"GET /api/v1/users/:id/transactions":   "",
		"POST /api/v1/withdrawals":             "",
		"POST /api/v1/moves":                   "",
		"GET /api/v1/confirm/:nonce":           "",
		"PUT /api/v1/admin/wallets/:id/cursor": "",
		"PUT /api/v1/admin/deposit-cutoff":     "",
		"POST /api/v1/admin/reconcile":         "",
	}
	for _, route := range r.Routes() {
		delete(want, route.Method+" "+route.Path)
	}
	if len(want) != 0 {
		t.Fatalf("routes missing: %v", want)
	}
}
