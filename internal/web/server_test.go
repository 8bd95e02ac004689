package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/config"
	"vpn-rent-bot/internal/helpers"
	"vpn-rent-bot/internal/paneltest"
	"vpn-rent-bot/internal/services"
	"vpn-rent-bot/pkg/panelclient"
)

func testServer(t *testing.T) (*Server, *services.VPNService) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	panel := paneltest.New()
	t.Cleanup(panel.Close)

	cfg := &config.Config{
		Panel: config.PanelConfig{
			Domain:   "vpn.example.com",
			User:     "admin",
			Password: "secret",
			APIURL:   panel.URL(),
			VPNPort:  62789,
		},
		Web: config.WebConfig{Listen: ":0"},
	}

	vpn := services.NewVPNService(panelclient.NewClient(cfg.Panel, logger), cfg, logger)
	return NewServer(vpn, cfg, logger), vpn
}

func TestSubscriptionEndpoint(t *testing.T) {
	server, vpn := testServer(t)

	result, err := vpn.AddClient(context.Background(), 8005178596, "")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	hash := helpers.EncodeSubscriptionHash(8005178596, result.ClientID)
	req := httptest.NewRequest(http.MethodGet, "/sub/"+hash+"/8005178596", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Version int                      `json:"version"`
		Servers []map[string]interface{} `json:"servers"`
		Status  string                   `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Version != 2 || body.Status != "active" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if len(body.Servers) != 1 {
		t.Fatalf("expected 1 server entry, got %d", len(body.Servers))
	}
	if body.Servers[0]["id"] != result.ClientID {
		t.Fatalf("server entry id %v, want %q", body.Servers[0]["id"], result.ClientID)
	}
	if body.Servers[0]["add"] != "vpn.example.com" {
		t.Fatalf("server entry address %v", body.Servers[0]["add"])
	}
}

func TestSubscriptionRejectsMismatchedUser(t *testing.T) {
	server, vpn := testServer(t)

	result, err := vpn.AddClient(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	// Hash encodes user 1 but the path claims user 2
	hash := helpers.EncodeSubscriptionHash(1, result.ClientID)
	req := httptest.NewRequest(http.MethodGet, "/sub/"+hash+"/2", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for mismatched user, got %d", rec.Code)
	}
}

func TestSubscriptionRejectsBadHash(t *testing.T) {
	server, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sub/%21%21not-base64/1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for invalid hash, got %d", rec.Code)
	}
}

func TestSubscriptionUnknownClient(t *testing.T) {
	server, _ := testServer(t)

	hash := helpers.EncodeSubscriptionHash(1, "missing-client")
	req := httptest.NewRequest(http.MethodGet, "/sub/"+hash+"/1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown client, got %d", rec.Code)
	}
}

func TestConnectRedirect(t *testing.T) {
	server, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/connect?url=v2raytun%3A%2F%2Fimport-sub%3Furl%3Dx", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "v2raytun://import-sub?url=x" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestConnectRejectsUnsafeScheme(t *testing.T) {
	server, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/connect?url=javascript%3Aalert(1)", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsafe scheme, got %d", rec.Code)
	}
}
