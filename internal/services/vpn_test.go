package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/config"
	apperrors "vpn-rent-bot/internal/errors"
	"vpn-rent-bot/internal/helpers"
	"vpn-rent-bot/internal/paneltest"
	"vpn-rent-bot/pkg/panelclient"
)

func testVPNService(t *testing.T, panel *paneltest.Panel) *VPNService {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Panel: config.PanelConfig{
			Domain:   "vpn.example.com",
			User:     "admin",
			Password: "secret",
			APIURL:   panel.URL(),
			VPNPort:  62789,
		},
	}

	client := panelclient.NewClient(cfg.Panel, logger)
	return NewVPNService(client, cfg, logger)
}

func TestResolveMainInboundCreatesOnce(t *testing.T) {
	panel := paneltest.New()
	defer panel.Close()
	svc := testVPNService(t, panel)
	ctx := context.Background()

	first, err := svc.ResolveMainInbound(ctx)
	if err != nil {
		t.Fatalf("ResolveMainInbound: %v", err)
	}
	second, err := svc.ResolveMainInbound(ctx)
	if err != nil {
		t.Fatalf("ResolveMainInbound (repeat): %v", err)
	}

	if first != second {
		t.Fatalf("expected the same inbound, got %d and %d", first, second)
	}
	if got := panel.AddCount(); got != 1 {
		t.Fatalf("expected exactly 1 inbound creation, got %d", got)
	}
}

func TestAddClientAppendsToInbound(t *testing.T) {
	panel := paneltest.New()
	defer panel.Close()
	svc := testVPNService(t, panel)
	ctx := context.Background()

	result, err := svc.AddClient(ctx, 8005178596, "")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	if result.Name != "VPN_8005178596" {
		t.Fatalf("unexpected default name %q", result.Name)
	}
	if !strings.HasPrefix(result.SubscriptionLink, "https://vpn.example.com/sub/") {
		t.Fatalf("unexpected subscription link %q", result.SubscriptionLink)
	}

	userID, clientID, err := helpers.DecodeSubscriptionHash(
		strings.Split(strings.TrimPrefix(result.SubscriptionLink, "https://vpn.example.com/sub/"), "/")[0])
	if err != nil {
		t.Fatalf("link hash does not decode: %v", err)
	}
	if userID != 8005178596 || clientID != result.ClientID {
		t.Fatalf("link hash decodes to (%d, %q), want (8005178596, %q)", userID, clientID, result.ClientID)
	}

	clients := panel.Clients(result.InboundID)
	if len(clients) != 1 {
		t.Fatalf("expected 1 client on inbound, got %d", len(clients))
	}
	if clients[0].ID != result.ClientID {
		t.Fatalf("panel client id %q, want %q", clients[0].ID, result.ClientID)
	}
	if clients[0].TgID != "8005178596" {
		t.Fatalf("panel client tgId %q, want owner id", clients[0].TgID)
	}
	if !strings.HasSuffix(clients[0].Email, "@vpn.example.com") {
		t.Fatalf("unexpected client email %q", clients[0].Email)
	}
}

func TestListClientsFiltersByOwner(t *testing.T) {
	panel := paneltest.New()
	defer panel.Close()
	svc := testVPNService(t, panel)
	ctx := context.Background()

	if _, err := svc.AddClient(ctx, 1, "Mine"); err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	if _, err := svc.AddClient(ctx, 2, "Theirs"); err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	views, err := svc.ListClients(ctx, 1)
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 client for user 1, got %d", len(views))
	}
	if views[0].Name != "Mine" {
		t.Fatalf("unexpected client name %q", views[0].Name)
	}
}

func TestDeleteClient(t *testing.T) {
	panel := paneltest.New()
	defer panel.Close()
	svc := testVPNService(t, panel)
	ctx := context.Background()

	result, err := svc.AddClient(ctx, 1, "")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	if err := svc.DeleteClient(ctx, 1, result.ClientID); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}

	if _, err := svc.GetClientInfo(ctx, 1, result.ClientID); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
	if clients := panel.Clients(result.InboundID); len(clients) != 0 {
		t.Fatalf("expected empty inbound after delete, got %d clients", len(clients))
	}
}

func TestDeleteClientRespectsOwnership(t *testing.T) {
	panel := paneltest.New()
	defer panel.Close()
	svc := testVPNService(t, panel)
	ctx := context.Background()

	result, err := svc.AddClient(ctx, 1, "")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	// Another user must not be able to delete it
	if err := svc.DeleteClient(ctx, 2, result.ClientID); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found for foreign delete, got %v", err)
	}
	if clients := panel.Clients(result.InboundID); len(clients) != 1 {
		t.Fatalf("foreign delete must not touch the inbound, got %d clients", len(clients))
	}
}

func TestToggleClient(t *testing.T) {
	panel := paneltest.New()
	defer panel.Close()
	svc := testVPNService(t, panel)
	ctx := context.Background()

	result, err := svc.AddClient(ctx, 1, "")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	if err := svc.ToggleClient(ctx, 1, result.ClientID, false); err != nil {
		t.Fatalf("ToggleClient: %v", err)
	}

	info, err := svc.GetClientInfo(ctx, 1, result.ClientID)
	if err != nil {
		t.Fatalf("GetClientInfo: %v", err)
	}
	if info.Enabled {
		t.Fatal("expected client disabled after toggle")
	}

	if err := svc.ToggleClient(ctx, 1, "missing", true); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found for unknown client, got %v", err)
	}
}

func TestToggleClientIsIdempotent(t *testing.T) {
	panel := paneltest.New()
	defer panel.Close()
	svc := testVPNService(t, panel)
	ctx := context.Background()

	result, err := svc.AddClient(ctx, 1, "")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	if err := svc.ToggleClient(ctx, 1, result.ClientID, true); err != nil {
		t.Fatalf("ToggleClient: %v", err)
	}
	if err := svc.ToggleClient(ctx, 1, result.ClientID, true); err != nil {
		t.Fatalf("ToggleClient (repeat): %v", err)
	}

	clients := panel.Clients(result.InboundID)
	if len(clients) != 1 {
		t.Fatalf("expected exactly 1 client after repeated enables, got %d", len(clients))
	}
	if !clients[0].Enable {
		t.Fatal("expected the client enabled")
	}
}
