package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/config"
	"vpn-rent-bot/internal/constants"
	apperrors "vpn-rent-bot/internal/errors"
	"vpn-rent-bot/internal/helpers"
	"vpn-rent-bot/internal/models"
	"vpn-rent-bot/pkg/panelclient"
)

// VPNService manages clients on the shared VPN inbound. Every mutation is a
// full read-modify-write of the inbound's client list; the panel's update
// endpoint replaces the whole body, so a single mutex serializes all writes
// to prevent lost updates between concurrent mutations.
type VPNService struct {
	client *panelclient.Client
	config *config.Config
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewVPNService creates a new VPN service
func NewVPNService(client *panelclient.Client, cfg *config.Config, logger *logrus.Logger) *VPNService {
	return &VPNService{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// Authenticate establishes a panel session
func (s *VPNService) Authenticate(ctx context.Context) error {
	return s.client.Login(ctx)
}

// ResolveMainInbound returns the id of the shared VPN inbound, creating it
// with the default configuration when it does not exist yet.
func (s *VPNService) ResolveMainInbound(ctx context.Context) (int, error) {
	inbounds, err := s.client.ListInbounds(ctx)
	if err != nil {
		return 0, err
	}

	for _, inbound := range inbounds {
		if inbound.Port == s.config.Panel.VPNPort && strings.Contains(inbound.Remark, constants.MainInboundMarker) {
			return inbound.ID, nil
		}
	}

	return s.createMainInbound(ctx)
}

// createMainInbound posts the fixed default inbound configuration
func (s *VPNService) createMainInbound(ctx context.Context) (int, error) {
	settings, err := json.Marshal(models.InboundSettings{
		Clients:    []models.Client{},
		Decryption: "none",
		Fallbacks:  []json.RawMessage{},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal inbound settings: %w", err)
	}

	streamSettings, err := json.Marshal(map[string]interface{}{
		"network":  "ws",
		"security": "tls",
		"tlsSettings": map[string]interface{}{
			"serverName": s.config.Panel.Domain,
			"certificates": []map[string]string{{
				"certificateFile": "/root/cert/cert.crt",
				"keyFile":         "/root/cert/private.key",
			}},
			"alpn": []string{"h2", "http/1.1"},
		},
		"wsSettings": map[string]interface{}{
			"path": "/vpn",
			"headers": map[string]string{
				"Host": s.config.Panel.Domain,
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal stream settings: %w", err)
	}

	sniffing, err := json.Marshal(map[string]interface{}{
		"enabled":      true,
		"destOverride": []string{"http", "tls", "quic"},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal sniffing settings: %w", err)
	}

	form := s.inboundForm(string(settings), string(streamSettings), string(sniffing))

	inboundID, err := s.client.AddInbound(ctx, form)
	if err != nil {
		return 0, err
	}

	s.logger.Infof("Created main VPN inbound %d", inboundID)
	return inboundID, nil
}

// fetchConfig fetches and decodes the current inbound configuration.
// StreamSettings and Sniffing stay verbatim for round-tripping.
func (s *VPNService) fetchConfig(ctx context.Context, inboundID int) (*models.InboundConfig, error) {
	inbound, err := s.client.GetInbound(ctx, inboundID)
	if err != nil {
		return nil, err
	}

	var settings models.InboundSettings
	if err := json.Unmarshal([]byte(inbound.Settings), &settings); err != nil {
		return nil, fmt.Errorf("failed to parse inbound settings: %w", err)
	}

	return &models.InboundConfig{
		Clients:        settings.Clients,
		StreamSettings: inbound.StreamSettings,
		Sniffing:       inbound.Sniffing,
	}, nil
}

// writeInbound re-submits the entire inbound body with the given client list
func (s *VPNService) writeInbound(ctx context.Context, inboundID int, conf *models.InboundConfig) error {
	settings, err := json.Marshal(models.InboundSettings{
		Clients:    conf.Clients,
		Decryption: "none",
		Fallbacks:  []json.RawMessage{},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal inbound settings: %w", err)
	}

	form := s.inboundForm(string(settings), conf.StreamSettings, conf.Sniffing)
	return s.client.UpdateInbound(ctx, inboundID, form)
}

func (s *VPNService) inboundForm(settings, streamSettings, sniffing string) map[string]string {
	return map[string]string{
		"up":             "0",
		"down":           "0",
		"total":          "0",
		"remark":         constants.MainInboundRemark,
		"enable":         "true",
		"expiryTime":     "0",
		"listen":         "",
		"port":           strconv.Itoa(s.config.Panel.VPNPort),
		"protocol":       "vless",
		"settings":       settings,
		"streamSettings": streamSettings,
		"sniffing":       sniffing,
	}
}

// AddClient provisions a new client for the user and returns its links
func (s *VPNService) AddClient(ctx context.Context, userID int64, name string) (*models.ProvisionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inboundID, err := s.ResolveMainInbound(ctx)
	if err != nil {
		return nil, err
	}

	conf, err := s.fetchConfig(ctx, inboundID)
	if err != nil {
		return nil, err
	}

	clientID := uuid.NewString()
	if name == "" {
		name = fmt.Sprintf("VPN_%d", userID)
	}
	email := fmt.Sprintf("user%d_%s@%s", userID, clientID[:8], s.config.Panel.Domain)

	conf.Clients = append(conf.Clients, models.Client{
		ID:      clientID,
		Flow:    constants.VlessFlow,
		Email:   email,
		LimitIP: constants.ClientIPLimit,
		Enable:  true,
		TgID:    strconv.FormatInt(userID, 10),
		VPNName: name,
	})

	if err := s.writeInbound(ctx, inboundID, conf); err != nil {
		return nil, err
	}

	link := helpers.SubscriptionURL(s.config.Panel.Domain, userID, clientID)
	s.logger.Infof("Provisioned VPN %q for user %d", name, userID)

	return &models.ProvisionResult{
		ClientID:         clientID,
		Name:             name,
		SubscriptionLink: link,
		DeepLink:         helpers.DeepLink(link),
		InboundID:        inboundID,
	}, nil
}

// ListClients returns all clients attributed to the user
func (s *VPNService) ListClients(ctx context.Context, userID int64) ([]models.ClientView, error) {
	inboundID, err := s.ResolveMainInbound(ctx)
	if err != nil {
		return nil, err
	}

	conf, err := s.fetchConfig(ctx, inboundID)
	if err != nil {
		return nil, err
	}

	tgID := strconv.FormatInt(userID, 10)
	var views []models.ClientView
	for _, client := range conf.Clients {
		if client.TgID != tgID {
			continue
		}
		name := client.VPNName
		if name == "" {
			name = "Unnamed"
		}
		views = append(views, models.ClientView{
			ClientID:   client.ID,
			Name:       name,
			Email:      client.Email,
			Enabled:    client.Enable,
			TotalGB:    client.TotalGB,
			ExpiryTime: client.ExpiryTime,
			InboundID:  inboundID,
		})
	}

	return views, nil
}

// GetClientInfo returns the view of one client owned by the user
func (s *VPNService) GetClientInfo(ctx context.Context, userID int64, clientID string) (*models.ClientView, error) {
	views, err := s.ListClients(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, view := range views {
		if view.ClientID == clientID {
			v := view
			return &v, nil
		}
	}

	return nil, &apperrors.NotFoundError{Resource: "client", ID: clientID}
}

// DeleteClient removes the client owned by the user from the inbound.
// A missing client is reported as not-found without a write.
func (s *VPNService) DeleteClient(ctx context.Context, userID int64, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inboundID, err := s.ResolveMainInbound(ctx)
	if err != nil {
		return err
	}

	conf, err := s.fetchConfig(ctx, inboundID)
	if err != nil {
		return err
	}

	tgID := strconv.FormatInt(userID, 10)
	remaining := make([]models.Client, 0, len(conf.Clients))
	found := false
	for _, client := range conf.Clients {
		if client.ID == clientID && client.TgID == tgID {
			found = true
			continue
		}
		remaining = append(remaining, client)
	}

	if !found {
		return &apperrors.NotFoundError{Resource: "client", ID: clientID}
	}

	conf.Clients = remaining
	if err := s.writeInbound(ctx, inboundID, conf); err != nil {
		return err
	}

	s.logger.Infof("Deleted VPN client %s of user %d", clientID, userID)
	return nil
}

// ToggleClient flips the enabled flag of the client owned by the user
func (s *VPNService) ToggleClient(ctx context.Context, userID int64, clientID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inboundID, err := s.ResolveMainInbound(ctx)
	if err != nil {
		return err
	}

	conf, err := s.fetchConfig(ctx, inboundID)
	if err != nil {
		return err
	}

	tgID := strconv.FormatInt(userID, 10)
	found := false
	for i := range conf.Clients {
		if conf.Clients[i].ID == clientID && conf.Clients[i].TgID == tgID {
			conf.Clients[i].Enable = enabled
			found = true
			break
		}
	}

	if !found {
		return &apperrors.NotFoundError{Resource: "client", ID: clientID}
	}

	if err := s.writeInbound(ctx, inboundID, conf); err != nil {
		return err
	}

	s.logger.Infof("Set VPN client %s of user %d enabled=%v", clientID, userID, enabled)
	return nil
}
