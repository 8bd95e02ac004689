package panelclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/config"
	"vpn-rent-bot/internal/constants"
	apperrors "vpn-rent-bot/internal/errors"
	"vpn-rent-bot/internal/models"
)

const sessionKey = "session"

// Client is the low-level HTTP client for the 3x-ui panel API.
// The session cookie is cached and re-acquired lazily; an unauthorized
// response clears the cache and the call is retried exactly once.
type Client struct {
	httpClient  *resty.Client
	panelConfig config.PanelConfig
	cookieCache *cache.Cache
	logger      *logrus.Logger
}

// APIResponse represents the envelope returned by every panel endpoint
type APIResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

// NewClient creates a new panel API client
func NewClient(panelConfig config.PanelConfig, logger *logrus.Logger) *Client {
	httpClient := resty.New().
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})

	return &Client{
		httpClient:  httpClient,
		panelConfig: panelConfig,
		cookieCache: cache.New(constants.CacheExpiration*time.Minute, constants.CacheCleanupInterval*time.Minute),
		logger:      logger,
	}
}

// Login authenticates against the panel and caches the session cookies.
// A cached session short-circuits; any failure clears the credential.
func (c *Client) Login(ctx context.Context) error {
	if _, found := c.cookieCache.Get(sessionKey); found {
		return nil
	}

	c.logger.Infof("Logging in to panel at %s", c.panelConfig.APIURL)

	loginCtx, cancel := context.WithTimeout(ctx, constants.LoginTimeout*time.Second)
	defer cancel()

	resp, err := c.httpClient.R().
		SetContext(loginCtx).
		SetFormData(map[string]string{
			"username": c.panelConfig.User,
			"password": c.panelConfig.Password,
		}).
		Post(fmt.Sprintf("%s/login", c.panelConfig.APIURL))

	if err != nil {
		c.cookieCache.Delete(sessionKey)
		return fmt.Errorf("login request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.cookieCache.Delete(sessionKey)
		c.logger.Errorf("Login failed - Status: %d, Response: %s", resp.StatusCode(), string(resp.Body()))
		return &apperrors.PanelAPIError{Operation: "login", Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		c.cookieCache.Delete(sessionKey)
		return errors.New("no session cookie received from panel")
	}

	c.cookieCache.Set(sessionKey, cookies, cache.DefaultExpiration)
	c.logger.Info("Successfully logged in to panel")
	return nil
}

// Logout drops the cached session credential
func (c *Client) Logout() {
	c.cookieCache.Delete(sessionKey)
}

// withSession runs fn with the current session cookies, re-authenticating
// and retrying once when the panel rejects the session.
func (c *Client) withSession(ctx context.Context, fn func(cookies []*http.Cookie) (*resty.Response, error)) (*resty.Response, error) {
	var resp *resty.Response
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}

		cookies, found := c.cookieCache.Get(sessionKey)
		if !found {
			return nil, errors.New("panel session missing after login")
		}

		var err error
		resp, err = fn(cookies.([]*http.Cookie))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode() == http.StatusUnauthorized {
			c.cookieCache.Delete(sessionKey)
			continue
		}
		return resp, nil
	}

	return resp, nil
}

// ListInbounds fetches all inbounds from the panel
func (c *Client) ListInbounds(ctx context.Context) ([]models.Inbound, error) {
	listCtx, cancel := context.WithTimeout(ctx, constants.FetchTimeout*time.Second)
	defer cancel()

	resp, err := c.withSession(listCtx, func(cookies []*http.Cookie) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(listCtx).
			SetCookies(cookies).
			Get(fmt.Sprintf("%s/panel/api/inbounds/list", c.panelConfig.APIURL))
	})
	if err != nil {
		return nil, fmt.Errorf("list inbounds request failed: %w", err)
	}

	apiResp, err := c.parseResponse("list inbounds", resp)
	if err != nil {
		return nil, err
	}

	var inbounds []models.Inbound
	if err := json.Unmarshal(apiResp.Obj, &inbounds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inbounds: %w", err)
	}

	return inbounds, nil
}

// GetInbound fetches a single inbound by id
func (c *Client) GetInbound(ctx context.Context, inboundID int) (*models.Inbound, error) {
	getCtx, cancel := context.WithTimeout(ctx, constants.FetchTimeout*time.Second)
	defer cancel()

	resp, err := c.withSession(getCtx, func(cookies []*http.Cookie) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(getCtx).
			SetCookies(cookies).
			Get(fmt.Sprintf("%s/panel/api/inbounds/get/%d", c.panelConfig.APIURL, inboundID))
	})
	if err != nil {
		return nil, fmt.Errorf("get inbound request failed: %w", err)
	}

	apiResp, err := c.parseResponse("get inbound", resp)
	if err != nil {
		return nil, err
	}

	var inbound models.Inbound
	if err := json.Unmarshal(apiResp.Obj, &inbound); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inbound: %w", err)
	}

	return &inbound, nil
}

// AddInbound creates a new inbound from form fields and returns its id
func (c *Client) AddInbound(ctx context.Context, form map[string]string) (int, error) {
	addCtx, cancel := context.WithTimeout(ctx, constants.UpdateTimeout*time.Second)
	defer cancel()

	resp, err := c.withSession(addCtx, func(cookies []*http.Cookie) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(addCtx).
			SetCookies(cookies).
			SetFormData(form).
			Post(fmt.Sprintf("%s/panel/api/inbounds/add", c.panelConfig.APIURL))
	})
	if err != nil {
		return 0, fmt.Errorf("add inbound request failed: %w", err)
	}

	apiResp, err := c.parseResponse("add inbound", resp)
	if err != nil {
		return 0, err
	}

	var created struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(apiResp.Obj, &created); err != nil {
		return 0, fmt.Errorf("failed to unmarshal created inbound: %w", err)
	}

	return created.ID, nil
}

// UpdateInbound replaces the whole inbound body for the given id.
// The panel has no partial update: callers must submit every field.
func (c *Client) UpdateInbound(ctx context.Context, inboundID int, form map[string]string) error {
	updateCtx, cancel := context.WithTimeout(ctx, constants.UpdateTimeout*time.Second)
	defer cancel()

	resp, err := c.withSession(updateCtx, func(cookies []*http.Cookie) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(updateCtx).
			SetCookies(cookies).
			SetFormData(form).
			Post(fmt.Sprintf("%s/panel/api/inbounds/update/%d", c.panelConfig.APIURL, inboundID))
	})
	if err != nil {
		return fmt.Errorf("update inbound request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Errorf("Update inbound %d failed - Status: %d, Response: %s", inboundID, resp.StatusCode(), string(resp.Body()))
		return &apperrors.PanelAPIError{Operation: "update inbound", Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	return nil
}

// parseResponse validates the HTTP status and decodes the API envelope
func (c *Client) parseResponse(operation string, resp *resty.Response) (*APIResponse, error) {
	if resp.StatusCode() != http.StatusOK {
		c.logger.Errorf("%s failed - Status: %d, Response: %s", operation, resp.StatusCode(), string(resp.Body()))
		return nil, &apperrors.PanelAPIError{Operation: operation, Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	var apiResp APIResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", operation, err)
	}

	if !apiResp.Success {
		return nil, &apperrors.PanelAPIError{Operation: operation, Status: resp.StatusCode(), Message: apiResp.Msg}
	}

	return &apiResp, nil
}
