package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/config"
	apperrors "vpn-rent-bot/internal/errors"
	"vpn-rent-bot/internal/helpers"
	"vpn-rent-bot/internal/services"
)

// Server exposes subscription configs to the companion VPN app
type Server struct {
	engine *gin.Engine
	vpn    *services.VPNService
	config *config.Config
	logger *logrus.Logger
}

// NewServer creates a new subscription web server
func NewServer(vpn *services.VPNService, cfg *config.Config, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		vpn:    vpn,
		config: cfg,
		logger: logger,
	}

	engine.GET("/sub/:hash/:userID", s.handleSubscription)
	engine.GET("/connect", s.handleConnect)

	return s
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.Web.Listen,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("Subscription web service listening on %s", s.config.Web.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler returns the HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// handleSubscription resolves a subscription hash to the client's config.
// The hash must decode to the user id presented in the path.
func (s *Server) handleSubscription(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid subscription"})
		return
	}

	hashUserID, clientID, err := helpers.DecodeSubscriptionHash(c.Param("hash"))
	if err != nil || hashUserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid subscription"})
		return
	}

	info, err := s.vpn.GetClientInfo(c.Request.Context(), userID, clientID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "VPN not found"})
			return
		}
		s.logger.Errorf("Subscription lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version": 2,
		"servers": []gin.H{s.serverConfig(clientID, info.Name, userID)},
		"remark":  info.Name,
		"status":  "active",
	})
}

// handleConnect redirects the browser into the companion app
func (s *Server) handleConnect(c *gin.Context) {
	target := c.Query("url")
	if !isSafeURL(target) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid URL"})
		return
	}
	c.Redirect(http.StatusFound, target)
}

// serverConfig renders the v2ray server entry served to the app
func (s *Server) serverConfig(clientID, name string, userID int64) gin.H {
	domain := s.config.Panel.Domain
	return gin.H{
		"v":    "2",
		"ps":   name + " - " + strconv.FormatInt(userID, 10),
		"add":  domain,
		"port": "443",
		"id":   clientID,
		"aid":  "0",
		"scy":  "auto",
		"net":  "ws",
		"type": "none",
		"host": domain,
		"path": "/vpn",
		"tls":  "tls",
		"sni":  domain,
		"alpn": "h2,http/1.1",
		"fp":   "chrome",
	}
}

func isSafeURL(target string) bool {
	for _, scheme := range []string{"v2raytun://", "https://", "http://"} {
		if strings.HasPrefix(target, scheme) {
			return true
		}
	}
	return false
}
