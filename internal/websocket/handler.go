package websocket

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/util"
)

// Authenticator resolves a bearer token to its user
type Authenticator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub            *Hub
	auth           Authenticator
	originPatterns []string
}

// NewHandler creates a new WebSocket handler. With no origin patterns
// any origin is accepted.
func NewHandler(hub *Hub, auth Authenticator, originPatterns ...string) *Handler {
	return &Handler{
		hub:            hub,
		auth:           auth,
		originPatterns: originPatterns,
	}
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes. The JWT comes from ?token= or an Authorization: Bearer header.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	if h.hub.shuttingDown.Load() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	token := tokenFromRequest(c)
	if token == "" {
		util.RespondUnauthorized(c, "no authentication token provided")
		return
	}
	user, err := h.auth.ValidateToken(c.Request.Context(), token)
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", zap.Error(err))
		util.RespondUnauthorized(c, "invalid or expired token")
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: len(h.originPatterns) == 0,
		OriginPatterns:     h.originPatterns,
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.DisplayName())
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to cub",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  fmt.Sprintf("%p", client),
		},
	}))

	go client.WritePump()
	client.ReadPump() // blocks until the client disconnects
}

func tokenFromRequest(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}

// HandleMetrics returns WebSocket metrics (for monitoring)
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket":    h.hub.GetMetrics(),
		"online_users": len(h.hub.GetOnlineUsers()),
		"timestamp":    time.Now().UTC(),
	})
}

// Shutdown gracefully shuts down the WebSocket handler
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}

// Hub returns the hub for external access
func (h *Handler) Hub() *Hub {
	return h.hub
}
