package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	"github.com/yourusername/survey-api/internal/middleware"
	"github.com/yourusername/survey-api/internal/session"
	"github.com/yourusername/survey-api/internal/websocket"
	"github.com/yourusername/survey-api/pkg/logger"
)

const sessionStoreTimeout = 3 * time.Second

// SessionHandler serves the dashboard session socket and logout
type SessionHandler struct {
	tokens         session.TokenVerifier
	events         repository.SessionEventStore
	upgrader       gorillaws.Upgrader
	authEntryPoint string
	log            *logger.Logger
}

// NewSessionHandler creates the handler. allowedOrigins is matched exactly;
// requests without an Origin header (non-browser clients) are accepted.
func NewSessionHandler(
	tokens session.TokenVerifier,
	events repository.SessionEventStore,
	allowedOrigins []string,
	authEntryPoint string,
	log *logger.Logger,
) *SessionHandler {
	h := &SessionHandler{
		tokens:         tokens,
		events:         events,
		authEntryPoint: authEntryPoint,
		log:            log.With("component", "SessionHandler"),
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] {
				return true
			}
			h.log.Warn("rejected websocket origin", "origin", origin)
			return false
		},
	}
	return h
}

// guardView pushes guard transitions to the socket
type guardView struct {
	client *websocket.Client
}

func (v guardView) Render(s *session.Session) {
	_ = v.client.SendJSON(websocket.Message{Type: websocket.TypeAuthenticated, OwnerID: s.OwnerID.String()})
}

func (v guardView) Redirect(location string) {
	_ = v.client.SendJSON(websocket.Message{Type: websocket.TypeRedirect, Location: location})
	v.client.Close()
}

// DashboardSession mounts one session guard per connection. The token comes
// from ?token= since browsers cannot set headers on websocket requests.
// GET /api/dashboard/session
func (h *SessionHandler) DashboardSession(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c)
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(conn, h.log)
	view := guardView{client: client}
	source := session.NewTokenSource(token, h.tokens, h.events)
	guard := session.NewGuard(source, view, view, h.authEntryPoint, h.log)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	guard.Mount(ctx)
	client.Run(ctx)
	guard.Teardown()
}

// Logout revokes the caller's token and ends the dashboards opened with it.
// Dashboards of the same owner on other tokens stay signed in.
// POST /api/auth/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), sessionStoreTimeout)
	defer cancel()

	if claims.ExpiresAt != nil {
		if err := h.events.RevokeToken(ctx, claims.TokenID(), claims.ExpiresAt.Time); err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	event := entity.SessionEvent{
		Type:    entity.SessionEventSignedOut,
		OwnerID: claims.OwnerID,
		TokenID: claims.TokenID(),
		At:      time.Now().UTC(),
	}
	if err := h.events.Publish(ctx, event); err != nil {
		h.log.Warn("failed to publish sign-out", "owner_id", claims.OwnerID, "error", err)
	}

	h.log.Info("owner signed out", "owner_id", claims.OwnerID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
