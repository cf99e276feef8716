package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LovationAdmin/gastos-api/middleware"
	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

const wsUserKey = "user_id"

// WSHandler pushes expense events to the owner's open browser sessions.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024

	// Keep-alive for hosts that drop idle connections
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get(wsUserKey)
		utils.LogWebSocket("connected", toString(userID))
	})

	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get(wsUserKey)
		utils.LogWebSocket("disconnected", toString(userID))
	})

	m.HandleError(func(s *melody.Session, err error) {
		utils.SafeWarn("❌ WebSocket error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades an authenticated request.
func (h *WSHandler) HandleWS(c *gin.Context) {
	keys := map[string]any{wsUserKey: middleware.GetUserID(c)}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		utils.SafeWarn("❌ Failed to upgrade websocket: %v", err)
	}
}

// PublishExpenseEvent sends the event to the sessions of event.UserID only.
func (h *WSHandler) PublishExpenseEvent(_ context.Context, event models.ExpenseEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get(wsUserKey)
		return exists && id == event.UserID
	})
}

func (h *WSHandler) Close() error {
	return h.M.Close()
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
