package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/realtime"
	"github.com/kendall-kelly/barpos-api/utils"
	"go.uber.org/zap"
)

// ServeWebSocket handles GET /api/v1/ws[?tableId=uuid].
// Without tableId the client receives events for every table.
func ServeWebSocket(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID, err := utils.ParseUUID("tableId", c.Query("tableId"))
		if err != nil {
			respondError(c, err)
			return
		}

		subscription := uuid.Nil
		if tableID != nil {
			subscription = *tableID
		}

		// Upgrade writes its own error response on failure
		if err := hub.ServeWS(c.Writer, c.Request, subscription); err != nil {
			zap.L().Named("ws").Info("websocket upgrade failed", zap.Error(err))
		}
	}
}
