package ws

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MentorHandler streams status changes to a mentor dashboard. Access control
// is applied by the route's middleware.
func MentorHandler(hub *MentorHub, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		sub := hub.Subscribe()
		go writePump(conn, sub.Messages())
		readPump(conn, nil)
		sub.Close()
	}
}
