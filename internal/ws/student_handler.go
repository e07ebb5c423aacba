package ws

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterMessage is what a client sends to start receiving a student's
// events. student_id may be a JSON string or number.
type RegisterMessage struct {
	Type      string          `json:"type"`
	StudentID json.RawMessage `json:"student_id"`
}

func (m RegisterMessage) studentID() string {
	raw := bytes.TrimSpace(m.StudentID)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// StudentHandler upgrades to a websocket whose endpoint stays silent until the
// client registers for a student.
func StudentHandler(hub *StudentHub, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		ep := hub.NewEndpoint()
		go writePump(conn, ep.Messages())

		readPump(conn, func(data []byte) {
			var msg RegisterMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "register" {
				return
			}
			id := msg.studentID()
			if id == "" {
				return
			}
			ep.Register(id)
			log.Info("student registered for realtime updates", zap.String("student_id", id))
		})
		ep.Close()
	}
}
