package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	Store Pinger
	// RealtimeClients reports connected student endpoints; optional.
	RealtimeClients func() int
}

func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok", "message": "Intervention engine is running", "store": "ok"}
	code := http.StatusOK
	if err := hc.Store.Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["store"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if hc.RealtimeClients != nil {
		body["realtime_clients"] = hc.RealtimeClients()
	}
	c.JSON(code, body)
}
