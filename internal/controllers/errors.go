package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/middleware"
)

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindJSON decodes the body or responds with a validation error.
func bindJSON(c *gin.Context, op string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Wrap(op, apperr.ErrValidation, "invalid request body", err))
		return false
	}
	return true
}
