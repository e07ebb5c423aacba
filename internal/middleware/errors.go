package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/zaqqye/intervention_engine/internal/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AbortWithError writes err as an error body with its mapped status.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), ErrorBody{
		Error: ErrorDetail{Kind: apperr.Code(err), Message: apperr.Message(err)},
	})
}
