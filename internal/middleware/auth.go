package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/zaqqye/intervention_engine/internal/apperr"
)

const (
	RoleMentor     = "mentor"
	RoleAutomation = "automation"
	RoleAdmin      = "admin"

	claimsKey = "mentor_claims"
)

type AuthConfig struct {
	// JWTSecret enables the gate. Empty means callers are trusted.
	JWTSecret string
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignMentorToken issues an HS256 token for a mentor or an automation caller.
func SignMentorToken(secret, subject, role string, ttl time.Duration) (string, error) {
	if !IsValidRole(role) {
		return "", fmt.Errorf("unknown role %q", role)
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// MentorAuth guards mentor-only routes with a bearer token. Browsers cannot
// set headers on websocket upgrades, so a token query parameter is accepted
// too. admin passes any role gate.
func MentorAuth(cfg AuthConfig, roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if cfg.JWTSecret == "" {
			c.Next()
			return
		}
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			AbortWithError(c, apperr.New("middleware.MentorAuth", apperr.ErrUnauthorized, "missing or invalid authorization header"))
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			AbortWithError(c, apperr.New("middleware.MentorAuth", apperr.ErrUnauthorized, "invalid token"))
			return
		}
		if _, ok := allowed[claims.Role]; !ok && claims.Role != RoleAdmin {
			AbortWithError(c, apperr.New("middleware.MentorAuth", apperr.ErrForbidden, "forbidden"))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// MentorClaims returns the verified claims, if the gate is enabled.
func MentorClaims(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			return ""
		}
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	if c.Request.Method == http.MethodGet {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}
