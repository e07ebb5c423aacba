package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

func newGuarded(cfg AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/mentor", MentorAuth(cfg, RoleMentor, RoleAutomation), func(c *gin.Context) {
		claims, ok := MentorClaims(c)
		subject := ""
		if ok {
			subject = claims.Subject
		}
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})
	r.POST("/mentor", MentorAuth(cfg, RoleMentor), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Kind
}

func TestMentorAuth_DisabledWithoutSecret(t *testing.T) {
	r := newGuarded(AuthConfig{})
	w := do(r, http.MethodGet, "/mentor", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMentorAuth_Tokens(t *testing.T) {
	r := newGuarded(AuthConfig{JWTSecret: testSecret})

	mentor, err := SignMentorToken(testSecret, "m-1", RoleMentor, time.Hour)
	require.NoError(t, err)
	admin, err := SignMentorToken(testSecret, "root", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = SignMentorToken(testSecret, "s-1", "student", time.Hour)
	require.Error(t, err)
	student, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "student",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "s-1"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	expired, err := SignMentorToken(testSecret, "m-1", RoleMentor, -time.Minute)
	require.NoError(t, err)
	forged, err := SignMentorToken("other-secret", "m-1", RoleMentor, time.Hour)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/mentor", "Bearer "+mentor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"m-1"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/mentor", "Bearer "+admin).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/mentor?token="+mentor, "").Code)

	w = do(r, http.MethodGet, "/mentor", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorKind(t, w))

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/mentor", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/mentor", "Bearer "+expired).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/mentor", "Bearer "+forged).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/mentor?token="+mentor, "").Code)

	w = do(r, http.MethodGet, "/mentor", "Bearer "+student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorKind(t, w))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("https://app.example.com, https://admin.example.com/"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	open := gin.New()
	open.Use(CORS("*"))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	w = do(open, http.MethodGet, "/x", "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerLevelsAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)), Recovery(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/ok", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/bad", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))

	w = do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	assert.Equal(t, 1, logs.FilterMessage("Request processed").Len())
	bad := logs.FilterMessage("Client error").All()
	require.Len(t, bad, 1)
	assert.Equal(t, "fixed-id", bad[0].ContextMap()["request_id"])
	assert.Equal(t, 1, logs.FilterMessage("Server error").Len())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
