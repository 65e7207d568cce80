package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

// captureLog redirects the global zerolog output for the duration of a test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

func TestRequestLogger_IncludesCallerIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLog(t)
	userID := uuid.New()

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/bookings", func(c *gin.Context) {
		c.Set(ContextUserIDKey, userID)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings?page=2", nil))

	line := buf.String()
	assert.Contains(t, line, `"level":"info"`)
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"path":"/bookings?page=2"`)
	assert.Contains(t, line, `"user_id":"`+userID.String()+`"`)
}

func TestRequestLogger_WarnsOnServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLog(t)

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	line := buf.String()
	assert.Contains(t, line, `"level":"warn"`)
	assert.Contains(t, line, `"status":500`)
}
