package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatmeter/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("propagates an incoming request ID", func(t *testing.T) {
		var seenInContext string
		engine := gin.New()
		engine.Use(RequestID())
		engine.GET("/", func(c *gin.Context) {
			seenInContext = logger.GetRequestID(c.Request.Context())
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "req-42", seenInContext)
	})

	t.Run("generates an ID when the header is absent", func(t *testing.T) {
		var seenInContext string
		engine := gin.New()
		engine.Use(RequestID())
		engine.GET("/", func(c *gin.Context) {
			seenInContext = logger.GetRequestID(c.Request.Context())
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, rec.Header().Get("X-Request-ID"), seenInContext)
	})
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("stores the caller identity", func(t *testing.T) {
		var seenUser string
		engine := gin.New()
		engine.Use(RequireUser())
		engine.GET("/", func(c *gin.Context) {
			seenUser = GetUserID(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", seenUser)
	})

	t.Run("rejects a blank header", func(t *testing.T) {
		engine := gin.New()
		engine.Use(RequireUser())
		engine.GET("/", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", "   ")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
