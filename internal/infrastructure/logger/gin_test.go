package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(GinRequestIDKey, "req-42")
		c.Next()
	})
	r.Use(Recovery(base), GinMiddleware(base))
	return r, recorded
}

func TestGinMiddleware_LevelsByStatus(t *testing.T) {
	r, recorded := newLoggedRouter(t)
	r.GET("/leases/:lease_id/ok", func(c *gin.Context) {
		assert.Equal(t, "req-42", GetRequestID(c.Request.Context()))
		GetGinLogger(c).Info("inside handler")
		c.Status(http.StatusOK)
	})
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for path, level := range map[string]zapcore.Level{
		"/leases/abc/ok": zapcore.InfoLevel,
		"/missing":       zapcore.WarnLevel,
		"/broken":        zapcore.ErrorLevel,
	} {
		recorded.TakeAll()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))

		entries := recorded.FilterMessage("HTTP Request").All()
		require.Len(t, entries, 1, path)
		assert.Equal(t, level, entries[0].Level, path)
		assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	}
}

func TestGinMiddleware_AttachesLeaseID(t *testing.T) {
	r, recorded := newLoggedRouter(t)
	r.GET("/leases/:lease_id", func(c *gin.Context) {
		GetGinLogger(c).Info("handler")
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/leases/l-1", nil))

	entries := recorded.FilterMessage("handler").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "l-1", entries[0].ContextMap()["lease_id"])
	assert.Equal(t, "/leases/:lease_id", entries[0].ContextMap()["route"])
}

func TestRecovery(t *testing.T) {
	r, recorded := newLoggedRouter(t)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}

func TestGetGinLogger_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}
