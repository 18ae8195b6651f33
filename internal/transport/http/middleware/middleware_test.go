package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buscador-gpt/internal/pkg/jwtutil"
	"buscador-gpt/internal/platform/logger"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetUint(ContextUserIDKey),
			"request_id": c.GetString(ContextRequestIDKey),
		})
	})
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDKeepsOrGenerates(t *testing.T) {
	r := newEngine(RequestID(), RequestLogger(logger.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := serve(r, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
}

func TestAuthJWTAcceptsHeaderAndQuery(t *testing.T) {
	tok, err := jwtutil.GenerateToken("s3cret", time.Hour, jwtutil.Identity{UserID: 9, Email: "ana@iespecialidades.com"})
	require.NoError(t, err)
	r := newEngine(AuthJWT("s3cret"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := serve(r, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":9`)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/ping?access_token="+tok, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Basic "+tok)
	rec = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrong, err := jwtutil.GenerateToken("other", time.Hour, jwtutil.Identity{UserID: 9})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+wrong)
	rec = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := newEngine(CORS([]string{"http://localhost:5173"}))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := serve(r, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = serve(r, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
