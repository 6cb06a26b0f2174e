package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryStore fakes the Redis commands used by the idempotency middleware
type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryStore) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0

	r := gin.New()
	r.POST("/book", Idempotency(IdempotencyConfig{Store: store}), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"call": calls})
	})

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/book", bytes.NewBufferString(body))
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := send(`{"tier":"GA"}`)
	second := send(`{"tier":"GA"}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	reused := send(`{"tier":"VIP"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	calls := 0
	r := gin.New()
	r.POST("/book", Idempotency(IdempotencyConfig{Store: newMemoryStore()}), func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotency_RequiredHeader(t *testing.T) {
	r := gin.New()
	r.POST("/book", Idempotency(IdempotencyConfig{Store: newMemoryStore(), Required: true}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	store := newMemoryStore()
	fail := true
	r := gin.New()
	r.POST("/book", Idempotency(IdempotencyConfig{Store: store}), func(c *gin.Context) {
		if fail {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		c.Status(http.StatusCreated)
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/book", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-2")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusServiceUnavailable, send())
	fail = false
	assert.Equal(t, http.StatusCreated, send())
}

func TestJWTMiddleware(t *testing.T) {
	cfg := &JWTConfig{Secret: "test-secret", Issuer: "eventhub"}

	r := gin.New()
	r.Use(RequestID(), JWTMiddleware(cfg))
	r.POST("/admin", RequireRole(cfg, "admin"), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id)
	})

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("not-a-jwt").Code)

	userToken, err := IssueToken(cfg, "u-1", "user", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(userToken).Code)

	adminToken, err := IssueToken(cfg, "u-2", "admin", time.Minute)
	require.NoError(t, err)
	w := call(adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-2", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	expired, err := IssueToken(cfg, "u-3", "admin", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(expired).Code)

	other := &JWTConfig{Secret: "other", Issuer: "eventhub"}
	forged, err := IssueToken(other, "u-4", "admin", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(forged).Code)
}

func TestJWTMiddleware_DisabledWithoutSecret(t *testing.T) {
	cfg := &JWTConfig{}
	r := gin.New()
	r.Use(JWTMiddleware(cfg))
	r.POST("/x", RequireRole(cfg, "admin"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
