package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/eventhub/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyHeader carries the client-chosen key
	IdempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:"
)

type idempotencyStatus string

const (
	statusProcessing idempotencyStatus = "processing"
	statusCompleted  idempotencyStatus = "completed"
)

type idempotencyRecord struct {
	Status       idempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code,omitempty"`
	ResponseBody string            `json:"response_body,omitempty"`
}

// IdempotencyStore is the subset of Redis used by the middleware
type IdempotencyStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Store IdempotencyStore
	// TTL for completed records
	TTL time.Duration
	// ProcessingTTL bounds how long an in-flight key blocks duplicates
	ProcessingTTL time.Duration
	// Required rejects requests that omit the header
	Required bool
}

// Idempotency replays the stored response when a request repeats its key.
// Redis failures fail open.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = 60 * time.Second
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || cfg.Store == nil {
			if key == "" && cfg.Required {
				response.Abort(c, http.StatusBadRequest, response.CodeBadRequest, IdempotencyKeyHeader+" header is required")
				return
			}
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		hash := requestHash(c, body)
		redisKey := idempotencyPrefix + key
		ctx := c.Request.Context()

		existing, err := loadRecord(ctx, cfg.Store, redisKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			c.Next()
			return
		}
		if existing == nil {
			claimed, err := storeRecord(ctx, cfg.Store, redisKey, &idempotencyRecord{Status: statusProcessing, RequestHash: hash}, cfg.ProcessingTTL, true)
			if err != nil {
				c.Next()
				return
			}
			if !claimed {
				existing, _ = loadRecord(ctx, cfg.Store, redisKey)
			}
		}
		if existing != nil {
			replay(c, existing, hash)
			return
		}

		rw := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw
		c.Next()

		status := rw.Status()
		if status >= http.StatusInternalServerError {
			// let the client retry server failures
			_ = cfg.Store.Del(ctx, redisKey).Err()
			return
		}
		_, _ = storeRecord(ctx, cfg.Store, redisKey, &idempotencyRecord{
			Status:       statusCompleted,
			RequestHash:  hash,
			ResponseCode: status,
			ResponseBody: rw.body.String(),
		}, cfg.TTL, false)
	}
}

func replay(c *gin.Context, rec *idempotencyRecord, hash string) {
	switch {
	case rec.RequestHash != hash:
		response.Abort(c, http.StatusUnprocessableEntity, response.CodeConflict, "idempotency key reused with a different request")
	case rec.Status == statusProcessing:
		response.Abort(c, http.StatusConflict, response.CodeConflict, "a request with this idempotency key is in progress")
	default:
		c.Data(rec.ResponseCode, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		c.Abort()
	}
}

func requestHash(c *gin.Context, body []byte) string {
	h := sha256.New()
	h.Write([]byte(c.Request.Method))
	h.Write([]byte(c.Request.URL.Path))
	if userID, ok := GetUserID(c); ok {
		h.Write([]byte(userID))
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func loadRecord(ctx context.Context, store IdempotencyStore, key string) (*idempotencyRecord, error) {
	raw, err := store.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var rec idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func storeRecord(ctx context.Context, store IdempotencyStore, key string, rec *idempotencyRecord, ttl time.Duration, onlyIfAbsent bool) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	if onlyIfAbsent {
		return store.SetNX(ctx, key, string(data), ttl).Result()
	}
	return true, store.Set(ctx, key, string(data), ttl).Err()
}

type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
