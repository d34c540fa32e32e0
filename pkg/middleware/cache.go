package middleware

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbruni/weekendfly/pkg/cache"
	"github.com/tbruni/weekendfly/pkg/logger"
)

// cachedResponse is the stored form of a response.
type cachedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bodyCapture struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCapture) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

// ResponseCache serves GET responses from the cache manager. Only successful
// JSON responses are stored; everything else passes through untouched.
func ResponseCache(manager *cache.Manager, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := responseKey(c.Request)
		var cached cachedResponse
		err := manager.GetJSON(c.Request.Context(), key, &cached)
		if err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(cached.StatusCode, cached.ContentType, cached.Body)
			c.Abort()
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Error(err, "response cache read failed", "key", key)
		}

		writer := &bodyCapture{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Header("X-Cache", "MISS")
		c.Next()

		contentType := c.Writer.Header().Get("Content-Type")
		if c.Writer.Status() != http.StatusOK || contentType == "" {
			return
		}
		entry := cachedResponse{
			StatusCode:  c.Writer.Status(),
			ContentType: contentType,
			Body:        writer.body.Bytes(),
		}
		if err := manager.SetJSON(c.Request.Context(), key, entry, ttl); err != nil {
			logger.Error(err, "response cache write failed", "key", key)
		}
	}
}

func responseKey(req *http.Request) string {
	sum := md5.Sum([]byte(req.URL.Path + "?" + req.URL.RawQuery))
	return "response:" + hex.EncodeToString(sum[:])
}
