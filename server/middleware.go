package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/RyanBlaney/sonido-genre/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestSizeLimitWithSize caps request bodies of write methods at maxBytes
func RequestSizeLimitWithSize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost ||
			c.Request.Method == http.MethodPut ||
			c.Request.Method == http.MethodPatch {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// RequestLogger tags each request with an ID and logs its outcome
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.ContextWithFields(c.Request.Context(), logging.Fields{
			"request_id": id,
		}))

		c.Next()

		fields := logging.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		}
		reqLogger := logger.WithContext(c.Request.Context())
		if c.Writer.Status() >= http.StatusInternalServerError {
			reqLogger.Warn("Request failed", fields)
			return
		}
		reqLogger.Debug("Request handled", fields)
	}
}

// clientLimiter holds a rate limiter and its last accessed time
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// rateLimiters tracks one token bucket per client IP
type rateLimiters struct {
	clients  sync.Map
	limit    rate.Limit
	burst    int
	stop     chan struct{}
	stopOnce sync.Once
}

func newRateLimiters(rps float64, burst int) *rateLimiters {
	return &rateLimiters{
		limit: rate.Limit(rps),
		burst: burst,
		stop:  make(chan struct{}),
	}
}

// PerClientRateLimit rejects requests beyond the client's bucket with 429
func (r *rateLimiters) PerClientRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := r.clients.LoadOrStore(c.ClientIP(), &clientLimiter{
			limiter: rate.NewLimiter(r.limit, r.burst),
		})
		cl := v.(*clientLimiter)
		cl.lastSeen.Store(time.Now().UnixNano())

		if !cl.limiter.Allow() {
			c.Header("Retry-After", "1")
			abortWithError(c, http.StatusTooManyRequests, "", "rate limit exceeded, slow down")
			return
		}
		c.Next()
	}
}

// cleanup drops clients idle for longer than idle until Stop is called
func (r *rateLimiters) cleanup(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			r.clients.Range(func(key, value any) bool {
				if now.Sub(time.Unix(0, value.(*clientLimiter).lastSeen.Load())) > idle {
					r.clients.Delete(key)
				}
				return true
			})
		case <-r.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine
func (r *rateLimiters) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
