package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"

	"pourpass-backend/internal/domain"
)

const ctxBuyerID = "buyerID"

func buyerID(c *gin.Context) string {
	return c.GetString(ctxBuyerID)
}

// buyerAuth verifies the bearer token the identity side issued and puts
// the buyer id on the request context.
func (s *Server) buyerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if !strings.HasPrefix(raw, "Bearer ") {
			s.fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "bearer token required")
			return
		}
		parsed, err := jwt.Parse(strings.TrimPrefix(raw, "Bearer "), func(t *jwt.Token) (any, error) {
			return []byte(s.cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !parsed.Valid {
			s.fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			s.fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid claims")
			return
		}
		id, _ := claims["buyer_id"].(string)
		if id == "" {
			s.fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "buyer_id claim missing")
			return
		}
		c.Set(ctxBuyerID, id)
		c.Next()
	}
}

// keyAuth guards the terminal and admin surfaces with a static shared
// key, compared in constant time. Empty configured key means the
// surface is disabled.
func (s *Server) keyAuth(header string, key func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		want := key()
		got := c.GetHeader(header)
		if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			s.fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid "+header)
			return
		}
		c.Next()
	}
}

// rateLimit is a fixed window per buyer and operation. The store is
// in-process and best-effort: counters reset on restart, which is
// acceptable for abuse guarding. Back it with the durable store if
// stronger guarantees are ever needed.
func (s *Server) rateLimit(operation string) gin.HandlerFunc {
	lim := limiter.New(memorystore.NewStore(), limiter.Rate{
		Period: time.Minute,
		Limit:  s.cfg.RateLimitPerMinute,
	})
	return func(c *gin.Context) {
		lctx, err := lim.Get(c.Request.Context(), buyerID(c)+":"+operation)
		if err != nil {
			s.fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "rate limiter failure")
			return
		}
		if lctx.Reached {
			s.domainFail(c, domain.ErrRateLimited)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
