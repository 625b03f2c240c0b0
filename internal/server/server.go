package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pourpass-backend/internal/cache"
	"pourpass-backend/internal/config"
	"pourpass-backend/internal/domain"
	"pourpass-backend/internal/infrastructure/payproc"
	"pourpass-backend/internal/usecase"
)

type Server struct {
	cfg          config.Config
	store        usecase.Store
	reservations *usecase.ReservationService
	payments     *usecase.PaymentService
	tokens       *usecase.TokenService
	processor    *payproc.Client
	cache        cache.Cache
	log          *slog.Logger
}

func New(cfg config.Config, store usecase.Store, res *usecase.ReservationService,
	pay *usecase.PaymentService, tok *usecase.TokenService,
	processor *payproc.Client, c cache.Cache, log *slog.Logger) *Server {
	return &Server{
		cfg:          cfg,
		store:        store,
		reservations: res,
		payments:     pay,
		tokens:       tok,
		processor:    processor,
		cache:        c,
		log:          log,
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	buyer := api.Group("", s.buyerAuth())
	buyer.POST("/orders", s.handleCreateOrder)
	buyer.GET("/orders/:id", s.handleGetOrder)
	buyer.POST("/orders/:id/payment-intent", s.rateLimit("payment-intent"), s.handlePaymentIntent)
	buyer.GET("/orders/:id/payment-status", s.handlePaymentStatus)
	buyer.POST("/orders/:id/token", s.rateLimit("token"), s.handleIssueToken)

	terminal := api.Group("", s.keyAuth("X-Terminal-Key", func() string { return s.cfg.TerminalKey }))
	terminal.POST("/redeem", s.handleRedeem)
	terminal.POST("/pours/:id/start", s.handleStartPour)
	terminal.POST("/pours/:id/complete", s.handleCompletePour)

	api.POST("/webhooks/payments", s.handlePaymentWebhook)
	api.POST("/webhooks/identity", s.handleIdentityWebhook)

	admin := api.Group("/admin", s.keyAuth("X-Admin-Key", func() string { return s.cfg.AdminKey }))
	admin.POST("/orders/:id/refund", s.handleRefund)
	admin.GET("/orders/:id/events", s.handleListEvents)

	return r
}

type createOrderReq struct {
	TapID    string `json:"tapId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "INVALID_INPUT", "tapId and quantity required")
		return
	}
	o, err := s.reservations.CreateOrder(c.Request.Context(), buyerID(c), req.TapID, req.Quantity)
	if err != nil {
		s.domainFail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) handleGetOrder(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cache.OrderKey(id)); err == nil {
			var o domain.Order
			if json.Unmarshal([]byte(raw), &o) == nil && o.BuyerID == buyerID(c) {
				c.JSON(http.StatusOK, &o)
				return
			}
		}
	}

	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		s.domainFail(c, err)
		return
	}
	if o.BuyerID != buyerID(c) {
		s.domainFail(c, domain.ErrNotOrderOwner)
		return
	}
	if s.cache != nil {
		if raw, err := json.Marshal(o); err == nil {
			_ = s.cache.Set(ctx, cache.OrderKey(o.ID), string(raw))
		}
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handlePaymentIntent(c *gin.Context) {
	intent, err := s.payments.GetOrCreatePaymentIntent(c.Request.Context(), buyerID(c), c.Param("id"))
	if err != nil {
		s.domainFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"intentRef":    intent.ID,
		"clientSecret": intent.ClientSecret,
		"status":       intent.Status,
	})
}

func (s *Server) handlePaymentStatus(c *gin.Context) {
	// bounded wait; the client is told to re-check on timeout instead
	// of the handler hanging
	wait := 10 * time.Second
	if v := c.Query("waitSeconds"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 && d <= 30*time.Second {
			wait = d
		}
	}
	id := c.Param("id")
	o, err := s.payments.AwaitSettlement(c.Request.Context(), buyerID(c), id, wait)
	if err != nil {
		s.invalidate(c, id)
		s.domainFail(c, err)
		return
	}
	s.invalidate(c, id)
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleIssueToken(c *gin.Context) {
	id := c.Param("id")
	token, err := s.tokens.IssueToken(c.Request.Context(), buyerID(c), id)
	if err != nil {
		s.domainFail(c, err)
		return
	}
	s.invalidate(c, id)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type redeemReq struct {
	Token string `json:"token" binding:"required"`
}

func (s *Server) handleRedeem(c *gin.Context) {
	var req redeemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "INVALID_INPUT", "token required")
		return
	}
	o, err := s.tokens.Verify(c.Request.Context(), req.Token)
	if err != nil {
		s.domainFail(c, err)
		return
	}
	s.invalidate(c, o.ID)
	c.JSON(http.StatusOK, gin.H{"orderId": o.ID, "tapId": o.TapID, "quantity": o.Quantity, "pourSizeOz": o.PourSizeOz})
}

func (s *Server) handleStartPour(c *gin.Context) {
	id := c.Param("id")
	if err := s.tokens.StartPour(c.Request.Context(), id); err != nil {
		s.domainFail(c, err)
		return
	}
	s.invalidate(c, id)
	c.JSON(http.StatusOK, gin.H{"orderId": id, "status": domain.OrderPouring})
}

func (s *Server) handleCompletePour(c *gin.Context) {
	id := c.Param("id")
	if err := s.tokens.CompletePour(c.Request.Context(), id); err != nil {
		s.domainFail(c, err)
		return
	}
	s.invalidate(c, id)
	c.JSON(http.StatusOK, gin.H{"orderId": id, "status": domain.OrderCompleted})
}

type paymentWebhook struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		IntentRef string `json:"intentRef"`
	} `json:"data"`
}

func (s *Server) handlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		s.fail(c, http.StatusBadRequest, "INVALID_INPUT", "unreadable body")
		return
	}
	ts := c.GetHeader("X-Payment-Timestamp")
	sig := c.GetHeader("X-Payment-Signature")
	if !s.processor.VerifySignature(ts, body, sig) {
		s.log.Warn("webhook signature rejected", "remote", c.ClientIP())
		s.fail(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed")
		return
	}
	var ev paymentWebhook
	if err := json.Unmarshal(body, &ev); err != nil || ev.ID == "" {
		s.fail(c, http.StatusBadRequest, "INVALID_INPUT", "invalid payload")
		return
	}
	if err := s.payments.HandleWebhook(c.Request.Context(), ev.ID, ev.Type, ev.Data.IntentRef); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			// acknowledge: the intent is not ours to process
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		s.domainFail(c, err)
		return
	}
	if o, err := s.store.GetOrderByIntent(c.Request.Context(), ev.Data.IntentRef); err == nil {
		s.invalidate(c, o.ID)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

type identityWebhook struct {
	BuyerID    string    `json:"buyerId"`
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// handleIdentityWebhook consumes the pass/fail signal from the
// identity-verification provider; the verification flow itself is the
// provider's problem.
func (s *Server) handleIdentityWebhook(c *gin.Context) {
	var ev identityWebhook
	if err := c.ShouldBindJSON(&ev); err != nil || ev.BuyerID == "" {
		s.fail(c, http.StatusBadRequest, "INVALID_INPUT", "buyerId required")
		return
	}
	ctx := c.Request.Context()
	b, err := s.store.GetBuyer(ctx, ev.BuyerID)
	if err != nil {
		b = &domain.Buyer{ID: ev.BuyerID, CreatedAt: time.Now().UTC()}
	}
	b.AgeVerified = ev.Verified
	if ev.Verified {
		at := ev.VerifiedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		b.AgeVerifiedAt = at
	}
	if err := s.store.PutBuyer(ctx, b); err != nil {
		s.domainFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) handleRefund(c *gin.Context) {
	id := c.Param("id")
	if err := s.payments.Refund(c.Request.Context(), id); err != nil {
		s.domainFail(c, err)
		return
	}
	s.invalidate(c, id)
	c.JSON(http.StatusOK, gin.H{"orderId": id, "status": domain.OrderRefunded})
}

func (s *Server) handleListEvents(c *gin.Context) {
	events, err := s.store.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.domainFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) invalidate(c *gin.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(c.Request.Context(), cache.OrderKey(orderID)); err != nil {
		s.log.Warn("cache invalidation failed", "orderId", orderID, "error", err)
	}
}

func (s *Server) fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": code, "message": msg},
	})
}

func (s *Server) domainFail(c *gin.Context, err error) {
	code := domain.Code(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
	} else if usecase.IsRaceLost(err) {
		s.log.Info("race lost", "path", c.FullPath(), "code", code)
	}
	s.fail(c, status, code, err.Error())
}

func statusFor(code string) int {
	switch code {
	case "TAP_NOT_FOUND", "ORDER_NOT_FOUND", "BUYER_NOT_FOUND":
		return http.StatusNotFound
	case "FORBIDDEN":
		return http.StatusForbidden
	case "TOKEN_INVALID", "TOKEN_MISMATCH":
		return http.StatusUnauthorized
	case "RATE_LIMITED":
		return http.StatusTooManyRequests
	case "PAYMENT_PENDING":
		return http.StatusAccepted
	case "INVALID_QUANTITY":
		return http.StatusBadRequest
	case "INTERNAL_ERROR":
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}
