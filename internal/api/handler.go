package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-analytics/internal/export"
	"shop-analytics/internal/service"
	"shop-analytics/internal/store"
	"shop-analytics/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	stores    *service.StoreService
	analytics *service.AnalyticsService
	questions *service.QuestionService
	deps      map[string]Pinger
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler. deps are pinged by /ready.
func NewHandler(
	stores *service.StoreService,
	analytics *service.AnalyticsService,
	questions *service.QuestionService,
	deps map[string]Pinger,
) *Handler {
	return &Handler{
		stores:    stores,
		analytics: analytics,
		questions: questions,
		deps:      deps,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/stores/connect", h.connectStore)
		v1.GET("/stores", h.listStores)
		v1.GET("/stores/:id", h.getStore)
		v1.DELETE("/stores/:id", h.disconnectStore)
		v1.POST("/stores/:id/refresh", h.refreshStore)
		v1.POST("/stores/:id/regenerate", h.regenerateStore)

		v1.GET("/stores/:id/products", h.listProducts)
		v1.GET("/stores/:id/orders", h.listOrders)
		v1.GET("/stores/:id/customers", h.listCustomers)

		v1.GET("/stores/:id/analytics", h.getAnalytics)
		v1.GET("/stores/:id/analytics/export", h.exportAnalytics)

		v1.POST("/questions", h.askQuestion)
		v1.GET("/stores/:id/questions", h.listQuestions)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// connectStore handles the mock OAuth connect
func (h *Handler) connectStore(c *gin.Context) {
	var req service.ConnectStoreRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	st, err := h.stores.Connect(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "Failed to connect store", err)
		return
	}

	c.JSON(http.StatusCreated, st)
}

func (h *Handler) listStores(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	stores, err := h.stores.ListStores(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "Failed to list stores", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

func (h *Handler) getStore(c *gin.Context) {
	st, err := h.stores.GetStore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get store", err)
		return
	}

	c.JSON(http.StatusOK, st)
}

func (h *Handler) disconnectStore(c *gin.Context) {
	if err := h.stores.Disconnect(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "Failed to disconnect store", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// refreshStore queues a regeneration on the event stream
func (h *Handler) refreshStore(c *gin.Context) {
	eventID, err := h.stores.RequestRefresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to queue refresh", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":   "queued",
		"event_id": eventID,
	})
}

// regenerateStore regenerates mock data synchronously
func (h *Handler) regenerateStore(c *gin.Context) {
	catalog, err := h.stores.RegenerateMockData(c.Request.Context(), c.Param("id"), service.TriggerManual)
	if err != nil {
		h.fail(c, "Failed to regenerate data", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":  len(catalog.Products),
		"orders":    len(catalog.Orders),
		"customers": len(catalog.Customers),
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	products, err := h.stores.ListProducts(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, "Failed to list products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) listOrders(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	orders, err := h.stores.ListOrders(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, "Failed to list orders", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) listCustomers(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	customers, err := h.stores.ListCustomers(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, "Failed to list customers", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *Handler) getAnalytics(c *gin.Context) {
	summary, err := h.analytics.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to compute analytics", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// exportAnalytics streams the summary as an XLSX workbook
func (h *Handler) exportAnalytics(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	st, err := h.stores.GetStore(ctx, id)
	if err != nil {
		h.fail(c, "Failed to export analytics", err)
		return
	}
	summary, err := h.analytics.Summary(ctx, id)
	if err != nil {
		h.fail(c, "Failed to export analytics", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSummary(&buf, st, summary); err != nil {
		h.fail(c, "Failed to export analytics", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(st)+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// askQuestion runs the question pipeline
func (h *Handler) askQuestion(c *gin.Context) {
	var req service.AskRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	q, err := h.questions.Ask(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "Failed to answer question", err)
		return
	}

	c.JSON(http.StatusOK, q)
}

func (h *Handler) listQuestions(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	questions, err := h.questions.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, "Failed to list questions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// fail maps service errors onto status codes
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
	case errors.Is(err, service.ErrRegenerationInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   msg,
			"details": err.Error(),
		})
	}
}

// queryLimit parses ?limit=. Absent means 0, which services treat as their
// default. It writes a 400 and reports false on bad input.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid limit",
		})
		return 0, false
	}
	return limit, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// requestLogger logs each request through zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
