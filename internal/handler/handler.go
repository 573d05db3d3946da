package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jack/shortlink-analytics/internal/middleware"
	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/jack/shortlink-analytics/internal/qrcode"
	"github.com/jack/shortlink-analytics/internal/service"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	allocator *service.Allocator
	resolver  *service.Resolver
	stats     *service.StatsProjector
	baseURL   string
	checks    map[string]HealthCheck
}

// NewHandler wires the engine into HTTP handlers. An empty baseURL makes
// short links follow the scheme and host of the create request.
func NewHandler(
	allocator *service.Allocator,
	resolver *service.Resolver,
	stats *service.StatsProjector,
	baseURL string,
	checks map[string]HealthCheck,
) *Handler {
	return &Handler{
		allocator: allocator,
		resolver:  resolver,
		stats:     stats,
		baseURL:   strings.TrimRight(baseURL, "/"),
		checks:    checks,
	}
}

// RegisterRoutes mounts every endpoint on router. The catch-all redirect is
// registered last.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/health/detailed", h.HealthDetailed)

	api := router.Group("/api/v1")
	{
		api.POST("/shorturls", h.CreateShortURL)
		api.GET("/shorturls/:code", h.GetStats)
	}

	legacy := router.Group("/shorturls")
	{
		legacy.POST("", h.CreateShortURL)
		legacy.GET("/:code", h.GetStats)
	}

	router.GET("/:code", h.Redirect)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, model.ErrorResponse{Error: code, Message: message})
}

func respondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, "internal_error", message)
}

// respondServiceError maps engine errors to status codes. It reports false
// for errors it does not recognise.
func respondServiceError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrInvalidValidity),
		errors.Is(err, service.ErrInvalidShortcode):
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrShortcodeTaken):
		respondError(c, http.StatusConflict, "shortcode_taken", err.Error())
	case errors.Is(err, service.ErrAllocationExhausted):
		respondError(c, http.StatusServiceUnavailable, "allocation_exhausted", "Failed to generate a unique shortcode, please retry")
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Short URL not found")
	case errors.Is(err, service.ErrExpired):
		respondError(c, http.StatusGone, "expired", "This short URL has expired")
	default:
		return false
	}
	return true
}

func (h *Handler) CreateShortURL(c *gin.Context) {
	var req model.CreateShortURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error())
		return
	}

	url, err := h.allocator.Allocate(c.Request.Context(), service.AllocateRequest{
		TargetURL:       req.URL,
		ValidityMinutes: req.Validity,
		Shortcode:       req.Shortcode,
	})
	if err != nil {
		if respondServiceError(c, err) {
			return
		}
		log.Printf("create short url failed: request_id=%s ip=%s err=%v", middleware.RequestID(c), c.ClientIP(), err)
		respondInternalError(c, "Failed to create short URL")
		return
	}

	response := &model.CreateShortURLResponse{
		ShortCode: url.ShortCode,
		ShortLink: h.shortLink(c, url.ShortCode),
		Expiry:    url.ExpiresAt.UTC().Format(time.RFC3339),
	}

	if req.QR {
		png, err := qrcode.MakeDataURL(response.ShortLink, qrcode.DefaultSize)
		if err != nil {
			log.Printf("render qr code failed: request_id=%s code=%s err=%v", middleware.RequestID(c), url.ShortCode, err)
			respondInternalError(c, "Failed to render QR code")
			return
		}
		response.QRCode = png
	}

	c.JSON(http.StatusCreated, response)
}

func (h *Handler) shortLink(c *gin.Context, code string) string {
	if h.baseURL != "" {
		return h.baseURL + "/" + code
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	} else if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/" + code
}

func (h *Handler) Redirect(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "Short code is required")
		return
	}

	target, err := h.resolver.Resolve(c.Request.Context(), service.ResolveRequest{
		Shortcode: code,
		CallerIP:  c.ClientIP(),
		Referrer:  c.Request.Referer(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		if respondServiceError(c, err) {
			return
		}
		log.Printf("redirect failed: request_id=%s code=%s ip=%s err=%v", middleware.RequestID(c), code, c.ClientIP(), err)
		respondInternalError(c, "Failed to retrieve URL")
		return
	}

	// 302 so repeat visits come back through here and get counted.
	c.Redirect(http.StatusFound, target)
}

func (h *Handler) GetStats(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "Short code is required")
		return
	}

	stats, err := h.stats.Project(c.Request.Context(), code)
	if err != nil {
		if respondServiceError(c, err) {
			return
		}
		log.Printf("get stats failed: request_id=%s code=%s ip=%s err=%v", middleware.RequestID(c), code, c.ClientIP(), err)
		respondInternalError(c, "Failed to retrieve stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (h *Handler) HealthDetailed(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "healthy"}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			log.Printf("health check failed: request_id=%s dependency=%s err=%v", middleware.RequestID(c), name, err)
			body[name] = "unavailable"
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "connected"
	}

	c.JSON(status, body)
}
