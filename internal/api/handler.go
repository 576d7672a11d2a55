// Package api exposes the storefront REST surface on a gin engine.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
	"github.com/xenking/flowershop/internal/domain/order"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in flower responses.
	// Absolute URLs are returned unchanged.
	ImageBaseURL string

	CORS CORSConfig
}

// CORSConfig controls cross-origin access for browser storefronts.
type CORSConfig struct {
	// Origins lists allowed origins. Empty allows any origin.
	Origins          []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// Handler serves the catalog, favorites and order endpoints.
type Handler struct {
	flowers      flower.Repository
	coupons      coupon.Repository
	orders       *order.Service
	imageBaseURL string
	cors         CORSConfig
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	flowers flower.Repository,
	coupons coupon.Repository,
	orders *order.Service,
) *Handler {
	return &Handler{
		flowers:      flowers,
		coupons:      coupons,
		orders:       orders,
		imageBaseURL: cfg.ImageBaseURL,
		cors:         cfg.CORS,
	}
}

// Router builds the gin engine with every route registered. Panics, request
// ids and logging are handled by the surrounding net/http middleware.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(h.corsMiddleware(), nameSpan())

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		writeError(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	g := r.Group("/api")
	g.GET("/shops", h.ListShops)
	g.GET("/flowers", h.ListFlowers)
	g.PATCH("/flowers/:id/favorite", h.ToggleFavorite)
	g.GET("/coupons", h.ListCoupons)
	g.GET("/orders", h.ListOrders)
	g.POST("/orders", h.SubmitOrder)
	g.GET("/orders/stats", h.OrderStats)

	return r
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: h.cors.AllowCredentials,
		MaxAge:           h.cors.MaxAge,
	}
	if len(h.cors.Origins) == 0 || (len(h.cors.Origins) == 1 && h.cors.Origins[0] == "*") {
		cfg.AllowAllOrigins = true
		// Credentials cannot be combined with a wildcard origin.
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = h.cors.Origins
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 12 * time.Hour
	}
	return cors.New(cfg)
}

// nameSpan renames the otelhttp server span after the matched route so
// traces group by template instead of raw path.
func nameSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		if route := c.FullPath(); route != "" {
			trace.SpanFromContext(c.Request.Context()).SetName(c.Request.Method + " " + route)
		}
		c.Next()
	}
}

func (h *Handler) imageURL(image string) string {
	if h.imageBaseURL == "" || image == "" || strings.Contains(image, "://") {
		return image
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(image, "/")
}

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Message: msg})
}
