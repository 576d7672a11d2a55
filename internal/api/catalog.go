package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
)

type shopResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type flowerResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	ShopID      string    `json:"shopId"`
	IsFavorite  bool      `json:"isFavorite"`
	DateAdded   time.Time `json:"dateAdded"`
}

type couponResponse struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Discount       float64   `json:"discount"`
	IsActive       bool      `json:"isActive"`
	ExpiryDate     time.Time `json:"expiryDate"`
	MinOrderAmount *float64  `json:"minOrderAmount"`
}

// ListShops handles GET /api/shops.
func (h *Handler) ListShops(c *gin.Context) {
	shops, err := h.flowers.ListShops(c.Request.Context())
	if err != nil {
		internalError(c, errors.Wrap(err, "list shops"))
		return
	}

	out := make([]shopResponse, len(shops))
	for i, s := range shops {
		out[i] = shopResponse{ID: s.ID, Name: s.Name, Category: s.Category}
	}
	c.JSON(http.StatusOK, out)
}

// ListFlowers handles GET /api/flowers with optional shop_id and sort.
func (h *Handler) ListFlowers(c *gin.Context) {
	sort, ok := flower.ParseSort(c.Query("sort"))
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid sort: "+c.Query("sort"))
		return
	}

	flowers, err := h.flowers.List(c.Request.Context(), flower.Filter{
		ShopID: c.Query("shop_id"),
		Sort:   sort,
	})
	if err != nil {
		internalError(c, errors.Wrap(err, "list flowers"))
		return
	}

	out := make([]flowerResponse, len(flowers))
	for i, f := range flowers {
		out[i] = h.flowerResponse(f)
	}
	c.JSON(http.StatusOK, out)
}

// ToggleFavorite handles PATCH /api/flowers/:id/favorite.
func (h *Handler) ToggleFavorite(c *gin.Context) {
	f, err := h.flowers.ToggleFavorite(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, flower.ErrNotFound) {
			writeError(c, http.StatusNotFound, "Flower not found")
			return
		}
		internalError(c, errors.Wrap(err, "toggle favorite"))
		return
	}
	c.JSON(http.StatusOK, h.flowerResponse(*f))
}

// ListCoupons handles GET /api/coupons.
func (h *Handler) ListCoupons(c *gin.Context) {
	coupons, err := h.coupons.List(c.Request.Context())
	if err != nil {
		internalError(c, errors.Wrap(err, "list coupons"))
		return
	}

	out := make([]couponResponse, len(coupons))
	for i, cp := range coupons {
		out[i] = toCouponResponse(cp)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) flowerResponse(f flower.Flower) flowerResponse {
	return flowerResponse{
		ID:          f.ID,
		Name:        f.Name,
		Price:       f.Price.InexactFloat64(),
		Image:       h.imageURL(f.Image),
		Description: f.Description,
		ShopID:      f.ShopID,
		IsFavorite:  f.IsFavorite,
		DateAdded:   f.DateAdded.UTC(),
	}
}

func toCouponResponse(c coupon.Coupon) couponResponse {
	resp := couponResponse{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		Discount:    c.Discount.InexactFloat64(),
		IsActive:    c.Active,
		ExpiryDate:  c.ExpiresAt.UTC(),
	}
	if c.MinOrderAmount.Valid {
		v := c.MinOrderAmount.Decimal.InexactFloat64()
		resp.MinOrderAmount = &v
	}
	return resp
}

// internalError logs err with the request logger and hides it from the
// client.
func internalError(c *gin.Context, err error) {
	zctx.From(c.Request.Context()).Error("Request failed", zap.Error(err))
	writeError(c, http.StatusInternalServerError, "internal server error")
}
