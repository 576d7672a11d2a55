package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/flowershop/internal/domain/order"
)

// submitOrderRequest is the POST /api/orders body. Line items carry no
// price; any price sent by a client is dropped by the decoder.
type submitOrderRequest struct {
	CustomerName string             `json:"customer_name"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	Address      string             `json:"address"`
	Items        []orderItemRequest `json:"items"`
	CouponCodes  []string           `json:"coupon_codes"`
}

type orderItemRequest struct {
	FlowerID string `json:"flower_id"`
	Quantity int    `json:"quantity"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	CustomerName string              `json:"customer_name"`
	Email        string              `json:"email"`
	Phone        string              `json:"phone"`
	Address      string              `json:"address"`
	Subtotal     float64             `json:"subtotal"`
	Discount     float64             `json:"discount"`
	Total        float64             `json:"total"`
	CouponCodes  []string            `json:"coupon_codes"`
	CreatedAt    time.Time           `json:"created_at"`
	Items        []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	FlowerID string  `json:"flower_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type statsResponse struct {
	Orders            int                   `json:"orders"`
	Revenue           float64               `json:"revenue"`
	Discounts         float64               `json:"discounts"`
	AverageOrderValue float64               `json:"average_order_value"`
	TopFlowers        []flowerSalesResponse `json:"top_flowers"`
}

type flowerSalesResponse struct {
	FlowerID string  `json:"flower_id"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// SubmitOrder handles POST /api/orders.
func (h *Handler) SubmitOrder(c *gin.Context) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload: malformed JSON body")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{FlowerID: it.FlowerID, Quantity: it.Quantity}
	}

	o, err := h.orders.Submit(c.Request.Context(), order.Request{
		Customer: order.Customer{
			Name:    req.CustomerName,
			Email:   req.Email,
			Phone:   req.Phone,
			Address: req.Address,
		},
		Items:       items,
		CouponCodes: req.CouponCodes,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(*o))
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context())
	if err != nil {
		writeOrderError(c, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	c.JSON(http.StatusOK, out)
}

// OrderStats handles GET /api/orders/stats.
func (h *Handler) OrderStats(c *gin.Context) {
	s, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		writeOrderError(c, err)
		return
	}

	top := make([]flowerSalesResponse, len(s.TopFlowers))
	for i, f := range s.TopFlowers {
		top[i] = flowerSalesResponse{
			FlowerID: f.FlowerID,
			Quantity: f.Quantity,
			Revenue:  f.Revenue.InexactFloat64(),
		}
	}
	c.JSON(http.StatusOK, statsResponse{
		Orders:            s.Orders,
		Revenue:           s.Revenue.InexactFloat64(),
		Discounts:         s.Discounts.InexactFloat64(),
		AverageOrderValue: s.AverageOrderValue.InexactFloat64(),
		TopFlowers:        top,
	})
}

// writeOrderError maps order service errors to HTTP responses.
func writeOrderError(c *gin.Context, err error) {
	var (
		invalid    *order.InvalidPayloadError
		unknown    *order.UnknownFlowerError
		ineligible *order.CouponIneligibleError
	)
	switch {
	case errors.As(err, &invalid):
		writeError(c, http.StatusBadRequest, invalid.Error())
	case errors.As(err, &unknown):
		writeError(c, http.StatusBadRequest, "Flower not found: "+unknown.FlowerID)
	case errors.As(err, &ineligible):
		writeError(c, http.StatusBadRequest, ineligible.Message())
	case errors.Is(err, order.ErrTransient):
		zctx.From(c.Request.Context()).Warn("Order storage unavailable", zap.Error(err))
		writeError(c, http.StatusServiceUnavailable, "storage temporarily unavailable, please retry")
	default:
		internalError(c, err)
	}
}

func toOrderResponse(o order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			FlowerID: it.FlowerID,
			Quantity: it.Quantity,
			Price:    it.Price.InexactFloat64(),
		}
	}
	codes := o.CouponCodes
	if codes == nil {
		codes = []string{}
	}
	return orderResponse{
		ID:           o.ID,
		CustomerName: o.Customer.Name,
		Email:        o.Customer.Email,
		Phone:        o.Customer.Phone,
		Address:      o.Customer.Address,
		Subtotal:     o.Subtotal.InexactFloat64(),
		Discount:     o.Discount.InexactFloat64(),
		Total:        o.Total.InexactFloat64(),
		CouponCodes:  codes,
		CreatedAt:    o.CreatedAt.UTC(),
		Items:        items,
	}
}
