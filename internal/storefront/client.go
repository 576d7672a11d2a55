package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
	"github.com/xenking/flowershop/internal/domain/order"
)

var (
	// ErrRetryable marks failures where the whole request may be repeated.
	ErrRetryable = errors.New("temporarily unavailable")
	// ErrNotFound marks 404 responses.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the shop API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return ErrRetryable
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// Client calls the shop REST API.
type Client struct {
	base *url.URL
	http *http.Client
}

var _ FavoriteSyncer = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the traced default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		base: u,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type shopDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type flowerDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	ShopID      string          `json:"shopId"`
	IsFavorite  bool            `json:"isFavorite"`
	DateAdded   time.Time       `json:"dateAdded"`
}

func (d flowerDTO) toDomain() flower.Flower {
	return flower.Flower{
		ID:          d.ID,
		Name:        d.Name,
		Price:       d.Price,
		Image:       d.Image,
		Description: d.Description,
		ShopID:      d.ShopID,
		IsFavorite:  d.IsFavorite,
		DateAdded:   d.DateAdded,
	}
}

type couponDTO struct {
	ID             string              `json:"id"`
	Code           string              `json:"code"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Discount       decimal.Decimal     `json:"discount"`
	IsActive       bool                `json:"isActive"`
	ExpiryDate     time.Time           `json:"expiryDate"`
	MinOrderAmount decimal.NullDecimal `json:"minOrderAmount"`
}

type orderItemDTO struct {
	FlowerID string          `json:"flower_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type itemRequestDTO struct {
	FlowerID string `json:"flower_id"`
	Quantity int    `json:"quantity"`
}

type orderRequestDTO struct {
	CustomerName string           `json:"customer_name"`
	Email        string           `json:"email,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	Address      string           `json:"address"`
	Items        []itemRequestDTO `json:"items"`
	CouponCodes  []string         `json:"coupon_codes,omitempty"`
}

type orderDTO struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	CouponCodes  []string        `json:"coupon_codes"`
	CreatedAt    time.Time       `json:"created_at"`
	Items        []orderItemDTO  `json:"items"`
}

func (d orderDTO) toDomain() order.Order {
	items := make([]order.LineItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = order.LineItem{FlowerID: it.FlowerID, Quantity: it.Quantity, Price: it.Price}
	}
	return order.Order{
		ID: d.ID,
		Customer: order.Customer{
			Name:    d.CustomerName,
			Email:   d.Email,
			Phone:   d.Phone,
			Address: d.Address,
		},
		Items:       items,
		Subtotal:    d.Subtotal,
		Discount:    d.Discount,
		Total:       d.Total,
		CouponCodes: d.CouponCodes,
		CreatedAt:   d.CreatedAt,
	}
}

type statsDTO struct {
	Orders            int             `json:"orders"`
	Revenue           decimal.Decimal `json:"revenue"`
	Discounts         decimal.Decimal `json:"discounts"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	TopFlowers        []struct {
		FlowerID string          `json:"flower_id"`
		Quantity int             `json:"quantity"`
		Revenue  decimal.Decimal `json:"revenue"`
	} `json:"top_flowers"`
}

// Shops lists shops ordered by name.
func (c *Client) Shops(ctx context.Context) ([]flower.Shop, error) {
	var dto []shopDTO
	if err := c.do(ctx, http.MethodGet, "/api/shops", nil, nil, &dto); err != nil {
		return nil, errors.Wrap(err, "list shops")
	}
	out := make([]flower.Shop, len(dto))
	for i, s := range dto {
		out[i] = flower.Shop{ID: s.ID, Name: s.Name, Category: s.Category}
	}
	return out, nil
}

// Flowers lists flowers, optionally restricted to one shop.
func (c *Client) Flowers(ctx context.Context, shopID string, sort flower.Sort) ([]flower.Flower, error) {
	q := url.Values{}
	if shopID != "" {
		q.Set("shop_id", shopID)
	}
	if sort != "" {
		q.Set("sort", string(sort))
	}
	var dto []flowerDTO
	if err := c.do(ctx, http.MethodGet, "/api/flowers", q, nil, &dto); err != nil {
		return nil, errors.Wrap(err, "list flowers")
	}
	out := make([]flower.Flower, len(dto))
	for i, f := range dto {
		out[i] = f.toDomain()
	}
	return out, nil
}

// Coupons lists all coupons.
func (c *Client) Coupons(ctx context.Context) ([]coupon.Coupon, error) {
	var dto []couponDTO
	if err := c.do(ctx, http.MethodGet, "/api/coupons", nil, nil, &dto); err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	out := make([]coupon.Coupon, len(dto))
	for i, d := range dto {
		out[i] = coupon.Coupon{
			ID:             d.ID,
			Code:           d.Code,
			Name:           d.Name,
			Description:    d.Description,
			Discount:       d.Discount,
			Active:         d.IsActive,
			ExpiresAt:      d.ExpiryDate,
			MinOrderAmount: d.MinOrderAmount,
		}
	}
	return out, nil
}

// ToggleFavorite flips the server-side favorite flag.
func (c *Client) ToggleFavorite(ctx context.Context, flowerID string) (*flower.Flower, error) {
	var dto flowerDTO
	path := "/api/flowers/" + url.PathEscape(flowerID) + "/favorite"
	if err := c.do(ctx, http.MethodPatch, path, nil, nil, &dto); err != nil {
		return nil, errors.Wrapf(err, "toggle favorite %s", flowerID)
	}
	f := dto.toDomain()
	return &f, nil
}

// SubmitOrder places an order. Prices are never sent; the server reprices.
func (c *Client) SubmitOrder(ctx context.Context, req order.Request) (*order.Order, error) {
	body := orderRequestDTO{
		CustomerName: req.Customer.Name,
		Email:        req.Customer.Email,
		Phone:        req.Customer.Phone,
		Address:      req.Customer.Address,
		Items:        make([]itemRequestDTO, len(req.Items)),
		CouponCodes:  req.CouponCodes,
	}
	for i, it := range req.Items {
		body.Items[i] = itemRequestDTO{FlowerID: it.FlowerID, Quantity: it.Quantity}
	}

	var dto orderDTO
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, body, &dto); err != nil {
		return nil, errors.Wrap(err, "submit order")
	}
	o := dto.toDomain()
	return &o, nil
}

// Orders lists committed orders, newest first.
func (c *Client) Orders(ctx context.Context) ([]order.Order, error) {
	var dto []orderDTO
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, nil, &dto); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	out := make([]order.Order, len(dto))
	for i, o := range dto {
		out[i] = o.toDomain()
	}
	return out, nil
}

// Stats fetches the order analytics summary.
func (c *Client) Stats(ctx context.Context) (*order.Stats, error) {
	var dto statsDTO
	if err := c.do(ctx, http.MethodGet, "/api/orders/stats", nil, nil, &dto); err != nil {
		return nil, errors.Wrap(err, "order stats")
	}
	st := &order.Stats{
		Orders:            dto.Orders,
		Revenue:           dto.Revenue,
		Discounts:         dto.Discounts,
		AverageOrderValue: dto.AverageOrderValue,
		TopFlowers:        make([]order.FlowerSales, len(dto.TopFlowers)),
	}
	for i, f := range dto.TopFlowers {
		st.TopFlowers[i] = order.FlowerSales{FlowerID: f.FlowerID, Quantity: f.Quantity, Revenue: f.Revenue}
	}
	return st, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		apiErr.Message = body.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
