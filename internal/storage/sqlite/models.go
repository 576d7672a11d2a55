package sqlite

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
	"github.com/xenking/flowershop/internal/domain/order"
)

type shopModel struct {
	ID       string `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	Category string `gorm:"not null"`
}

func (shopModel) TableName() string { return "shops" }

type flowerModel struct {
	ID          string          `gorm:"primaryKey"`
	Name        string          `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"`
	Image       string          `gorm:"not null"`
	Description string          `gorm:"not null"`
	ShopID      string          `gorm:"not null;index"`
	Shop        shopModel       `gorm:"foreignKey:ShopID"`
	IsFavorite  bool            `gorm:"not null"`
	DateAdded   time.Time       `gorm:"not null"`
}

func (flowerModel) TableName() string { return "flowers" }

type couponModel struct {
	ID             string              `gorm:"primaryKey"`
	Code           string              `gorm:"not null;uniqueIndex:idx_coupons_code,collate:NOCASE"`
	Name           string              `gorm:"not null"`
	Description    string              `gorm:"not null"`
	Discount       decimal.Decimal     `gorm:"type:numeric;not null"`
	IsActive       bool                `gorm:"not null"`
	ExpiryDate     time.Time           `gorm:"not null"`
	MinOrderAmount decimal.NullDecimal `gorm:"type:numeric"`
}

func (couponModel) TableName() string { return "coupons" }

type orderModel struct {
	ID           string           `gorm:"primaryKey"`
	CustomerName string           `gorm:"not null"`
	Email        string           `gorm:"not null"`
	Phone        string           `gorm:"not null"`
	Address      string           `gorm:"not null"`
	Subtotal     decimal.Decimal  `gorm:"type:numeric;not null"`
	Discount     decimal.Decimal  `gorm:"type:numeric;not null"`
	Total        decimal.Decimal  `gorm:"type:numeric;not null"`
	CouponCodes  []string         `gorm:"serializer:json"`
	CreatedAt    time.Time        `gorm:"not null;index"`
	Items        []orderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	OrderID  string          `gorm:"primaryKey"`
	Position int             `gorm:"primaryKey;autoIncrement:false"`
	FlowerID string          `gorm:"not null;index"`
	Flower   flowerModel     `gorm:"foreignKey:FlowerID"`
	Quantity int             `gorm:"not null"`
	Price    decimal.Decimal `gorm:"type:numeric;not null"`
}

func (orderItemModel) TableName() string { return "order_items" }

func (m shopModel) toDomain() flower.Shop {
	return flower.Shop{ID: m.ID, Name: m.Name, Category: m.Category}
}

func (m flowerModel) toDomain() flower.Flower {
	return flower.Flower{
		ID:          m.ID,
		Name:        m.Name,
		Price:       m.Price,
		Image:       m.Image,
		Description: m.Description,
		ShopID:      m.ShopID,
		IsFavorite:  m.IsFavorite,
		DateAdded:   m.DateAdded.UTC(),
	}
}

func (m couponModel) toDomain() coupon.Coupon {
	return coupon.Coupon{
		ID:             m.ID,
		Code:           m.Code,
		Name:           m.Name,
		Description:    m.Description,
		Discount:       m.Discount,
		Active:         m.IsActive,
		ExpiresAt:      m.ExpiryDate.UTC(),
		MinOrderAmount: m.MinOrderAmount,
	}
}

func (m orderModel) toDomain() order.Order {
	o := order.Order{
		ID: m.ID,
		Customer: order.Customer{
			Name:    m.CustomerName,
			Email:   m.Email,
			Phone:   m.Phone,
			Address: m.Address,
		},
		Items:       make([]order.LineItem, len(m.Items)),
		Subtotal:    m.Subtotal,
		Discount:    m.Discount,
		Total:       m.Total,
		CouponCodes: m.CouponCodes,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	for i, it := range m.Items {
		o.Items[i] = order.LineItem{
			FlowerID: it.FlowerID,
			Quantity: it.Quantity,
			Price:    it.Price,
		}
	}
	if o.CouponCodes == nil {
		o.CouponCodes = []string{}
	}
	return o
}

func newOrderModel(o *order.Order) orderModel {
	m := orderModel{
		ID:           o.ID,
		CustomerName: o.Customer.Name,
		Email:        o.Customer.Email,
		Phone:        o.Customer.Phone,
		Address:      o.Customer.Address,
		Subtotal:     o.Subtotal,
		Discount:     o.Discount,
		Total:        o.Total,
		CouponCodes:  o.CouponCodes,
		CreatedAt:    o.CreatedAt,
		Items:        make([]orderItemModel, len(o.Items)),
	}
	if m.CouponCodes == nil {
		m.CouponCodes = []string{}
	}
	for i, it := range o.Items {
		m.Items[i] = orderItemModel{
			OrderID:  o.ID,
			Position: i,
			FlowerID: it.FlowerID,
			Quantity: it.Quantity,
			Price:    it.Price,
		}
	}
	return m
}
