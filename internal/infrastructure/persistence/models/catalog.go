package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	VersionedRow
	Slug         string          `gorm:"type:varchar(120);not null;uniqueIndex"`
	Title        string          `gorm:"type:varchar(200);not null"`
	Description  string          `gorm:"type:text"`
	Image        string          `gorm:"type:varchar(500)"`
	Price        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	MRP          decimal.Decimal `gorm:"column:mrp;type:decimal(18,2);not null"`
	Stock        int             `gorm:"not null;default:0"`
	VariantsJSON string          `gorm:"column:variants;type:jsonb;not null;default:'[]'"`
	WeightGrams  int             `gorm:"not null;default:0"`
	Status       string          `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		Slug:        m.Slug,
		Title:       m.Title,
		Description: m.Description,
		Image:       m.Image,
		Price:       valueobject.NewINR(m.Price),
		MRP:         valueobject.NewINR(m.MRP),
		Stock:       m.Stock,
		WeightGrams: m.WeightGrams,
		Status:      catalog.ProductStatus(m.Status),
	}
	p.Aggregate = m.aggregate()
	if m.VariantsJSON != "" {
		_ = json.Unmarshal([]byte(m.VariantsJSON), &p.Variants)
	}
	return p
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.setAggregate(p.Aggregate)
	m.Slug = p.Slug
	m.Title = p.Title
	m.Description = p.Description
	m.Image = p.Image
	m.Price = p.Price.Amount()
	m.MRP = p.MRP.Amount()
	m.Stock = p.Stock
	m.WeightGrams = p.WeightGrams
	m.Status = string(p.Status)

	variants := p.Variants
	if variants == nil {
		variants = []string{}
	}
	data, _ := json.Marshal(variants)
	m.VariantsJSON = string(data)
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// CouponModel is the persistence model for coupons.
type CouponModel struct {
	Row
	Code          string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	MinOrderValue decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Active        bool            `gorm:"not null;default:true"`
	ExpiresAt     *time.Time
}

// TableName returns the table name for GORM
func (CouponModel) TableName() string {
	return "coupons"
}

// ToDomain converts the persistence model to a domain Coupon.
func (m *CouponModel) ToDomain() *catalog.Coupon {
	return &catalog.Coupon{
		Entity:        m.entity(),
		Code:          m.Code,
		Amount:        valueobject.NewINR(m.Amount),
		MinOrderValue: valueobject.NewINR(m.MinOrderValue),
		Active:        m.Active,
		ExpiresAt:     m.ExpiresAt,
	}
}

// CouponModelFromDomain creates a new persistence model from a domain Coupon.
func CouponModelFromDomain(c *catalog.Coupon) *CouponModel {
	m := &CouponModel{
		Code:          catalog.NormalizeCouponCode(c.Code),
		Amount:        c.Amount.Amount(),
		MinOrderValue: c.MinOrderValue.Amount(),
		Active:        c.Active,
		ExpiresAt:     c.ExpiresAt,
	}
	m.setEntity(c.Entity)
	return m
}
