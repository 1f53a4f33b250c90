package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SaleStatusPaid       = "paid"
	SaleStatusPending    = "pending"
	SaleStatusRefused    = "refused"
	SaleStatusRefunded   = "refunded"
	SaleStatusChargeback = "chargeback"
)

// SaleCustomer is the customer snapshot taken at ingestion time.
type SaleCustomer struct {
	Name  string `gorm:"type:varchar(255)" json:"name"`
	Email string `gorm:"type:varchar(200);index" json:"email"`
	Phone string `gorm:"type:varchar(50)" json:"phone,omitempty"`
}

// Sale is a transaction record keyed by the platform-native sale id.
// Re-ingesting the same id overwrites the mutable fields (idempotent upsert).
// ProductID is a weak reference: a sale for an unknown local product is still
// recorded with the ProductName snapshot.
type Sale struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Platform      string         `gorm:"type:varchar(20);not null;index" json:"platform"`
	PlatformSaleID string        `gorm:"type:varchar(100);not null;uniqueIndex" json:"platform_sale_id"`
	ProductID     *uint          `gorm:"index" json:"product_id,omitempty"`
	ProductName   string         `gorm:"type:varchar(255);not null" json:"product_name"`
	Customer      SaleCustomer   `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	Status        string         `gorm:"type:varchar(20);not null;index:idx_sales_user_status,priority:2" json:"status"`
	Amount        int64          `gorm:"not null;default:0" json:"amount"`
	NetAmount     int64          `gorm:"not null;default:0" json:"net_amount"`
	Commission    int64          `gorm:"not null;default:0" json:"commission"`
	PaymentMethod string         `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	Installments  int            `gorm:"default:0" json:"installments,omitempty"`
	UserID        uint           `gorm:"not null;index:idx_sales_user_status,priority:1" json:"user_id"`
	ApprovedAt    *time.Time     `gorm:"type:timestamp;default:null" json:"approved_at,omitempty"`
	RawPayload    datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPaid reports whether the sale currently entitles the customer to access.
func (s *Sale) IsPaid() bool {
	return s.Status == SaleStatusPaid
}
