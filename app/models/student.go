package models

import (
	"strings"
	"time"
)

const (
	TelegramStatusPending = "pending"
	TelegramStatusActive  = "active"
	TelegramStatusRemoved = "removed"
	TelegramStatusFailed  = "failed"
)

const (
	EnrollmentStatusActive   = "active"
	EnrollmentStatusExpired  = "expired"
	EnrollmentStatusRefunded = "refunded"
)

// Address is the customer address snapshot, stored as a JSON column.
type Address struct {
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zipcode      string `json:"zipcode,omitempty"`
}

// TelegramInfo tracks the student's group membership state.
// Status transitions: pending -> active (confirmed join), active -> removed,
// pending -> failed (invite generation failed), failed -> pending (retry).
// A removed student only goes back to pending via a new qualifying paid sale.
type TelegramInfo struct {
	UserID    int64      `json:"user_id,omitempty"`
	Username  string     `json:"username,omitempty"`
	Status    string     `json:"status"`
	AddedAt   *time.Time `json:"added_at,omitempty"`
	RemovedAt *time.Time `json:"removed_at,omitempty"`
}

// Enrollment is one entry in a student's product list: access to one product,
// granted by one sale. Entries accumulate over time and are never dropped,
// only flipped to expired/refunded.
type Enrollment struct {
	ProductID     uint      `json:"product_id"`
	ProductName   string    `json:"product_name"`
	EnrolledAt    time.Time `json:"enrolled_at"`
	Status        string    `json:"status"`
	SaleID        string    `json:"sale_id,omitempty"`
	SaleReference string    `json:"sale_reference,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
}

// Student is the canonical local identity for a paying customer, unique per
// (owner, platform, lowercased email). It is never hard-deleted; access is
// revoked through IsActive and the enrollment statuses.
type Student struct {
	ID                  uint         `gorm:"primaryKey" json:"id"`
	UserID              uint         `gorm:"not null;index:ux_students_identity,unique,priority:1" json:"user_id"`
	Platform            string       `gorm:"type:varchar(20);not null;index:ux_students_identity,unique,priority:2" json:"platform"`
	Email               string       `gorm:"type:varchar(200);not null;index:ux_students_identity,unique,priority:3;index" json:"email"`
	KiwifyCustomerID    string       `gorm:"type:varchar(100);index" json:"kiwify_customer_id,omitempty"`
	HotmartSubscriberID string       `gorm:"type:varchar(100);index" json:"hotmart_subscriber_id,omitempty"`
	Name                string       `gorm:"type:varchar(255);not null" json:"name"`
	Phone               string       `gorm:"type:varchar(50)" json:"phone,omitempty"`
	CPF                 string       `gorm:"type:varchar(20)" json:"cpf,omitempty"`
	CNPJ                string       `gorm:"type:varchar(20)" json:"cnpj,omitempty"`
	Instagram           string       `gorm:"type:varchar(100)" json:"instagram,omitempty"`
	Country             string       `gorm:"type:varchar(100)" json:"country,omitempty"`
	Address             *Address     `gorm:"type:json;serializer:json" json:"address,omitempty"`
	Telegram            TelegramInfo `gorm:"type:json;serializer:json" json:"telegram"`
	Products            []Enrollment `gorm:"type:json;serializer:json" json:"products"`
	IsActive            bool         `gorm:"not null;default:true;index" json:"is_active"`
	LastSyncAt          *time.Time   `gorm:"type:timestamp;default:null" json:"last_sync_at,omitempty"`
	CreatedAt           time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email for identity matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasActiveEnrollment reports whether at least one product entry is active.
func (s *Student) HasActiveEnrollment() bool {
	for _, e := range s.Products {
		if e.Status == EnrollmentStatusActive {
			return true
		}
	}
	return false
}

// ShouldBeInGroup derives whether the student is entitled to group
// membership. This is recomputed, never stored.
func (s *Student) ShouldBeInGroup() bool {
	return s.IsActive && s.HasActiveEnrollment()
}

// FindEnrollment returns the index of the enrollment matching the given sale
// id, falling back to (productID, enrolledAt) equality for historical rows
// that were synced without a sale id. Returns -1 if nothing matches.
func (s *Student) FindEnrollment(saleID string, productID uint, enrolledAt time.Time) int {
	if saleID != "" {
		for i, e := range s.Products {
			if e.SaleID == saleID {
				return i
			}
		}
	}
	for i, e := range s.Products {
		if e.ProductID == productID && e.EnrolledAt.UTC().Equal(enrolledAt.UTC()) {
			return i
		}
	}
	return -1
}
