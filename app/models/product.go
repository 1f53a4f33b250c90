package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	PlatformKiwify  = "kiwify"
	PlatformHotmart = "hotmart"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product is a sellable item on exactly one sales platform. Exactly one of
// KiwifyID / HotmartID is populated; together with Platform they form the
// globally unique platform-native identity.
type Product struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Platform    string     `gorm:"type:varchar(20);not null;index:ux_products_platform_native,unique,priority:1" json:"platform" validate:"oneof=kiwify hotmart"`
	KiwifyID    string     `gorm:"type:varchar(100);not null;default:'';index:ux_products_platform_native,unique,priority:2" json:"kiwify_id,omitempty"`
	HotmartID   string     `gorm:"type:varchar(100);not null;default:'';index:ux_products_platform_native,unique,priority:3" json:"hotmart_id,omitempty"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Price       int64      `gorm:"not null;default:0" json:"price"`
	Status      string     `gorm:"type:varchar(20);not null;default:'active'" json:"status" validate:"oneof=active inactive"`
	ImageURL    string     `gorm:"type:varchar(500)" json:"image_url,omitempty"`
	LastSyncAt  *time.Time `gorm:"type:timestamp;default:null" json:"last_sync_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// NativeID returns the platform-native product id for whichever platform the
// product lives on.
func (p *Product) NativeID() string {
	if p.Platform == PlatformHotmart {
		return p.HotmartID
	}
	return p.KiwifyID
}
