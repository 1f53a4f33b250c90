package repository

import (
	"github.com/AlunoSync/AlunoSync/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type saleRepository struct {
	db *gorm.DB
}

// NewSaleRepository creates a new sale repository instance
func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

// Upsert ingests a sale idempotently: the platform-native sale id is unique,
// re-ingestion overwrites the mutable fields in place.
func (r *saleRepository) Upsert(sale *models.Sale) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform_sale_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id",
			"product_name",
			"customer_name",
			"customer_email",
			"customer_phone",
			"status",
			"amount",
			"net_amount",
			"commission",
			"payment_method",
			"installments",
			"user_id",
			"approved_at",
			"raw_payload",
			"updated_at",
		}),
	}).Create(sale).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("platform_sale_id = ?", sale.PlatformSaleID).First(sale).Error
}

func (r *saleRepository) GetByPlatformSaleID(platformSaleID string) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.Where("platform_sale_id = ?", platformSaleID).First(&sale).Error
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &sale, nil
}

// ListPaidByCustomerEmail returns every sale still at status paid for the
// given customer email. Used to decide whether a refund ends group access.
func (r *saleRepository) ListPaidByCustomerEmail(email string) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.Where("customer_email = ? AND status = ?", models.NormalizeEmail(email), models.SaleStatusPaid).
		Find(&sales).Error
	return sales, err
}

func (r *saleRepository) ListByUser(userID uint, offset, limit int) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error
	return sales, err
}

func (r *saleRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Sale{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
