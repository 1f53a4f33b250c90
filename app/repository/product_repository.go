package repository

import (
	"github.com/AlunoSync/AlunoSync/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Upsert creates the product or, when the (platform, native id) pair already
// exists, overwrites the fields that change on re-sync.
func (r *productRepository) Upsert(product *models.Product) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "platform"},
			{Name: "kiwify_id"},
			{Name: "hotmart_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"description",
			"price",
			"status",
			"image_url",
			"last_sync_at",
			"updated_at",
		}),
	}).Create(product).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("platform = ? AND kiwify_id = ? AND hotmart_id = ?",
		product.Platform, product.KiwifyID, product.HotmartID).
		First(product).Error
}

func (r *productRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &product, nil
}

// GetByKiwifyID resolves a local product by its Kiwify native id. A sale for
// an unregistered product is valid, so missing rows are (nil, nil).
func (r *productRepository) GetByKiwifyID(kiwifyID string) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("platform = ? AND kiwify_id = ?", models.PlatformKiwify, kiwifyID).First(&product).Error
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &product, nil
}

func (r *productRepository) GetByHotmartID(userID uint, hotmartID string) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("platform = ? AND hotmart_id = ? AND user_id = ?", models.PlatformHotmart, hotmartID, userID).
		First(&product).Error
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &product, nil
}

func (r *productRepository) ListByUser(userID uint) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Where("user_id = ?", userID).Order("id").Find(&products).Error
	return products, err
}

func (r *productRepository) ListByUserAndPlatform(userID uint, platform string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Where("user_id = ? AND platform = ?", userID, platform).Order("id").Find(&products).Error
	return products, err
}

func (r *productRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}
