package repository

import (
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	List() ([]models.User, error)
	Count() (int64, error)
}

// ProductRepository defines the interface for product-related database operations
type ProductRepository interface {
	Upsert(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	GetByKiwifyID(kiwifyID string) (*models.Product, error)
	GetByHotmartID(userID uint, hotmartID string) (*models.Product, error)
	ListByUser(userID uint) ([]models.Product, error)
	ListByUserAndPlatform(userID uint, platform string) ([]models.Product, error)
	Update(product *models.Product) error
}

// SaleRepository defines the interface for sale-related database operations
type SaleRepository interface {
	Upsert(sale *models.Sale) error
	GetByPlatformSaleID(platformSaleID string) (*models.Sale, error)
	ListPaidByCustomerEmail(email string) ([]models.Sale, error)
	ListByUser(userID uint, offset, limit int) ([]models.Sale, error)
	CountByUser(userID uint) (int64, error)
}

// StudentRepository defines the interface for student-related database operations
type StudentRepository interface {
	Create(student *models.Student) error
	Save(student *models.Student) error
	GetByID(id uint) (*models.Student, error)
	GetByIdentity(userID uint, platform, email string) (*models.Student, error)
	GetByEmail(email string) (*models.Student, error)
	GetByTelegramUserID(telegramUserID int64) (*models.Student, error)
	GetByHotmartSubscriberID(userID uint, subscriberID string) (*models.Student, error)
	FindJoinCandidate(username string) (*models.Student, error)
	ListByUser(userID uint, platform string) ([]models.Student, error)
	ListWithTelegram(userID uint) ([]models.Student, error)
	SetSaleEnrollmentStatus(studentID uint, saleID string, productID uint, fromStatus, toStatus string) error
	TelegramStatusCounts(userID uint) (map[string]int64, error)
	LastSyncAt(userID uint) (*time.Time, error)
	CountByUser(userID uint, activeOnly bool) (int64, error)
}

// WebhookEventRepository persists inbound webhook payloads idempotently
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Product      ProductRepository
	Sale         SaleRepository
	Student      StudentRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Product:      NewProductRepository(db),
		Sale:         NewSaleRepository(db),
		Student:      NewStudentRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
