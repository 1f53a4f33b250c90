package repository

import (
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository creates a new student repository instance
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Create(student *models.Student) error {
	return r.db.Create(student).Error
}

func (r *studentRepository) Save(student *models.Student) error {
	return r.db.Save(student).Error
}

func (r *studentRepository) GetByID(id uint) (*models.Student, error) {
	var student models.Student
	err := r.db.First(&student, id).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// GetByIdentity resolves a student by the canonical (owner, platform, email)
// identity key. Missing students are (nil, nil), not an error.
func (r *studentRepository) GetByIdentity(userID uint, platform, email string) (*models.Student, error) {
	var student models.Student
	err := r.db.Where("user_id = ? AND platform = ? AND email = ?", userID, platform, models.NormalizeEmail(email)).
		First(&student).Error
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &student, nil
}

func (r *studentRepository) GetByEmail(email string) (*models.Student, error) {
	var student models.Student
	err := r.db.Where("email = ?", models.NormalizeEmail(email)).First(&student).Error
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &student, nil
}

func (r *studentRepository) GetByTelegramUserID(telegramUserID int64) (*models.Student, error) {
	var student models.Student
	err := r.db.Where(datatypes.JSONQuery("telegram").Equals(telegramUserID, "user_id")).
		First(&student).Error
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &student, nil
}

func (r *studentRepository) GetByHotmartSubscriberID(userID uint, subscriberID string) (*models.Student, error) {
	var student models.Student
	err := r.db.Where("user_id = ? AND hotmart_subscriber_id = ?", userID, subscriberID).
		First(&student).Error
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &student, nil
}

// FindJoinCandidate matches a group-join webhook to a student: first by the
// telegram username, otherwise any record still waiting on a pending invite.
func (r *studentRepository) FindJoinCandidate(username string) (*models.Student, error) {
	if username != "" {
		var student models.Student
		err := r.db.Where(datatypes.JSONQuery("telegram").Equals(username, "username")).
			First(&student).Error
		if err == nil {
			return &student, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	var student models.Student
	err := r.db.Where(datatypes.JSONQuery("telegram").Equals(models.TelegramStatusPending, "status")).
		Order("updated_at DESC").
		First(&student).Error
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return &student, nil
}

func (r *studentRepository) ListByUser(userID uint, platform string) ([]models.Student, error) {
	var students []models.Student
	q := r.db.Where("user_id = ?", userID)
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	err := q.Order("created_at DESC").Find(&students).Error
	return students, err
}

// ListWithTelegram returns students with a captured telegram user id,
// optionally scoped to one owner (userID == 0 means all tenants).
func (r *studentRepository) ListWithTelegram(userID uint) ([]models.Student, error) {
	var students []models.Student
	q := r.db.Where(datatypes.JSONQuery("telegram").HasKey("user_id"))
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Find(&students).Error
	return students, err
}

// SetSaleEnrollmentStatus flips the enrollments tied to one sale from
// fromStatus to toStatus, inside a transaction so racing sync passes do not
// clobber each other's enrollment lists. Enrollments match by sale id first;
// when no entry carries that sale id (historical synced rows), the product id
// is the fallback. Enrollments of other sales are never touched.
func (r *studentRepository) SetSaleEnrollmentStatus(studentID uint, saleID string, productID uint, fromStatus, toStatus string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var student models.Student
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&student, studentID).Error; err != nil {
			return err
		}
		changed := false
		for _, i := range matchSaleEnrollments(student.Products, saleID, productID) {
			if fromStatus != "" && student.Products[i].Status != fromStatus {
				continue
			}
			if student.Products[i].Status != toStatus {
				student.Products[i].Status = toStatus
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return tx.Save(&student).Error
	})
}

func matchSaleEnrollments(enrollments []models.Enrollment, saleID string, productID uint) []int {
	var matched []int
	if saleID != "" {
		for i := range enrollments {
			if enrollments[i].SaleID == saleID {
				matched = append(matched, i)
			}
		}
	}
	if len(matched) == 0 && productID != 0 {
		for i := range enrollments {
			if enrollments[i].SaleID == "" && enrollments[i].ProductID == productID {
				matched = append(matched, i)
			}
		}
	}
	return matched
}

// TelegramStatusCounts aggregates students per telegram status for one owner.
func (r *studentRepository) TelegramStatusCounts(userID uint) (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := r.db.Model(&models.Student{}).
		Select("JSON_UNQUOTE(JSON_EXTRACT(telegram, '$.status')) AS status, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func (r *studentRepository) LastSyncAt(userID uint) (*time.Time, error) {
	var student models.Student
	err := r.db.Where("user_id = ? AND last_sync_at IS NOT NULL", userID).
		Order("last_sync_at DESC").
		First(&student).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return student.LastSyncAt, nil
}

func (r *studentRepository) CountByUser(userID uint, activeOnly bool) (int64, error) {
	var count int64
	q := r.db.Model(&models.Student{}).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Count(&count).Error
	return count, err
}
