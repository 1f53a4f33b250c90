package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/internal/pkg/metrics/counter"
	"github.com/AlunoSync/AlunoSync/internal/pkg/platform"
	"github.com/google/uuid"
)

// DefaultSyncLookback is how far back the sales pull reaches when the caller
// does not say otherwise.
const DefaultSyncLookback = 7 * 24 * time.Hour

// SyncOptions scope one sales sync run. UserID 0 means all users.
type SyncOptions struct {
	UserID   uint
	Lookback time.Duration
}

// SyncSales pulls recent Kiwify sales for the scoped users and feeds every
// paid sale through the student merge. Per-item failures are collected, the
// run itself only fails on a scoping error.
func (s *Service) SyncSales(ctx context.Context, kiwify KiwifyAPI, opts SyncOptions) (*SyncResults, error) {
	results := &SyncResults{
		RunID:   uuid.New().String(),
		Errors:  []string{},
		Details: []string{},
	}

	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = DefaultSyncLookback
	}

	users, err := s.usersInScope(opts.UserID)
	if err != nil {
		return nil, err
	}

	endDate := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")
	startDate := time.Now().UTC().Add(-lookback).Format("2006-01-02")

	for _, user := range users {
		if ok := s.acquireLease(ctx, user.ID, results); !ok {
			continue
		}
		s.syncUserSales(ctx, kiwify, user, startDate, endDate, results)
		s.locks.Release(ctx, user.ID)
	}

	counter.AddSync(counter.FieldSalesProcessed, results.SalesProcessed)
	counter.AddSync(counter.FieldStudentsCreated, results.StudentsCreated)
	counter.AddSync(counter.FieldStudentsUpdated, results.StudentsUpdated)
	counter.AddSync(counter.FieldSyncErrors, len(results.Errors))

	log.Printf("[sync %s] done: created=%d updated=%d processed=%d errors=%d",
		results.RunID, results.StudentsCreated, results.StudentsUpdated, results.SalesProcessed, len(results.Errors))
	return results, nil
}

func (s *Service) usersInScope(userID uint) ([]models.User, error) {
	if userID != 0 {
		user, err := s.repos.User.GetByID(userID)
		if err != nil {
			return nil, fmt.Errorf("lookup user %d: %w", userID, err)
		}
		if user == nil {
			return nil, fmt.Errorf("user %d not found", userID)
		}
		return []models.User{*user}, nil
	}
	return s.repos.User.List()
}

func (s *Service) acquireLease(ctx context.Context, userID uint, results *SyncResults) bool {
	if s.locks == nil {
		return true
	}
	ok, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		results.Errors = append(results.Errors, fmt.Sprintf("lease for user %d: %v", userID, err))
		return false
	}
	if !ok {
		results.Details = append(results.Details, fmt.Sprintf("sync already running for user %d, skipped", userID))
		return false
	}
	return true
}

func (s *Service) syncUserSales(ctx context.Context, kiwify KiwifyAPI, user models.User, startDate, endDate string, results *SyncResults) {
	products, err := s.repos.Product.ListByUserAndPlatform(user.ID, platform.Kiwify)
	if err != nil {
		results.Errors = append(results.Errors, fmt.Sprintf("list products for %s: %v", user.Email, err))
		return
	}
	if len(products) == 0 {
		results.Details = append(results.Details, fmt.Sprintf("user %s has no products", user.Email))
		return
	}

	for i := range products {
		product := &products[i]
		rows, err := kiwify.ListSales(ctx, platform.SalesQuery{
			StartDate: startDate,
			EndDate:   endDate,
			ProductID: product.KiwifyID,
		})
		if err != nil {
			results.Errors = append(results.Errors, fmt.Sprintf("fetch sales for product %s: %v", product.Name, err))
			continue
		}

		for _, row := range rows {
			ns := NormalizeKiwifySaleRow(row)
			if ns.Status != models.SaleStatusPaid {
				continue
			}
			results.SalesProcessed++

			if err := s.mergeSyncedSale(ns, product, user.ID, results); err != nil {
				results.Errors = append(results.Errors, fmt.Sprintf("sale %s: %v", ns.SaleID, err))
			}
		}
	}
}

// mergeSyncedSale applies one paid sale from a sync pull: upsert the student
// plus enrollment, then record the Sale row. Unlike the webhook path, no
// invite is generated here; the sweep and webhook own membership movement.
func (s *Service) mergeSyncedSale(ns NormalizedSale, product *models.Product, userID uint, results *SyncResults) error {
	if ns.Customer.Email == "" {
		return fmt.Errorf("missing customer email")
	}

	student, err := s.repos.Student.GetByIdentity(userID, ns.Platform, ns.Customer.Email)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	created := student == nil
	if created {
		student = &models.Student{
			UserID:   userID,
			Platform: ns.Platform,
			Email:    ns.Customer.Email,
			Telegram: models.TelegramInfo{Status: models.TelegramStatusPending},
		}
	}

	patchFromSale(ns).Apply(student)
	enrollmentFromSale(ns, product.ID, models.EnrollmentStatusActive).Upsert(student)
	student.IsActive = true
	student.LastSyncAt = &now

	if created {
		err = s.repos.Student.Create(student)
	} else {
		err = s.repos.Student.Save(student)
	}
	if err != nil {
		return err
	}

	if created {
		results.StudentsCreated++
		results.Details = append(results.Details, fmt.Sprintf("Created student %s for product %s", student.Name, product.Name))
	} else {
		results.StudentsUpdated++
		results.Details = append(results.Details, fmt.Sprintf("Updated student %s for product %s", student.Name, product.Name))
	}

	return s.repos.Sale.Upsert(saleFromNormalized(ns, product, userID))
}

// SyncHotmartStudents pulls Hotmart subscriptions for the scoped users and
// merges them into the student records. Rows without a matching local product
// are skipped, counted, and reported, not fatal.
func (s *Service) SyncHotmartStudents(ctx context.Context, hotmart HotmartAPI, userID uint) ([]HotmartUserResult, error) {
	users, err := s.usersInScope(userID)
	if err != nil {
		return nil, err
	}

	var out []HotmartUserResult
	for _, user := range users {
		res := HotmartUserResult{UserID: user.ID, Email: user.Email, Success: true}

		rows, err := hotmart.ListSubscriptions(ctx)
		if err != nil {
			res.Success = false
			res.Error = err.Error()
			out = append(out, res)
			continue
		}
		res.Total = len(rows)

		for _, row := range rows {
			ns := NormalizeHotmartSubscription(row)
			created, err := s.mergeHotmartSubscription(ns, user.ID)
			if err != nil {
				if err == errProductNotLocal {
					res.Skipped++
					continue
				}
				log.Printf("[hotmart sync] subscriber %s for user %d: %v", ns.SaleID, user.ID, err)
				continue
			}
			if created {
				res.Created++
			} else {
				res.Updated++
			}
		}
		out = append(out, res)
	}
	return out, nil
}

var errProductNotLocal = fmt.Errorf("product not registered locally")

func (s *Service) mergeHotmartSubscription(ns NormalizedSale, userID uint) (bool, error) {
	if ns.Customer.Email == "" {
		return false, fmt.Errorf("missing subscriber email")
	}

	product, err := s.repos.Product.GetByHotmartID(userID, ns.ProductNative)
	if err != nil {
		return false, err
	}
	if product == nil {
		return false, errProductNotLocal
	}

	student, err := s.repos.Student.GetByHotmartSubscriberID(userID, ns.Customer.PlatformCustomerID)
	if err != nil {
		return false, err
	}
	if student == nil {
		student, err = s.repos.Student.GetByIdentity(userID, ns.Platform, ns.Customer.Email)
		if err != nil {
			return false, err
		}
	}

	active := ns.Status == models.SaleStatusPaid
	enrollStatus := models.EnrollmentStatusExpired
	if active {
		enrollStatus = models.EnrollmentStatusActive
	}

	now := time.Now().UTC()
	created := student == nil
	if created {
		student = &models.Student{
			UserID:   userID,
			Platform: ns.Platform,
			Email:    ns.Customer.Email,
			Telegram: models.TelegramInfo{Status: models.TelegramStatusPending},
		}
	}

	patchFromSale(ns).Apply(student)
	enrollmentFromSale(ns, product.ID, enrollStatus).Upsert(student)
	student.IsActive = active
	student.LastSyncAt = &now

	if created {
		err = s.repos.Student.Create(student)
	} else {
		err = s.repos.Student.Save(student)
	}
	return created, err
}
