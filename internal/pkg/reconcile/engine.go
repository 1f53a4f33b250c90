package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/app/repository"
)

// Service drives all reconciliation between platform sales and the local
// student records plus their Telegram membership.
type Service struct {
	repos   *repository.Repositories
	gateway Gateway
	mailer  Mailer
	locks   Locker
}

func NewService(repos *repository.Repositories, gateway Gateway, mailer Mailer, locks Locker) *Service {
	return &Service{repos: repos, gateway: gateway, mailer: mailer, locks: locks}
}

// HandleSaleEvent ingests one Kiwify webhook sale event: the sale is always
// recorded, then group membership follows the status. Gateway problems are
// logged, never returned, so the webhook still acknowledges.
func (s *Service) HandleSaleEvent(ctx context.Context, event string, data KiwifySaleEvent, raw []byte) error {
	ns := data.Normalize(event, raw)

	product, err := s.repos.Product.GetByKiwifyID(ns.ProductNative)
	if err != nil {
		return fmt.Errorf("lookup product %s: %w", ns.ProductNative, err)
	}

	sale := &models.Sale{
		Platform:       ns.Platform,
		PlatformSaleID: ns.SaleID,
		ProductName:    ns.ProductName,
		Customer: models.SaleCustomer{
			Name:  ns.Customer.Name,
			Email: ns.Customer.Email,
			Phone: ns.Customer.Phone,
		},
		Status:        ns.Status,
		Amount:        ns.Amount,
		NetAmount:     ns.NetAmount,
		Commission:    ns.Commission,
		PaymentMethod: ns.PaymentMethod,
		Installments:  ns.Installments,
		RawPayload:    ns.RawPayload,
	}
	if product != nil {
		sale.ProductID = &product.ID
		sale.UserID = product.UserID
	}
	if ns.Status == models.SaleStatusPaid {
		now := time.Now().UTC()
		sale.ApprovedAt = &now
	}
	if err := s.repos.Sale.Upsert(sale); err != nil {
		return fmt.Errorf("upsert sale %s: %w", ns.SaleID, err)
	}
	log.Printf("[reconcile] sale %s recorded with status %s", ns.SaleID, ns.Status)

	if ns.Customer.Email == "" {
		log.Printf("[reconcile] sale %s has no customer email, skipping group membership", ns.SaleID)
		return nil
	}

	switch ns.Status {
	case models.SaleStatusPaid:
		if product == nil {
			log.Printf("[reconcile] sale %s references unknown product %s, membership skipped", ns.SaleID, ns.ProductNative)
			return nil
		}
		s.handleStudentAdded(ctx, ns, product)
	case models.SaleStatusRefunded, models.SaleStatusChargeback:
		s.handleStudentRemoved(ctx, ns, product)
	}
	return nil
}

// handleStudentAdded upserts the student for a paid sale and hands them an
// invite link. Telegram or mail failures downgrade the telegram status but
// never bubble up.
func (s *Service) handleStudentAdded(ctx context.Context, ns NormalizedSale, product *models.Product) {
	student, err := s.repos.Student.GetByIdentity(product.UserID, ns.Platform, ns.Customer.Email)
	if err != nil {
		log.Printf("[reconcile] lookup student %s: %v", ns.Customer.Email, err)
		return
	}

	now := time.Now().UTC()
	created := false
	if student == nil {
		student = &models.Student{
			UserID:   product.UserID,
			Platform: ns.Platform,
			Email:    ns.Customer.Email,
			Telegram: models.TelegramInfo{Status: models.TelegramStatusPending},
		}
		created = true
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
		log.Printf("[reconcile] persist student %s: %v", ns.Customer.Email, err)
		return
	}

	// An already confirmed member needs no new invite.
	if student.Telegram.Status == models.TelegramStatusActive {
		return
	}

	result := s.gateway.AddStudentToGroup(ctx, student.Name, student.Email)
	if result.Success && result.InviteLink != "" {
		student.Telegram.Status = models.TelegramStatusPending
		s.deliverInvite(ctx, student, result.InviteLink, ns.ProductName)
	} else {
		log.Printf("[reconcile] invite generation failed for %s: %s", student.Email, result.Err)
		student.Telegram.Status = models.TelegramStatusFailed
	}
	if err := s.repos.Student.Save(student); err != nil {
		log.Printf("[reconcile] persist telegram status for %s: %v", student.Email, err)
	}
}

func (s *Service) deliverInvite(ctx context.Context, student *models.Student, link, productName string) {
	if s.mailer != nil {
		if err := s.mailer.SendInviteLink(student.Email, student.Name, link, productName); err != nil {
			log.Printf("[reconcile] invite mail to %s failed: %v", student.Email, err)
		}
	} else {
		log.Printf("[reconcile] invite link for %s (%s): %s", student.Name, student.Email, link)
	}
	if s.gateway != nil {
		if err := s.gateway.SendWelcomeMessage(ctx, student.Name, link, productName); err != nil {
			log.Printf("[reconcile] welcome message failed for %s: %v", student.Email, err)
		}
	}
}

// handleStudentRemoved processes a refund or chargeback. Removal from the
// group only happens when no other paid sale keeps the student entitled;
// otherwise only the refunded sale's own enrollments flip to refunded and
// everything else, membership included, stays untouched.
func (s *Service) handleStudentRemoved(ctx context.Context, ns NormalizedSale, product *models.Product) {
	email := ns.Customer.Email
	student, err := s.repos.Student.GetByEmail(email)
	if err != nil {
		log.Printf("[reconcile] lookup student %s: %v", email, err)
		return
	}
	if student == nil {
		log.Printf("[reconcile] student not found for removal: %s", email)
		return
	}

	paidSales, err := s.repos.Sale.ListPaidByCustomerEmail(email)
	if err != nil {
		log.Printf("[reconcile] list paid sales for %s: %v", email, err)
		return
	}

	if len(paidSales) > 0 {
		log.Printf("[reconcile] %s still has %d paid sale(s), only flagging sale %s", email, len(paidSales), ns.SaleID)
		var productID uint
		if product != nil {
			productID = product.ID
		}
		if err := s.repos.Student.SetSaleEnrollmentStatus(student.ID, ns.SaleID, productID, models.EnrollmentStatusActive, models.EnrollmentStatusRefunded); err != nil {
			log.Printf("[reconcile] flag refunded enrollment for %s: %v", email, err)
		}
		return
	}

	removeReason := "Subscription refunded"
	if ns.Status == models.SaleStatusChargeback {
		removeReason = "Payment chargeback"
	}

	if student.Telegram.UserID != 0 {
		result := s.gateway.RemoveStudentFromGroup(ctx, student.Telegram.UserID, removeReason)
		if !result.Success {
			log.Printf("[reconcile] failed to remove %s from group: %s", email, result.Err)
			return
		}
		now := time.Now().UTC()
		student.Telegram.Status = models.TelegramStatusRemoved
		student.Telegram.RemovedAt = &now
	}

	student.IsActive = false
	for i := range student.Products {
		student.Products[i].Status = models.EnrollmentStatusExpired
	}
	if err := s.repos.Student.Save(student); err != nil {
		log.Printf("[reconcile] persist removal for %s: %v", email, err)
	}
}

// saleFromNormalized builds the Sale row written during syncs.
func saleFromNormalized(ns NormalizedSale, product *models.Product, userID uint) *models.Sale {
	sale := &models.Sale{
		Platform:       ns.Platform,
		PlatformSaleID: ns.SaleID,
		ProductName:    ns.ProductName,
		Customer: models.SaleCustomer{
			Name:  ns.Customer.Name,
			Email: ns.Customer.Email,
			Phone: ns.Customer.Phone,
		},
		Status:        ns.Status,
		Amount:        ns.Amount,
		NetAmount:     ns.NetAmount,
		Commission:    ns.Commission,
		PaymentMethod: ns.PaymentMethod,
		Installments:  ns.Installments,
		UserID:        userID,
	}
	if product != nil {
		sale.ProductID = &product.ID
	}
	if ns.Status == models.SaleStatusPaid {
		now := time.Now().UTC()
		sale.ApprovedAt = &now
	}
	return sale
}
