package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
)

func approvedEvent(saleID, productID, email string) KiwifySaleEvent {
	ev := KiwifySaleEvent{
		ID:            saleID,
		Reference:     "ref-" + saleID,
		Amount:        19900,
		NetAmount:     17900,
		Commission:    2000,
		PaymentMethod: "credit_card",
		Installments:  3,
		CreatedAt:     "2026-03-01T10:00:00Z",
	}
	ev.Product.ID = productID
	ev.Product.Name = "Curso Completo"
	ev.Customer = KiwifyEventCustomer{
		ID:     "cust-1",
		Name:   "Maria Silva",
		Email:  email,
		Mobile: "+5511999990000",
		CPF:    "123.456.789-00",
	}
	return ev
}

func seedKiwifyProduct(products *fakeProductRepo, userID uint, kiwifyID string) *models.Product {
	p := &models.Product{
		UserID:   userID,
		Platform: models.PlatformKiwify,
		KiwifyID: kiwifyID,
		Name:     "Curso Completo",
		Status:   models.ProductStatusActive,
	}
	_ = products.Upsert(p)
	return p
}

func TestHandleSaleEventApprovedCreatesStudentAndInvite(t *testing.T) {
	svc, _, products, sales, students, gateway := newTestService()
	seedKiwifyProduct(products, 1, "kw-prod-1")

	ev := approvedEvent("sale-1", "kw-prod-1", "Maria@Example.com")
	if err := svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev, []byte(`{"event":"sale.approved"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sale, _ := sales.GetByPlatformSaleID("sale-1")
	if sale == nil || sale.Status != models.SaleStatusPaid {
		t.Fatalf("expected paid sale recorded, got %+v", sale)
	}
	if sale.ApprovedAt == nil {
		t.Fatalf("expected approvedAt to be set on paid sale")
	}
	if sale.Amount != 17900 {
		t.Fatalf("expected net amount preferred, got %d", sale.Amount)
	}

	student, _ := students.GetByEmail("maria@example.com")
	if student == nil {
		t.Fatalf("expected student to be created")
	}
	if student.Email != "maria@example.com" {
		t.Fatalf("expected lowercased email, got %q", student.Email)
	}
	if !student.IsActive || len(student.Products) != 1 {
		t.Fatalf("expected one active enrollment, got %+v", student.Products)
	}
	enr := student.Products[0]
	if enr.Status != models.EnrollmentStatusActive || enr.SaleID != "sale-1" || enr.SaleReference != "ref-sale-1" {
		t.Fatalf("unexpected enrollment: %+v", enr)
	}
	if student.Telegram.Status != models.TelegramStatusPending {
		t.Fatalf("expected telegram pending, got %q", student.Telegram.Status)
	}
	if gateway.addCalls != 1 {
		t.Fatalf("expected one invite generation, got %d", gateway.addCalls)
	}
	if gateway.welcomeCalls != 1 {
		t.Fatalf("expected one welcome message, got %d", gateway.welcomeCalls)
	}
}

func TestHandleSaleEventIsIdempotent(t *testing.T) {
	svc, _, products, sales, students, _ := newTestService()
	seedKiwifyProduct(products, 1, "kw-prod-1")

	ev := approvedEvent("sale-1", "kw-prod-1", "maria@example.com")
	for i := 0; i < 3; i++ {
		if err := svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev, nil); err != nil {
			t.Fatalf("unexpected error on pass %d: %v", i, err)
		}
	}

	if len(sales.sales) != 1 {
		t.Fatalf("expected a single sale row, got %d", len(sales.sales))
	}
	student, _ := students.GetByEmail("maria@example.com")
	if len(student.Products) != 1 {
		t.Fatalf("expected a single enrollment after re-ingestion, got %d", len(student.Products))
	}
	if len(students.students) != 1 {
		t.Fatalf("expected a single student record, got %d", len(students.students))
	}
}

func TestHandleSaleEventUnknownProductRecordsSaleOnly(t *testing.T) {
	svc, _, _, sales, students, gateway := newTestService()

	ev := approvedEvent("sale-9", "kw-unknown", "maria@example.com")
	if err := svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sale, _ := sales.GetByPlatformSaleID("sale-9")
	if sale == nil || sale.ProductID != nil || sale.UserID != 0 {
		t.Fatalf("expected orphan sale with nil product ref, got %+v", sale)
	}
	if sale.ProductName != "Curso Completo" {
		t.Fatalf("expected product name snapshot, got %q", sale.ProductName)
	}
	if len(students.students) != 0 {
		t.Fatalf("expected no student for unknown product")
	}
	if gateway.addCalls != 0 {
		t.Fatalf("expected no invite for unknown product")
	}
}

func TestHandleSaleEventInviteFailureMarksFailed(t *testing.T) {
	svc, _, products, _, students, gateway := newTestService()
	gateway.failInvite = true
	seedKiwifyProduct(products, 1, "kw-prod-1")

	ev := approvedEvent("sale-1", "kw-prod-1", "maria@example.com")
	if err := svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	student, _ := students.GetByEmail("maria@example.com")
	if student.Telegram.Status != models.TelegramStatusFailed {
		t.Fatalf("expected telegram failed, got %q", student.Telegram.Status)
	}

	// The next approved sale retries the invite: failed goes back to pending.
	gateway.failInvite = false
	if err := svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	student, _ = students.GetByEmail("maria@example.com")
	if student.Telegram.Status != models.TelegramStatusPending {
		t.Fatalf("expected retry to move failed back to pending, got %q", student.Telegram.Status)
	}
}

func TestHandleSaleEventActiveMemberGetsNoNewInvite(t *testing.T) {
	svc, _, products, _, students, gateway := newTestService()
	product := seedKiwifyProduct(products, 1, "kw-prod-1")

	now := time.Now().UTC()
	_ = students.Create(&models.Student{
		UserID:   1,
		Platform: models.PlatformKiwify,
		Email:    "maria@example.com",
		Name:     "Maria Silva",
		IsActive: true,
		Telegram: models.TelegramInfo{UserID: 42, Username: "maria", Status: models.TelegramStatusActive, AddedAt: &now},
		Products: []models.Enrollment{{
			ProductID: product.ID, ProductName: product.Name,
			EnrolledAt: now, Status: models.EnrollmentStatusActive, SaleID: "sale-0",
		}},
	})

	ev := approvedEvent("sale-2", "kw-prod-1", "maria@example.com")
	if err := svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	student, _ := students.GetByEmail("maria@example.com")
	if student.Telegram.Status != models.TelegramStatusActive {
		t.Fatalf("active membership must survive new sales, got %q", student.Telegram.Status)
	}
	if gateway.addCalls != 0 {
		t.Fatalf("expected no invite for an active member, got %d", gateway.addCalls)
	}
	if len(student.Products) != 2 {
		t.Fatalf("expected the new enrollment appended, got %d", len(student.Products))
	}
}

func TestRefundWithOtherPaidSaleOnlyFlagsEnrollments(t *testing.T) {
	svc, _, products, _, students, gateway := newTestService()
	seedKiwifyProduct(products, 1, "kw-prod-1")
	seedKiwifyProduct(products, 1, "kw-prod-2")

	// Two approved sales for the same customer across two products.
	ev1 := approvedEvent("sale-1", "kw-prod-1", "maria@example.com")
	ev2 := approvedEvent("sale-2", "kw-prod-2", "maria@example.com")
	ev2.Product.Name = "Mentoria"
	_ = svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev1, nil)
	_ = svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev2, nil)

	// Refund the first sale. sale-2 stays paid, so no removal happens.
	if err := svc.HandleSaleEvent(context.Background(), EventSaleRefunded, ev1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gateway.removeCalls) != 0 {
		t.Fatalf("expected no group removal while a paid sale remains, got %v", gateway.removeCalls)
	}
	student, _ := students.GetByEmail("maria@example.com")
	if !student.IsActive {
		t.Fatalf("student must stay active while entitled")
	}
	if student.Telegram.Status == models.TelegramStatusRemoved {
		t.Fatalf("membership must be untouched while a paid sale remains")
	}
	for _, e := range student.Products {
		switch e.SaleID {
		case "sale-1":
			if e.Status != models.EnrollmentStatusRefunded {
				t.Fatalf("refunded sale's enrollment must flip, got %+v", e)
			}
		case "sale-2":
			if e.Status != models.EnrollmentStatusActive {
				t.Fatalf("still-paid sale's enrollment must stay active, got %+v", e)
			}
		default:
			t.Fatalf("unexpected enrollment %+v", e)
		}
	}
}

func TestRefundFlagsHistoricalEnrollmentByProduct(t *testing.T) {
	svc, _, products, sales, students, _ := newTestService()
	p1 := seedKiwifyProduct(products, 1, "kw-prod-1")
	p2 := seedKiwifyProduct(products, 1, "kw-prod-2")

	// Synced-in enrollment for p1 carries no sale id; p2's came from a
	// webhook and does.
	now := time.Now().UTC()
	_ = students.Create(&models.Student{
		UserID:   1,
		Platform: models.PlatformKiwify,
		Email:    "maria@example.com",
		Name:     "Maria Silva",
		IsActive: true,
		Telegram: models.TelegramInfo{Status: models.TelegramStatusActive, AddedAt: &now},
		Products: []models.Enrollment{
			{ProductID: p1.ID, ProductName: "Curso Completo", EnrolledAt: now, Status: models.EnrollmentStatusActive},
			{ProductID: p2.ID, ProductName: "Mentoria", EnrolledAt: now, Status: models.EnrollmentStatusActive, SaleID: "sale-2"},
		},
	})
	_ = sales.Upsert(&models.Sale{
		Platform:       models.PlatformKiwify,
		PlatformSaleID: "sale-2",
		ProductName:    "Mentoria",
		Customer:       models.SaleCustomer{Email: "maria@example.com"},
		Status:         models.SaleStatusPaid,
		UserID:         1,
	})

	// Refund the sale behind the historical p1 enrollment.
	ev := approvedEvent("sale-1", "kw-prod-1", "maria@example.com")
	if err := svc.HandleSaleEvent(context.Background(), EventSaleRefunded, ev, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	student, _ := students.GetByEmail("maria@example.com")
	for _, e := range student.Products {
		switch e.ProductID {
		case p1.ID:
			if e.Status != models.EnrollmentStatusRefunded {
				t.Fatalf("expected product fallback to flip the historical enrollment, got %+v", e)
			}
		case p2.ID:
			if e.Status != models.EnrollmentStatusActive {
				t.Fatalf("other sale's enrollment must stay active, got %+v", e)
			}
		}
	}
}

func TestRefundOfLastPaidSaleRemovesFromGroup(t *testing.T) {
	svc, _, products, _, students, gateway := newTestService()
	product := seedKiwifyProduct(products, 1, "kw-prod-1")

	ev := approvedEvent("sale-1", "kw-prod-1", "maria@example.com")
	_ = svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev, nil)

	// Simulate a confirmed join so the student carries a telegram user id.
	student, _ := students.GetByEmail("maria@example.com")
	now := time.Now().UTC()
	student.Telegram = models.TelegramInfo{UserID: 42, Username: "maria", Status: models.TelegramStatusActive, AddedAt: &now}
	_ = students.Save(student)
	_ = product

	if err := svc.HandleSaleEvent(context.Background(), EventSaleRefunded, ev, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gateway.removeCalls) != 1 || gateway.removeCalls[0] != 42 {
		t.Fatalf("expected exactly one group removal for user 42, got %v", gateway.removeCalls)
	}
	student, _ = students.GetByEmail("maria@example.com")
	if student.IsActive {
		t.Fatalf("expected isActive=false after last paid sale is gone")
	}
	if student.Telegram.Status != models.TelegramStatusRemoved || student.Telegram.RemovedAt == nil {
		t.Fatalf("expected telegram removed with timestamp, got %+v", student.Telegram)
	}
	for _, e := range student.Products {
		if e.Status != models.EnrollmentStatusExpired {
			t.Fatalf("expected all enrollments expired, got %+v", e)
		}
	}
}

func TestRefundWithoutTelegramLinkStillDeactivates(t *testing.T) {
	svc, _, products, _, students, gateway := newTestService()
	seedKiwifyProduct(products, 1, "kw-prod-1")

	ev := approvedEvent("sale-1", "kw-prod-1", "maria@example.com")
	_ = svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev, nil)

	if err := svc.HandleSaleEvent(context.Background(), EventSaleChargeback, ev, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gateway.removeCalls) != 0 {
		t.Fatalf("no telegram user id means no gateway call, got %v", gateway.removeCalls)
	}
	student, _ := students.GetByEmail("maria@example.com")
	if student.IsActive {
		t.Fatalf("expected isActive=false")
	}
}

func TestRefundForUnknownStudentIsNoop(t *testing.T) {
	svc, _, products, _, _, gateway := newTestService()
	seedKiwifyProduct(products, 1, "kw-prod-1")

	ev := approvedEvent("sale-1", "kw-prod-1", "ghost@example.com")
	if err := svc.HandleSaleEvent(context.Background(), EventSaleRefunded, ev, nil); err != nil {
		t.Fatalf("refund for unknown student must not error: %v", err)
	}
	if len(gateway.removeCalls) != 0 {
		t.Fatalf("expected no gateway call")
	}
}

func TestHandleSaleEventMissingEmailSkipsMembership(t *testing.T) {
	svc, _, products, sales, students, gateway := newTestService()
	seedKiwifyProduct(products, 1, "kw-prod-1")

	ev := approvedEvent("sale-1", "kw-prod-1", "")
	if err := svc.HandleSaleEvent(context.Background(), EventSaleApproved, ev, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sales.sales) != 1 {
		t.Fatalf("sale must still be recorded")
	}
	if len(students.students) != 0 || gateway.addCalls != 0 {
		t.Fatalf("no membership work without an email")
	}
}
