package reconcile

import (
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/internal/pkg/platform"
)

// StudentPatch carries the identity fields a sale refreshes on its student.
// Last write wins; empty fields never blank out existing data.
type StudentPatch struct {
	Name      string
	Phone     string
	CPF       string
	CNPJ      string
	Instagram string
	Country   string
	Address   *models.Address

	KiwifyCustomerID    string
	HotmartSubscriberID string
}

func patchFromSale(ns NormalizedSale) StudentPatch {
	p := StudentPatch{
		Name:      ns.Customer.Name,
		Phone:     ns.Customer.Phone,
		CPF:       ns.Customer.CPF,
		CNPJ:      ns.Customer.CNPJ,
		Instagram: ns.Customer.Instagram,
		Country:   ns.Customer.Country,
		Address:   ns.Customer.Address,
	}
	switch ns.Platform {
	case platform.Kiwify:
		p.KiwifyCustomerID = ns.Customer.PlatformCustomerID
	case platform.Hotmart:
		p.HotmartSubscriberID = ns.Customer.PlatformCustomerID
	}
	return p
}

// Apply merges the patch into the student record.
func (p StudentPatch) Apply(s *models.Student) {
	setIf := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setIf(&s.Name, p.Name)
	setIf(&s.Phone, p.Phone)
	setIf(&s.CPF, p.CPF)
	setIf(&s.CNPJ, p.CNPJ)
	setIf(&s.Instagram, p.Instagram)
	setIf(&s.Country, p.Country)
	setIf(&s.KiwifyCustomerID, p.KiwifyCustomerID)
	setIf(&s.HotmartSubscriberID, p.HotmartSubscriberID)
	if p.Address != nil {
		s.Address = p.Address
	}
}

// EnrollmentPatch is one product grant derived from a sale.
type EnrollmentPatch struct {
	ProductID     uint
	ProductName   string
	EnrolledAt    time.Time
	Status        string
	SaleID        string
	SaleReference string
	PaymentMethod string
	Amount        int64
}

func enrollmentFromSale(ns NormalizedSale, productID uint, status string) EnrollmentPatch {
	return EnrollmentPatch{
		ProductID:     productID,
		ProductName:   ns.ProductName,
		EnrolledAt:    ns.EnrolledAt,
		Status:        status,
		SaleID:        ns.SaleID,
		SaleReference: ns.SaleReference,
		PaymentMethod: ns.PaymentMethod,
		Amount:        ns.NetAmount,
	}
}

// Upsert merges the patch into the student's enrollment list: overwrite the
// entry matched by sale id (or product + enrollment time), otherwise append.
// Returns true when a new entry was appended.
func (p EnrollmentPatch) Upsert(s *models.Student) bool {
	entry := models.Enrollment{
		ProductID:     p.ProductID,
		ProductName:   p.ProductName,
		EnrolledAt:    p.EnrolledAt,
		Status:        p.Status,
		SaleID:        p.SaleID,
		SaleReference: p.SaleReference,
		PaymentMethod: p.PaymentMethod,
		Amount:        p.Amount,
	}
	if i := s.FindEnrollment(p.SaleID, p.ProductID, p.EnrolledAt); i >= 0 {
		s.Products[i] = entry
		return false
	}
	s.Products = append(s.Products, entry)
	return true
}
