package reconcile

import (
	"strconv"
	"strings"
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/internal/pkg/platform"
)

// Webhook event names that feed the engine. Anything else is acknowledged
// and ignored.
const (
	EventSaleApproved   = "sale.approved"
	EventSaleRefused    = "sale.refused"
	EventSaleRefunded   = "sale.refunded"
	EventSaleChargeback = "sale.chargeback"
)

// IsHandledKiwifyEvent reports whether a webhook event name drives any state.
func IsHandledKiwifyEvent(event string) bool {
	switch event {
	case EventSaleApproved, EventSaleRefused, EventSaleRefunded, EventSaleChargeback:
		return true
	}
	return false
}

// KiwifyEventStatus maps a webhook event name to a sale status. Unknown
// events map to pending so a forward-incompatible payload never grants or
// revokes access.
func KiwifyEventStatus(event string) string {
	switch event {
	case EventSaleApproved:
		return models.SaleStatusPaid
	case EventSaleRefused:
		return models.SaleStatusRefused
	case EventSaleRefunded:
		return models.SaleStatusRefunded
	case EventSaleChargeback:
		return models.SaleStatusChargeback
	default:
		return models.SaleStatusPending
	}
}

// KiwifySaleStatus maps an API sale row status to the local sale status.
func KiwifySaleStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "approved":
		return models.SaleStatusPaid
	case "canceled", "refused":
		return models.SaleStatusRefused
	case "refunded":
		return models.SaleStatusRefunded
	case "chargeback":
		return models.SaleStatusChargeback
	default:
		return models.SaleStatusPending
	}
}

// KiwifyEventCustomer is the customer block of a Kiwify webhook payload.
type KiwifyEventCustomer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Mobile    string `json:"mobile"`
	CPF       string `json:"cpf"`
	CNPJ      string `json:"cnpj"`
	Instagram string `json:"instagram"`
	Country   string `json:"country"`
	Address   *struct {
		Street       string `json:"street"`
		Number       string `json:"number"`
		Complement   string `json:"complement"`
		Neighborhood string `json:"neighborhood"`
		City         string `json:"city"`
		State        string `json:"state"`
		Zipcode      string `json:"zipcode"`
	} `json:"address"`
}

// KiwifySaleEvent is the data block of a Kiwify sale webhook.
type KiwifySaleEvent struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Product   struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"product"`
	Customer      KiwifyEventCustomer `json:"customer"`
	Amount        int64               `json:"amount"`
	NetAmount     int64               `json:"net_amount"`
	Commission    int64               `json:"commission"`
	PaymentMethod string              `json:"payment_method"`
	Installments  int                 `json:"installments"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
	ApprovedAt    string              `json:"approved_at"`
}

func (c KiwifyEventCustomer) normalized() NormalizedCustomer {
	phone := c.Mobile
	if phone == "" {
		phone = c.Phone
	}
	out := NormalizedCustomer{
		PlatformCustomerID: c.ID,
		Name:               strings.TrimSpace(c.Name),
		Email:              models.NormalizeEmail(c.Email),
		Phone:              phone,
		CPF:                c.CPF,
		CNPJ:               c.CNPJ,
		Instagram:          c.Instagram,
		Country:            c.Country,
	}
	if c.Address != nil {
		out.Address = &models.Address{
			Street:       c.Address.Street,
			Number:       c.Address.Number,
			Complement:   c.Address.Complement,
			Neighborhood: c.Address.Neighborhood,
			City:         c.Address.City,
			State:        c.Address.State,
			Zipcode:      c.Address.Zipcode,
		}
	}
	return out
}

// Normalize reduces the webhook payload to the engine's input shape. The
// status comes from the event name, not the payload.
func (e KiwifySaleEvent) Normalize(event string, raw []byte) NormalizedSale {
	amount := e.NetAmount
	if amount == 0 {
		amount = e.Amount
	}
	return NormalizedSale{
		Platform:      platform.Kiwify,
		SaleID:        e.ID,
		SaleReference: e.Reference,
		ProductNative: e.Product.ID,
		ProductName:   e.Product.Name,
		Customer:      e.Customer.normalized(),
		Status:        KiwifyEventStatus(event),
		Amount:        amount,
		NetAmount:     e.NetAmount,
		Commission:    e.Commission,
		PaymentMethod: e.PaymentMethod,
		Installments:  e.Installments,
		EnrolledAt:    parseTime(e.CreatedAt),
		RawPayload:    raw,
	}
}

// NormalizeKiwifySaleRow reduces an API sale row fetched during sync.
func NormalizeKiwifySaleRow(row platform.KiwifySaleRow) NormalizedSale {
	amount := row.NetAmount
	if amount == 0 {
		amount = row.Amount
	}
	return NormalizedSale{
		Platform:      platform.Kiwify,
		SaleID:        row.ID,
		ProductNative: row.ProductID,
		ProductName:   row.ProductName,
		Customer: NormalizedCustomer{
			Name:  strings.TrimSpace(row.Customer.Name),
			Email: models.NormalizeEmail(row.Customer.Email),
			Phone: row.Customer.Phone,
		},
		Status:        KiwifySaleStatus(row.Status),
		Amount:        amount,
		NetAmount:     row.NetAmount,
		Commission:    row.Commission,
		PaymentMethod: row.PaymentMethod,
		Installments:  row.Installments,
		EnrolledAt:    parseTime(row.CreatedAt),
	}
}

// NormalizeHotmartSubscription reduces a subscription row. The enrollment is
// active only while Hotmart reports the subscription as ACTIVE.
func NormalizeHotmartSubscription(row platform.HotmartSubscriptionRow) NormalizedSale {
	status := models.SaleStatusRefused
	if strings.EqualFold(row.Status, "ACTIVE") {
		status = models.SaleStatusPaid
	}
	return NormalizedSale{
		Platform:      platform.Hotmart,
		SaleID:        row.SubscriberCode,
		ProductNative: strconv.FormatInt(row.Product.ID, 10),
		ProductName:   row.Product.Name,
		Customer: NormalizedCustomer{
			PlatformCustomerID: row.Subscriber.Code,
			Name:               strings.TrimSpace(row.Subscriber.Name),
			Email:              models.NormalizeEmail(row.Subscriber.Email),
			Phone:              row.Subscriber.Phone,
		},
		Status:     status,
		Amount:     int64(row.Price.Value * 100),
		NetAmount:  int64(row.Price.Value * 100),
		EnrolledAt: time.UnixMilli(row.AccessionDate).UTC(),
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
