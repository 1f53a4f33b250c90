package reconcile

import (
	"context"
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/internal/pkg/platform"
	"github.com/AlunoSync/AlunoSync/internal/pkg/telegram"
)

// Gateway is the slice of the Telegram gateway the engine needs. Satisfied by
// *telegram.Gateway and by fakes in tests.
type Gateway interface {
	AddStudentToGroup(ctx context.Context, name, email string) telegram.AddResult
	RemoveStudentFromGroup(ctx context.Context, telegramUserID int64, reason string) telegram.RemoveResult
	IsMember(ctx context.Context, telegramUserID int64) (bool, error)
	ListAdmins(ctx context.Context) ([]telegram.ChatMember, error)
	SendGroupMessage(ctx context.Context, text string) error
	SendWelcomeMessage(ctx context.Context, studentName, inviteLink, productName string) error
}

// KiwifyAPI is the sales-platform surface used during syncs.
type KiwifyAPI interface {
	ListSales(ctx context.Context, q platform.SalesQuery) ([]platform.KiwifySaleRow, error)
}

// HotmartAPI is the subscription surface used during the Hotmart pull.
type HotmartAPI interface {
	ListSubscriptions(ctx context.Context) ([]platform.HotmartSubscriptionRow, error)
}

// Mailer delivers invite links to students. Nil in the engine means the link
// is only logged.
type Mailer interface {
	SendInviteLink(to, studentName, inviteLink, productName string) error
}

// Locker serializes sync runs per account owner.
type Locker interface {
	Acquire(ctx context.Context, userID uint) (bool, error)
	Release(ctx context.Context, userID uint)
}

// NormalizedCustomer is the platform-independent identity snapshot carried by
// a sale. Empty fields mean the platform did not send them.
type NormalizedCustomer struct {
	PlatformCustomerID string
	Name               string
	Email              string
	Phone              string
	CPF                string
	CNPJ               string
	Instagram          string
	Country            string
	Address            *models.Address
}

// NormalizedSale is what every inbound shape (webhook event, API sale row,
// subscription row) is reduced to before the engine touches storage.
type NormalizedSale struct {
	Platform      string
	SaleID        string
	SaleReference string
	ProductNative string
	ProductName   string
	Customer      NormalizedCustomer
	Status        string
	Amount        int64
	NetAmount     int64
	Commission    int64
	PaymentMethod string
	Installments  int
	EnrolledAt    time.Time
	RawPayload    []byte
}

// SyncResults accumulates one sales sync run.
type SyncResults struct {
	RunID           string   `json:"run_id"`
	StudentsCreated int      `json:"students_created"`
	StudentsUpdated int      `json:"students_updated"`
	SalesProcessed  int      `json:"sales_processed"`
	Errors          []string `json:"errors"`
	Details         []string `json:"details"`
}

// SweepResults accumulates one group sweep run.
type SweepResults struct {
	RunID   string   `json:"run_id"`
	Checked int      `json:"checked"`
	Removed int      `json:"removed"`
	Kept    int      `json:"kept"`
	Errors  []string `json:"errors"`
	Details []string `json:"details"`
}

// HotmartUserResult is the per-user outcome of a Hotmart subscription pull.
type HotmartUserResult struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Total   int    `json:"total"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}
