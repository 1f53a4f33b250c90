package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/app/repository"
	"github.com/AlunoSync/AlunoSync/internal/pkg/platform"
	"github.com/AlunoSync/AlunoSync/internal/pkg/telegram"
)

type fakeUserRepo struct {
	users []models.User
}

func (f *fakeUserRepo) Create(u *models.User) error {
	u.ID = uint(len(f.users) + 1)
	f.users = append(f.users, *u)
	return nil
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	for i := range f.users {
		if f.users[i].ID == id {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for i := range f.users {
		if f.users[i].Email == models.NormalizeEmail(email) {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Update(u *models.User) error { return nil }
func (f *fakeUserRepo) List() ([]models.User, error) {
	return append([]models.User(nil), f.users...), nil
}
func (f *fakeUserRepo) Count() (int64, error) { return int64(len(f.users)), nil }

type fakeProductRepo struct {
	products []models.Product
}

func (f *fakeProductRepo) Upsert(p *models.Product) error {
	if p.ID == 0 {
		p.ID = uint(len(f.products) + 1)
	}
	for i := range f.products {
		if f.products[i].ID == p.ID {
			f.products[i] = *p
			return nil
		}
	}
	f.products = append(f.products, *p)
	return nil
}

func (f *fakeProductRepo) GetByID(id uint) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %d not found", id)
}

func (f *fakeProductRepo) GetByKiwifyID(kiwifyID string) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].Platform == models.PlatformKiwify && f.products[i].KiwifyID == kiwifyID {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeProductRepo) GetByHotmartID(userID uint, hotmartID string) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].Platform == models.PlatformHotmart &&
			f.products[i].HotmartID == hotmartID && f.products[i].UserID == userID {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeProductRepo) ListByUser(userID uint) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) ListByUserAndPlatform(userID uint, platform string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.UserID == userID && p.Platform == platform {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) Update(p *models.Product) error { return f.Upsert(p) }

type fakeSaleRepo struct {
	sales   map[string]*models.Sale
	upserts int
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{sales: make(map[string]*models.Sale)}
}

func (f *fakeSaleRepo) Upsert(s *models.Sale) error {
	f.upserts++
	cp := *s
	if existing, ok := f.sales[s.PlatformSaleID]; ok {
		cp.ID = existing.ID
	} else {
		cp.ID = uint(len(f.sales) + 1)
	}
	f.sales[s.PlatformSaleID] = &cp
	s.ID = cp.ID
	return nil
}

func (f *fakeSaleRepo) GetByPlatformSaleID(id string) (*models.Sale, error) {
	if s, ok := f.sales[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSaleRepo) ListPaidByCustomerEmail(email string) ([]models.Sale, error) {
	var out []models.Sale
	for _, s := range f.sales {
		if s.Customer.Email == models.NormalizeEmail(email) && s.Status == models.SaleStatusPaid {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSaleRepo) ListByUser(userID uint, offset, limit int) ([]models.Sale, error) {
	var out []models.Sale
	for _, s := range f.sales {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSaleRepo) CountByUser(userID uint) (int64, error) {
	out, _ := f.ListByUser(userID, 0, 0)
	return int64(len(out)), nil
}

type fakeStudentRepo struct {
	students []*models.Student
	nextID   uint
}

func (f *fakeStudentRepo) Create(s *models.Student) error {
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.students = append(f.students, &cp)
	return nil
}

func (f *fakeStudentRepo) Save(s *models.Student) error {
	for i := range f.students {
		if f.students[i].ID == s.ID {
			cp := *s
			f.students[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("student %d not found", s.ID)
}

func (f *fakeStudentRepo) GetByID(id uint) (*models.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("student %d not found", id)
}

func (f *fakeStudentRepo) GetByIdentity(userID uint, platform, email string) (*models.Student, error) {
	for _, s := range f.students {
		if s.UserID == userID && s.Platform == platform && s.Email == models.NormalizeEmail(email) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStudentRepo) GetByEmail(email string) (*models.Student, error) {
	for _, s := range f.students {
		if s.Email == models.NormalizeEmail(email) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStudentRepo) GetByTelegramUserID(id int64) (*models.Student, error) {
	for _, s := range f.students {
		if s.Telegram.UserID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStudentRepo) GetByHotmartSubscriberID(userID uint, subscriberID string) (*models.Student, error) {
	if subscriberID == "" {
		return nil, nil
	}
	for _, s := range f.students {
		if s.UserID == userID && s.HotmartSubscriberID == subscriberID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStudentRepo) FindJoinCandidate(username string) (*models.Student, error) {
	if username != "" {
		for _, s := range f.students {
			if s.Telegram.Username == username {
				cp := *s
				return &cp, nil
			}
		}
	}
	for _, s := range f.students {
		if s.Telegram.Status == models.TelegramStatusPending {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStudentRepo) ListByUser(userID uint, platform string) ([]models.Student, error) {
	var out []models.Student
	for _, s := range f.students {
		if s.UserID == userID && (platform == "" || s.Platform == platform) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) ListWithTelegram(userID uint) ([]models.Student, error) {
	var out []models.Student
	for _, s := range f.students {
		if s.Telegram.UserID == 0 {
			continue
		}
		if userID != 0 && s.UserID != userID {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStudentRepo) SetSaleEnrollmentStatus(studentID uint, saleID string, productID uint, fromStatus, toStatus string) error {
	for _, s := range f.students {
		if s.ID != studentID {
			continue
		}
		var matched []int
		if saleID != "" {
			for i := range s.Products {
				if s.Products[i].SaleID == saleID {
					matched = append(matched, i)
				}
			}
		}
		if len(matched) == 0 && productID != 0 {
			for i := range s.Products {
				if s.Products[i].SaleID == "" && s.Products[i].ProductID == productID {
					matched = append(matched, i)
				}
			}
		}
		for _, i := range matched {
			if fromStatus == "" || s.Products[i].Status == fromStatus {
				s.Products[i].Status = toStatus
			}
		}
		return nil
	}
	return fmt.Errorf("student %d not found", studentID)
}

func (f *fakeStudentRepo) TelegramStatusCounts(userID uint) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, s := range f.students {
		if s.UserID == userID {
			counts[s.Telegram.Status]++
		}
	}
	return counts, nil
}

func (f *fakeStudentRepo) LastSyncAt(userID uint) (*time.Time, error) {
	var latest *time.Time
	for _, s := range f.students {
		if s.UserID == userID && s.LastSyncAt != nil {
			if latest == nil || s.LastSyncAt.After(*latest) {
				latest = s.LastSyncAt
			}
		}
	}
	return latest, nil
}

func (f *fakeStudentRepo) CountByUser(userID uint, activeOnly bool) (int64, error) {
	var n int64
	for _, s := range f.students {
		if s.UserID == userID && (!activeOnly || s.IsActive) {
			n++
		}
	}
	return n, nil
}

type fakeWebhookEventRepo struct {
	events []*models.WebhookEvent
}

func (f *fakeWebhookEventRepo) CreateIfNotExists(ev *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	for _, e := range f.events {
		if e.Platform == ev.Platform && e.PlatformEventID == ev.PlatformEventID {
			return false, e, nil
		}
	}
	ev.ID = uint(len(f.events) + 1)
	f.events = append(f.events, ev)
	return true, ev, nil
}

func (f *fakeWebhookEventRepo) MarkProcessed(id uint, processingError string) error { return nil }

type fakeGateway struct {
	inviteLink string
	failInvite bool

	addCalls     int
	removeCalls  []int64
	removeFails  map[int64]string
	admins       []telegram.ChatMember
	messages     []string
	welcomeCalls int
	members      map[int64]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		inviteLink:  "https://t.me/+invite",
		removeFails: make(map[int64]string),
		members:     make(map[int64]bool),
	}
}

func (f *fakeGateway) AddStudentToGroup(ctx context.Context, name, email string) telegram.AddResult {
	f.addCalls++
	if f.failInvite {
		return telegram.AddResult{Success: false, Message: "Failed to generate invite link", Err: "boom"}
	}
	return telegram.AddResult{Success: true, Message: "ok", InviteLink: f.inviteLink}
}

func (f *fakeGateway) RemoveStudentFromGroup(ctx context.Context, id int64, reason string) telegram.RemoveResult {
	f.removeCalls = append(f.removeCalls, id)
	if msg, ok := f.removeFails[id]; ok {
		return telegram.RemoveResult{Success: false, Message: "failed", Err: msg}
	}
	return telegram.RemoveResult{Success: true, Message: "removed"}
}

func (f *fakeGateway) IsMember(ctx context.Context, id int64) (bool, error) {
	return f.members[id], nil
}

func (f *fakeGateway) ListAdmins(ctx context.Context) ([]telegram.ChatMember, error) {
	return f.admins, nil
}

func (f *fakeGateway) SendGroupMessage(ctx context.Context, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeGateway) SendWelcomeMessage(ctx context.Context, name, link, product string) error {
	f.welcomeCalls++
	return nil
}

type fakeLocker struct {
	denied   map[uint]bool
	acquired []uint
	released []uint
}

func (f *fakeLocker) Acquire(ctx context.Context, userID uint) (bool, error) {
	if f.denied[userID] {
		return false, nil
	}
	f.acquired = append(f.acquired, userID)
	return true, nil
}

func (f *fakeLocker) Release(ctx context.Context, userID uint) {
	f.released = append(f.released, userID)
}

type fakeKiwify struct {
	rows []platform.KiwifySaleRow
	err  error
}

func (f *fakeKiwify) ListSales(ctx context.Context, q platform.SalesQuery) ([]platform.KiwifySaleRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []platform.KiwifySaleRow
	for _, r := range f.rows {
		if q.ProductID == "" || r.ProductID == q.ProductID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeHotmart struct {
	rows []platform.HotmartSubscriptionRow
	err  error
}

func (f *fakeHotmart) ListSubscriptions(ctx context.Context) ([]platform.HotmartSubscriptionRow, error) {
	return f.rows, f.err
}

func testRepos(users *fakeUserRepo, products *fakeProductRepo, sales *fakeSaleRepo, students *fakeStudentRepo) *repository.Repositories {
	return &repository.Repositories{
		User:         users,
		Product:      products,
		Sale:         sales,
		Student:      students,
		WebhookEvent: &fakeWebhookEventRepo{},
	}
}

func newTestService() (*Service, *fakeUserRepo, *fakeProductRepo, *fakeSaleRepo, *fakeStudentRepo, *fakeGateway) {
	users := &fakeUserRepo{}
	products := &fakeProductRepo{}
	sales := newFakeSaleRepo()
	students := &fakeStudentRepo{}
	gateway := newFakeGateway()

	svc := NewService(testRepos(users, products, sales, students), gateway, nil, &fakeLocker{denied: map[uint]bool{}})
	return svc, users, products, sales, students, gateway
}
