package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/internal/pkg/telegram"
)

func seedSweepStudent(students *fakeStudentRepo, userID uint, tgUserID int64, isActive bool, enrollStatus, tgStatus string) *models.Student {
	now := time.Now().UTC()
	s := &models.Student{
		UserID:   userID,
		Platform: models.PlatformKiwify,
		Email:    fmt.Sprintf("aluno-%d@example.com", tgUserID),
		Name:     "Aluno",
		IsActive: isActive,
		Telegram: models.TelegramInfo{UserID: tgUserID, Username: "aluno", Status: tgStatus, AddedAt: &now},
		Products: []models.Enrollment{{ProductID: 1, ProductName: "Curso", EnrolledAt: now, Status: enrollStatus}},
	}
	_ = students.Create(s)
	return s
}

func TestSweepRemovesDriftedMembers(t *testing.T) {
	svc, _, _, _, students, gateway := newTestService()

	entitled := seedSweepStudent(students, 1, 100, true, models.EnrollmentStatusActive, models.TelegramStatusActive)
	refunded := seedSweepStudent(students, 1, 200, true, models.EnrollmentStatusRefunded, models.TelegramStatusActive)
	inactive := seedSweepStudent(students, 1, 300, false, models.EnrollmentStatusActive, models.TelegramStatusActive)

	results, err := svc.SweepGroup(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.Checked != 3 {
		t.Fatalf("expected 3 checked, got %d", results.Checked)
	}
	if results.Removed != 2 || results.Kept != 1 {
		t.Fatalf("expected removed=2 kept=1, got removed=%d kept=%d", results.Removed, results.Kept)
	}
	if len(gateway.removeCalls) != 2 {
		t.Fatalf("expected 2 gateway removals, got %v", gateway.removeCalls)
	}

	kept, _ := students.GetByID(entitled.ID)
	if kept.Telegram.Status != models.TelegramStatusActive {
		t.Fatalf("entitled member must keep status active")
	}
	for _, id := range []uint{refunded.ID, inactive.ID} {
		s, _ := students.GetByID(id)
		if s.Telegram.Status != models.TelegramStatusRemoved || s.Telegram.RemovedAt == nil {
			t.Fatalf("expected student %d removed, got %+v", id, s.Telegram)
		}
	}
}

func TestSweepNeverRemovesAdmins(t *testing.T) {
	svc, _, _, _, students, gateway := newTestService()
	gateway.admins = []telegram.ChatMember{
		{User: telegram.User{ID: 100, Username: "owner"}, Status: "creator"},
	}

	// Admin with zero entitlement would otherwise be removed.
	admin := seedSweepStudent(students, 1, 100, false, models.EnrollmentStatusExpired, models.TelegramStatusActive)

	results, err := svc.SweepGroup(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gateway.removeCalls) != 0 {
		t.Fatalf("admins must never be removed, got %v", gateway.removeCalls)
	}
	if results.Kept != 1 {
		t.Fatalf("expected admin counted as kept, got %d", results.Kept)
	}
	s, _ := students.GetByID(admin.ID)
	if s.Telegram.Status != models.TelegramStatusActive {
		t.Fatalf("admin status must stay active")
	}
}

func TestSweepMemberAlreadyGoneStillMarkedRemoved(t *testing.T) {
	svc, _, _, _, students, gateway := newTestService()
	// The fake gateway answers success for absent users, matching the real
	// gateway's "user is not a member" mapping.
	drifted := seedSweepStudent(students, 1, 500, false, models.EnrollmentStatusExpired, models.TelegramStatusActive)

	results, err := svc.SweepGroup(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.Removed != 1 {
		t.Fatalf("expected removal recorded, got %+v", results)
	}
	if len(gateway.removeCalls) != 1 || gateway.removeCalls[0] != 500 {
		t.Fatalf("expected one removal call for user 500, got %v", gateway.removeCalls)
	}
	s, _ := students.GetByID(drifted.ID)
	if s.Telegram.Status != models.TelegramStatusRemoved {
		t.Fatalf("expected status removed, got %q", s.Telegram.Status)
	}
}

func TestSweepGatewayFailureIsCountedNotFatal(t *testing.T) {
	svc, _, _, _, students, gateway := newTestService()
	gateway.removeFails[600] = "not enough rights"
	failing := seedSweepStudent(students, 1, 600, false, models.EnrollmentStatusExpired, models.TelegramStatusActive)

	results, err := svc.SweepGroup(context.Background(), 1)
	if err != nil {
		t.Fatalf("gateway failures must not abort the sweep: %v", err)
	}
	if len(results.Errors) != 1 || results.Removed != 0 {
		t.Fatalf("expected one captured error and no removal, got %+v", results)
	}
	s, _ := students.GetByID(failing.ID)
	if s.Telegram.Status != models.TelegramStatusActive {
		t.Fatalf("status must be untouched when the gateway call fails")
	}
}

func TestSweepSkipsNonActiveStatuses(t *testing.T) {
	svc, _, _, _, students, gateway := newTestService()
	seedSweepStudent(students, 1, 700, false, models.EnrollmentStatusExpired, models.TelegramStatusRemoved)

	results, err := svc.SweepGroup(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.Removed != 0 || len(gateway.removeCalls) != 0 {
		t.Fatalf("already removed students must be left alone, got %+v", results)
	}
}

func TestSweepScopedToUser(t *testing.T) {
	svc, _, _, _, students, gateway := newTestService()
	seedSweepStudent(students, 1, 800, false, models.EnrollmentStatusExpired, models.TelegramStatusActive)
	other := seedSweepStudent(students, 2, 900, false, models.EnrollmentStatusExpired, models.TelegramStatusActive)

	results, err := svc.SweepGroup(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.Checked != 1 || len(gateway.removeCalls) != 1 {
		t.Fatalf("sweep must honor the user scope, got %+v", results)
	}
	s, _ := students.GetByID(other.ID)
	if s.Telegram.Status != models.TelegramStatusActive {
		t.Fatalf("other tenant's student must be untouched")
	}
}
