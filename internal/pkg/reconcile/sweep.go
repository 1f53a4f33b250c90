package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/internal/pkg/metrics/counter"
	"github.com/google/uuid"
)

// SweepGroup walks every student with a registered Telegram user id and
// removes the ones whose entitlement is gone. Admins are never touched. A
// member who already left just gets their status corrected.
func (s *Service) SweepGroup(ctx context.Context, userID uint) (*SweepResults, error) {
	results := &SweepResults{
		RunID:   uuid.New().String(),
		Errors:  []string{},
		Details: []string{},
	}

	admins, err := s.gateway.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list group admins: %w", err)
	}
	adminIDs := make(map[int64]bool, len(admins))
	for _, a := range admins {
		adminIDs[a.User.ID] = true
	}

	students, err := s.repos.Student.ListWithTelegram(userID)
	if err != nil {
		return nil, fmt.Errorf("list students with telegram: %w", err)
	}

	for i := range students {
		student := &students[i]
		results.Checked++

		if student.Telegram.UserID == 0 {
			continue
		}
		if adminIDs[student.Telegram.UserID] {
			results.Kept++
			results.Details = append(results.Details, fmt.Sprintf("Skipped admin %s (@%s)", student.Name, student.Telegram.Username))
			continue
		}

		shouldBeInGroup := student.ShouldBeInGroup()
		switch {
		case !shouldBeInGroup && student.Telegram.Status == models.TelegramStatusActive:
			if err := s.sweepRemove(ctx, student, results); err != nil {
				results.Errors = append(results.Errors, fmt.Sprintf("student %s: %v", student.Name, err))
			}
		case shouldBeInGroup && student.Telegram.Status == models.TelegramStatusActive:
			results.Kept++
		default:
			results.Details = append(results.Details, fmt.Sprintf("%s already has status %s", student.Name, student.Telegram.Status))
		}
	}

	counter.AddSweep(counter.FieldMembersChecked, results.Checked)
	counter.AddSweep(counter.FieldMembersRemoved, results.Removed)
	counter.AddSweep(counter.FieldMembersKept, results.Kept)
	counter.AddSweep(counter.FieldSweepErrors, len(results.Errors))

	log.Printf("[sweep %s] done: checked=%d removed=%d kept=%d errors=%d",
		results.RunID, results.Checked, results.Removed, results.Kept, len(results.Errors))
	return results, nil
}

func (s *Service) sweepRemove(ctx context.Context, student *models.Student, results *SweepResults) error {
	res := s.gateway.RemoveStudentFromGroup(ctx, student.Telegram.UserID, "No active products or inactive")
	if !res.Success {
		return fmt.Errorf("remove from group: %s", res.Err)
	}

	now := time.Now().UTC()
	student.Telegram.Status = models.TelegramStatusRemoved
	student.Telegram.RemovedAt = &now
	if err := s.repos.Student.Save(student); err != nil {
		return fmt.Errorf("persist removal: %w", err)
	}

	results.Removed++
	results.Details = append(results.Details, fmt.Sprintf("Removed %s (@%s): no active products or inactive", student.Name, student.Telegram.Username))
	return nil
}
