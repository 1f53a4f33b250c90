package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/internal/pkg/telegram"
)

// HandleTelegramUpdate reacts to group membership movement: joins bind a
// Telegram user id to a pending student, leaves flip the status to removed.
// Joiners nobody is expecting are kicked unless they are admins.
func (s *Service) HandleTelegramUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil {
		return nil
	}

	for _, member := range update.Message.NewChatMembers {
		if member.IsBot {
			continue
		}
		if err := s.handleMemberJoined(ctx, member); err != nil {
			log.Printf("[telegram] join of %d: %v", member.ID, err)
		}
	}

	if left := update.Message.LeftChatMember; left != nil {
		if err := s.handleMemberLeft(*left); err != nil {
			log.Printf("[telegram] leave of %d: %v", left.ID, err)
		}
	}
	return nil
}

func (s *Service) handleMemberJoined(ctx context.Context, member telegram.User) error {
	student, err := s.repos.Student.FindJoinCandidate(member.Username)
	if err != nil {
		return err
	}

	if student == nil {
		return s.handleUnknownJoiner(ctx, member)
	}

	now := time.Now().UTC()
	student.Telegram.UserID = member.ID
	student.Telegram.Username = member.Username
	student.Telegram.Status = models.TelegramStatusActive
	student.Telegram.AddedAt = &now
	if err := s.repos.Student.Save(student); err != nil {
		return err
	}
	log.Printf("[telegram] bound student %s to telegram user %d (@%s)", student.Name, member.ID, member.Username)
	return nil
}

// handleUnknownJoiner soft-kicks a joiner who matches no student and is not
// an admin, and announces the removal to the group.
func (s *Service) handleUnknownJoiner(ctx context.Context, member telegram.User) error {
	admins, err := s.gateway.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	for _, a := range admins {
		if a.User.ID == member.ID {
			return nil
		}
	}

	res := s.gateway.RemoveStudentFromGroup(ctx, member.ID, "Not registered as a student")
	if !res.Success {
		return fmt.Errorf("remove unknown joiner: %s", res.Err)
	}
	msg := fmt.Sprintf("❌ Usuário %s foi removido por não estar registrado como aluno.", member.FirstName)
	if err := s.gateway.SendGroupMessage(ctx, msg); err != nil {
		log.Printf("[telegram] announce removal of %d: %v", member.ID, err)
	}
	return nil
}

func (s *Service) handleMemberLeft(member telegram.User) error {
	student, err := s.repos.Student.GetByTelegramUserID(member.ID)
	if err != nil {
		return err
	}
	if student == nil {
		return nil
	}

	now := time.Now().UTC()
	student.Telegram.Status = models.TelegramStatusRemoved
	student.Telegram.RemovedAt = &now
	return s.repos.Student.Save(student)
}
