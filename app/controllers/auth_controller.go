package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/app/repository"
	"github.com/AlunoSync/AlunoSync/internal/pkg/session"
	"github.com/AlunoSync/AlunoSync/internal/pkg/usercontext"
)

const authKey = "authenticated"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthRegister creates a new tenant account.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return badRequest(c, err.Error())
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if existing, err := userRepo.GetByEmail(user.Email); err != nil {
		return internalError(c, "Failed to check existing account")
	} else if existing != nil {
		return jsonError(c, fiber.StatusConflict, "conflict", "Email already registered")
	}

	if err := userRepo.Create(user); err != nil {
		return internalError(c, "Failed to create account")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleAuthLogin verifies credentials and opens a session.
// Failures stay intentionally vague about which part was wrong.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(models.NormalizeEmail(req.Email))
	if err != nil {
		return internalError(c, "Login failed")
	}
	if user == nil || !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid credentials")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return internalError(c, "Session unavailable")
	}
	sess.Set(authKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.IsAdmin())
	if err := sess.Save(); err != nil {
		return internalError(c, "Session unavailable")
	}

	now := time.Now()
	user.LastLoginAt = &now
	// Best effort, login already succeeded.
	_ = userRepo.Update(user)

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"name":     user.Name,
		"email":    user.Email,
		"is_admin": user.IsAdmin(),
	})
}

// HandleAuthLogout destroys the current session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	c.Locals(usercontext.KeyFromProtected, false)
	return c.JSON(fiber.Map{"success": true})
}
