package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/incidex/incidex/internal/api/dto"
	"github.com/incidex/incidex/internal/service"
	apperrors "github.com/incidex/incidex/pkg/util"
)

// AuthHandler serves login and admin account management.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, expiresAt, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User: dto.UserBrief{
			ID:       user.ID,
			FullName: user.FullName(),
			Email:    user.Email,
			Roles:    user.Roles,
		},
	}})
}

// CreateUser POST /admin/users.
func (h *AuthHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.service.CreateUser(c.Context(), service.CreateUserInput{
		FirstNames:   req.FirstNames,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     req.Password,
		DepartmentID: req.DepartmentID,
		RoleIDs:      req.RoleIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.UserBrief{
		ID:       user.ID,
		FullName: user.FullName(),
		Email:    user.Email,
		Roles:    user.Roles,
	}})
}

// DeactivateUser DELETE /admin/users/:id.
func (h *AuthHandler) DeactivateUser(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid user id", nil)
	}
	if err := h.service.DeactivateUser(c.Context(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user_id": id, "is_active": false}})
}
