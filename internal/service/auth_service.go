package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/incidex/incidex/internal/auth"
	"github.com/incidex/incidex/internal/config"
	"github.com/incidex/incidex/internal/domain"
	"github.com/incidex/incidex/internal/repository"
	apperrors "github.com/incidex/incidex/pkg/util"
)

// AuthService coordinates login and account management.
type AuthService struct {
	users      repository.UserRepository
	audit      repository.AuditLogRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	AuditRepo repository.AuditLogRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		audit:      deps.AuditRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// TokenManager exposes the manager for the auth middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login authenticates by email and password and issues a role-bearing
// token. Every attempt lands in the bitacora.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.recordAttempt(ctx, email, "", "FALLIDO")
			return nil, "", time.Time{}, apperrors.NewUnauthorized("credenciales inválidas")
		}
		return nil, "", time.Time{}, err
	}
	if !user.IsActive {
		s.recordAttempt(ctx, email, primaryRole(user.Roles), "FALLIDO")
		return nil, "", time.Time{}, apperrors.NewUnauthorized("usuario inactivo")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordAttempt(ctx, email, primaryRole(user.Roles), "FALLIDO")
		return nil, "", time.Time{}, apperrors.NewUnauthorized("credenciales inválidas")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Roles)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	s.recordAttempt(ctx, email, primaryRole(user.Roles), "EXITOSO")
	return user, token, exp, nil
}

// CreateUserInput describes an admin-created account.
type CreateUserInput struct {
	FirstNames   string
	LastName     string
	Email        string
	Password     string
	DepartmentID *int64
	RoleIDs      []int64
}

// CreateUser registers a worker account with its roles.
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstNames:   strings.TrimSpace(input.FirstNames),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        strings.TrimSpace(strings.ToLower(input.Email)),
		PasswordHash: hash,
		DepartmentID: input.DepartmentID,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user, input.RoleIDs); err != nil {
		return nil, err
	}
	return user, nil
}

// DeactivateUser soft-disables an account.
func (s *AuthService) DeactivateUser(ctx context.Context, id int64) error {
	if err := s.users.Deactivate(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return err
	}
	return nil
}

// recordAttempt appends a bitacora row; failures are logged and swallowed.
func (s *AuthService) recordAttempt(ctx context.Context, email, role, resultado string) {
	entry := &domain.AuditEntry{
		Usuario:   email,
		Rol:       role,
		Accion:    "LOGIN",
		Resultado: resultado,
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("bitacora insert failed", zap.Error(err))
	}
}

func primaryRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}
