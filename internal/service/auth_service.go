package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tickhelp/helpdesk-service/internal/auth"
	"github.com/tickhelp/helpdesk-service/internal/config"
	"github.com/tickhelp/helpdesk-service/internal/domain"
	"github.com/tickhelp/helpdesk-service/internal/events"
	"github.com/tickhelp/helpdesk-service/internal/persistence"
	"github.com/tickhelp/helpdesk-service/internal/repository"
	apperrors "github.com/tickhelp/helpdesk-service/pkg/util"
)

// AuthService coordinates registration, login and account management.
type AuthService struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	tx         repository.TxManager
	tokenMgr   *auth.TokenManager
	directory  *persistence.UserDirectoryCache
	dispatcher events.Dispatcher
	bcryptCost int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	Tx         repository.TxManager
	Directory  *persistence.UserDirectoryCache
	Dispatcher events.Dispatcher
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tickets:    deps.TicketRepo,
		tx:         deps.Tx,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		directory:  deps.Directory,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new account with the user role and returns it with a
// signed bearer token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, time.Time, error) {
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, "", time.Time{}, apperrors.NewValidationError("email already registered", map[string]any{"email": input.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	s.directory.Invalidate(ctx)

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Profile returns the caller's own record.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListUsers returns the user directory, served from the Redis snapshot when
// one is fresh. Password hashes are never part of the listing.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	if users, ok := s.directory.Get(ctx); ok {
		return users, nil
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.directory.Set(ctx, users)
	return users, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// DeleteAccount removes the user. Ticket references to the user are nulled
// out rather than deleting the tickets; history entries keep their values but
// lose the acting-user reference. All of it is one atomic unit.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		if err := repos.Tickets.ClearUserReferences(ctx, userID); err != nil {
			return err
		}
		if err := repos.History.DetachUser(ctx, userID); err != nil {
			return err
		}
		if err := repos.Users.Delete(ctx, userID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("user", map[string]any{"id": userID})
			}
			return err
		}
		return nil
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	s.directory.Invalidate(ctx)

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventUserDeleted,
			ActorID:   userID,
			Timestamp: time.Now(),
			Payload:   events.UserDeletedPayload{UserID: userID},
		})
	}
	return nil
}

// SetUserRole updates a user's role. Only admins reach this; the HTTP layer
// guards the route.
func (s *AuthService) SetUserRole(ctx context.Context, targetUserID string, rawRole string) (*domain.User, error) {
	role, err := domain.ParseUserRole(rawRole)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": targetUserID})
		}
		return nil, apperrors.MapError(err)
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.directory.Invalidate(ctx)
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
