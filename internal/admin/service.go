package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/atpstore/backend-atp/internal/common"
)

// RoleAdmin is the elevated role recognised by the storefront.
const RoleAdmin = "admin"

// Directory is the slice of the identity provider API the service needs.
// *Client satisfies it; tests substitute stubs.
type Directory interface {
	ListUsers(ctx context.Context, limit, offset int) (UserPage, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateRole(ctx context.Context, id, role string) (User, error)
	DeleteUser(ctx context.Context, id string) error
	CountAdmins(ctx context.Context) (int, error)
}

// Service enforces the business rules around admin user management. Rules
// run after authorization and before any remote call.
type Service struct {
	Directory Directory
	Logger    zerolog.Logger
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) (UserPage, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	page, err := s.Directory.ListUsers(ctx, limit, offset)
	if err != nil {
		return UserPage{}, s.translate("list users", err)
	}
	return page, nil
}

// GetUser returns one user by id.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	user, err := s.Directory.GetUser(ctx, id)
	if err != nil {
		return User{}, s.translate("get user", err)
	}
	return user, nil
}

// UpdateRole changes a user's role. A caller cannot demote themselves, and
// the last remaining admin cannot be demoted.
func (s *Service) UpdateRole(ctx context.Context, callerID, targetID, role string) (User, error) {
	if role != RoleAdmin && role != "user" {
		return User{}, common.NewAppError("VALIDATION_ERROR", "role must be admin or user", http.StatusBadRequest, nil)
	}
	target, err := s.Directory.GetUser(ctx, targetID)
	if err != nil {
		return User{}, s.translate("get user", err)
	}
	demotion := target.Role == RoleAdmin && role != RoleAdmin
	if demotion && targetID == callerID {
		return User{}, common.NewAppError("FORBIDDEN_OPERATION", "You cannot remove your own admin role", http.StatusBadRequest, nil)
	}
	if demotion {
		admins, err := s.Directory.CountAdmins(ctx)
		if err != nil {
			return User{}, s.translate("count admins", err)
		}
		if admins <= 1 {
			return User{}, common.NewAppError("FORBIDDEN_OPERATION", "Cannot demote the last remaining admin", http.StatusBadRequest, nil)
		}
	}
	updated, err := s.Directory.UpdateRole(ctx, targetID, role)
	if err != nil {
		return User{}, s.translate("update role", err)
	}
	return updated, nil
}

// DeleteUser removes a user. The last remaining admin cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, callerID, targetID string) error {
	target, err := s.Directory.GetUser(ctx, targetID)
	if err != nil {
		return s.translate("get user", err)
	}
	if target.Role == RoleAdmin {
		if targetID == callerID {
			return common.NewAppError("FORBIDDEN_OPERATION", "You cannot delete your own admin account", http.StatusBadRequest, nil)
		}
		admins, err := s.Directory.CountAdmins(ctx)
		if err != nil {
			return s.translate("count admins", err)
		}
		if admins <= 1 {
			return common.NewAppError("FORBIDDEN_OPERATION", "Cannot delete the last remaining admin", http.StatusBadRequest, nil)
		}
	}
	if err := s.Directory.DeleteUser(ctx, targetID); err != nil {
		return s.translate("delete user", err)
	}
	return nil
}

// translate maps remote failures onto client-safe errors. The upstream
// detail goes to the log; the caller sees a generic message.
func (s *Service) translate(op string, err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return common.NewAppError("NOT_FOUND", "user not found", http.StatusNotFound, err)
	}
	s.Logger.Error().Err(err).Str("op", op).Msg("identity provider request failed")
	return common.NewAppError("UPSTREAM_UNAVAILABLE", "user management is temporarily unavailable", http.StatusBadGateway, err)
}
