package admin_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/atpstore/backend-atp/internal/admin"
	"github.com/atpstore/backend-atp/internal/common"
)

type stubDirectory struct {
	users       map[string]admin.User
	adminCount  int
	countErr    error
	updateCalls int
	deleteCalls int
	failAll     error
}

func (s *stubDirectory) ListUsers(_ context.Context, limit, offset int) (admin.UserPage, error) {
	if s.failAll != nil {
		return admin.UserPage{}, s.failAll
	}
	users := make([]admin.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return admin.UserPage{Users: users, Total: len(users)}, nil
}

func (s *stubDirectory) GetUser(_ context.Context, id string) (admin.User, error) {
	if s.failAll != nil {
		return admin.User{}, s.failAll
	}
	user, ok := s.users[id]
	if !ok {
		return admin.User{}, admin.ErrUserNotFound
	}
	return user, nil
}

func (s *stubDirectory) UpdateRole(_ context.Context, id, role string) (admin.User, error) {
	if s.failAll != nil {
		return admin.User{}, s.failAll
	}
	s.updateCalls++
	user := s.users[id]
	user.Role = role
	s.users[id] = user
	return user, nil
}

func (s *stubDirectory) DeleteUser(_ context.Context, id string) error {
	if s.failAll != nil {
		return s.failAll
	}
	s.deleteCalls++
	delete(s.users, id)
	return nil
}

func (s *stubDirectory) CountAdmins(_ context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.adminCount, nil
}

func newService(dir *stubDirectory) *admin.Service {
	return &admin.Service{Directory: dir, Logger: zerolog.Nop()}
}

func twoAdmins() *stubDirectory {
	return &stubDirectory{
		users: map[string]admin.User{
			"a-1": {ID: "a-1", Email: "first@atpstore.se", Role: "admin"},
			"a-2": {ID: "a-2", Email: "second@atpstore.se", Role: "admin"},
			"u-1": {ID: "u-1", Email: "customer@example.com", Role: "user"},
		},
		adminCount: 2,
	}
}

func requireAppError(t *testing.T, err error, status int) *common.AppError {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.HTTPStatus)
	return appErr
}

func TestUpdateRolePromotion(t *testing.T) {
	dir := twoAdmins()
	svc := newService(dir)

	user, err := svc.UpdateRole(context.Background(), "a-1", "u-1", "admin")
	require.NoError(t, err)
	require.Equal(t, "admin", user.Role)
	require.Equal(t, 1, dir.updateCalls)
}

func TestCannotDemoteSelf(t *testing.T) {
	dir := twoAdmins()
	svc := newService(dir)

	_, err := svc.UpdateRole(context.Background(), "a-1", "a-1", "user")
	appErr := requireAppError(t, err, http.StatusBadRequest)
	require.Contains(t, appErr.Message, "your own admin role")
	require.Zero(t, dir.updateCalls)
}

func TestCannotDemoteLastAdmin(t *testing.T) {
	dir := twoAdmins()
	dir.adminCount = 1
	svc := newService(dir)

	_, err := svc.UpdateRole(context.Background(), "a-1", "a-2", "user")
	appErr := requireAppError(t, err, http.StatusBadRequest)
	require.Contains(t, appErr.Message, "last remaining admin")
	require.Zero(t, dir.updateCalls)
}

func TestDemoteWithOtherAdminsLeft(t *testing.T) {
	dir := twoAdmins()
	svc := newService(dir)

	user, err := svc.UpdateRole(context.Background(), "a-1", "a-2", "user")
	require.NoError(t, err)
	require.Equal(t, "user", user.Role)
}

func TestUpdateRoleRejectsUnknownRole(t *testing.T) {
	svc := newService(twoAdmins())

	_, err := svc.UpdateRole(context.Background(), "a-1", "u-1", "superuser")
	requireAppError(t, err, http.StatusBadRequest)
}

func TestCannotDeleteLastAdmin(t *testing.T) {
	dir := twoAdmins()
	dir.adminCount = 1
	svc := newService(dir)

	err := svc.DeleteUser(context.Background(), "a-1", "a-2")
	appErr := requireAppError(t, err, http.StatusBadRequest)
	require.Contains(t, appErr.Message, "last remaining admin")
	require.Zero(t, dir.deleteCalls)
}

func TestCannotDeleteSelf(t *testing.T) {
	dir := twoAdmins()
	svc := newService(dir)

	err := svc.DeleteUser(context.Background(), "a-1", "a-1")
	requireAppError(t, err, http.StatusBadRequest)
	require.Zero(t, dir.deleteCalls)
}

func TestDeleteRegularUser(t *testing.T) {
	dir := twoAdmins()
	svc := newService(dir)

	require.NoError(t, svc.DeleteUser(context.Background(), "a-1", "u-1"))
	require.Equal(t, 1, dir.deleteCalls)
}

func TestUnknownUserIs404(t *testing.T) {
	svc := newService(twoAdmins())

	_, err := svc.GetUser(context.Background(), "nope")
	requireAppError(t, err, http.StatusNotFound)
}

func TestUpstreamFailureNeverLeaks(t *testing.T) {
	dir := twoAdmins()
	dir.failAll = errors.New("connect: connection refused to internal-identity.atpstore.local")
	svc := newService(dir)

	_, err := svc.ListUsers(context.Background(), 20, 0)
	appErr := requireAppError(t, err, http.StatusBadGateway)
	require.NotContains(t, appErr.Message, "identity")
	require.NotContains(t, appErr.Message, "refused")
}
