package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/maktab-api/internal/models"
)

func TestUserCreate(t *testing.T) {
	repo := newFakeUserRepo(t, models.User{ID: "u1", Username: "admin", FullName: "Head", Role: models.RoleAdmin, Active: true})
	svc := NewUserService(repo, nil, nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserRequest{Username: " Ustadh1 ", FullName: "Ustadh Karim", Role: "teacher", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ustadh1", user.Username)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].PasswordHash), []byte("secret123")))

	_, err = svc.Create(ctx, CreateUserRequest{Username: "admin", FullName: "Again", Role: "ADMIN", Password: "secret123"})
	requireAppError(t, err, http.StatusConflict)

	_, err = svc.Create(ctx, CreateUserRequest{Username: "parent", FullName: "P", Role: "STUDENT", Password: "secret123"})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Create(ctx, CreateUserRequest{Username: "short", FullName: "S", Role: "ADMIN", Password: "123"})
	requireAppError(t, err, http.StatusBadRequest)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserUpdateAndResetPassword(t *testing.T) {
	repo := newFakeUserRepo(t, models.User{ID: "u1", Username: "teacher", FullName: "T", Role: models.RoleTeacher, Active: true})
	svc := NewUserService(repo, nil, nil)
	ctx := context.Background()

	updated, err := svc.Update(ctx, "u1", UpdateUserRequest{FullName: "Teacher Two", Role: "ADMIN", Active: boolPtr(false), Password: "newpass1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.False(t, updated.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u1"].PasswordHash), []byte("newpass1")))

	_, err = svc.Update(ctx, "missing", UpdateUserRequest{FullName: "X", Role: "ADMIN"})
	requireAppError(t, err, http.StatusNotFound)

	require.NoError(t, svc.ResetPassword(ctx, "Teacher", "reset123"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u1"].PasswordHash), []byte("reset123")))

	requireAppError(t, svc.ResetPassword(ctx, "nobody", "reset123"), http.StatusNotFound)
	requireAppError(t, svc.ResetPassword(ctx, "teacher", "x"), http.StatusBadRequest)
}
