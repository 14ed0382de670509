package service

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type fakeUserRepo struct {
	users     map[string]*models.User
	lastLogin map[string]time.Time
}

func newFakeUserRepo(t *testing.T, users ...models.User) *fakeUserRepo {
	t.Helper()
	repo := &fakeUserRepo{users: map[string]*models.User{}, lastLogin: map[string]time.Time{}}
	for i := range users {
		u := users[i]
		if u.PasswordHash == "" {
			hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
			require.NoError(t, err)
			u.PasswordHash = string(hash)
		}
		repo.users[u.ID] = &u
	}
	return repo
}

func (f *fakeUserRepo) List(context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = "user-" + user.Username
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	f.lastLogin[id] = ts
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo(t,
		models.User{ID: "u1", Username: "admin", FullName: "Head Teacher", Role: models.RoleAdmin, Active: true},
		models.User{ID: "u2", Username: "retired", FullName: "Old Account", Role: models.RoleTeacher, Active: false},
	)
	svc := NewAuthService(repo, NewMetricsService(), nil, nil, AuthConfig{AccessTokenSecret: "test-secret", AccessTokenExpiry: time.Hour, Issuer: "maktab-test"})
	return svc, repo
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, repo := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: " admin ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "admin", resp.User.Username)
	assert.Contains(t, repo.lastLogin, "u1")

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "maktab-test", claims.Issuer)
}

func TestLoginRejections(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "ghost", Password: "secret123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "retired", Password: "secret123"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "admin"})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "password is required", appErr.Message)
}

func TestValidateTokenRejectsForeignTokens(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	requireAppError(t, err, http.StatusUnauthorized)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	requireAppError(t, err, http.StatusUnauthorized)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	signed, err = expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestMeAndChangePassword(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	me, err := svc.Me(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Head Teacher", me.FullName)

	_, err = svc.Me(ctx, "missing")
	requireAppError(t, err, http.StatusNotFound)

	err = svc.ChangePassword(ctx, "u1", models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "another1"})
	requireAppError(t, err, http.StatusForbidden)

	err = svc.ChangePassword(ctx, "u1", models.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "123"})
	requireAppError(t, err, http.StatusBadRequest)

	require.NoError(t, svc.ChangePassword(ctx, "u1", models.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "another1"}))
	_, err = svc.Login(ctx, models.LoginRequest{Username: "admin", Password: "another1"})
	require.NoError(t, err)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret123")))
}
