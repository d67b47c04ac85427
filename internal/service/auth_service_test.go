package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users     map[string]*models.User
	passwords map[string]string
	audits    []*models.AuditLog
}

func newMockAuthUserRepo() *mockAuthUserRepo {
	return &mockAuthUserRepo{users: map[string]*models.User{}, passwords: map[string]string{}}
}

func (m *mockAuthUserRepo) addUser(user *models.User, password string) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user.PasswordHash = string(hash)
	m.users[user.ID] = user
}

func (m *mockAuthUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.passwords[id] = passwordHash
	return nil
}

func (m *mockAuthUserRepo) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	m.audits = append(m.audits, entry)
	return nil
}

func newAuthServiceForTest(repo *mockAuthUserRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "tuition-api",
	})
}

func TestAuthLogin(t *testing.T) {
	repo := newMockAuthUserRepo()
	relatedID := "stud-1"
	repo.addUser(&models.User{ID: "user-1", Username: "12345678", Role: models.RoleStudent, RelatedID: &relatedID}, "secreto1")
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "12345678", Password: "secreto1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)

	claims, err := svc.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	require.NotNil(t, claims.RelatedID)
	assert.Equal(t, "stud-1", *claims.RelatedID)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := newMockAuthUserRepo()
	repo.addUser(&models.User{ID: "user-1", Username: "12345678", Role: models.RoleStudent}, "secreto1")
	svc := newAuthServiceForTest(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "12345678", Password: "wrong"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Empty(t, repo.audits)
}

func TestAuthLoginUnknownUser(t *testing.T) {
	svc := newAuthServiceForTest(newMockAuthUserRepo())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "nadie", Password: "whatever"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthParseTokenRejectsTampered(t *testing.T) {
	repo := newMockAuthUserRepo()
	repo.addUser(&models.User{ID: "user-1", Username: "12345678", Role: models.RoleAdmin}, "secreto1")
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "12345678", Password: "secreto1"})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{Secret: "other-secret", Expiration: time.Hour})
	_, err = other.ParseToken(resp.AccessToken)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthChangePassword(t *testing.T) {
	repo := newMockAuthUserRepo()
	repo.addUser(&models.User{ID: "user-1", Username: "12345678", Role: models.RoleStudent}, "secreto1")
	svc := newAuthServiceForTest(repo)

	err := svc.ChangePassword(context.Background(), "user-1", ChangePasswordRequest{
		CurrentPassword: "secreto1",
		NewPassword:     "nuevo-secreto",
	})
	require.NoError(t, err)

	hash, ok := repo.passwords["user-1"]
	require.True(t, ok)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("nuevo-secreto")))
}

func TestAuthChangePasswordWrongCurrent(t *testing.T) {
	repo := newMockAuthUserRepo()
	repo.addUser(&models.User{ID: "user-1", Username: "12345678", Role: models.RoleStudent}, "secreto1")
	svc := newAuthServiceForTest(repo)

	err := svc.ChangePassword(context.Background(), "user-1", ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "nuevo-secreto",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Empty(t, repo.passwords)
}
