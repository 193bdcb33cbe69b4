package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

type authRepoStub struct {
	usersByEmail  map[string]*models.SystemUser
	usersByID     map[string]*models.SystemUser
	refreshTokens map[string]*models.RefreshToken
	revokedAll    []string
	passwords     map[string]string
	auditLogs     []models.AuditLog
}

func newAuthRepoStub(users ...*models.SystemUser) *authRepoStub {
	stub := &authRepoStub{
		usersByEmail:  map[string]*models.SystemUser{},
		usersByID:     map[string]*models.SystemUser{},
		refreshTokens: map[string]*models.RefreshToken{},
		passwords:     map[string]string{},
	}
	for _, u := range users {
		stub.usersByEmail[u.Email] = u
		stub.usersByID[u.ID] = u
	}
	return stub
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.SystemUser, error) {
	u, ok := r.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.SystemUser, error) {
	u, ok := r.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (r *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.passwords[id] = passwordHash
	return nil
}

func (r *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.revokedAll = append(r.revokedAll, userID)
	for _, t := range r.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (r *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	stored := *token
	r.refreshTokens[token.Token] = &stored
	return nil
}

func (r *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := r.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (r *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range r.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (r *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.auditLogs = append(r.auditLogs, *log)
	return nil
}

const testPassword = "s3cret-password"

func activeUser(t *testing.T) *models.SystemUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.SystemUser{
		ID:           testActorID,
		Email:        "admin@academix.edu",
		PasswordHash: string(hash),
		FullName:     "Admin User",
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func newAuthService(repo *authRepoStub) *AuthService {
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "unit-test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "academix-api",
		SingleSession:      true,
	})
}

func TestLoginIssuesTokenPair(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@academix.edu",
		Password: testPassword,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testActorID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	// Single session: earlier tokens for this user were revoked on login.
	assert.Contains(t, repo.revokedAll, testActorID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(newAuthRepoStub(activeUser(t)))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@academix.edu",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmailIndistinguishable(t *testing.T) {
	svc := newAuthService(newAuthRepoStub())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@academix.edu",
		Password: testPassword,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t)
	user.Active = false
	svc := newAuthService(newAuthRepoStub(user))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@academix.edu",
		Password: testPassword,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@academix.edu",
		Password: testPassword,
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token was revoked; replaying it must fail.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshExpiredToken(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := newAuthService(repo)
	repo.refreshTokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    testActorID,
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := newAuthService(repo)
	repo.refreshTokens["other"] = &models.RefreshToken{
		ID:        "rt-2",
		UserID:    testOtherStudentID,
		Token:     "other",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	err := svc.Logout(context.Background(), "other", testActorID, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := newAuthService(repo)

	err := svc.ChangePassword(context.Background(), testActorID, models.ChangePasswordRequest{
		OldPassword: testPassword,
		NewPassword: "a-new-password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwords[testActorID])
	assert.Contains(t, repo.revokedAll, testActorID)
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	svc := newAuthService(newAuthRepoStub(activeUser(t)))

	err := svc.ChangePassword(context.Background(), testActorID, models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "a-new-password",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newAuthService(newAuthRepoStub())

	_, err := svc.ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
