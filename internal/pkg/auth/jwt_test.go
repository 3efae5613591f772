package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/production-backend/internal/config"
	"github.com/your-org/production-backend/internal/domain/user"
	"github.com/your-org/production-backend/internal/pkg/auth"
)

func newManager() *auth.JWTManager {
	cfg := &config.Config{
		App: config.AppConfig{Name: "production-backend"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-at-least-32-characters!!",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
	}
	return auth.NewJWTManager(cfg)
}

func testUser() *user.User {
	branchID := uint(3)
	return &user.User{
		ID:         7,
		Email:      "chef@example.com",
		Role:       user.RoleChef,
		BranchID:   &branchID,
		Department: user.DepartmentBakery,
		IsActive:   true,
	}
}

func TestAccessToken_RoundTripCarriesIdentity(t *testing.T) {
	m := newManager()

	token, err := m.GenerateAccessToken(testUser())
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "chef@example.com", claims.Email)
	assert.Equal(t, user.RoleChef, claims.Role)
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, uint(3), *claims.BranchID)
	assert.Equal(t, user.DepartmentBakery, claims.Department)

	actor := claims.Actor()
	assert.Equal(t, uint(7), actor.UserID)
	assert.True(t, actor.HasRole(user.RoleChef))
}

func TestRefreshToken_CarriesIdentityOnly(t *testing.T) {
	m := newManager()

	token, err := m.GenerateRefreshToken(testUser())
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Empty(t, claims.Role)
	assert.Nil(t, claims.BranchID)

	// A refresh token never passes as an access token.
	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	token, err := newManager().GenerateAccessToken(testUser())
	require.NoError(t, err)

	other := auth.NewJWTManager(&config.Config{
		App: config.AppConfig{Name: "production-backend"},
		JWT: config.JWTConfig{Secret: "a-completely-different-signing-key!!"},
	})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	m := auth.NewJWTManager(&config.Config{
		App: config.AppConfig{Name: "production-backend"},
		JWT: config.JWTConfig{
			Secret:            "test-secret-at-least-32-characters!!",
			AccessTokenExpiry: -time.Minute,
		},
	})

	token, err := m.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", auth.ExtractTokenFromHeader("Bearer abc.def.ghi"))
	assert.Empty(t, auth.ExtractTokenFromHeader("abc.def.ghi"))
	assert.Empty(t, auth.ExtractTokenFromHeader(""))
	assert.Empty(t, auth.ExtractTokenFromHeader("Bearer "))
}
