package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/service"
	"github.com/dom/gauntlet/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	_, services := testutil.NewServices(testDB.DB)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   service.RegisterInput
		setup   func()
		wantErr error
	}{
		{
			name:  "successful registration",
			input: service.RegisterInput{DisplayName: "newuser", Password: "password123"},
		},
		{
			name:  "duplicate display name",
			input: service.RegisterInput{DisplayName: "existinguser", Password: "password123"},
			setup: func() {
				testutil.NewUserBuilder().WithDisplayName("existinguser").Build(t, testDB.DB)
			},
			wantErr: domain.ErrDisplayNameExists,
		},
		{
			name:    "short password",
			input:   service.RegisterInput{DisplayName: "shortpass", Password: "abc"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "blank display name",
			input:   service.RegisterInput{DisplayName: "   ", Password: "password123"},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testDB.Truncate(t)
			if tt.setup != nil {
				tt.setup()
			}

			result, err := services.Auth.Register(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.input.DisplayName, result.User.DisplayName)
			assert.NotEmpty(t, result.AccessToken)
			assert.NotEmpty(t, result.RefreshToken)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	_, services := testutil.NewServices(testDB.DB)
	ctx := context.Background()

	user, rawPassword := testutil.NewUserBuilder().
		WithDisplayName("loginuser").
		WithPassword("correctpassword").
		Build(t, testDB.DB)

	tests := []struct {
		name    string
		input   service.LoginInput
		wantErr error
	}{
		{name: "successful login", input: service.LoginInput{DisplayName: user.DisplayName, Password: rawPassword}},
		{name: "surrounding whitespace", input: service.LoginInput{DisplayName: " loginuser ", Password: rawPassword}},
		{name: "wrong password", input: service.LoginInput{DisplayName: user.DisplayName, Password: "wrongpassword"}, wantErr: domain.ErrInvalidCredentials},
		{name: "non-existent user", input: service.LoginInput{DisplayName: "nonexistent", Password: "anypassword"}, wantErr: domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := services.Auth.Login(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, user.ID, result.User.ID)
			assert.NotEmpty(t, result.AccessToken)
		})
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	_, services := testutil.NewServices(testDB.DB)
	ctx := context.Background()

	result, err := services.Auth.Register(ctx, service.RegisterInput{DisplayName: "tokenuser", Password: "password123"})
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key interface{}, claims service.AccessClaims) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	secret := []byte(testutil.TestConfig().JWTSecret)
	subject := result.User.ID.String()

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid token", token: result.AccessToken},
		{name: "garbage", token: "invalid.token.here", wantErr: true},
		{name: "empty token", token: "", wantErr: true},
		{
			name: "expired",
			token: sign(jwt.SigningMethodHS256, secret, service.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   subject,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			}}),
			wantErr: true,
		},
		{
			name:    "no expiry",
			token:   sign(jwt.SigningMethodHS256, secret, service.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}),
			wantErr: true,
		},
		{
			name: "wrong key",
			token: sign(jwt.SigningMethodHS256, []byte("other"), service.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   subject,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}}),
			wantErr: true,
		},
		{
			name: "other algorithm",
			token: sign(jwt.SigningMethodHS512, secret, service.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   subject,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}}),
			wantErr: true,
		},
		{
			name: "subject is not a user id",
			token: sign(jwt.SigningMethodHS256, secret, service.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "admin",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := services.Auth.ValidateToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, result.User.ID, userID)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos, services := testutil.NewServices(testDB.DB)
	ctx := context.Background()

	first, err := services.Auth.Register(ctx, service.RegisterInput{DisplayName: "refresher", Password: "password123"})
	require.NoError(t, err)

	second, err := services.Auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	t.Run("a token is redeemed once", func(t *testing.T) {
		_, err := services.Auth.Refresh(ctx, first.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("wrong secret", func(t *testing.T) {
		sessionID, _, _ := strings.Cut(second.RefreshToken, ".")
		_, err := services.Auth.Refresh(ctx, sessionID+"."+uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, token := range []string{"", "nodot", "not-a-uuid.secret"} {
			_, err := services.Auth.Refresh(ctx, token)
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials, token)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		sessionID, _, _ := strings.Cut(second.RefreshToken, ".")
		id := uuid.MustParse(sessionID)
		require.NoError(t, testDB.DB.Model(&domain.UserSession{}).Where("id = ?", id).
			Update("expires_at", time.Now().Add(-time.Hour)).Error)

		_, err := services.Auth.Refresh(ctx, second.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("login prunes expired sessions", func(t *testing.T) {
		_, err := services.Auth.Login(ctx, service.LoginInput{DisplayName: "refresher", Password: "password123"})
		require.NoError(t, err)

		var count int64
		require.NoError(t, testDB.DB.Model(&domain.UserSession{}).Where("expires_at < ?", time.Now()).Count(&count).Error)
		assert.Zero(t, count)

		_, err = repos.Session.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAuthService_Profile(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	_, services := testutil.NewServices(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithDisplayName("organizer").Build(t, testDB.DB)
	older := testutil.NewTourneyBuilder().WithName("Spring").WithCreator(user).Build(t, testDB.DB)
	newer := testutil.NewTourneyBuilder().WithName("Summer").WithCreator(user).Build(t, testDB.DB)
	testutil.NewTourneyBuilder().WithName("Someone else's").Build(t, testDB.DB)

	profile, err := services.Auth.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "organizer", profile.User.DisplayName)
	require.Len(t, profile.Tourneys, 2)
	assert.Equal(t, newer.ID, profile.Tourneys[0].ID)
	assert.Equal(t, older.ID, profile.Tourneys[1].ID)

	_, err = services.Auth.Profile(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthService_Logout(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	_, services := testutil.NewServices(testDB.DB)
	ctx := context.Background()

	result, err := services.Auth.Register(ctx, service.RegisterInput{DisplayName: "logoutuser", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, services.Auth.Logout(ctx, result.User.ID))
	require.NoError(t, services.Auth.Logout(ctx, result.User.ID))

	_, err = services.Auth.Refresh(ctx, result.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
