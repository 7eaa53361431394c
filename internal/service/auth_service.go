package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dom/gauntlet/internal/config"
	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	sessionLifetime   = 7 * 24 * time.Hour
)

// AuthService manages the accounts that administer tourneys. Access tokens
// are short-lived JWTs; refresh tokens name a stored session and rotate on
// every use.
type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tourneyRepo repository.TourneyRepository
	cfg         *config.Config
	logger      *slog.Logger
}

func NewAuthService(repos *repository.Repositories, cfg *config.Config, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo:    repos.User,
		sessionRepo: repos.Session,
		tourneyRepo: repos.Tourney,
		cfg:         cfg,
		logger:      logger.With("component", "auth"),
	}
}

type RegisterInput struct {
	Password    string
	DisplayName string
}

type LoginInput struct {
	DisplayName string
	Password    string
}

type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Profile is an account together with the tourneys it administers.
type Profile struct {
	User     *domain.User      `json:"user"`
	Tourneys []*domain.Tourney `json:"tourneys"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.DisplayName)
	if name == "" || len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: display name and a password of at least %d characters are required", domain.ErrValidation, minPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		PasswordHash: string(hashedPassword),
		DisplayName:  name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index on display_name reports ErrDisplayNameExists.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("account registered", "user_id", user.ID, "display_name", user.DisplayName)

	return s.openSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.GetByDisplayName(ctx, strings.TrimSpace(input.DisplayName))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.logger.Info("login rejected", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

// Refresh redeems a refresh token for a new token pair. The redeemed
// session is consumed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	sessionID, secret, ok := strings.Cut(refreshToken, ".")
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired", domain.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(session.RefreshTokenHash), []byte(secret)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	// Losing the delete race means another request already redeemed it.
	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// openSession replaces every session of user with a fresh one.
func (s *AuthService) openSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	if err := s.sessionRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return nil, err
	}
	if n, err := s.sessionRepo.DeleteExpired(ctx, time.Now()); err != nil {
		s.logger.Warn("pruning expired sessions failed", "error", err)
	} else if n > 0 {
		s.logger.Debug("pruned expired sessions", "count", n)
	}
	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*AuthResult, error) {
	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}

	secret := uuid.NewString()
	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &domain.UserSession{
		ID:               uuid.New(),
		UserID:           user.ID,
		RefreshTokenHash: string(hashedSecret),
		ExpiresAt:        now.Add(sessionLifetime),
		CreatedAt:        now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: session.ID.String() + "." + secret,
	}, nil
}

func (s *AuthService) signAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Name: user.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken verifies an access token and returns the user it was
// issued to.
func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject", domain.ErrInvalidCredentials)
	}
	return userID, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Profile returns the account and every tourney it administers.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	tourneys, err := s.tourneyRepo.ListAdministered(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Tourneys: tourneys}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.sessionRepo.DeleteByUserID(ctx, userID)
}
