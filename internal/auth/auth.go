// Package auth handles password hashing and access token issuance.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nellx/marketplace-api/internal/middleware"
	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/internal/store"
)

// ErrInvalidCredentials covers both unknown nickname and wrong password
// so the two cases are indistinguishable to a caller.
var ErrInvalidCredentials = errors.New("invalid nickname or password")

// ErrNicknameTaken means registration collided with an existing account.
var ErrNicknameTaken = errors.New("nickname already taken")

// Service issues and validates credentials.
type Service struct {
	users      *store.UserStore
	jwtSecret  string
	expiration time.Duration
}

// NewService creates an auth service.
func NewService(users *store.UserStore, jwtSecret string, expiration time.Duration) *Service {
	return &Service{users: users, jwtSecret: jwtSecret, expiration: expiration}
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates an account and returns a fresh token.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (*model.TokenResponse, error) {
	if _, err := s.users.ByNickname(ctx, req.Nickname); err == nil {
		return nil, ErrNicknameTaken
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	language := req.Language
	if language == "" {
		language = "ru"
	}
	user := &model.User{
		Nickname:     req.Nickname,
		PasswordHash: hash,
		Name:         req.Name,
		TelegramID:   req.TelegramID,
		Role:         model.RoleClient,
		Rating:       5.0,
		IsActive:     true,
		Language:     language,
		LastActiveAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

// Login verifies credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.ByNickname(ctx, req.Nickname)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.IsBanned || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	_ = s.users.TouchLastActive(ctx, user.ID)
	return s.issueToken(user)
}

// CurrentUser resolves a bearer token to its account.
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	userID, _, err := middleware.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return s.users.ByID(ctx, userID)
}

func (s *Service) issueToken(user *model.User) (*model.TokenResponse, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiration)

	claims := middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: string(user.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}
