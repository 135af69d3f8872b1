package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bankly/internal/models"
	"bankly/internal/storage"
)

var (
	ErrUsernameTaken      = errors.New("a user with that username already exists")
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrInvalidToken       = errors.New("token is invalid or expired")
)

// UserStore is the user persistence the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service registers users and exchanges credentials for tokens.
type Service struct {
	users  UserStore
	tokens *TokenIssuer
}

func NewService(users UserStore, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

// Tokens exposes the issuer, for callers that manage cookies themselves.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error while hashing password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and returns the user with a new token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "login for unknown user", "username", username)
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}

	if !CheckPassword(password, user.PasswordHash) {
		slog.WarnContext(ctx, "incorrect password", "username", username)
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh trades a valid refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, err := s.tokens.Parse(refresh, RefreshToken)
	if err != nil {
		return "", err
	}
	user, err := s.userFor(ctx, claims)
	if err != nil {
		return "", err
	}
	return s.tokens.Access(user.ID)
}

// Authenticate resolves an access token to its user. Tokens of deleted
// users are rejected.
func (s *Service) Authenticate(ctx context.Context, access string) (*models.User, *Claims, error) {
	claims, err := s.tokens.Parse(access, AccessToken)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.userFor(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (s *Service) userFor(ctx context.Context, claims *Claims) (*models.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}
