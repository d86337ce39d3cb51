package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"patrolops/api/internal/docstore"
	"patrolops/api/internal/model"
)

// RevokedSessionsKey holds the ids of logged-out tokens until they expire.
const RevokedSessionsKey = "sessions:revoked"

// Claims is the JWT payload of a session token.
type Claims struct {
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles authentication business logic
type AuthService struct {
	users  *UserService
	store  docstore.Store
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewAuthService creates a new auth service
func NewAuthService(users *UserService, store docstore.Store, secret string, ttl time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Login validates credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			s.logger.Info("login rejected", zap.String("username", username))
		}
		return nil, err
	}
	token, expiresAt, err := s.Issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &model.LoginResponse{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

// Issue signs a new token for user.
func (s *AuthService) Issue(user *model.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// ParseToken verifies signature, expiry and revocation of a token.
func (s *AuthService) ParseToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredential
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, ErrInvalidCredential
	}

	revoked, err := s.loadRevoked(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := revoked[claims.ID]; ok {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	expiresAt := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	revoked, err := s.loadRevoked(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	for id, exp := range revoked {
		if !exp.After(now) {
			delete(revoked, id)
		}
	}
	revoked[claims.ID] = expiresAt
	if err := docstore.SetJSON(ctx, s.store, RevokedSessionsKey, revoked); err != nil {
		s.logger.Error("persist revoked sessions failed", zap.Error(err))
		return fmt.Errorf("persist revoked sessions: %w", err)
	}
	s.logger.Info("logout", zap.String("user_id", claims.UserID))
	return nil
}

func (s *AuthService) loadRevoked(ctx context.Context) (map[string]time.Time, error) {
	revoked := make(map[string]time.Time)
	if _, err := docstore.GetJSON(ctx, s.store, RevokedSessionsKey, &revoked); err != nil {
		return nil, fmt.Errorf("load revoked sessions: %w", err)
	}
	if revoked == nil {
		revoked = make(map[string]time.Time)
	}
	return revoked, nil
}

// Resolve returns the current user of a verified token. Role and region
// changes apply on the next request.
func (s *AuthService) Resolve(ctx context.Context, claims *Claims) (*model.User, error) {
	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	return user, nil
}
