// internal/service/auth.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the user table as seen by the services.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Claims carried by access tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	Publisher bool   `json:"publisher"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users  UserStore
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewAuthService(users UserStore, secret, issuer string, ttl time.Duration) *AuthService {
	return &AuthService{users: users, secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Login checks the credentials of an active account and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", apperr.Invalid("email", "email and password are required")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Printf("[AUTH] ❌ REJECTED | Email=%s | unknown account", email)
		return nil, "", apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Printf("[AUTH] ❌ REJECTED | Email=%s | bad password", email)
		return nil, "", apperr.ErrUnauthorized
	}
	if !u.IsActive {
		log.Printf("[AUTH] ❌ REJECTED | Email=%s | inactive", email)
		return nil, "", apperr.ErrUnauthorized
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return nil, "", err
	}
	log.Printf("[AUTH] ✅ ACCEPTED | UserID=%s", u.ID)
	return u, token, nil
}

// IssueToken signs an HS256 access token for u.
func (s *AuthService) IssueToken(u *models.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:    u.ID.String(),
		Email:     u.Email,
		Publisher: u.IsPublisher,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if u.Role != nil {
		claims.Role = *u.Role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, expiry and issuer.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.ErrUnauthorized
	}
	return claims, nil
}

// Me returns the current account.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetUser(ctx, userID)
}
