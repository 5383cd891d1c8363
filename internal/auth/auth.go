// Package auth is the authentication façade: user registration/login,
// JWT issuance and verification, and account-scoped LLM key management.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/llmholdem/server/internal/store"
)

// Sentinel error kinds returned by Service methods.
var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
)

// User is the façade's public view of an account, stripped of its password
// hash.
type User struct {
	ID      string
	Name    string
	Email   string
	Active  bool
	IsAdmin bool
	LLMKey  string
}

// Claims is the JWT payload this service issues and verifies.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Service wraps the user store with password hashing and JWT issuance.
type Service struct {
	store       *store.Store
	secret      []byte
	tokenExpiry time.Duration
}

// NewService builds an auth façade over store backed by the given HS256
// secret. expiry is how long issued tokens remain valid.
func NewService(s *store.Store, secret []byte, expiry time.Duration) *Service {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Service{store: s, secret: secret, tokenExpiry: expiry}
}

func toUser(u store.User) User {
	return User{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Active:  u.Active,
		IsAdmin: u.IsAdmin,
		LLMKey:  u.LLMKey.String,
	}
}

// CreateUser registers a new account. Returns ErrAlreadyExists if name or
// email is already taken.
func (s *Service) CreateUser(name, email, password string) (User, error) {
	if _, err := s.store.UserByName(name); err == nil {
		return User{}, ErrAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return User{}, fmt.Errorf("auth: lookup existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}

	u, err := s.store.CreateUser(name, email, string(hash))
	if err != nil {
		// The email (and a name registered concurrently) is only caught by
		// the schema's UNIQUE constraints.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrAlreadyExists
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}
	return toUser(u), nil
}

// Authenticate checks name/password and returns the matching user.
func (s *Service) Authenticate(name, password string) (User, error) {
	u, err := s.store.UserByName(name)
	if errors.Is(err, store.ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("auth: lookup user: %w", err)
	}
	if !u.Active {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return toUser(u), nil
}

// UserByID looks up a user by opaque id.
func (s *Service) UserByID(id string) (User, error) {
	u, err := s.store.UserByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("auth: lookup user: %w", err)
	}
	return toUser(u), nil
}

// SetLLMKey sets the account-scoped LLM API key.
func (s *Service) SetLLMKey(userID, key string) error {
	if err := s.store.SetLLMKey(userID, key); err != nil {
		return fmt.Errorf("auth: set llm key: %w", err)
	}
	return nil
}

// ClearLLMKey clears the account-scoped LLM API key.
func (s *Service) ClearLLMKey(userID string) error {
	if err := s.store.ClearLLMKey(userID); err != nil {
		return fmt.Errorf("auth: clear llm key: %w", err)
	}
	return nil
}

// IssueToken mints a signed JWT for userID, valid for the service's
// configured expiry.
func (s *Service) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a JWT, returning the resolved user.
// Returns ErrInvalidCredentials for any malformed, expired, or
// unrecognized-signature token, and ErrNotFound if the token is well
// formed but names a user that no longer exists.
func (s *Service) VerifyToken(tokenString string) (User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return User{}, ErrInvalidCredentials
	}

	return s.UserByID(claims.UserID)
}
