package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"movie-trivia-service/internal/domain"
)

const (
	minPasswordLen  = 8
	maxPasswordLen  = 72 // bcrypt limit
	minUsernameLen  = 3
	maxUsernameLen  = 24
	defaultTokenTTL = 14 * 24 * time.Hour
)

// Claims identifies the player behind a token.
type Claims struct {
	PlayerID string
	Username string
	Expires  time.Time
}

// AuthService issues and verifies HS256 session tokens.
type AuthService struct {
	accounts AccountRepository
	profiles ProfileRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthService(accounts AccountRepository, profiles ProfileRepository, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{accounts: accounts, profiles: profiles, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock swaps the clock used to issue and verify tokens, for tests.
func (a *AuthService) WithClock(now func() time.Time) *AuthService {
	a.now = now
	return a
}

// SignUp creates an account and its profile and returns a token for it.
func (a *AuthService) SignUp(ctx context.Context, email, password, username string) (string, Claims, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)
	if err := validateSignup(email, password, username); err != nil {
		return "", Claims{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", Claims{}, fmt.Errorf("hash password: %w", err)
	}
	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    a.now().UTC(),
	}
	if err := a.accounts.Create(ctx, account); err != nil {
		return "", Claims{}, err
	}
	if err := a.profiles.Upsert(ctx, domain.Profile{PlayerID: account.ID, DisplayName: username}); err != nil {
		return "", Claims{}, fmt.Errorf("create profile: %w", err)
	}
	return a.issue(account.ID, username)
}

// Login verifies credentials. Every mismatch is reported as
// domain.ErrInvalidCredentials.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, Claims, error) {
	account, err := a.accounts.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return "", Claims{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", Claims{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", Claims{}, domain.ErrInvalidCredentials
	}

	username := ""
	if p, err := a.profiles.Get(ctx, account.ID); err == nil {
		username = p.DisplayName
	}
	return a.issue(account.ID, username)
}

func (a *AuthService) issue(playerID, username string) (string, Claims, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       playerID,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, Claims{PlayerID: playerID, Username: username, Expires: exp}, nil
}

// ParseToken validates a token and returns its claims.
func (a *AuthService) ParseToken(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, domain.ErrUnauthorized
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return Claims{}, domain.ErrUnauthorized
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return Claims{}, domain.ErrUnauthorized
	}
	username, _ := claims["username"].(string)
	out := Claims{PlayerID: id, Username: username}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Expires = exp.Time
	}
	return out, nil
}

// Me returns the account and profile behind a player id.
func (a *AuthService) Me(ctx context.Context, playerID string) (domain.Account, domain.Profile, error) {
	account, err := a.accounts.ByID(ctx, playerID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, domain.Profile{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Account{}, domain.Profile{}, err
	}
	profile, err := a.profiles.Get(ctx, playerID)
	if errors.Is(err, domain.ErrNotFound) {
		profile = domain.Profile{PlayerID: playerID, DisplayName: anonymousName}
	} else if err != nil {
		return domain.Account{}, domain.Profile{}, err
	}
	return account, profile, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignup(email, password, username string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return fmt.Errorf("%w: password must be %d-%d chars", domain.ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}
	return validateUsername(username)
}

func validateUsername(username string) error {
	n := len([]rune(username))
	if n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d-%d chars", domain.ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	for _, r := range username {
		if r == '_' || r == ' ' || r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			continue
		}
		return fmt.Errorf("%w: username has unsupported characters", domain.ErrInvalidInput)
	}
	return nil
}
