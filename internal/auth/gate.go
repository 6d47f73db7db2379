// Package auth implements the mock login gate in front of the registry.
//
// It is a stub boundary: one configured account, a password shape rule and a
// signed session token. It is not a credential system.
package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// State of a login attempt.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

var (
	ErrEmptyCredentials   = errors.New("please enter both username and password")
	ErrUsernameDigits     = errors.New("username must not contain numbers")
	ErrWeakPassword       = errors.New("password must contain: 1 capital, 1 number, 1 symbol (@#$%)")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid session token")
)

var (
	digit  = regexp.MustCompile(`\d`)
	upper  = regexp.MustCompile(`[A-Z]`)
	symbol = regexp.MustCompile(`[\W_]`)
)

const redirectDelay = time.Second

// Session is what a successful login hands back to the page.
type Session struct {
	State           State     `json:"-"`
	Username        string    `json:"username"`
	Token           string    `json:"token"`
	ExpiresAt       time.Time `json:"expiresAt"`
	RedirectTo      string    `json:"redirectTo"`
	RedirectAfterMs int64     `json:"redirectAfterMs"`
}

// Gate checks credentials against a single configured account.
type Gate struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewGate hashes password with bcrypt and keeps only the hash.
func NewGate(username, password, secret string, ttl time.Duration) (*Gate, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &Gate{
		username:     strings.ToLower(strings.TrimSpace(username)),
		passwordHash: hash,
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}, nil
}

// StrongPassword reports whether p has an uppercase letter, a digit and a symbol.
func StrongPassword(p string) bool {
	return upper.MatchString(p) && digit.MatchString(p) && symbol.MatchString(p)
}

// Login moves from Unauthenticated to Authenticated when every rule passes.
func (g *Gate) Login(username, password string) (Session, error) {
	user := strings.TrimSpace(username)
	pass := strings.TrimSpace(password)

	if user == "" || pass == "" {
		return Session{State: Unauthenticated}, ErrEmptyCredentials
	}
	if digit.MatchString(user) {
		return Session{State: Unauthenticated}, ErrUsernameDigits
	}
	if !StrongPassword(pass) {
		return Session{State: Unauthenticated}, ErrWeakPassword
	}
	if strings.ToLower(user) != g.username ||
		bcrypt.CompareHashAndPassword(g.passwordHash, []byte(pass)) != nil {
		return Session{State: Unauthenticated}, ErrInvalidCredentials
	}

	expires := g.now().Add(g.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   g.username,
		IssuedAt:  jwt.NewNumericDate(g.now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	tokenString, err := token.SignedString(g.secret)
	if err != nil {
		return Session{State: Unauthenticated}, fmt.Errorf("failed to generate token: %w", err)
	}

	return Session{
		State:           Authenticated,
		Username:        g.username,
		Token:           tokenString,
		ExpiresAt:       expires,
		RedirectTo:      "/dashboard",
		RedirectAfterMs: redirectDelay.Milliseconds(),
	}, nil
}

// Verify returns the subject of a valid session token.
func (g *Gate) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(g.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
