package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/apperr"
	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/rbac"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

// Token purposes carried in the "purpose" claim.
const (
	PurposeSession = "session"
	PurposeReset   = "password_reset"
)

// Clock returns the current time.
type Clock func() time.Time

// RoleLookup resolves a role by name. storage.RoleStore satisfies it.
type RoleLookup interface {
	FindByName(ctx context.Context, name string) (models.Role, error)
}

// TokenConfig holds the signing secret and token lifetimes.
type TokenConfig struct {
	// Secret is the base64 encoded HMAC key.
	Secret        string
	Issuer        string
	StandardTTL   time.Duration
	RememberMeTTL time.Duration
	ResetTTL      time.Duration
}

// SessionClaims are embedded in login tokens.
type SessionClaims struct {
	PrincipalID string   `json:"id"`
	Email       string   `json:"email"`
	IsPatient   bool     `json:"isPatient"`
	Permissions []string `json:"permissions"`
	Purpose     string   `json:"purpose"`
	jwt.RegisteredClaims
}

// ResetClaims are embedded in password reset tokens. They carry no permissions.
type ResetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 signed JWTs.
type TokenManager struct {
	key    []byte
	cfg    TokenConfig
	roles  RoleLookup
	now    Clock
	parser *jwt.Parser
}

// NewTokenManager decodes the signing key and builds a manager. A nil clock uses time.Now.
func NewTokenManager(cfg TokenConfig, roles RoleLookup, clock Clock) (*TokenManager, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("signing secret is empty")
	}
	if cfg.StandardTTL <= 0 || cfg.RememberMeTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if clock == nil {
		clock = time.Now
	}
	t := &TokenManager{key: key, cfg: cfg, roles: roles, now: clock}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	t.parser = jwt.NewParser(opts...)
	return t, nil
}

// Issue signs a session token for principal. When patientOverride is set the
// embedded permissions are those of the PATIENT role as stored right now, not
// the ones passed in.
func (t *TokenManager) Issue(ctx context.Context, principal models.Principal, permissions []string, rememberMe, patientOverride bool) (string, error) {
	if patientOverride {
		role, err := t.roles.FindByName(ctx, string(rbac.RolePatient))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", apperr.NotFound("role", rbac.RolePatient)
			}
			return "", fmt.Errorf("load patient role: %w", err)
		}
		permissions = role.Permissions
	}
	if permissions == nil {
		permissions = []string{}
	}

	ttl := t.cfg.StandardTTL
	if rememberMe {
		ttl = t.cfg.RememberMeTTL
	}
	claims := SessionClaims{
		PrincipalID:      principal.ID.String(),
		Email:            principal.Email,
		IsPatient:        patientOverride,
		Permissions:      permissions,
		Purpose:          PurposeSession,
		RegisteredClaims: t.registered(principal.Email, ttl),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// IssueReset signs a short-lived password reset token for principal.
func (t *TokenManager) IssueReset(principal models.Principal) (string, error) {
	claims := ResetClaims{
		Purpose:          PurposeReset,
		RegisteredClaims: t.registered(principal.Email, t.cfg.ResetTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// IsValid reports whether token is correctly signed, belongs to expectedSubject
// and has not expired.
func (t *TokenManager) IsValid(token, expectedSubject string) bool {
	var claims jwt.RegisteredClaims
	if _, err := t.parser.ParseWithClaims(token, &claims, t.keyFunc); err != nil {
		return false
	}
	return claims.Subject != "" && claims.Subject == expectedSubject
}

// ParseSession verifies a session token and returns its claims.
func (t *TokenManager) ParseSession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, err := t.parser.ParseWithClaims(token, claims, t.keyFunc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}
	if claims.Purpose != PurposeSession {
		return nil, fmt.Errorf("%w: not a session token", apperr.ErrInvalidToken)
	}
	return claims, nil
}

// ParseReset verifies a password reset token and returns its claims.
func (t *TokenManager) ParseReset(token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if _, err := t.parser.ParseWithClaims(token, claims, t.keyFunc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}
	if claims.Purpose != PurposeReset {
		return nil, fmt.Errorf("%w: not a password reset token", apperr.ErrInvalidToken)
	}
	return claims, nil
}

func (t *TokenManager) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := t.now().Truncate(time.Second)
	return jwt.RegisteredClaims{
		Issuer:    t.cfg.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (t *TokenManager) keyFunc(*jwt.Token) (any, error) {
	return t.key, nil
}
