package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/apperr"
	"github.com/hongminglow/cabinet-be/internal/mail"
	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/rbac"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

// PermissionResolver computes a principal's effective permissions. *rbac.Authorizer satisfies it.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, principalID uuid.UUID) ([]string, error)
	Roles(ctx context.Context, principalID uuid.UUID) ([]models.Role, error)
}

// ResetLedger records consumed reset tokens. Consume reports false for a token
// id that was already used.
type ResetLedger interface {
	Consume(ctx context.Context, tokenID string, until time.Time) (bool, error)
}

// Recorder observes authentication outcomes.
type Recorder interface {
	RecordLogin(kind string, outcome string)
	RecordTokenIssued(purpose string)
}

// Deps gathers the collaborators of Service. Ledger and Recorder are optional.
type Deps struct {
	Store       storage.Store
	Permissions PermissionResolver
	Tokens      *TokenManager
	Hasher      Hasher
	Mailer      mail.Sender
	Ledger      ResetLedger
	Recorder    Recorder
	ResetURL    string
	Logger      *slog.Logger
}

// Service implements registration, login and password reset.
type Service struct {
	Deps
}

// NewService builds a Service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Service{Deps: deps}
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Kind        models.Kind
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// LoginInput is a validated login request.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// Profile is the authenticated principal with its roles and permissions.
type Profile struct {
	models.Principal
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

var defaultRoles = map[models.Kind]rbac.RoleKind{
	models.KindPatient:   rbac.RolePatient,
	models.KindMedecin:   rbac.RoleMedecin,
	models.KindAssistant: rbac.RoleAssistant,
}

// Register creates a principal of the given kind and assigns the kind's default
// role. Plain users get no role.
func (s *Service) Register(ctx context.Context, actor string, in RegisterInput) (models.Principal, error) {
	if !in.Kind.Valid() {
		return models.Principal{}, apperr.Invalid("kind", "unknown account kind")
	}
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return models.Principal{}, fmt.Errorf("hash password: %w", err)
	}
	email := models.NormalizeEmail(in.Email)
	if actor == "" {
		actor = email
	}

	var created models.Principal
	err = s.Store.WithinTx(ctx, func(repos storage.Repositories) error {
		created, err = repos.Principals.Create(ctx, models.Principal{
			Kind:         in.Kind,
			Email:        email,
			PasswordHash: hash,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			PhoneNumber:  in.PhoneNumber,
			CreatedBy:    actor,
		})
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return fmt.Errorf("principal with email %s: %w", email, apperr.ErrAlreadyExists)
			}
			return fmt.Errorf("create principal: %w", err)
		}

		roleKind, ok := defaultRoles[in.Kind]
		if !ok {
			return nil
		}
		role, err := repos.Roles.FindByName(ctx, string(roleKind))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.NotFound("role", roleKind)
			}
			return fmt.Errorf("find role %s: %w", roleKind, err)
		}
		if err := repos.Principals.AddRole(ctx, created.ID, role.ID, actor); err != nil {
			return fmt.Errorf("assign default role: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Principal{}, err
	}
	s.Logger.InfoContext(ctx, "principal registered", slog.String("id", created.ID.String()), slog.String("kind", string(created.Kind)))
	return created, nil
}

// Login authenticates any principal kind and issues a session token.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, error) {
	return s.login(ctx, "", in)
}

// LoginAs authenticates a principal that must be of the given kind. Patients
// receive a token carrying the PATIENT role's permissions.
func (s *Service) LoginAs(ctx context.Context, kind models.Kind, in LoginInput) (string, error) {
	return s.login(ctx, kind, in)
}

func (s *Service) login(ctx context.Context, kind models.Kind, in LoginInput) (string, error) {
	label := string(kind)
	if label == "" {
		label = "ANY"
	}
	token, err := s.authenticate(ctx, kind, in)
	switch {
	case err == nil:
		s.Recorder.RecordLogin(label, "success")
	case errors.Is(err, apperr.ErrAuthenticationFailed), errors.Is(err, apperr.ErrNotFound):
		s.Recorder.RecordLogin(label, "rejected")
	default:
		s.Recorder.RecordLogin(label, "error")
	}
	return token, err
}

func (s *Service) authenticate(ctx context.Context, kind models.Kind, in LoginInput) (string, error) {
	email := models.NormalizeEmail(in.Email)
	principal, err := s.Store.Repositories().Principals.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperr.NotFound("principal", email)
		}
		return "", fmt.Errorf("find principal: %w", err)
	}
	if kind != "" && principal.Kind != kind {
		return "", apperr.NotFound("principal", email)
	}
	if err := s.Hasher.Compare(principal.PasswordHash, in.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return "", apperr.ErrAuthenticationFailed
		}
		return "", fmt.Errorf("compare password: %w", err)
	}

	patientOverride := kind == models.KindPatient
	var permissions []string
	if !patientOverride {
		if permissions, err = s.Permissions.EffectivePermissions(ctx, principal.ID); err != nil {
			return "", err
		}
	}
	token, err := s.Tokens.Issue(ctx, principal, permissions, in.RememberMe, patientOverride)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.Recorder.RecordTokenIssued(PurposeSession)
	return token, nil
}

// ForgotPassword mails a reset link to the principal owning email.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	principal, err := s.Store.Repositories().Principals.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("principal", email)
		}
		return fmt.Errorf("find principal: %w", err)
	}
	token, err := s.Tokens.IssueReset(principal)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	s.Recorder.RecordTokenIssued(PurposeReset)

	link, err := resetLink(s.ResetURL, token)
	if err != nil {
		return err
	}
	body := "Cliquez sur le lien suivant pour réinitialiser votre mot de passe : " + link
	if err := s.Mailer.Send(ctx, principal.Email, "Réinitialisation du mot de passe", body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetPassword sets a new password for the subject of a reset token. Session
// tokens are rejected, and with a ledger configured each reset token works once.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) error {
	claims, err := s.Tokens.ParseReset(token)
	if err != nil {
		return err
	}
	if password != confirm {
		return apperr.Invalid("confirmPassword", "passwords do not match")
	}
	principal, err := s.Store.Repositories().Principals.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: unknown subject", apperr.ErrInvalidToken)
		}
		return fmt.Errorf("find principal: %w", err)
	}
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	// The token is consumed last so a failed update leaves it usable.
	err = s.Store.WithinTx(ctx, func(repos storage.Repositories) error {
		if err := repos.Principals.UpdatePassword(ctx, principal.ID, hash, principal.Email); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if s.Ledger == nil {
			return nil
		}
		fresh, err := s.Ledger.Consume(ctx, claims.ID, claims.ExpiresAt.Time)
		if err != nil {
			return err
		}
		if !fresh {
			return fmt.Errorf("%w: reset token already used", apperr.ErrInvalidToken)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.InfoContext(ctx, "password reset", slog.String("id", principal.ID.String()))
	return nil
}

// Me returns the profile of the principal identified by a session token.
func (s *Service) Me(ctx context.Context, principalID uuid.UUID) (Profile, error) {
	principal, err := s.Store.Repositories().Principals.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Profile{}, apperr.NotFound("principal", principalID)
		}
		return Profile{}, fmt.Errorf("find principal: %w", err)
	}
	roles, err := s.Permissions.Roles(ctx, principalID)
	if err != nil {
		return Profile{}, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return Profile{Principal: principal, Roles: names, Permissions: rbac.Union(roles)}, nil
}

// EnsurePrincipal creates a principal with the given credentials when no
// principal owns the email yet. It reports whether one was created.
func (s *Service) EnsurePrincipal(ctx context.Context, kind models.Kind, email, password string) (bool, error) {
	_, err := s.Store.Repositories().Principals.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return false, fmt.Errorf("find principal: %w", err)
	}
	if _, err := s.Register(ctx, rbac.SystemActor, RegisterInput{Kind: kind, Email: email, Password: password}); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func resetLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse reset url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type nopRecorder struct{}

func (nopRecorder) RecordLogin(string, string) {}
func (nopRecorder) RecordTokenIssued(string)   {}
