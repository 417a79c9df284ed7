package auth_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cabinet-be/internal/apperr"
	"github.com/hongminglow/cabinet-be/internal/auth"
	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/storage/memory"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testTokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:        testSecret,
		Issuer:        "cabinet-test",
		StandardTTL:   24 * time.Hour,
		RememberMeTTL: 30 * 24 * time.Hour,
		ResetTTL:      15 * time.Minute,
	}
}

func newTokenManager(t *testing.T, roles auth.RoleLookup) (*auth.TokenManager, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)}
	tm, err := auth.NewTokenManager(testTokenConfig(), roles, clock.Now)
	require.NoError(t, err)
	return tm, clock
}

func testPrincipal() models.Principal {
	return models.Principal{ID: uuid.New(), Kind: models.KindMedecin, Email: "doc@cabinet.test"}
}

func TestNewTokenManagerRejectsBadSecret(t *testing.T) {
	cfg := testTokenConfig()
	cfg.Secret = "not base64 !!"
	_, err := auth.NewTokenManager(cfg, nil, nil)
	assert.Error(t, err)

	cfg.Secret = ""
	_, err = auth.NewTokenManager(cfg, nil, nil)
	assert.Error(t, err)

	cfg = testTokenConfig()
	cfg.ResetTTL = 0
	_, err = auth.NewTokenManager(cfg, nil, nil)
	assert.Error(t, err)
}

func TestIssueLifetimes(t *testing.T) {
	tm, _ := newTokenManager(t, nil)
	p := testPrincipal()

	tests := []struct {
		name       string
		rememberMe bool
		want       time.Duration
	}{
		{name: "standard", rememberMe: false, want: 24 * time.Hour},
		{name: "remember me", rememberMe: true, want: 30 * 24 * time.Hour},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token, err := tm.Issue(context.Background(), p, []string{"VIEW_AGENDA"}, tc.rememberMe, false)
			require.NoError(t, err)
			claims, err := tm.ParseSession(token)
			require.NoError(t, err)
			assert.Equal(t, tc.want, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
		})
	}
}

func TestIssueEmbedsIdentityClaims(t *testing.T) {
	tm, _ := newTokenManager(t, nil)
	p := testPrincipal()

	token, err := tm.Issue(context.Background(), p, []string{"PATIENT_READ", "VIEW_AGENDA"}, false, false)
	require.NoError(t, err)

	claims, err := tm.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, p.Email, claims.Subject)
	assert.Equal(t, p.Email, claims.Email)
	assert.Equal(t, p.ID.String(), claims.PrincipalID)
	assert.False(t, claims.IsPatient)
	assert.Equal(t, []string{"PATIENT_READ", "VIEW_AGENDA"}, claims.Permissions)
	assert.Equal(t, auth.PurposeSession, claims.Purpose)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "cabinet-test", claims.Issuer)
}

func TestIssueWithoutPermissionsEncodesEmptyList(t *testing.T) {
	tm, _ := newTokenManager(t, nil)
	token, err := tm.Issue(context.Background(), testPrincipal(), nil, false, false)
	require.NoError(t, err)

	raw := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, raw)
	require.NoError(t, err)
	assert.Equal(t, []any{}, raw["permissions"])
}

func TestPatientOverrideUsesPatientRoleAtIssuance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	require.NoError(t, repos.Permissions.SaveAll(ctx, []models.Permission{
		{Name: "VIEW_DOSSIER"}, {Name: "VIEW_RAPPORT"}, {Name: "MANAGE_STAFF"},
	}))
	patientRole, err := repos.Roles.Save(ctx, models.Role{Name: "PATIENT", Permissions: []string{"VIEW_DOSSIER"}}, "test")
	require.NoError(t, err)

	tm, _ := newTokenManager(t, repos.Roles)
	p := testPrincipal()

	token, err := tm.Issue(ctx, p, []string{"MANAGE_STAFF"}, false, true)
	require.NoError(t, err)
	claims, err := tm.ParseSession(token)
	require.NoError(t, err)
	assert.True(t, claims.IsPatient)
	assert.Equal(t, []string{"VIEW_DOSSIER"}, claims.Permissions)

	patientRole.Permissions = []string{"VIEW_DOSSIER", "VIEW_RAPPORT"}
	_, err = repos.Roles.Save(ctx, patientRole, "test")
	require.NoError(t, err)

	token, err = tm.Issue(ctx, p, nil, false, true)
	require.NoError(t, err)
	claims, err = tm.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"VIEW_DOSSIER", "VIEW_RAPPORT"}, claims.Permissions)
}

func TestPatientOverrideWithoutPatientRole(t *testing.T) {
	tm, _ := newTokenManager(t, memory.NewStore().Repositories().Roles)
	_, err := tm.Issue(context.Background(), testPrincipal(), nil, false, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResetTokenLifetime(t *testing.T) {
	tm, clock := newTokenManager(t, nil)
	p := testPrincipal()

	token, err := tm.IssueReset(p)
	require.NoError(t, err)
	assert.True(t, tm.IsValid(token, p.Email))
	assert.False(t, tm.IsValid(token, "someone@else.test"))

	claims, err := tm.ParseReset(token)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt.Time))

	clock.Advance(15*time.Minute - time.Second)
	assert.True(t, tm.IsValid(token, p.Email))

	// Expiry is exclusive.
	clock.Advance(time.Second)
	assert.False(t, tm.IsValid(token, p.Email))

	clock.Advance(time.Hour)
	assert.False(t, tm.IsValid(token, p.Email))
	_, err = tm.ParseReset(token)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestResetTokenCarriesNoPermissions(t *testing.T) {
	tm, _ := newTokenManager(t, nil)
	token, err := tm.IssueReset(testPrincipal())
	require.NoError(t, err)

	raw := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, raw)
	require.NoError(t, err)
	assert.NotContains(t, raw, "permissions")
	assert.NotContains(t, raw, "id")
	assert.Equal(t, auth.PurposeReset, raw["purpose"])
}

func TestPurposeSeparation(t *testing.T) {
	tm, _ := newTokenManager(t, nil)
	p := testPrincipal()

	session, err := tm.Issue(context.Background(), p, nil, false, false)
	require.NoError(t, err)
	reset, err := tm.IssueReset(p)
	require.NoError(t, err)

	_, err = tm.ParseReset(session)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	_, err = tm.ParseSession(reset)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestTamperedAndForeignTokensAreInvalid(t *testing.T) {
	tm, clock := newTokenManager(t, nil)
	p := testPrincipal()

	token, err := tm.Issue(context.Background(), p, nil, false, false)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	assert.False(t, tm.IsValid(tampered, p.Email))
	assert.False(t, tm.IsValid("not-a-token", p.Email))

	otherCfg := testTokenConfig()
	otherCfg.Secret = base64.StdEncoding.EncodeToString([]byte("another-secret-another-secret-xx"))
	other, err := auth.NewTokenManager(otherCfg, nil, clock.Now)
	require.NoError(t, err)
	foreign, err := other.Issue(context.Background(), p, nil, false, false)
	require.NoError(t, err)
	assert.False(t, tm.IsValid(foreign, p.Email))

	key, err := base64.StdEncoding.DecodeString(testSecret)
	require.NoError(t, err)
	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.RegisteredClaims{
		Subject:   p.Email,
		Issuer:    "cabinet-test",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}).SignedString(key)
	require.NoError(t, err)
	assert.False(t, tm.IsValid(hs384, p.Email))
}
