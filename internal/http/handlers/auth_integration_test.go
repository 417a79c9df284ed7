package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/cabinet-be/internal/auth"
	"github.com/hongminglow/cabinet-be/internal/config"
	"github.com/hongminglow/cabinet-be/internal/mail"
	"github.com/hongminglow/cabinet-be/internal/rbac"
	"github.com/hongminglow/cabinet-be/internal/server"
	"github.com/hongminglow/cabinet-be/internal/storage/postgres"
)

// TestAuthIntegration exercises registration, login and role lookup against a live Postgres.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "true" {
		t.Skip("set RUN_AUTH_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StorageDriver != config.DriverPostgres {
		t.Fatalf("STORAGE_DRIVER must be postgres, got %q", cfg.StorageDriver)
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	defer store.Close()

	if err := rbac.NewReconciler(store, nil).Run(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:        cfg.SecretKey,
		Issuer:        cfg.JWTIssuer,
		StandardTTL:   cfg.TokenTTL,
		RememberMeTTL: cfg.RememberMeTTL,
		ResetTTL:      cfg.ResetPasswordTTL,
	}, store.Repositories().Roles, time.Now)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	authz := rbac.NewAuthorizer(store)
	logger := slog.New(slog.DiscardHandler)
	svc := auth.NewService(auth.Deps{
		Store:       store,
		Permissions: authz,
		Tokens:      tokens,
		Hasher:      auth.NewBcryptHasher(),
		Mailer:      mail.LogSender{Logger: logger},
		ResetURL:    cfg.ResetPasswordURL,
		Logger:      logger,
	})

	ts := httptest.NewServer(server.NewRouter(cfg, server.Deps{
		Auth:       svc,
		Tokens:     tokens,
		Authorizer: authz,
		Roles:      rbac.NewManager(store),
		Logger:     logger,
	}))
	defer ts.Close()

	email := fmt.Sprintf("apitest_%d@example.com", time.Now().UnixNano())
	password := fmt.Sprintf("Pass!%d", time.Now().UnixNano())

	var created struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Kind  string `json:"kind"`
	}
	call(t, http.MethodPost, ts.URL+"/auth/register/medecin", "", map[string]string{
		"email": email, "password": password, "firstName": "Integration", "lastName": "Test",
	}, http.StatusCreated, &created)
	if created.Email != email || created.Kind != "MEDECIN" {
		t.Fatalf("register mismatch: got %+v", created)
	}

	var login struct {
		Token string `json:"token"`
	}
	call(t, http.MethodPost, ts.URL+"/auth/login/medecin", "", map[string]string{
		"email": email, "password": password,
	}, http.StatusOK, &login)
	if login.Token == "" {
		t.Fatal("login response missing token")
	}

	var me auth.Profile
	call(t, http.MethodGet, ts.URL+"/auth/me", login.Token, nil, http.StatusOK, &me)
	if me.ID.String() != created.ID {
		t.Fatalf("me returned wrong id: want %s got %s", created.ID, me.ID)
	}
	if !slices.Equal(me.Roles, []string{"MEDECIN"}) {
		t.Fatalf("unexpected roles: %v", me.Roles)
	}
	if !slices.Contains(me.Permissions, string(rbac.PrescriptionCreate)) {
		t.Fatalf("missing %s in %v", rbac.PrescriptionCreate, me.Permissions)
	}

	t.Logf("registered %s (id=%s) and logged in via /auth/login/medecin", email, created.ID)
}

func call(t *testing.T, method, url, token string, payload any, wantStatus int, out any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s response: %v", url, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s status = %d (%s)", method, url, resp.StatusCode, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode %s data: %v", url, err)
		}
	}
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
