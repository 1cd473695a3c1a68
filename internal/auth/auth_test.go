package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	tests := []struct {
		name      string
		principal Principal
		wantErr   error
	}{
		{name: "admin", principal: Principal{Subject: "ops", Role: RoleAdmin}},
		{name: "collaborator", principal: Principal{Subject: "rider-service", Role: RoleCollaborator}},
		{name: "unknown role", principal: Principal{Subject: "x", Role: "root"}, wantErr: ErrUnknownRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expires, err := m.Generate(tt.principal)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Generate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if time.Until(expires) <= 0 {
				t.Errorf("expiry %v is not in the future", expires)
			}

			got, err := m.Validate(token)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if *got != tt.principal {
				t.Errorf("Validate() = %+v, want %+v", *got, tt.principal)
			}
		})
	}
}

func TestJWTValidateRejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, _, err := m.Generate(Principal{Subject: "ops", Role: RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	expired, _, err := NewJWTManager("test-secret", -time.Minute).Generate(Principal{Subject: "ops", Role: RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong secret", token: mustGenerate(t, NewJWTManager("other", time.Hour))},
		{name: "expired", token: expired},
		{name: "garbage", token: "not-a-token"},
		{name: "truncated", token: token[:len(token)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTEmptySecret(t *testing.T) {
	m := NewJWTManager("", time.Hour)

	if _, _, err := m.Generate(Principal{Subject: "ops", Role: RoleAdmin}); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("Generate() error = %v, want ErrNoSecret", err)
	}

	claims := &Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(""))
	if err != nil {
		t.Fatal(err)
	}
	p, err := m.Validate(forged)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate() = %+v, %v; want ErrInvalidToken", p, err)
	}
}

func mustGenerate(t *testing.T, m *JWTManager) string {
	t.Helper()
	token, _, err := m.Generate(Principal{Subject: "ops", Role: RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestAdminAuthenticator(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		auth     *AdminAuthenticator
		username string
		password string
		wantErr  bool
	}{
		{name: "valid", auth: NewAdminAuthenticator("ops", hash), username: "ops", password: "correct horse"},
		{name: "wrong password", auth: NewAdminAuthenticator("ops", hash), username: "ops", password: "battery staple", wantErr: true},
		{name: "wrong username", auth: NewAdminAuthenticator("ops", hash), username: "root", password: "correct horse", wantErr: true},
		{name: "no hash configured", auth: NewAdminAuthenticator("ops", ""), username: "ops", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.auth.Authenticate(context.Background(), tt.username, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Authenticate() error = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if p.Role != RoleAdmin || p.Subject != "ops" {
				t.Errorf("Authenticate() = %+v", *p)
			}
		})
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("HashPassword() error = %v, want ErrWeakPassword", err)
	}
}

func TestPrincipalAllows(t *testing.T) {
	admin := Principal{Role: RoleAdmin}
	collab := Principal{Role: RoleCollaborator}

	if !admin.Allows(RoleCollaborator) || !admin.Allows(RoleAdmin) {
		t.Error("admin should be allowed every role")
	}
	if !collab.Allows(RoleCollaborator) {
		t.Error("collaborator should be allowed collaborator")
	}
	if collab.Allows(RoleAdmin) {
		t.Error("collaborator should not be allowed admin")
	}
}
