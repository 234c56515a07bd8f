package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"github.com/rpupo63/foodgram-backend/services"
)

type fakeTokens map[string]string

func (f fakeTokens) Parse(ctx context.Context, raw string) (*services.Claims, error) {
	sub, ok := f[raw]
	if !ok {
		return nil, errs.NewInvalidTokenError()
	}
	return &services.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ID: "jti-" + raw}}, nil
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errs.NewNotFound("user")
}

func newTestAuth() authMiddleware {
	tokens := fakeTokens{"cook": "1", "admin": "2", "ghost": "99", "off": "3"}
	users := fakeUsers{
		1: {ID: 1, Username: "cook", Role: models.RoleUser, IsActive: true},
		2: {ID: 2, Username: "boss", Role: models.RoleAdmin, IsActive: true},
		3: {ID: 3, Username: "gone", Role: models.RoleUser, IsActive: false},
	}
	return newAuthMiddleware(tokens, users)
}

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Token abc", "abc", true},
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Token", "", false},
		{"Token   ", "", false},
	}
	for _, tt := range tests {
		got, ok := tokenFromHeader(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("tokenFromHeader(%q) = %q, %v", tt.header, got, ok)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	auth := newTestAuth()

	var seen *models.User
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxGetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		chain      http.Handler
		header     string
		wantStatus int
		wantUser   uint
	}{
		{"required, no header", auth.authenticate(echo), "", http.StatusUnauthorized, 0},
		{"required, valid", auth.authenticate(echo), "Token cook", http.StatusOK, 1},
		{"required, unknown token", auth.authenticate(echo), "Token nope", http.StatusUnauthorized, 0},
		{"required, deleted user", auth.authenticate(echo), "Token ghost", http.StatusUnauthorized, 0},
		{"required, inactive user", auth.authenticate(echo), "Token off", http.StatusUnauthorized, 0},
		{"optional, anonymous", auth.optional(echo), "", http.StatusOK, 0},
		{"optional, valid", auth.optional(echo), "Bearer cook", http.StatusOK, 1},
		{"optional, bad scheme", auth.optional(echo), "Basic cook", http.StatusUnauthorized, 0},
		{"admin, regular user", auth.authenticate(auth.requireAdmin(echo)), "Token cook", http.StatusForbidden, 0},
		{"admin, admin", auth.authenticate(auth.requireAdmin(echo)), "Token admin", http.StatusOK, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.chain.ServeHTTP(rec, r)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var got uint
			if seen != nil {
				got = seen.ID
			}
			if got != tt.wantUser {
				t.Errorf("user = %d, want %d", got, tt.wantUser)
			}
		})
	}
}

func TestAuthMiddleware_ClaimsInContext(t *testing.T) {
	auth := newTestAuth()
	var claims *services.Claims
	h := auth.authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims = ctxGetClaims(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/auth/token/logout/", nil)
	r.Header.Set("Authorization", "Token cook")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if claims == nil || claims.ID != "jti-cook" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLogInternalServerErrors_RecoversPanic(t *testing.T) {
	h := LogInternalServerErrors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recipes/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != "Internal Server Error" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestCORSCheckMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := CORSCheckMiddleware([]string{"https://foodgram.example"})(next)

	tests := []struct {
		name   string
		method string
		origin string
		want   int
	}{
		{"allowed preflight", http.MethodOptions, "https://foodgram.example", http.StatusNoContent},
		{"blocked preflight", http.MethodOptions, "https://evil.example", http.StatusForbidden},
		{"simple request passes", http.MethodGet, "https://evil.example", http.StatusNoContent},
		{"no origin", http.MethodOptions, "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/recipes/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
