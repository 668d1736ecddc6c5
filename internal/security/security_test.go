package security

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"familytasks/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"matching password", "correct horse", hash, true},
		{"wrong password", "battery staple", hash, false},
		{"empty hash", "correct horse", "", false},
		{"garbage hash", "correct horse", "not-a-hash", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateURLToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := GenerateURLToken(InvitationTokenBytes)
		if err != nil {
			t.Fatalf("GenerateURLToken() error = %v", err)
		}
		// 32 bytes of unpadded base64 is 43 characters
		if len(token) != 43 {
			t.Errorf("token length = %d, want 43", len(token))
		}
		if strings.ContainsAny(token, "+/=") {
			t.Errorf("token %q is not URL safe", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestTokenManager(t *testing.T) {
	manager := NewTokenManager("test-secret", 15*time.Minute, 7*24*time.Hour)
	user := &models.User{ID: "user-1", Role: models.RoleParent}

	pair, err := manager.IssuePair(user)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}
	if pair.ExpiresIn != 900 {
		t.Errorf("ExpiresIn = %d, want 900", pair.ExpiresIn)
	}

	claims, err := manager.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess() error = %v", err)
	}
	if claims.UserID() != "user-1" || claims.Role != models.RoleParent || claims.ID == "" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, err := manager.ParseAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseAccess(refresh) error = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.ParseRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseRefresh(access) error = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.ParseRefresh(pair.RefreshToken); err != nil {
		t.Errorf("ParseRefresh() error = %v", err)
	}

	other := NewTokenManager("other-secret", time.Minute, time.Hour)
	if _, err := other.ParseAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign signature error = %v, want ErrInvalidToken", err)
	}

	second, err := manager.IssuePair(user)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}
	if second.RefreshToken == pair.RefreshToken {
		t.Error("rotated refresh tokens must differ")
	}
}

func TestTokenManagerExpiry(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Minute, time.Hour)
	issued := time.Now()
	manager.now = func() time.Time { return issued }

	pair, err := manager.IssuePair(&models.User{ID: "u", Role: models.RoleChild})
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	manager.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := manager.ParseAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired access token error = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.ParseRefresh(pair.RefreshToken); err != nil {
		t.Errorf("refresh token should still be valid: %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	defer rl.Stop()

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other clients have their own bucket")
	}

	rl.sweep(time.Now().Add(3 * time.Hour))
	if len(rl.visitors) != 0 {
		t.Errorf("sweep should drop idle visitors, %d left", len(rl.visitors))
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	defer rl.Stop()

	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}
	for i, want := range codes {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		// a rotating forwarded header must not buy a fresh bucket
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Errorf("request %d status = %d, want %d", i, rr.Code, want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"ignores forwarded chain", "203.0.113.7, 10.0.0.1", "", "10.0.0.1:80", "10.0.0.1"},
		{"ignores real ip header", "", "198.51.100.2", "10.0.0.1:80", "10.0.0.1"},
		{"remote addr", "", "", "192.0.2.5:4321", "192.0.2.5"},
		{"remote addr without port", "", "", "192.0.2.9", "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedisRevocationList(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()
	client, err := ConnectRedis(ctx, url)
	if err != nil {
		t.Fatalf("ConnectRedis() error = %v", err)
	}
	defer client.Close()

	list := NewRedisRevocationList(client)
	jti := "test-" + time.Now().Format("150405.000000")

	revoked, err := list.IsRevoked(ctx, jti)
	if err != nil || revoked {
		t.Fatalf("IsRevoked(before) = %v, %v", revoked, err)
	}
	if err := list.Revoke(ctx, jti, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	revoked, err = list.IsRevoked(ctx, jti)
	if err != nil || !revoked {
		t.Errorf("IsRevoked(after) = %v, %v", revoked, err)
	}
}
