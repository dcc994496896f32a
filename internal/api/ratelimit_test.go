package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.0.2.10:54321",
			want:       "192.0.2.10",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			want:       "198.51.100.4",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.10",
			want:       "192.0.2.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"http://localhost", true},
		{"http://localhost:9999", true},
		{"http://127.0.0.1:8080", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		if got := IsAllowedOrigin(tt.origin); got != tt.want {
			t.Errorf("IsAllowedOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestAddAllowedOrigin(t *testing.T) {
	original := AllowedOrigins
	defer func() { AllowedOrigins = original }()

	origin := "https://arena.example.com"
	if IsAllowedOrigin(origin) {
		t.Fatalf("%q allowed before registration", origin)
	}
	AddAllowedOrigin(origin)
	if !IsAllowedOrigin(origin) {
		t.Errorf("%q rejected after registration", origin)
	}
}

func TestIPRateLimiterBurst(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	if !rl.Allow("192.0.2.1") || !rl.Allow("192.0.2.1") {
		t.Fatal("requests within burst rejected")
	}
	if rl.Allow("192.0.2.1") {
		t.Error("request over burst allowed")
	}
	// Another IP has its own budget.
	if !rl.Allow("192.0.2.2") {
		t.Error("fresh IP rejected")
	}

	stats := rl.GetStats()
	if stats["allowed"] != 3 || stats["rejected"] != 1 {
		t.Errorf("stats = %v, want 3 allowed / 1 rejected", stats)
	}
}

func TestWebSocketRateLimiterPerIP(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	if !wrl.Allow("192.0.2.1") || !wrl.Allow("192.0.2.1") {
		t.Fatal("connections within limit rejected")
	}
	if wrl.Allow("192.0.2.1") {
		t.Error("connection over per-IP limit allowed")
	}
	if wrl.GetConnectionCount("192.0.2.1") != 2 {
		t.Errorf("connection count = %d, want 2", wrl.GetConnectionCount("192.0.2.1"))
	}

	wrl.Release("192.0.2.1")
	if !wrl.Allow("192.0.2.1") {
		t.Error("released slot not reusable")
	}
}
