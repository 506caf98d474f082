package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/easydata/internal/core"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"no proxies configured", nil, "10.0.0.1:1234", map[string]string{"X-Real-IP": "1.2.3.4"}, "10.0.0.1:1234"},
		{"trusted cidr uses x-real-ip", []string{"10.0.0.0/8"}, "10.0.0.1:1234", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted single ip", []string{"10.0.0.1"}, "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, "5.6.7.8"},
		{"untrusted source ignored", []string{"10.0.0.0/8"}, "192.168.1.1:99", map[string]string{"X-Real-IP": "1.2.3.4"}, "192.168.1.1:99"},
		{"invalid header ignored", []string{"10.0.0.0/8"}, "10.0.0.1:1234", map[string]string{"X-Real-IP": "not-an-ip"}, "10.0.0.1:1234"},
		{"invalid cidr skipped", []string{"bogus", "10.0.0.0/8"}, "10.0.0.1:1", map[string]string{"X-Real-IP": "::1"}, "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name string
		keys []string
		key  string
		want int
	}{
		{"open when no keys", nil, "", http.StatusNoContent},
		{"missing key", []string{"k1"}, "", http.StatusUnauthorized},
		{"wrong key", []string{"k1"}, "nope", http.StatusForbidden},
		{"second key accepted", []string{"k1", "k2"}, "k2", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.keys)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequestInfo(t *testing.T) {
	var ip, ua string
	h := RequestInfo(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = core.GetIPAddressFromContext(r.Context())
		ua = core.GetUserAgentFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4"
	req.Header.Set("User-Agent", "curl/8")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if ip != "1.2.3.4" || ua != "curl/8" {
		t.Errorf("got ip=%q ua=%q", ip, ua)
	}
}

func TestLoggerCapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
