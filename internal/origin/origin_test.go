package origin

import (
	"net/http/httptest"
	"testing"
)

func TestNormalizeHeader(t *testing.T) {
	cases := []struct {
		raw        string
		normalized string
		host       string
		ok         bool
	}{
		{raw: "HTTPS://Example.COM:443", normalized: "https://example.com", host: "example.com", ok: true},
		{raw: "http://localhost:5173/", normalized: "http://localhost:5173", host: "localhost:5173", ok: true},
		{raw: "http://[::1]:3030", normalized: "http://[::1]:3030", host: "[::1]:3030", ok: true},
		{raw: "null", normalized: "null", host: "", ok: true},
		{raw: "", ok: false},
		{raw: "ftp://example.com", ok: false},
		{raw: "https://example.com/path", ok: false},
		{raw: "https://example.com/?q=1", ok: false},
		{raw: "https://user@example.com", ok: false},
		{raw: "https://example.com/#frag", ok: false},
		{raw: "https://example.com:0", ok: false},
		{raw: "https://example.com:70000", ok: false},
	}
	for _, tc := range cases {
		normalized, host, ok := NormalizeHeader(tc.raw)
		if ok != tc.ok {
			t.Fatalf("%q: ok=%v, want %v", tc.raw, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if normalized != tc.normalized || host != tc.host {
			t.Fatalf("%q: got (%q, %q), want (%q, %q)", tc.raw, normalized, host, tc.normalized, tc.host)
		}
	}
}

func TestIsAllowed(t *testing.T) {
	t.Run("same host by default", func(t *testing.T) {
		if !IsAllowed("https://relay.example.com", "relay.example.com", "relay.example.com:443", nil) {
			t.Fatal("expected default port to be equivalent")
		}
		if IsAllowed("https://evil.example.com", "evil.example.com", "relay.example.com", nil) {
			t.Fatal("expected cross-host origin to be rejected")
		}
		if IsAllowed("null", "", "relay.example.com", nil) {
			t.Fatal("null origin must not match a host")
		}
	})

	t.Run("allowlist", func(t *testing.T) {
		allowed := []string{"https://app.example.com"}
		if !IsAllowed("https://app.example.com", "app.example.com", "relay.example.com", allowed) {
			t.Fatal("expected allowlisted origin")
		}
		if IsAllowed("https://relay.example.com", "relay.example.com", "relay.example.com", allowed) {
			t.Fatal("allowlist replaces the same-host default")
		}
		if !IsAllowed("https://anything.test", "anything.test", "relay.example.com", []string{"*"}) {
			t.Fatal("wildcard should allow every origin")
		}
	})
}

func TestCheckRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "http://relay.example.com/socket", nil)
	if normalized, ok := CheckRequest(req, nil); !ok || normalized != "" {
		t.Fatalf("no Origin header: got (%q, %v)", normalized, ok)
	}

	req.Header.Set("Origin", "http://relay.example.com")
	if normalized, ok := CheckRequest(req, nil); !ok || normalized != "http://relay.example.com" {
		t.Fatalf("same origin: got (%q, %v)", normalized, ok)
	}

	req.Header.Set("Origin", "http://other.example.com")
	if _, ok := CheckRequest(req, nil); ok {
		t.Fatal("cross origin should be rejected")
	}

	req.Header.Set("Origin", "garbage")
	if _, ok := CheckRequest(req, []string{"*"}); ok {
		t.Fatal("malformed origin should be rejected even with a wildcard")
	}
}
