package deeplink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestParseCallback_RecognizesSchemesAndLoopback(t *testing.T) {
	cases := []struct {
		url      string
		code     string
		callback bool
	}{
		{"betza://auth/callback?code=abc123", "abc123", true},
		{"http://127.0.0.1:8973/auth/callback?code=xyz", "xyz", true},
		{"http://127.0.0.1:8973/auth/callback", "", true},
		{"betza://products/4", "", false},
		{"http://127.0.0.1:8973/healthz", "", false},
		{"  betza://auth/callback?code=trimmed  ", "trimmed", true},
		{"://bad url", "", false},
	}
	for _, tc := range cases {
		code, isCallback := ParseCallback(tc.url)
		if code != tc.code || isCallback != tc.callback {
			t.Fatalf("ParseCallback(%q) = %q, %v; want %q, %v", tc.url, code, isCallback, tc.code, tc.callback)
		}
	}
}

func TestListener_ForwardsCallbackAndRejectsMissingCode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	port := freePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	delivered := make(chan string, 1)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := NewListener(addr, func(_ context.Context, rawURL string) {
		delivered <- rawURL
	}, log)

	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	resp, err := http.Get("http://" + addr + "/auth/callback?code=abc123")
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	select {
	case raw := <-delivered:
		if ExtractCode(raw) != "abc123" {
			t.Fatalf("delivered url = %q, want code abc123", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never delivered")
	}

	resp, err = http.Get("http://" + addr + "/auth/callback")
	if err != nil {
		t.Fatalf("GET without code: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d for missing code, want 400", resp.StatusCode)
	}

	resp, err = http.Get("http://" + addr + "/other")
	if err != nil {
		t.Fatalf("GET other path: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d for other path, want 404", resp.StatusCode)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}
