package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"testing"
)

func signBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestSignature_ValidAccepted(t *testing.T) {
	router := &fakeRouter{}
	server := newTestServer(t, router, "app-secret")

	req, err := http.NewRequest(http.MethodPost, server.URL+"/webhook", strings.NewReader(cloudTextPayload))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", signBody("app-secret", cloudTextPayload))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /webhook: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if router.text == "" {
		t.Error("a validly signed message should reach the router")
	}
}

func TestSignature_InvalidRejected(t *testing.T) {
	router := &fakeRouter{}
	server := newTestServer(t, router, "app-secret")

	req, err := http.NewRequest(http.MethodPost, server.URL+"/webhook", strings.NewReader(cloudTextPayload))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Hub-Signature-256", signBody("other-secret", cloudTextPayload))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /webhook: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if router.text != "" {
		t.Error("a tampered message must not reach the router")
	}
}

func TestSignature_MissingHeaderRejected(t *testing.T) {
	server := newTestServer(t, &fakeRouter{}, "app-secret")

	resp, err := http.Post(server.URL+"/webhook", "application/json", strings.NewReader(cloudTextPayload))
	if err != nil {
		t.Fatalf("POST /webhook: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSignature_EmptySecretSkipsCheck(t *testing.T) {
	router := &fakeRouter{}
	server := newTestServer(t, router, "")

	resp, err := http.Post(server.URL+"/webhook", "application/json", strings.NewReader(cloudTextPayload))
	if err != nil {
		t.Fatalf("POST /webhook: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 without verification", resp.StatusCode)
	}
	if router.text == "" {
		t.Error("message should be routed when verification is disabled")
	}
}

func TestValidSignature_MalformedHeaders(t *testing.T) {
	body := []byte("payload")
	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"no prefix", "deadbeef"},
		{"wrong prefix", "sha1=deadbeef"},
		{"bad hex", "sha256=zzzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if validSignature("secret", body, tt.header) {
				t.Errorf("validSignature(%q) = true, want false", tt.header)
			}
		})
	}
}
