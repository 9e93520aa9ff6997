package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestServerCredential_IsExpired(t *testing.T) {
	live := &ServerCredential{ExpiresAt: time.Now().Add(time.Hour)}
	if live.IsExpired() {
		t.Error("expected live credential")
	}
	stale := &ServerCredential{ExpiresAt: time.Now().Add(-time.Minute)}
	if !stale.IsExpired() {
		t.Error("expected expired credential")
	}
}

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:8080/api/v1", "http://localhost:8080"},
		{"https://grove.example", "https://grove.example"},
		{"//grove.example/path", "https://grove.example"},
	}
	for _, tt := range tests {
		got, err := NormalizeServerURL(tt.in)
		if err != nil {
			t.Fatalf("NormalizeServerURL(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeServerURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMemoryCredentialStore(t *testing.T) {
	store := NewMemoryCredentialStore()
	store.SetCredential("http://localhost:8080/x", &ServerCredential{Token: "t"})

	cred, _ := store.GetCredential("http://localhost:8080")
	if cred == nil || cred.Token != "t" {
		t.Fatalf("unexpected credential %+v", cred)
	}
	servers, _ := store.ListServers()
	if len(servers) != 1 {
		t.Errorf("ListServers() = %v", servers)
	}

	store.RemoveCredential("http://localhost:8080")
	if cred, _ := store.GetCredential("http://localhost:8080"); cred != nil {
		t.Error("expected credential to be removed")
	}
}

func TestAuthTransport(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	httpClient := &http.Client{Transport: NewAuthTransport("abc")}
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got != "Bearer abc" {
		t.Errorf("Authorization = %q, want Bearer abc", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("original request must not be mutated")
	}
}

func TestAuthClient_ExpiredCredentialSendsNoToken(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	store := NewMemoryCredentialStore()
	store.SetCredential(server.URL, &ServerCredential{Token: "old", UserID: "u", ExpiresAt: time.Now().Add(-time.Minute)})
	c := NewAuthClient(server.URL, store)

	if c.IsLoggedIn() {
		t.Error("expired credential should not count as logged in")
	}
	resp, err := c.HTTPClient().Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got != "" {
		t.Errorf("expected no Authorization header, got %q", got)
	}
}

func TestAuthClient_UnauthorizedForgetsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"unauthorized","error":"Not authorized"}`))
	}))
	defer server.Close()

	store := NewMemoryCredentialStore()
	store.SetCredential(server.URL, &ServerCredential{Token: "revoked", UserID: "u", ExpiresAt: time.Now().Add(time.Hour)})
	c := NewAuthClient(server.URL, store)

	if _, err := c.Me(t.Context()); err == nil {
		t.Fatal("expected error from Me()")
	}
	if cred, _ := store.GetCredential(server.URL); cred != nil {
		t.Error("a 401 should forget the stored session")
	}
}
