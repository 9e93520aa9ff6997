package client

import (
	"net/http"
)

// AuthTransport wraps an http.RoundTripper to add a fixed bearer token
type AuthTransport struct {
	Base  http.RoundTripper
	Token string
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return roundTripWithToken(t.Base, req, t.Token)
}

// NewAuthTransport creates an AuthTransport with the given token
func NewAuthTransport(token string) *AuthTransport {
	return &AuthTransport{Base: http.DefaultTransport, Token: token}
}

// sessionTransport reads the token from the client's store on every request.
// A 401 means the server no longer knows the session, so it is forgotten.
type sessionTransport struct {
	client *AuthClient
	base   http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.client.Token()
	if err != nil {
		return nil, err
	}

	resp, err := roundTripWithToken(t.base, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		t.client.forget()
	}
	return resp, nil
}

func roundTripWithToken(base http.RoundTripper, req *http.Request, token string) (*http.Response, error) {
	if token != "" {
		// Clone the request to avoid mutating the original
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
