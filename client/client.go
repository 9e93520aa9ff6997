package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	gk "github.com/panyam/grovekeep"
)

// ErrNotLoggedIn is returned by calls that need a stored session when there is none
var ErrNotLoggedIn = errors.New("not logged in")

// AuthClient is an HTTP client with automatic session token handling
type AuthClient struct {
	mu            sync.Mutex
	serverURL     string
	store         CredentialStore
	httpClient    *http.Client
	baseTransport http.RoundTripper
}

// Profile is the public view of an account returned by the server
type Profile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Verified    bool       `json:"verified"`
}

// SignupRequest is the body of a signup call
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
	ID          string `json:"id,omitempty"`
}

type loginResponse struct {
	User      Profile   `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ClientOption configures an AuthClient
type ClientOption func(*AuthClient)

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with auth handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *AuthClient) {
		if client == nil {
			return
		}
		if client.Transport != nil {
			c.baseTransport = client.Transport
		}
		c.httpClient.Timeout = client.Timeout
		c.httpClient.CheckRedirect = client.CheckRedirect
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *AuthClient) {
		c.baseTransport = transport
	}
}

// NewAuthClient creates a new authenticated HTTP client for a server
func NewAuthClient(serverURL string, store CredentialStore, opts ...ClientOption) *AuthClient {
	u, err := url.Parse(serverURL)
	if err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}

	c := &AuthClient{
		serverURL:     serverURL,
		store:         store,
		httpClient:    &http.Client{},
		baseTransport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.Transport = &sessionTransport{client: c, base: c.baseTransport}
	return c
}

// HTTPClient returns the underlying HTTP client with auth handling
func (c *AuthClient) HTTPClient() *http.Client {
	return c.httpClient
}

// ServerURL returns the server URL this client is configured for
func (c *AuthClient) ServerURL() string {
	return c.serverURL
}

// Token returns the stored session token, or empty if there is no live one
func (c *AuthClient) Token() (string, error) {
	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil {
		return "", err
	}
	if cred == nil || cred.IsExpired() {
		return "", nil
	}
	return cred.Token, nil
}

// GetCredential returns the stored credential for this server
func (c *AuthClient) GetCredential() (*ServerCredential, error) {
	return c.store.GetCredential(c.serverURL)
}

// IsLoggedIn returns true if there is a valid (non-expired) credential
func (c *AuthClient) IsLoggedIn() bool {
	token, err := c.Token()
	return err == nil && token != ""
}

// Signup registers an account and returns its identifier. It does not log in.
func (c *AuthClient) Signup(ctx context.Context, req SignupRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.callAnonymous(ctx, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Login authenticates by email or identifier and stores the session
func (c *AuthClient) Login(ctx context.Context, login, password string) (*ServerCredential, error) {
	var out loginResponse
	body := map[string]string{"login": login, "password": password}
	if err := c.callAnonymous(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}

	cred := &ServerCredential{
		Token:     out.Token,
		UserID:    out.User.ID,
		UserEmail: out.User.Email,
		ExpiresAt: out.ExpiresAt,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SetCredential(c.serverURL, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return cred, nil
}

// Logout ends the session on the server and removes the local credential.
// The local credential is removed even if the server call fails.
func (c *AuthClient) Logout(ctx context.Context) error {
	callErr := c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if err := c.forget(); err != nil {
		return err
	}
	return callErr
}

// Me returns the profile of the logged in user
func (c *AuthClient) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword asks the server to send a reset token. The server answers the
// same way whether or not email is registered.
func (c *AuthClient) ForgotPassword(ctx context.Context, email string) error {
	return c.callAnonymous(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

// ResetPassword consumes a reset token and sets a new password
func (c *AuthClient) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	body := map[string]string{"email": email, "token": token, "password": newPassword}
	return c.callAnonymous(ctx, http.MethodPost, "/auth/reset-password", body, nil)
}

// GetData returns the logged in user's application data, or nil if none is stored
func (c *AuthClient) GetData(ctx context.Context) (json.RawMessage, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/data", nil, &out); err != nil {
		return nil, err
	}
	if string(out) == "null" {
		return nil, nil
	}
	return out, nil
}

// PutData replaces the logged in user's application data
func (c *AuthClient) PutData(ctx context.Context, doc json.RawMessage) error {
	userID, err := c.userID()
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/data", doc, nil)
}

// DeleteAccount removes the logged in user and forgets the session
func (c *AuthClient) DeleteAccount(ctx context.Context) error {
	userID, err := c.userID()
	if err != nil {
		return err
	}
	if err := c.call(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), nil, nil); err != nil {
		return err
	}
	return c.forget()
}

func (c *AuthClient) userID() (string, error) {
	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil {
		return "", err
	}
	if cred == nil || cred.IsExpired() || cred.UserID == "" {
		return "", ErrNotLoggedIn
	}
	return cred.UserID, nil
}

// forget drops the stored credential for this server
func (c *AuthClient) forget() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.RemoveCredential(c.serverURL); err != nil {
		return err
	}
	return c.store.Save()
}

func (c *AuthClient) call(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, c.httpClient, method, path, body, out)
}

// callAnonymous skips the session token. It uses the base transport directly
// so a rejected login does not clear an existing session.
func (c *AuthClient) callAnonymous(ctx context.Context, method, path string, body, out any) error {
	anon := &http.Client{Transport: c.baseTransport, Timeout: c.httpClient.Timeout}
	return c.send(ctx, anon, method, path, body, out)
}

// send encodes body as JSON and decodes a successful response into out. Error
// responses come back as *grovekeep.AuthError so errors.Is works on them.
func (c *AuthClient) send(ctx context.Context, httpClient *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case json.RawMessage:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var authErr gk.AuthError
		if err := json.Unmarshal(data, &authErr); err != nil || authErr.Code == "" {
			return fmt.Errorf("request failed: HTTP %d", resp.StatusCode)
		}
		return &authErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response from server: %w", err)
	}
	return nil
}
