// Package grpc provides session authentication for gRPC services. Clients send
// the session token in metadata; the interceptors resolve it to a user and
// place both on the handler context.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	gk "github.com/panyam/grovekeep"
)

// DefaultMetadataKeyToken is the default gRPC metadata key carrying the session token
const DefaultMetadataKeyToken = "authorization"

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyToken is the gRPC metadata key for the session token.
	// Defaults to "authorization". Values may carry a "Bearer " prefix.
	MetadataKeyToken string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MetadataKeyToken: DefaultMetadataKeyToken}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyToken == "" {
		c.MetadataKeyToken = DefaultMetadataKeyToken
	}
}

// TokenFromMetadata extracts the session token from incoming metadata.
// Returns empty string if none was sent.
func TokenFromMetadata(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get(config.MetadataKeyToken) {
		v = strings.TrimSpace(v)
		if token, ok := strings.CutPrefix(v, "Bearer "); ok {
			v = strings.TrimSpace(token)
		}
		if v != "" {
			return v
		}
	}
	return ""
}

// TokenToOutgoingContext adds the session token to outgoing gRPC context metadata.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyToken, "Bearer "+token)
}

type authContextKey struct{}

type authInfo struct {
	user  *gk.User
	token string
}

func withAuth(ctx context.Context, user *gk.User, token string) context.Context {
	return context.WithValue(ctx, authContextKey{}, authInfo{user: user, token: token})
}

// UserFromContext returns the user resolved by the interceptor, or nil
func UserFromContext(ctx context.Context) *gk.User {
	info, _ := ctx.Value(authContextKey{}).(authInfo)
	return info.user
}

// UserIDFromContext returns the authenticated user ID, or empty string
func UserIDFromContext(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

// TokenFromContext returns the session token that authenticated the call
func TokenFromContext(ctx context.Context) string {
	info, _ := ctx.Value(authContextKey{}).(authInfo)
	return info.token
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserFromContext(ctx) != nil
}
