package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	gk "github.com/panyam/grovekeep"
)

// Authenticator resolves a session token to its live owner. *grovekeep.Auth implements it.
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) *gk.User
}

// AccessChecker decides whether a token may touch a user's data. *grovekeep.Auth implements it.
type AccessChecker interface {
	HasAccess(ctx context.Context, token, targetID string) bool
}

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// RequireAuth when true rejects requests without a live session.
	// When false, requests proceed but UserFromContext returns nil.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig() *InterceptorConfig {
	return NewPublicMethodsConfig()
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig() *InterceptorConfig {
	config := NewPublicMethodsConfig()
	config.RequireAuth = false
	return config
}

func (c *InterceptorConfig) ensureDefaults() *InterceptorConfig {
	if c == nil {
		c = DefaultInterceptorConfig()
	}
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	return c
}

// authenticate resolves the caller and decides whether the method may proceed
func authenticate(ctx context.Context, auth Authenticator, config *InterceptorConfig, method string) (context.Context, error) {
	token := TokenFromMetadata(ctx, config.Config)
	var user *gk.User
	if token != "" {
		user = auth.CurrentUser(ctx, token)
	}

	if user == nil {
		if config.RequireAuth && !config.PublicMethods[method] {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}
	return withAuth(ctx, user, token), nil
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that resolves the session token.
func UnaryAuthInterceptor(auth Authenticator, config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = config.ensureDefaults()

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authenticate(ctx, auth, config, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// authStream overrides the stream context with the authenticated one
type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authStream) Context() context.Context { return s.ctx }

// StreamAuthInterceptor returns a gRPC stream interceptor that resolves the session token.
func StreamAuthInterceptor(auth Authenticator, config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = config.ensureDefaults()

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), auth, config, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &authStream{ServerStream: ss, ctx: ctx})
	}
}

// RequireAccess checks that the caller's session owns targetID. Handlers call
// it before touching per-user data.
func RequireAccess(ctx context.Context, gate AccessChecker, targetID string) error {
	token := TokenFromContext(ctx)
	if token == "" {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	if !gate.HasAccess(ctx, token, targetID) {
		return status.Error(codes.PermissionDenied, "not authorized for this user")
	}
	return nil
}
