package auth

import (
	"context"
	"strings"

	"membershipPortal/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UserLookup resolves a principal back to its stored user.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.Agent, error)
}

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that extracts and validates
// a Bearer JWT from incoming metadata and injects the Principal into the context.
// Methods listed in allowUnauthenticated will bypass authentication (e.g., health checks).
func NewUnaryAuthInterceptor(secret string, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		p, err := ParseFromMD(ctx, secret)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		return handler(WithPrincipal(ctx, p), req)
	}
}

// RequirePrincipal ensures a principal is present in context.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing principal")
	}
	return p, nil
}

// RequireRole ensures the principal has the given role (lowercased compare).
func RequireRole(ctx context.Context, role string) (*Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Role != strings.ToLower(role) {
		return nil, status.Errorf(codes.PermissionDenied, "only %s can perform this action", strings.ToLower(role))
	}
	return p, nil
}

// RequireMember ensures the caller is a member principal AND that the
// underlying user exists with user type MEMBER. This prevents spoofing by a non-member.
func RequireMember(ctx context.Context, users UserLookup) (*Principal, error) {
	p, err := RequireRole(ctx, RoleMember)
	if err != nil {
		return nil, err
	}
	if users == nil {
		return nil, status.Error(codes.Internal, "users repository not configured")
	}
	u, err := users.GetByID(ctx, p.AgentID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get user: %v", err)
	}
	if u == nil || u.UserType != models.UserTypeMember {
		return nil, status.Error(codes.PermissionDenied, "only member can perform this action")
	}
	return p, nil
}

// RoleFor maps a stored user type to the token role.
func RoleFor(t models.UserType) string {
	return strings.ToLower(string(t))
}
