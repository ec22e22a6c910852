package auth

import (
	"context"
	"testing"

	"membershipPortal/internal/testutil"
	"membershipPortal/repository"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestRequireRole(t *testing.T) {
	ctx := WithPrincipal(context.Background(), &Principal{AgentID: "a1", UserName: "a1", Role: RoleAgent})
	if _, err := RequireRole(ctx, "AGENT"); err != nil {
		t.Fatalf("RequireRole: %v", err)
	}
	if _, err := RequireRole(ctx, RoleMember); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied for agent, got %v", err)
	}
	if _, err := RequirePrincipal(context.Background()); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated without principal, got %v", err)
	}
}

func TestRequireMember_WithDBUserTypeCheck(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "authmember")
	agent := testutil.SeedAgent(t, d, "alice", "")
	member := testutil.SeedMember(t, d, "boss", "")
	users := repository.NewAgentRepository(d)

	// Spoofed principal role=member but stored user is an agent
	pctx := WithPrincipal(context.Background(), &Principal{AgentID: agent.ID, UserName: "alice", Role: RoleMember})
	if _, err := RequireMember(pctx, users); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied for agent user type, got %v", err)
	}

	// Unknown user
	gctx := WithPrincipal(context.Background(), &Principal{AgentID: "ghost", UserName: "ghost", Role: RoleMember})
	if _, err := RequireMember(gctx, users); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied for unknown user, got %v", err)
	}

	// Real member
	mctx := WithPrincipal(context.Background(), &Principal{AgentID: member.ID, UserName: "boss", Role: RoleMember})
	if _, err := RequireMember(mctx, users); err != nil {
		t.Fatalf("RequireMember real member: %v", err)
	}
}

func TestUnaryAuthInterceptor(t *testing.T) {
	secret := "s3cr3t"
	// allowlisted method should bypass auth
	interceptor := NewUnaryAuthInterceptor(secret, "/health")

	// 1) Allowlisted path: no header -> handler executes, no principal
	hCalled := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/health"}, func(ctx context.Context, req any) (any, error) {
		hCalled = true
		if p, ok := FromContext(ctx); ok && p != nil {
			t.Fatalf("expected no principal on allowlisted path")
		}
		return 123, nil
	})
	if err != nil || !hCalled {
		t.Fatalf("allowlisted handler err=%v called=%v", err, hCalled)
	}

	// 2) Authenticated path: with token -> principal injected
	tok := testutil.GenerateJWTHS256(t, secret, "id-bob", "bob", "agent")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		p, ok := FromContext(ctx)
		if !ok || p == nil || p.UserName != "bob" || p.Role != RoleAgent {
			t.Fatalf("principal not injected: %+v ok=%v", p, ok)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor auth path: %v", err)
	}

	// 3) Missing token on a protected path
	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		t.Fatalf("handler must not run")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}
