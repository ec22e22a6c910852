package grpcserver

import (
	"context"
	"errors"
	"strings"

	"membershipPortal/internal/auth"
	"membershipPortal/internal/referral"
	"membershipPortal/models"
	"membershipPortal/repository"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ReferralServer implements ReferralServiceServer.
type ReferralServer struct {
	Agents   repository.AgentRepositoryI
	Resolver *referral.Resolver
}

// authorize lets members read any agent and agents read only themselves.
func (s *ReferralServer) authorize(ctx context.Context, agentID string) error {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return err
	}
	switch p.Role {
	case auth.RoleMember:
		_, err := auth.RequireMember(ctx, s.Agents)
		return err
	case auth.RoleAgent:
		if p.AgentID != agentID {
			return status.Error(codes.PermissionDenied, "agents may only read their own referrals")
		}
		return nil
	default:
		return status.Errorf(codes.PermissionDenied, "unknown role %q", p.Role)
	}
}

// GetAgent returns a single agent by id.
func (s *ReferralServer) GetAgent(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "agent id is required")
	}
	if err := s.authorize(ctx, id); err != nil {
		return nil, err
	}
	a, err := s.Agents.GetByID(ctx, id)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get agent: %v", err)
	}
	if a == nil {
		return nil, status.Errorf(codes.NotFound, "agent with id: %s", id)
	}
	out, err := structpb.NewStruct(agentFields(a))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode agent: %v", err)
	}
	return out, nil
}

// GetDownline returns the three-level downline of an agent.
func (s *ReferralServer) GetDownline(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "agent id is required")
	}
	if err := s.authorize(ctx, id); err != nil {
		return nil, err
	}
	d, err := s.Resolver.Resolve(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(downlineFields(d))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode downline: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, referral.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, referral.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Errorf(codes.Internal, "resolve downline: %v", err)
	}
}

func agentFields(a *models.Agent) map[string]interface{} {
	m := map[string]interface{}{
		"id":            a.ID,
		"user_name":     a.UserName,
		"first_name":    a.FirstName,
		"last_name":     a.LastName,
		"email":         a.Email,
		"agent_type":    string(a.AgentType),
		"user_type":     string(a.UserType),
		"subscribed":    a.Subscribed,
		"referrer_id":   nil,
		"referral_code": nil,
	}
	if a.ReferrerID != nil {
		m["referrer_id"] = *a.ReferrerID
	}
	if a.ReferralCode != nil {
		m["referral_code"] = *a.ReferralCode
	}
	return m
}

func agentList(agents []models.Agent) []interface{} {
	out := make([]interface{}, 0, len(agents))
	for i := range agents {
		out = append(out, agentFields(&agents[i]))
	}
	return out
}

func levelFields(level map[string][]models.Agent) map[string]interface{} {
	out := make(map[string]interface{}, len(level))
	for k, v := range level {
		out[k] = agentList(v)
	}
	return out
}

func downlineFields(d *referral.Downline) map[string]interface{} {
	return map[string]interface{}{
		"agent":       agentFields(&d.Agent),
		"direct":      agentList(d.Direct),
		"level_two":   levelFields(d.LevelTwo),
		"level_three": levelFields(d.LevelThree),
	}
}
