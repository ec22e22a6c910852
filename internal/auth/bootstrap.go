package auth

import (
	"context"
	"fmt"
	"strings"

	"membershipPortal/models"
)

// MemberStore is the part of the user directory needed to seed a member.
type MemberStore interface {
	GetByUsername(ctx context.Context, username string) (*models.Agent, error)
	Create(ctx context.Context, a *models.Agent) error
}

// EnsureMember creates a member named username unless a user with that
// name already exists. It reports whether a member was created. An
// existing user is left untouched, password included.
func EnsureMember(ctx context.Context, store MemberStore, username, password, email string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	existing, err := store.GetByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("look up %s: %w", username, err)
	}
	if existing != nil {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("bootstrap member password: %w", err)
	}
	m := models.NewMember(username, strings.TrimSpace(email))
	m.FirstName = username
	m.PasswordHash = hash
	if err := store.Create(ctx, &m.Agent); err != nil {
		return false, fmt.Errorf("create member %s: %w", username, err)
	}
	return true, nil
}
