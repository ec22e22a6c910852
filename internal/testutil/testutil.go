package testutil

import (
	"context"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
	"gorm.io/gorm"

	"membershipPortal/internal/db"
	"membershipPortal/models"
	"membershipPortal/repository"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The database is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	// We use a shared cache memory database so that multiple connections share the same DB if needed.
	d, err := db.Open(db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(d) })
	return d
}

// GenerateJWTHS256 returns a signed JWT string with the claims used by the app.
func GenerateJWTHS256(t *testing.T, secret, agentID, name, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  agentID,
		"name": name,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context containing gRPC metadata Authorization header with the given token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}

// SeedAgent inserts an agent referred by referrerID ("" for none).
func SeedAgent(t *testing.T, d *gorm.DB, username, referrerID string) *models.Agent {
	t.Helper()
	a := &models.Agent{UserName: username, Email: username + "@example.com", FirstName: username, UserType: models.UserTypeAgent}
	if referrerID != "" {
		a.ReferrerID = &referrerID
	}
	if err := repository.NewAgentRepository(d).Create(context.Background(), a); err != nil {
		t.Fatalf("seed agent %s: %v", username, err)
	}
	return a
}

// SeedMember inserts a member with the given bcrypt hash.
func SeedMember(t *testing.T, d *gorm.DB, username, passwordHash string) *models.Agent {
	t.Helper()
	m := models.NewMember(username, username+"@example.com")
	m.PasswordHash = passwordHash
	if err := repository.NewAgentRepository(d).Create(context.Background(), &m.Agent); err != nil {
		t.Fatalf("seed member %s: %v", username, err)
	}
	return &m.Agent
}
