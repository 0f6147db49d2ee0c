package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// newTestRepository migrates and connects to the database named by
// TEST_DATABASE_URL. Rows created by a test are deleted when it ends.
func newTestRepository(t *testing.T) *UserRepository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := Connect(context.Background(), Config{DSN: url, Timeout: 3 * time.Second})
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	if err := RunMigrations(url); err != nil {
		_ = db.Close()
		t.Fatalf("RunMigrations: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM users WHERE email LIKE '%@pgtest.example.com'`)
		_ = db.Close()
	})
	return NewUserRepository(db)
}

func sampleUser(email string) *domain.User {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Phone:        "521234567890",
		Email:        email,
		PasswordHash: "$2a$10$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func uniqueEmail() string {
	return uuid.NewString()[:8] + "@pgtest.example.com"
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	email := uniqueEmail()

	created, err := repo.Create(ctx, sampleUser(email))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := uuid.Parse(created.ID); err != nil {
		t.Fatalf("expected uuid id, got %q", created.ID)
	}

	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if byID.Email != email || byID.Phone != "521234567890" {
		t.Fatalf("unexpected user %+v", byID)
	}
	if !byID.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at not preserved: %s vs %s", byID.CreatedAt, created.CreatedAt)
	}
}

func TestUserRepository_EmailIsCaseInsensitive(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	email := uniqueEmail()

	if _, err := repo.Create(ctx, sampleUser(email)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := sampleUser(email)
	dup.Email = strings.ToUpper(email)
	if _, err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists for case variant, got %v", err)
	}
	if _, err := repo.FindByEmail(ctx, strings.ToUpper(email)); err != nil {
		t.Fatalf("FindByEmail with case variant: %v", err)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.FindByEmail(ctx, uniqueEmail()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	for _, id := range []string{"not-a-uuid", uuid.NewString()} {
		if _, err := repo.FindByID(ctx, id); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("id %q: expected ErrUserNotFound, got %v", id, err)
		}
	}
}
