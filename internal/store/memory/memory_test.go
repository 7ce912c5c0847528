package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"teamreports/internal/core"
	"teamreports/internal/store"
)

func TestInsertAndFetchAll(t *testing.T) {
	s := New()
	ctx := context.Background()

	r, err := s.Insert(ctx, core.Report{OwnerID: "u1", Category: "sales", Value: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if r.ID == "" || r.CreatedAt.IsZero() {
		t.Fatalf("expected ID and CreatedAt to be assigned, got %+v", r)
	}

	all, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(all) != 1 || all[0].ID != r.ID {
		t.Fatalf("unexpected records: %+v", all)
	}

	all[0].Category = "mutated"
	again, _ := s.FetchAll(ctx)
	if again[0].Category != "sales" {
		t.Fatalf("fetch must return a snapshot")
	}

	got, err := s.GetReport(ctx, r.ID)
	if err != nil || got.Category != "sales" {
		t.Fatalf("GetReport = %+v, %v", got, err)
	}
	if _, err := s.GetReport(ctx, "missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchAllHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().FetchAll(ctx); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestConcurrentInsert(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Insert(context.Background(), core.Report{Category: "c", Value: decimal.NewFromInt(1)})
		}()
	}
	wg.Wait()
	all, _ := s.FetchAll(context.Background())
	if len(all) != 50 {
		t.Fatalf("expected 50 records, got %d", len(all))
	}
}

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, core.User{Email: "Lead@Example.com", Role: core.RoleLeader, PasswordHash: "h"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, core.User{Email: "lead@example.com", Role: core.RoleMember}); err != store.ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	byEmail, err := s.FindUserByEmail(ctx, "lead@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("FindUserByEmail = %+v, %v", byEmail, err)
	}
	if _, err := s.GetUser(ctx, "nope"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewFromFilesSeedsUsers(t *testing.T) {
	dir := t.TempDir()
	content := "# seed\nlead@example.com,leader,$2a$10$hash\nbad line\nx@example.com,admin,h\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_users.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFromFiles(dir)
	u, err := s.FindUserByEmail(context.Background(), "lead@example.com")
	if err != nil {
		t.Fatalf("seeded user missing: %v", err)
	}
	if u.Role != core.RoleLeader || u.PasswordHash != "$2a$10$hash" {
		t.Fatalf("unexpected seeded user %+v", u)
	}
	if _, err := s.FindUserByEmail(context.Background(), "x@example.com"); err != store.ErrNotFound {
		t.Fatalf("invalid role should be skipped")
	}
}
