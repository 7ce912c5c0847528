package memory

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"teamreports/internal/core"
	"teamreports/internal/store"
)

var (
	_ store.RecordStore = (*Store)(nil)
	_ store.UserStore   = (*Store)(nil)
)

type Store struct {
	mu      sync.RWMutex
	reports []core.Report
	users   map[string]core.User
	byEmail map[string]string
	now     func() time.Time
}

func New() *Store {
	return &Store{
		users:   make(map[string]core.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// NewFromFiles seeds accounts from base/seed_users.txt. Each line is
// "email,role,bcrypt-hash"; blank lines and # comments are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_users.txt")) {
		parts := strings.SplitN(line, ",", 3)
		if len(parts) != 3 {
			slog.Warn("Skipping malformed seed user line", "line", line)
			continue
		}
		role, err := core.ParseRole(parts[1])
		if err != nil {
			slog.Warn("Skipping seed user with invalid role", "email", parts[0], "role", parts[1])
			continue
		}
		u := core.User{Email: strings.TrimSpace(parts[0]), Role: role, PasswordHash: strings.TrimSpace(parts[2])}
		if _, err := s.CreateUser(context.Background(), u); err != nil {
			slog.Warn("Skipping seed user", "email", u.Email, "error", err)
		}
	}
	return s
}

func (s *Store) FetchAll(ctx context.Context) ([]core.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Report(nil), s.reports...), nil
}

func (s *Store) Insert(_ context.Context, r core.Report) (core.Report, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return r, nil
}

// GetReport looks a single report up by ID. Nothing in the service path
// reads single reports from this store; tests use it to inspect what a
// request stored.
func (s *Store) GetReport(_ context.Context, id string) (core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Report{}, store.ErrNotFound
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	key := normalizeEmail(u.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[key]; exists {
		return core.User{}, store.ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.users[u.ID] = u
	s.byEmail[key] = u.ID
	return u, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
