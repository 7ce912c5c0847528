package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"teamreports/internal/core"
	"teamreports/internal/store"

	_ "modernc.org/sqlite"
)

var (
	_ store.RecordStore = (*SQLiteRepository)(nil)
	_ store.UserStore   = (*SQLiteRepository)(nil)
)

const (
	MirrorPending = "pending"
	MirrorDone    = "mirrored"
	MirrorFailed  = "error"
	timeLayoutSQL = "2006-01-02 15:04:05"
	// Fixed width so claim timestamps compare as strings.
	claimLayout   = "2006-01-02T15:04:05.000000000Z"
	reportColumns = "id, owner_id, category, value, description, created_at"
	userColumns   = "id, email, password_hash, role, created_at"
)

// MirrorClaimTTL is how long a claimed report is left to its claimant
// before another pass may take it over.
const MirrorClaimTTL = 5 * time.Minute

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert implements store.RecordStore. New rows start pending for the mirror.
func (r *SQLiteRepository) Insert(ctx context.Context, rep core.Report) (core.Report, error) {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (`+reportColumns+`, mirror_status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.OwnerID, rep.Category, rep.Value.String(), rep.Description,
		rep.CreatedAt.UTC().Format(time.RFC3339Nano), MirrorPending)
	if err != nil {
		return core.Report{}, fmt.Errorf("insert report: %w", err)
	}

	slog.InfoContext(ctx, "Report saved to SQLite",
		"id", rep.ID,
		"category", rep.Category,
		"value", rep.Value.String())

	return rep, nil
}

// FetchAll implements store.RecordStore in insertion order.
func (r *SQLiteRepository) FetchAll(ctx context.Context) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []core.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetReport(ctx context.Context, id string) (core.Report, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, store.ErrNotFound
	}
	return rep, err
}

// GetPendingMirror returns IDs of reports not yet copied to the sheet and
// not currently claimed, oldest first.
func (r *SQLiteRepository) GetPendingMirror(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM reports
		 WHERE mirror_status = ? AND (mirror_claimed_at IS NULL OR mirror_claimed_at < ?)
		 ORDER BY rowid LIMIT ?`, MirrorPending, r.staleClaim(), limit)
	if err != nil {
		return nil, fmt.Errorf("get pending mirror: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClaimMirror marks a pending report as being mirrored. It returns false
// when the report is already mirrored, failed, or claimed by someone else
// within MirrorClaimTTL.
func (r *SQLiteRepository) ClaimMirror(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET mirror_claimed_at = ?
		 WHERE id = ? AND mirror_status = ? AND (mirror_claimed_at IS NULL OR mirror_claimed_at < ?)`,
		r.now().UTC().Format(claimLayout), id, MirrorPending, r.staleClaim())
	if err != nil {
		return false, fmt.Errorf("claim report %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim report %s: %w", id, err)
	}
	return n == 1, nil
}

// ReleaseMirror drops the claim on a report that is still pending.
func (r *SQLiteRepository) ReleaseMirror(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reports SET mirror_claimed_at = NULL WHERE id = ? AND mirror_status = ?`, id, MirrorPending)
	if err != nil {
		return fmt.Errorf("release report %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) staleClaim() string {
	return r.now().UTC().Add(-MirrorClaimTTL).Format(claimLayout)
}

func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id string) error {
	return r.setMirrorStatus(ctx, id, MirrorDone)
}

func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id string) error {
	return r.setMirrorStatus(ctx, id, MirrorFailed)
}

// MirrorStatus reports the mirror state of a single report.
func (r *SQLiteRepository) MirrorStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT mirror_status FROM reports WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	return status, err
}

func (r *SQLiteRepository) setMirrorStatus(ctx context.Context, id, status string) error {
	var mirroredAt any
	if status == MirrorDone {
		mirroredAt = r.now().UTC().Format(time.RFC3339Nano)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET mirror_status = ?, mirrored_at = ?, mirror_claimed_at = NULL WHERE id = ?`, status, mirroredAt, id)
	if err != nil {
		return fmt.Errorf("mark report %s: %w", status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Report mirror status updated", "id", id, "status", status)
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		u.ID, strings.TrimSpace(u.Email), u.PasswordHash, string(u.Role), u.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, store.ErrDuplicate
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	return r.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
}

func (r *SQLiteRepository) queryUser(ctx context.Context, query string, arg any) (core.User, error) {
	var (
		u       core.User
		role    string
		created string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("query user: %w", err)
	}
	u.Role = core.Role(role)
	u.CreatedAt = parseTime(created)
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(s rowScanner) (core.Report, error) {
	var (
		rep     core.Report
		value   string
		created string
	)
	if err := s.Scan(&rep.ID, &rep.OwnerID, &rep.Category, &value, &rep.Description, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Report{}, err
		}
		return core.Report{}, fmt.Errorf("scan report: %w", err)
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return core.Report{}, fmt.Errorf("parse value of report %s: %w", rep.ID, err)
	}
	rep.Value = v
	rep.CreatedAt = parseTime(created)
	return rep, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, timeLayoutSQL} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
