// Package store declares the persistence ports shared by every backend.
package store

import (
	"context"
	"errors"

	"teamreports/internal/core"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type (
	// RecordStore holds submitted reports.
	RecordStore interface {
		// FetchAll returns a snapshot of every stored report.
		FetchAll(ctx context.Context) ([]core.Report, error)
		// Insert assigns ID and CreatedAt when unset and stores the report.
		Insert(ctx context.Context, r core.Report) (core.Report, error)
	}

	UserStore interface {
		GetUser(ctx context.Context, id string) (core.User, error)
		FindUserByEmail(ctx context.Context, email string) (core.User, error)
		CreateUser(ctx context.Context, u core.User) (core.User, error)
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
