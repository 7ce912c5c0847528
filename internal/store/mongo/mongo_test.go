package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"teamreports/internal/core"
	"teamreports/internal/store"
)

func TestReportDocConversion(t *testing.T) {
	oid := primitive.NewObjectID()
	value, err := primitive.ParseDecimal128("12.50")
	require.NoError(t, err)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	r, err := reportDoc{ID: oid, OwnerID: "u1", Category: "sales", Value: value, CreatedAt: created}.toReport()
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), r.ID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(r.Value))
	assert.Equal(t, created, r.CreatedAt)
}

// Every value accepted at submission must encode as a Decimal128.
func TestDecimal128HoldsLargestAcceptedValues(t *testing.T) {
	for _, v := range []string{
		"1234567890123456789012345678",
		"-123456789012345678.0123456789",
		"0.0000000001",
		"9e27",
	} {
		d := decimal.RequireFromString(v)
		require.True(t, core.ValueInRange(d), v)
		_, err := primitive.ParseDecimal128(d.String())
		assert.NoError(t, err, v)
	}
}

func TestUserDocConversion(t *testing.T) {
	oid := primitive.NewObjectID()
	u := userDoc{ID: oid, Email: "a@b.c", PasswordHash: "h", Role: "leader"}.toUser()
	assert.Equal(t, oid.Hex(), u.ID)
	assert.Equal(t, core.RoleLeader, u.Role)
}

// Runs only when MONGO_TEST_URI points at a disposable server.
func TestStoreIntegration(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	dbName := "teamreports_test_" + primitive.NewObjectID().Hex()
	s, err := Connect(ctx, uri, dbName)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Database(dbName).Drop(context.Background())
		_ = s.Close()
	})

	_, err = s.Insert(ctx, core.Report{OwnerID: "u", Category: "sales", Value: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = s.Insert(ctx, core.Report{OwnerID: "u", Category: "ops", Value: decimal.RequireFromString("0.1")})
	require.NoError(t, err)

	all, err := s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "sales", all[0].Category)
	assert.Equal(t, "0.1", all[1].Value.String())

	u, err := s.CreateUser(ctx, core.User{Email: "Lead@X.io", Role: core.RoleLeader, PasswordHash: "h"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, core.User{Email: "lead@x.io", Role: core.RoleLeader})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	got, err := s.FindUserByEmail(ctx, "lead@x.io")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	_, err = s.GetUser(ctx, "not-an-id")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
