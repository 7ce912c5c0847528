package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamreports/internal/auth"
	"teamreports/internal/core"
	"teamreports/internal/export"
	"teamreports/internal/metrics"
	"teamreports/internal/store/memory"
)

type fakePublisher struct {
	ids []string
	err error
}

func (f *fakePublisher) PublishReportSubmitted(_ context.Context, id, _ string) error {
	f.ids = append(f.ids, id)
	return f.err
}

type failingRecords struct{ err error }

func (f failingRecords) FetchAll(context.Context) ([]core.Report, error) { return nil, f.err }
func (f failingRecords) Insert(context.Context, core.Report) (core.Report, error) {
	return core.Report{}, f.err
}

type countingRecords struct {
	*memory.Store
	fetches int
}

func (c *countingRecords) FetchAll(ctx context.Context) ([]core.Report, error) {
	c.fetches++
	return c.Store.FetchAll(ctx)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestReportService_Submit(t *testing.T) {
	mem := memory.New()
	pub := &fakePublisher{}
	svc := NewReportService(mem, mem, pub, metrics.New())
	owner := core.User{ID: "u1", Role: core.RoleMember}

	r, err := svc.Submit(context.Background(), owner, SubmitInput{Category: " sales ", Value: dec("10.5"), Description: "q1"})
	require.NoError(t, err)
	assert.Equal(t, "sales", r.Category)
	assert.Equal(t, "u1", r.OwnerID)
	assert.Equal(t, []string{r.ID}, pub.ids)

	all, _ := mem.FetchAll(context.Background())
	require.Len(t, all, 1)
}

func TestReportService_SubmitValidation(t *testing.T) {
	mem := memory.New()
	svc := NewReportService(mem, mem, nil, nil)
	owner := core.User{ID: "u1"}

	cases := []SubmitInput{
		{Category: "", Value: dec("1")},
		{Category: "   ", Value: dec("1")},
		{Category: "sales"},
		{Category: "sales", Value: dec("1"), Description: string(make([]byte, 501))},
	}
	for i, in := range cases {
		_, err := svc.Submit(context.Background(), owner, in)
		assert.ErrorIs(t, err, ErrValidation, "case %d", i)
	}
	all, _ := mem.FetchAll(context.Background())
	assert.Empty(t, all)
}

func TestReportService_RejectsUnboundedValues(t *testing.T) {
	mem := memory.New()
	svc := NewReportService(mem, mem, nil, nil)
	owner := core.User{ID: "u1"}

	for _, v := range []string{"1e-20000000", "1e2000000000", "0.00000000001", "123456789012345678901234567890"} {
		_, err := svc.Submit(context.Background(), owner, SubmitInput{Category: "sales", Value: dec(v)})
		assert.ErrorIs(t, err, ErrValidation, v)
		assert.ErrorIs(t, err, core.ErrValueOutOfRange, v)
	}

	_, err := svc.Submit(context.Background(), owner, SubmitInput{Category: "sales", Value: dec("1")})
	require.NoError(t, err)

	doc, err := NewExportService(mem, nil, nil).Export(context.Background(), export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Categories)
}

func TestReportService_PublishFailureDoesNotFailSubmit(t *testing.T) {
	mem := memory.New()
	svc := NewReportService(mem, mem, &fakePublisher{err: errors.New("broker down")}, nil)

	_, err := svc.Submit(context.Background(), core.User{ID: "u1"}, SubmitInput{Category: "ops", Value: dec("2")})
	require.NoError(t, err)
}

func TestReportService_ListResolvesOwners(t *testing.T) {
	mem := memory.New()
	u, err := mem.CreateUser(context.Background(), core.User{Email: "m@x.io", Role: core.RoleMember})
	require.NoError(t, err)
	svc := NewReportService(mem, mem, nil, nil)

	_, err = svc.Submit(context.Background(), u, SubmitInput{Category: "a", Value: dec("1")})
	require.NoError(t, err)
	_, err = mem.Insert(context.Background(), core.Report{OwnerID: "gone", Category: "b", Value: decimal.NewFromInt(2)})
	require.NoError(t, err)

	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "m@x.io", views[0].OwnerEmail)
	assert.Equal(t, "", views[1].OwnerEmail)
}

func TestExportService_ScenarioPDFAndSpreadsheet(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	for _, r := range []core.Report{
		{Category: "sales", Value: decimal.NewFromInt(10)},
		{Category: "ops", Value: decimal.NewFromInt(3)},
		{Category: "sales", Value: decimal.NewFromInt(5)},
	} {
		_, err := mem.Insert(ctx, r)
		require.NoError(t, err)
	}
	svc := NewExportService(mem, export.NewRenderer(export.WithCompression(false)), metrics.New())

	doc, err := svc.Export(ctx, export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "master-report.pdf", doc.Filename)
	assert.True(t, bytes.Contains(doc.Body, []byte("(Category: sales, Total: 15) Tj")))

	doc, err = svc.Export(ctx, export.FormatSpreadsheet)
	require.NoError(t, err)
	assert.Equal(t, "master-report.xlsx", doc.Filename)
	assert.NotEmpty(t, doc.Body)

	s, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sales": "15", "ops": "3"}, s.Map())
}

func TestExportService_NotImplementedSkipsStore(t *testing.T) {
	rec := &countingRecords{Store: memory.New()}
	svc := NewExportService(rec, nil, nil)

	_, err := svc.Export(context.Background(), export.FormatImage)
	assert.ErrorIs(t, err, export.ErrNotImplemented)
	assert.Zero(t, rec.fetches)
}

func TestExportService_StoreFailure(t *testing.T) {
	svc := NewExportService(failingRecords{err: errors.New("connection refused")}, nil, nil)

	_, err := svc.Export(context.Background(), export.FormatPDF)
	assert.ErrorIs(t, err, ErrFetchRecords)
}

func TestExportService_FreshDataEachCall(t *testing.T) {
	rec := &countingRecords{Store: memory.New()}
	svc := NewExportService(rec, export.NewRenderer(export.WithCompression(false)), nil)
	ctx := context.Background()

	first, err := svc.Export(ctx, export.FormatPDF)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(first.Body, []byte("Category: late")))

	_, err = rec.Insert(ctx, core.Report{Category: "late", Value: decimal.NewFromInt(1)})
	require.NoError(t, err)

	second, err := svc.Export(ctx, export.FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(second.Body, []byte("(Category: late, Total: 1) Tj")))
	assert.Equal(t, 2, rec.fetches)
}

func TestAuthService(t *testing.T) {
	mem := memory.New()
	svc := NewAuthService(mem, auth.NewTokenIssuer("secret", 0))
	ctx := context.Background()

	u, err := svc.Register(ctx, "lead@x.io", "pw", core.RoleLeader)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", u.PasswordHash)

	token, got, err := svc.Login(ctx, "lead@x.io", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, got.ID)

	_, _, err = svc.Login(ctx, "lead@x.io", "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "who@x.io", "pw")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Register(ctx, "x@x.io", "", core.RoleMember)
	assert.ErrorIs(t, err, ErrValidation)
}
