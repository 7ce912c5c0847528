package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"teamreports/internal/core"
	"teamreports/internal/metrics"
	"teamreports/internal/store"
)

var ErrValidation = errors.New("validation failed")

// Publisher announces stored reports. The AMQP client implements it.
type Publisher interface {
	PublishReportSubmitted(ctx context.Context, id, category string) error
}

// SubmitInput is the payload of a report submission.
type SubmitInput struct {
	Category    string           `json:"category" validate:"required,max=100"`
	Value       *decimal.Decimal `json:"value" validate:"required"`
	Description string           `json:"description" validate:"max=500"`
}

// ReportView is a stored report with its owner's e-mail resolved.
type ReportView struct {
	core.Report
	OwnerEmail string
}

// ReportService stores submissions and lists them. Saving comes first;
// publishing is best effort.
type ReportService struct {
	records   store.RecordStore
	users     store.UserStore
	publisher Publisher
	metrics   *metrics.Metrics
	validate  *validator.Validate
}

func NewReportService(records store.RecordStore, users store.UserStore, publisher Publisher, m *metrics.Metrics) *ReportService {
	return &ReportService{
		records:   records,
		users:     users,
		publisher: publisher,
		metrics:   m,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *ReportService) Submit(ctx context.Context, owner core.User, in SubmitInput) (core.Report, error) {
	in.Category = strings.TrimSpace(in.Category)
	if err := s.validate.Struct(in); err != nil {
		return core.Report{}, fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}

	r := core.Report{
		OwnerID:     owner.ID,
		Category:    in.Category,
		Value:       *in.Value,
		Description: in.Description,
	}
	if err := r.Validate(); err != nil {
		return core.Report{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	saved, err := s.records.Insert(ctx, r)
	if err != nil {
		return core.Report{}, fmt.Errorf("save report: %w", err)
	}
	s.metrics.ReportSubmitted()

	if s.publisher != nil {
		if err := s.publisher.PublishReportSubmitted(ctx, saved.ID, saved.Category); err != nil {
			slog.ErrorContext(ctx, "Failed to publish report submitted message", "id", saved.ID, "error", err)
		}
	}
	return saved, nil
}

// List returns every report with the owner's e-mail when the owner exists.
func (s *ReportService) List(ctx context.Context) ([]ReportView, error) {
	reports, err := s.records.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchRecords, err)
	}
	emails := make(map[string]string)
	out := make([]ReportView, 0, len(reports))
	for _, r := range reports {
		email, seen := emails[r.OwnerID]
		if !seen && s.users != nil && r.OwnerID != "" {
			if u, err := s.users.GetUser(ctx, r.OwnerID); err == nil {
				email = u.Email
			}
			emails[r.OwnerID] = email
		}
		out = append(out, ReportView{Report: r, OwnerEmail: email})
	}
	return out, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
