package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/models"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
	"github.com/noah-isme/room-allocation-api/pkg/tracing"
)

type termScheduleRepository interface {
	ListByTerm(ctx context.Context, term models.Term) ([]models.TeachingSchedule, error)
	InsertIgnoreDuplicate(ctx context.Context, exec sqlx.ExtContext, schedule *models.TeachingSchedule) (bool, error)
}

// CopyTermRequest names the source and target terms of a copy.
type CopyTermRequest struct {
	Source models.Term `json:"source"`
	Target models.Term `json:"target"`
}

// CopyTermResult reports how many schedules the copy inserted.
type CopyTermResult struct {
	Source  models.Term `json:"source"`
	Target  models.Term `json:"target"`
	Scanned int         `json:"scanned"`
	Copied  int         `json:"copied"`
	Failed  int         `json:"failed"`
}

// TermCopyService duplicates teaching schedules between terms.
type TermCopyService struct {
	schedules termScheduleRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTermCopyService constructs the term copy utility.
func NewTermCopyService(schedules termScheduleRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TermCopyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermCopyService{schedules: schedules, metrics: metrics, validator: validate, logger: logger}
}

// Copy inserts every schedule of the source term into the target term. Rows whose key already
// exists are skipped, other row failures are logged and the copy carries on. Each row is its own
// statement so one failure cannot abort the rest.
func (s *TermCopyService) Copy(ctx context.Context, req CopyTermRequest) (result *CopyTermResult, err error) {
	ctx, span := tracing.Start(ctx, "teaching_schedule.copy_term",
		attribute.String("term.source", req.Source.Label()),
		attribute.String("term.target", req.Target.Label()),
	)
	defer func() {
		tracing.End(span, err)
		s.metrics.ObserveAllocationOperation("copy_term", outcome(err))
	}()

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term copy payload")
	}
	if req.Source == req.Target {
		return nil, appErrors.Clone(appErrors.ErrValidation, "source and target terms must differ")
	}

	sources, err := s.schedules.ListByTerm(ctx, req.Source)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list source term schedules")
	}

	result = &CopyTermResult{Source: req.Source, Target: req.Target, Scanned: len(sources)}
	for _, src := range sources {
		row := models.TeachingSchedule{
			ScheduleKey: models.ScheduleKey{ProfessorID: src.ProfessorID, Offering: src.Offering, Term: req.Target},
			DayOfWeek:   src.DayOfWeek,
			StartTime:   src.StartTime,
		}
		inserted, insertErr := s.schedules.InsertIgnoreDuplicate(ctx, nil, &row)
		if insertErr != nil {
			result.Failed++
			s.logger.Warn("term copy row failed", append(scheduleFields(row.ScheduleKey), zap.Error(insertErr))...)
			continue
		}
		if inserted {
			result.Copied++
		}
	}

	s.metrics.AddTermCopied(result.Copied)
	s.logger.Info("term copied",
		zap.String("source", req.Source.Label()),
		zap.String("target", req.Target.Label()),
		zap.Int("scanned", result.Scanned),
		zap.Int("copied", result.Copied),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
