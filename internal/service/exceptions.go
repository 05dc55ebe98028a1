package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akozhin/timeclock/internal/exceptions"
	"github.com/akozhin/timeclock/internal/model"
	"github.com/akozhin/timeclock/internal/repository"
)

// ExceptionService recomputes attendance exceptions for employee-days.
type ExceptionService interface {
	// RunForDate derives the exception set for one employee-day and replaces
	// the stored rows with it.
	RunForDate(ctx context.Context, tenantID, employeeID uuid.UUID, date time.Time, shiftID uuid.UUID) ([]model.AttendanceException, error)
}

// ExceptionServiceImpl wires the pure generator to the persistence collaborators.
type ExceptionServiceImpl struct {
	punches repository.PunchRepository
	shifts  repository.ShiftRepository
	excs    repository.ExceptionRepository
	gen     *exceptions.Generator
	log     *zap.Logger
}

var _ ExceptionService = (*ExceptionServiceImpl)(nil)

// NewExceptionService constructs ExceptionService with required dependencies.
func NewExceptionService(
	punches repository.PunchRepository,
	shifts repository.ShiftRepository,
	excs repository.ExceptionRepository,
	gen *exceptions.Generator,
	log *zap.Logger,
) *ExceptionServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExceptionServiceImpl{punches: punches, shifts: shifts, excs: excs, gen: gen, log: log}
}

// RunForDate is safe to re-run: unchanged inputs produce the same rule set,
// and ReplaceForDay swaps rows atomically.
func (s *ExceptionServiceImpl) RunForDate(
	ctx context.Context, tenantID, employeeID uuid.UUID, date time.Time, shiftID uuid.UUID,
) ([]model.AttendanceException, error) {
	if tenantID == uuid.Nil || employeeID == uuid.Nil || shiftID == uuid.Nil {
		return nil, errors.New("validation: empty tenantID/employeeID/shiftID")
	}

	shift, err := s.shifts.Get(ctx, tenantID, shiftID)
	if err != nil {
		return nil, fmt.Errorf("get shift %s: %w", shiftID, err)
	}

	day := startOfDay(date)
	punches, err := s.punches.ListRange(ctx, tenantID, employeeID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list punches: %w", err)
	}

	excs := s.gen.Generate(employeeID, tenantID, day, punches, shift)
	if err := s.excs.ReplaceForDay(ctx, tenantID, employeeID, day, excs); err != nil {
		return nil, fmt.Errorf("replace exceptions: %w", err)
	}

	s.log.Info("exception run",
		zap.String("tenant_id", tenantID.String()),
		zap.String("employee_id", employeeID.String()),
		zap.String("date", day.Format("2006-01-02")),
		zap.Int("exceptions", len(excs)),
	)
	return excs, nil
}
