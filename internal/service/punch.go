// Package service contains application services for punch submission, device
// authentication, and exception runs.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akozhin/timeclock/internal/idempotency"
	"github.com/akozhin/timeclock/internal/model"
	"github.com/akozhin/timeclock/internal/repository"
	"github.com/akozhin/timeclock/internal/validate"
)

// SubmitEndpoint is the logical endpoint name scoping punch idempotency keys.
const SubmitEndpoint = "POST /v1/punches"

// SubmitInput is one candidate punch submission.
type SubmitInput struct {
	TenantID       uuid.UUID
	EmployeeID     uuid.UUID
	Type           model.PunchType
	Timestamp      time.Time
	ShiftID        *uuid.UUID
	DeviceID       *uuid.UUID
	Latitude       *float64
	Longitude      *float64
	Manual         bool
	IdempotencyKey string
}

// SubmitOutcome is the terminal result of a submission: either the created
// punch (201) or the full list of violated rules (422), serialized exactly as
// the transport returns it so idempotent replays are byte-identical.
type SubmitOutcome struct {
	StatusCode int
	Body       json.RawMessage
	Replayed   bool
}

// PunchService accepts punch submissions and serves punch history.
type PunchService interface {
	// Submit validates and persists one punch under idempotency coordination.
	Submit(ctx context.Context, in SubmitInput) (SubmitOutcome, error)
	// History returns an employee's punches in a time range, ascending.
	History(ctx context.Context, tenantID, employeeID uuid.UUID, from, to time.Time) ([]model.Punch, error)
}

// PunchServiceImpl orchestrates the validator, the idempotency coordinator,
// and the persistence collaborators.
type PunchServiceImpl struct {
	punches   repository.PunchRepository
	shifts    repository.ShiftRepository
	audit     repository.AuditRepository
	coord     idempotency.Executor
	validator *validate.Validator

	// hardTiming controls whether TOO_EARLY/TOO_LATE reject a submission or
	// merely remain advisory. Policy, not a rule property.
	hardTiming bool

	log *zap.Logger
}

var _ PunchService = (*PunchServiceImpl)(nil)

// NewPunchService constructs PunchService with required dependencies.
func NewPunchService(
	punches repository.PunchRepository,
	shifts repository.ShiftRepository,
	audit repository.AuditRepository,
	coord idempotency.Executor,
	validator *validate.Validator,
	hardTiming bool,
	log *zap.Logger,
) *PunchServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &PunchServiceImpl{
		punches: punches, shifts: shifts, audit: audit,
		coord: coord, validator: validator, hardTiming: hardTiming, log: log,
	}
}

// Submit delegates the whole operation to the idempotency coordinator, so
// concurrent duplicates with the same key observe a single side effect.
func (s *PunchServiceImpl) Submit(ctx context.Context, in SubmitInput) (SubmitOutcome, error) {
	if in.TenantID == uuid.Nil || in.EmployeeID == uuid.Nil {
		return SubmitOutcome{}, errors.New("validation: empty tenantID/employeeID")
	}
	if !in.Type.Valid() {
		return SubmitOutcome{}, fmt.Errorf("validation: unknown punch type %q", in.Type)
	}
	if in.Timestamp.IsZero() {
		return SubmitOutcome{}, errors.New("validation: zero timestamp")
	}

	res, replayed, err := s.coord.Execute(ctx, in.TenantID, SubmitEndpoint, in.IdempotencyKey,
		func(ctx context.Context) (idempotency.Result, error) {
			return s.process(ctx, in)
		})
	if err != nil {
		return SubmitOutcome{}, err
	}
	return SubmitOutcome{StatusCode: res.StatusCode, Body: res.Body, Replayed: replayed}, nil
}

// process is the guarded unit of work: fetch history, validate, persist.
// Infrastructure errors propagate so no terminal record is cached and the key
// stays retryable; rule rejections are terminal results and are cached.
func (s *PunchServiceImpl) process(ctx context.Context, in SubmitInput) (idempotency.Result, error) {
	dayStart := startOfDay(in.Timestamp)
	recent, err := s.punches.ListRange(ctx, in.TenantID, in.EmployeeID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return idempotency.Result{}, fmt.Errorf("list recent punches: %w", err)
	}

	var shift *model.Shift
	if in.ShiftID != nil {
		shift, err = s.shifts.Get(ctx, in.TenantID, *in.ShiftID)
		if err != nil {
			return idempotency.Result{}, fmt.Errorf("get shift %s: %w", in.ShiftID, err)
		}
	}

	violations := s.validator.Validate(validate.Context{
		EmployeeID: in.EmployeeID.String(),
		TenantID:   in.TenantID.String(),
		Type:       in.Type,
		Timestamp:  in.Timestamp,
		Shift:      shift,
		Recent:     recent,
	})
	if s.hasHardFailure(violations) {
		body, err := json.Marshal(map[string]any{"errors": violations})
		if err != nil {
			return idempotency.Result{}, err
		}
		return idempotency.Result{StatusCode: http.StatusUnprocessableEntity, Body: body}, nil
	}

	p := &model.Punch{
		ID:         uuid.Must(uuid.NewV4()),
		TenantID:   in.TenantID,
		EmployeeID: in.EmployeeID,
		ShiftID:    in.ShiftID,
		Type:       in.Type,
		Timestamp:  in.Timestamp,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		DeviceID:   in.DeviceID,
		Manual:     in.Manual,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.punches.Create(ctx, p); err != nil {
		return idempotency.Result{}, fmt.Errorf("create punch: %w", err)
	}

	// Best effort: a failed audit write must not fail the submission.
	if err := s.audit.Record(ctx, model.AuditEvent{
		ID:         uuid.Must(uuid.NewV4()),
		TenantID:   in.TenantID,
		ActorID:    in.DeviceID,
		Action:     "punch.created",
		EntityType: "punch",
		EntityID:   p.ID,
		Detail:     fmt.Sprintf("type=%s employee=%s", p.Type, p.EmployeeID),
	}); err != nil {
		s.log.Warn("audit record failed", zap.String("punch_id", p.ID.String()), zap.Error(err))
	}

	body, err := json.Marshal(p)
	if err != nil {
		return idempotency.Result{}, err
	}
	return idempotency.Result{StatusCode: http.StatusCreated, Body: body}, nil
}

// hasHardFailure decides which violated rules reject the submission.
func (s *PunchServiceImpl) hasHardFailure(violations []model.ValidationError) bool {
	for _, v := range violations {
		switch v.Code {
		case validate.CodeInvalidFirstPunch,
			validate.CodeInvalidPunchSequence,
			validate.CodeDuplicatePunch,
			validate.CodeBreakLimitExceeded:
			return true
		case validate.CodeTooEarly, validate.CodeTooLate:
			if s.hardTiming {
				return true
			}
		}
	}
	return false
}

// History returns punches in [from, to) ascending by timestamp.
func (s *PunchServiceImpl) History(
	ctx context.Context, tenantID, employeeID uuid.UUID, from, to time.Time,
) ([]model.Punch, error) {
	if tenantID == uuid.Nil || employeeID == uuid.Nil {
		return nil, errors.New("validation: empty tenantID/employeeID")
	}
	if !to.After(from) {
		return nil, errors.New("validation: empty time range")
	}
	return s.punches.ListRange(ctx, tenantID, employeeID, from, to)
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
