// Package validate implements the pure punch rule engine. It holds no state
// and performs no I/O: all needed data is injected as plain values, so it is
// safe to call from any number of concurrent goroutines.
package validate

import (
	"fmt"
	"time"

	"github.com/akozhin/timeclock/internal/model"
)

// Rule codes returned as ValidationError.Code values.
const (
	CodeInvalidFirstPunch    = "INVALID_FIRST_PUNCH"
	CodeInvalidPunchSequence = "INVALID_PUNCH_SEQUENCE"
	CodeTooEarly             = "TOO_EARLY"
	CodeTooLate              = "TOO_LATE"
	CodeDuplicatePunch       = "DUPLICATE_PUNCH"
	CodeBreakLimitExceeded   = "BREAK_LIMIT_EXCEEDED"
)

// Default rule thresholds. Tenant policy may override them via Config.
const (
	DefaultGraceWindow     = 15 * time.Minute
	DefaultDuplicateWindow = 5 * time.Second
)

// Config carries tunable rule thresholds.
type Config struct {
	// GraceWindow is the tolerance around a scheduled boundary within which an
	// early/late punch is still accepted.
	GraceWindow time.Duration
	// DuplicateWindow flags a same-type punch repeated within this interval.
	DuplicateWindow time.Duration
}

// Context is the candidate punch plus the history it is validated against.
// Recent must be in ascending timestamp order.
type Context struct {
	EmployeeID string
	TenantID   string
	Type       model.PunchType
	Timestamp  time.Time
	Shift      *model.Shift
	Recent     []model.Punch
}

// Validator evaluates a candidate punch against all rules and collects every
// violation instead of failing fast.
type Validator struct {
	cfg Config
}

// New constructs a Validator, filling zero thresholds with defaults.
func New(cfg Config) *Validator {
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = DefaultGraceWindow
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = DefaultDuplicateWindow
	}
	return &Validator{cfg: cfg}
}

// transitions maps the most recent punch type to its allowed successors.
var transitions = map[model.PunchType][]model.PunchType{
	model.PunchIn:         {model.PunchBreakStart, model.PunchOut},
	model.PunchOut:        {model.PunchIn},
	model.PunchBreakStart: {model.PunchBreakEnd},
	model.PunchBreakEnd:   {model.PunchBreakStart, model.PunchOut},
}

// Validate returns all violated rules for the candidate punch, in rule order.
// An empty slice means the punch is acceptable.
func (v *Validator) Validate(pc Context) []model.ValidationError {
	var out []model.ValidationError

	out = appendIfNotNil(out, v.checkFirstPunch(pc))
	out = appendIfNotNil(out, v.checkSequence(pc))
	out = appendIfNotNil(out, v.checkTimeWindow(pc))
	out = appendIfNotNil(out, v.checkDuplicate(pc))
	out = appendIfNotNil(out, v.checkBreakLimit(pc))

	return out
}

func appendIfNotNil(errs []model.ValidationError, e *model.ValidationError) []model.ValidationError {
	if e == nil {
		return errs
	}
	return append(errs, *e)
}

// checkFirstPunch requires the very first punch of a history to be "in".
func (v *Validator) checkFirstPunch(pc Context) *model.ValidationError {
	if len(pc.Recent) > 0 || pc.Type == model.PunchIn {
		return nil
	}
	return &model.ValidationError{
		Code:    CodeInvalidFirstPunch,
		Message: fmt.Sprintf("first punch must be %q, got %q", model.PunchIn, pc.Type),
	}
}

// checkSequence enforces the punch state machine against the most recent punch.
func (v *Validator) checkSequence(pc Context) *model.ValidationError {
	if len(pc.Recent) == 0 {
		return nil
	}
	last := pc.Recent[len(pc.Recent)-1].Type
	for _, next := range transitions[last] {
		if next == pc.Type {
			return nil
		}
	}
	return &model.ValidationError{
		Code:    CodeInvalidPunchSequence,
		Message: fmt.Sprintf("punch %q cannot follow %q", pc.Type, last),
	}
}

// checkTimeWindow flags punches outside the grace window around the scheduled
// boundary relevant to the punch type: the start for "in", the end for "out".
func (v *Validator) checkTimeWindow(pc Context) *model.ValidationError {
	if pc.Shift == nil {
		return nil
	}
	switch pc.Type {
	case model.PunchIn:
		start, err := pc.Shift.StartOn(pc.Timestamp)
		if err != nil {
			return nil
		}
		if early := start.Sub(pc.Timestamp); early > v.cfg.GraceWindow {
			return &model.ValidationError{
				Code:    CodeTooEarly,
				Message: fmt.Sprintf("punch is %s before scheduled start %s", early, pc.Shift.StartTime),
			}
		}
	case model.PunchOut:
		end, err := pc.Shift.EndOn(pc.Timestamp)
		if err != nil {
			return nil
		}
		if late := pc.Timestamp.Sub(end); late > v.cfg.GraceWindow {
			return &model.ValidationError{
				Code:    CodeTooLate,
				Message: fmt.Sprintf("punch is %s after scheduled end %s", late, pc.Shift.EndTime),
			}
		}
	}
	return nil
}

// checkDuplicate flags a same-type punch repeated within the duplicate window.
func (v *Validator) checkDuplicate(pc Context) *model.ValidationError {
	for i := len(pc.Recent) - 1; i >= 0; i-- {
		p := pc.Recent[i]
		if p.Type != pc.Type {
			continue
		}
		gap := pc.Timestamp.Sub(p.Timestamp)
		if gap < 0 {
			gap = -gap
		}
		if gap <= v.cfg.DuplicateWindow {
			return &model.ValidationError{
				Code:    CodeDuplicatePunch,
				Message: fmt.Sprintf("same-type punch recorded %s ago", gap),
			}
		}
	}
	return nil
}

// checkBreakLimit rejects a new break_start once completed breaks have already
// consumed the shift's cumulative break allowance.
func (v *Validator) checkBreakLimit(pc Context) *model.ValidationError {
	if pc.Type != model.PunchBreakStart || pc.Shift == nil || pc.Shift.BreakMinutes <= 0 {
		return nil
	}
	taken := breakTaken(pc.Recent)
	limit := time.Duration(pc.Shift.BreakMinutes) * time.Minute
	if taken < limit {
		return nil
	}
	return &model.ValidationError{
		Code:    CodeBreakLimitExceeded,
		Message: fmt.Sprintf("breaks already total %s of the allowed %s", taken, limit),
	}
}

// breakTaken sums completed break durations, pairing break events
// chronologically (0 with 1, 2 with 3, ...).
func breakTaken(recent []model.Punch) time.Duration {
	var events []model.Punch
	for _, p := range recent {
		if p.Type == model.PunchBreakStart || p.Type == model.PunchBreakEnd {
			events = append(events, p)
		}
	}
	var total time.Duration
	for i := 0; i+1 < len(events); i += 2 {
		if events[i].Type != model.PunchBreakStart || events[i+1].Type != model.PunchBreakEnd {
			continue
		}
		total += events[i+1].Timestamp.Sub(events[i].Timestamp)
	}
	return total
}
