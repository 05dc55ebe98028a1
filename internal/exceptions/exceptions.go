// Package exceptions derives daily attendance exceptions from a punch stream
// and a shift definition. Derivation is a pure function of (punches, shift,
// date): re-running it for unchanged inputs yields the same rule set.
package exceptions

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/akozhin/timeclock/internal/model"
)

// Default detection thresholds. Tenant policy may override them via Config.
const (
	DefaultLateThreshold  = 15 * time.Minute
	DefaultEarlyThreshold = 15 * time.Minute
)

// Config carries tunable detection thresholds.
type Config struct {
	// LateThreshold is how far past the scheduled start the earliest "in"
	// punch may fall before a late_arrival is raised.
	LateThreshold time.Duration
	// EarlyThreshold is how far before the scheduled end the latest "out"
	// punch may fall before an early_departure is raised.
	EarlyThreshold time.Duration
}

// Generator derives attendance exceptions. It holds no mutable state; the
// clock is injectable for tests.
type Generator struct {
	cfg Config
	now func() time.Time
}

// New constructs a Generator, filling zero thresholds with defaults.
func New(cfg Config) *Generator {
	if cfg.LateThreshold <= 0 {
		cfg.LateThreshold = DefaultLateThreshold
	}
	if cfg.EarlyThreshold <= 0 {
		cfg.EarlyThreshold = DefaultEarlyThreshold
	}
	return &Generator{cfg: cfg, now: time.Now}
}

// Generate returns the full set of exceptions for one employee-day. Order is
// not significant. A nil shift means nothing was scheduled and yields no
// exceptions. Punches must belong to the given day.
func (g *Generator) Generate(
	employeeID, tenantID uuid.UUID, date time.Time, punches []model.Punch, shift *model.Shift,
) []model.AttendanceException {
	if shift == nil {
		return nil
	}

	var out []model.AttendanceException
	emit := func(typ model.ExceptionType, severity, desc string) {
		out = append(out, model.AttendanceException{
			ID:          uuid.Must(uuid.NewV4()),
			TenantID:    tenantID,
			EmployeeID:  employeeID,
			ShiftID:     &shift.ID,
			Date:        date,
			Type:        typ,
			Severity:    severity,
			Status:      model.ExceptionStatusOpen,
			Description: desc,
			DetectedAt:  g.now().UTC(),
		})
	}

	if len(punches) == 0 {
		emit(model.ExceptionAbsence, model.SeverityHigh,
			fmt.Sprintf("no punches recorded for shift %s-%s", shift.StartTime, shift.EndTime))
		return out
	}

	start, err := shift.StartOn(date)
	if err != nil {
		return out
	}
	end, err := shift.EndOn(date)
	if err != nil {
		return out
	}

	if first, ok := earliest(punches, model.PunchIn); ok {
		if late := first.Timestamp.Sub(start); late > g.cfg.LateThreshold {
			emit(model.ExceptionLateArrival, model.SeverityMedium,
				fmt.Sprintf("arrived %s after scheduled start %s", late, shift.StartTime))
		}
	}

	if last, ok := latest(punches, model.PunchOut); ok {
		if early := end.Sub(last.Timestamp); early > g.cfg.EarlyThreshold {
			emit(model.ExceptionEarlyDeparture, model.SeverityMedium,
				fmt.Sprintf("left %s before scheduled end %s", early, shift.EndTime))
		}
	}

	return out
}

// earliest returns the chronologically first punch of the given type.
func earliest(punches []model.Punch, typ model.PunchType) (model.Punch, bool) {
	var best model.Punch
	found := false
	for _, p := range punches {
		if p.Type != typ {
			continue
		}
		if !found || p.Timestamp.Before(best.Timestamp) {
			best, found = p, true
		}
	}
	return best, found
}

// latest returns the chronologically last punch of the given type.
func latest(punches []model.Punch, typ model.PunchType) (model.Punch, bool) {
	var best model.Punch
	found := false
	for _, p := range punches {
		if p.Type != typ {
			continue
		}
		if !found || p.Timestamp.After(best.Timestamp) {
			best, found = p, true
		}
	}
	return best, found
}
