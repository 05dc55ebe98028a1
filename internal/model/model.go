// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// PunchType is the kind of clock event an employee records.
type PunchType string

// Punch types in the order they occur within a work cycle.
const (
	PunchIn         PunchType = "in"
	PunchOut        PunchType = "out"
	PunchBreakStart PunchType = "break_start"
	PunchBreakEnd   PunchType = "break_end"
)

// Valid reports whether t is one of the known punch types.
func (t PunchType) Valid() bool {
	switch t {
	case PunchIn, PunchOut, PunchBreakStart, PunchBreakEnd:
		return true
	}
	return false
}

// Punch is a single immutable clock event tied to an employee and timestamp.
type Punch struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	EmployeeID uuid.UUID  `json:"employee_id"`
	ShiftID    *uuid.UUID `json:"shift_id,omitempty"`
	Type       PunchType  `json:"type"`
	Timestamp  time.Time  `json:"timestamp"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	DeviceID   *uuid.UUID `json:"device_id,omitempty"`
	Manual     bool       `json:"manual"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Shift is the scheduled start/end/break allowance for a day of week.
// StartTime and EndTime are wall-clock strings in "HH:MM" form.
type Shift struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	ScheduleID   uuid.UUID `json:"schedule_id"`
	DayOfWeek    int       `json:"day_of_week"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	BreakMinutes int       `json:"break_minutes"` // cap on cumulative break duration
}

// StartOn resolves the shift start to a concrete instant on the given date.
func (s Shift) StartOn(date time.Time) (time.Time, error) {
	return atClock(date, s.StartTime)
}

// EndOn resolves the shift end to a concrete instant on the given date.
// A shift whose end is not after its start is treated as crossing midnight.
func (s Shift) EndOn(date time.Time) (time.Time, error) {
	start, err := atClock(date, s.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	end, err := atClock(date, s.EndTime)
	if err != nil {
		return time.Time{}, err
	}
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return end, nil
}

// atClock combines the date portion of date with an "HH:MM" wall-clock string.
func atClock(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad clock value %q: %w", hhmm, err)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// ValidationError is a single violated punch rule. It is a data value returned
// from validation, not an error: the caller decides which codes are hard failures.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExceptionType classifies a derived attendance anomaly.
type ExceptionType string

const (
	ExceptionAbsence        ExceptionType = "absence"
	ExceptionLateArrival    ExceptionType = "late_arrival"
	ExceptionEarlyDeparture ExceptionType = "early_departure"
)

// Exception severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ExceptionStatusOpen is the initial status of a freshly derived exception.
const ExceptionStatusOpen = "open"

// AttendanceException is a derived record flagging an attendance anomaly.
// Rows are recomputable from (punches, shift, date) and never mutated by hand.
type AttendanceException struct {
	ID          uuid.UUID     `json:"id"`
	TenantID    uuid.UUID     `json:"tenant_id"`
	EmployeeID  uuid.UUID     `json:"employee_id"`
	ShiftID     *uuid.UUID    `json:"shift_id,omitempty"`
	Date        time.Time     `json:"date"`
	Type        ExceptionType `json:"type"`
	Severity    string        `json:"severity"`
	Status      string        `json:"status"`
	Description string        `json:"description"`
	DetectedAt  time.Time     `json:"detected_at"`
}

// IdempotencyRecord stores the terminal result of a keyed submission.
// Rows are unique on (tenant_id, endpoint, key) and write-once after completion.
type IdempotencyRecord struct {
	TenantID     uuid.UUID
	Endpoint     string
	Key          string
	StatusCode   int
	ResponseBody []byte
	LockedAt     time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// Device is a registered punch kiosk. The PIN is stored as an Argon2id hash.
type Device struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	PinHash   []byte
	PinSalt   []byte
	CreatedAt time.Time
}

// Tokens collects an issued device access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

// AuditEvent is a best-effort trail entry for a side-effecting operation.
type AuditEvent struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ActorID    *uuid.UUID // device that submitted, when known
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Detail     string
	CreatedAt  time.Time
}
