// Package http exposes the punch, exception, and device auth services over a
// gin REST API.
package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akozhin/timeclock/internal/errs"
	"github.com/akozhin/timeclock/internal/model"
	"github.com/akozhin/timeclock/internal/service"
)

// IdempotencyKeyHeader carries the client's submission key for POST /v1/punches.
const IdempotencyKeyHeader = "Idempotency-Key"

// Server wires the application services into HTTP handlers.
type Server struct {
	punches service.PunchService
	excs    service.ExceptionService
	auth    service.DeviceAuthService
	signKey []byte
	log     *zap.Logger
}

// NewServer constructs the handler set.
func NewServer(
	punches service.PunchService,
	excs service.ExceptionService,
	auth service.DeviceAuthService,
	signKey []byte,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{punches: punches, excs: excs, auth: auth, signKey: signKey, log: log}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(s.log), Recovery(s.log))

	r.GET("/healthz", s.healthz)
	r.POST("/v1/device-auth", s.deviceLogin)

	authed := r.Group("/", AuthRequired(s.signKey))
	authed.POST("/v1/punches", s.submitPunch)
	authed.GET("/v1/punches", s.listPunches)
	authed.POST("/v1/exceptions/run", s.runExceptions)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type deviceLoginRequest struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
	DeviceID uuid.UUID `json:"device_id" binding:"required"`
	PIN      string    `json:"pin" binding:"required"`
}

type deviceLoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *Server) deviceLogin(c *gin.Context) {
	var req deviceLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	toks, err := s.auth.LoginWithIP(c.Request.Context(), req.TenantID, req.DeviceID, req.PIN, c.ClientIP())
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, deviceLoginResponse{AccessToken: toks.AccessToken, ExpiresAt: toks.ExpiresAt})
}

type submitPunchRequest struct {
	EmployeeID uuid.UUID       `json:"employee_id" binding:"required"`
	Type       model.PunchType `json:"punch_type" binding:"required"`
	Timestamp  time.Time       `json:"timestamp" binding:"required"`
	ShiftID    *uuid.UUID      `json:"shift_id"`
	Latitude   *float64        `json:"latitude"`
	Longitude  *float64        `json:"longitude"`
	Manual     bool            `json:"manual"`
}

func (s *Server) submitPunch(c *gin.Context) {
	var req submitPunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	deviceID := deviceFrom(c)
	out, err := s.punches.Submit(c.Request.Context(), service.SubmitInput{
		TenantID:       tenantFrom(c),
		EmployeeID:     req.EmployeeID,
		Type:           req.Type,
		Timestamp:      req.Timestamp,
		ShiftID:        req.ShiftID,
		DeviceID:       &deviceID,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Manual:         req.Manual,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		s.renderError(c, err)
		return
	}
	if out.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	// The stored outcome is returned byte for byte so replays are identical.
	c.Data(out.StatusCode, "application/json", out.Body)
}

func (s *Server) listPunches(c *gin.Context) {
	employeeID, err := uuid.FromString(c.Query("employee_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employee_id must be a uuid"})
		return
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
		return
	}

	punches, err := s.punches.History(c.Request.Context(), tenantFrom(c), employeeID, from, to)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if punches == nil {
		punches = []model.Punch{}
	}
	c.JSON(http.StatusOK, gin.H{"items": punches})
}

type runExceptionsRequest struct {
	EmployeeID uuid.UUID `json:"employee_id" binding:"required"`
	ShiftID    uuid.UUID `json:"shift_id" binding:"required"`
	Date       string    `json:"date" binding:"required"`
}

func (s *Server) runExceptions(c *gin.Context) {
	var req runExceptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	excs, err := s.excs.RunForDate(c.Request.Context(), tenantFrom(c), req.EmployeeID, date, req.ShiftID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if excs == nil {
		excs = []model.AttendanceException{}
	}
	c.JSON(http.StatusOK, gin.H{"items": excs})
}

// renderError maps service errors onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, errs.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
	case errors.Is(err, errs.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in flight"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case strings.HasPrefix(err.Error(), "validation:"):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
