package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/akozhin/timeclock/internal/errs"
	"github.com/akozhin/timeclock/internal/model"
	"github.com/akozhin/timeclock/internal/service"
)

var testSignKey = []byte("test-signing-key")

func init() { gin.SetMode(gin.TestMode) }

type fakePunchService struct {
	inSubmit service.SubmitInput
	out      service.SubmitOutcome
	err      error

	historyOut []model.Punch
	historyErr error
}

var _ service.PunchService = (*fakePunchService)(nil)

func (f *fakePunchService) Submit(_ context.Context, in service.SubmitInput) (service.SubmitOutcome, error) {
	f.inSubmit = in
	return f.out, f.err
}

func (f *fakePunchService) History(_ context.Context, _, _ uuid.UUID, _, _ time.Time) ([]model.Punch, error) {
	return f.historyOut, f.historyErr
}

type fakeExceptionService struct {
	out []model.AttendanceException
	err error
}

var _ service.ExceptionService = (*fakeExceptionService)(nil)

func (f *fakeExceptionService) RunForDate(
	_ context.Context, _, _ uuid.UUID, _ time.Time, _ uuid.UUID,
) ([]model.AttendanceException, error) {
	return f.out, f.err
}

type fakeAuthService struct {
	out model.Tokens
	err error
}

var _ service.DeviceAuthService = (*fakeAuthService)(nil)

func (f *fakeAuthService) LoginWithIP(
	_ context.Context, _, _ uuid.UUID, _, _ string,
) (model.Tokens, error) {
	return f.out, f.err
}

func newTestRouter(punches *fakePunchService, excs *fakeExceptionService, auth *fakeAuthService) *gin.Engine {
	return NewServer(punches, excs, auth, testSignKey, nil).Router()
}

func bearerToken(t *testing.T, tenantID, deviceID uuid.UUID) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":               deviceID.String(),
		service.TenantClaim: tenantID.String(),
		"exp":               jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString(testSignKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func doJSON(r *gin.Engine, method, path, auth string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestServer_SubmitPunch_Created(t *testing.T) {
	t.Parallel()
	tenant := uuid.Must(uuid.NewV4())
	device := uuid.Must(uuid.NewV4())
	punches := &fakePunchService{out: service.SubmitOutcome{
		StatusCode: http.StatusCreated,
		Body:       json.RawMessage(`{"id":"p1"}`),
	}}
	r := newTestRouter(punches, &fakeExceptionService{}, &fakeAuthService{})

	body := map[string]any{
		"employee_id": uuid.Must(uuid.NewV4()).String(),
		"punch_type":  "in",
		"timestamp":   "2026-03-02T09:00:00Z",
	}
	w := doJSON(r, http.MethodPost, "/v1/punches", bearerToken(t, tenant, device), body,
		map[string]string{IdempotencyKeyHeader: "req-1"})

	if w.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", w.Code, w.Body)
	}
	if w.Body.String() != `{"id":"p1"}` {
		t.Fatalf("body must pass through verbatim: %s", w.Body)
	}
	if punches.inSubmit.TenantID != tenant {
		t.Fatalf("tenant must come from the token, got %s", punches.inSubmit.TenantID)
	}
	if punches.inSubmit.DeviceID == nil || *punches.inSubmit.DeviceID != device {
		t.Fatalf("device must come from the token")
	}
	if punches.inSubmit.IdempotencyKey != "req-1" {
		t.Fatalf("idempotency key must come from the header, got %q", punches.inSubmit.IdempotencyKey)
	}
}

func TestServer_SubmitPunch_RuleRejectionPassesThrough(t *testing.T) {
	t.Parallel()
	rejection := `{"errors":[{"code":"INVALID_FIRST_PUNCH","message":"first punch of the day must be in"}]}`
	punches := &fakePunchService{out: service.SubmitOutcome{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       json.RawMessage(rejection),
	}}
	r := newTestRouter(punches, &fakeExceptionService{}, &fakeAuthService{})

	body := map[string]any{
		"employee_id": uuid.Must(uuid.NewV4()).String(),
		"punch_type":  "out",
		"timestamp":   "2026-03-02T09:00:00Z",
	}
	w := doJSON(r, http.MethodPost, "/v1/punches", bearerToken(t, uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())), body, nil)

	if w.Code != http.StatusUnprocessableEntity || w.Body.String() != rejection {
		t.Fatalf("want verbatim 422, got %d: %s", w.Code, w.Body)
	}
}

func TestServer_SubmitPunch_ReplayedHeader(t *testing.T) {
	t.Parallel()
	punches := &fakePunchService{out: service.SubmitOutcome{
		StatusCode: http.StatusCreated,
		Body:       json.RawMessage(`{}`),
		Replayed:   true,
	}}
	r := newTestRouter(punches, &fakeExceptionService{}, &fakeAuthService{})

	body := map[string]any{
		"employee_id": uuid.Must(uuid.NewV4()).String(),
		"punch_type":  "in",
		"timestamp":   "2026-03-02T09:00:00Z",
	}
	w := doJSON(r, http.MethodPost, "/v1/punches", bearerToken(t, uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())), body, nil)

	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay must be flagged in the response headers")
	}
}

func TestServer_SubmitPunch_StatusMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"in flight", errs.ErrInFlight, http.StatusConflict},
		{"rate limited", errs.ErrRateLimited, http.StatusTooManyRequests},
		{"not found", errs.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := newTestRouter(&fakePunchService{err: tc.err}, &fakeExceptionService{}, &fakeAuthService{})
			body := map[string]any{
				"employee_id": uuid.Must(uuid.NewV4()).String(),
				"punch_type":  "in",
				"timestamp":   "2026-03-02T09:00:00Z",
			}
			w := doJSON(r, http.MethodPost, "/v1/punches", bearerToken(t, uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())), body, nil)
			if w.Code != tc.want {
				t.Fatalf("want %d, got %d: %s", tc.want, w.Code, w.Body)
			}
		})
	}
}

func TestServer_SubmitPunch_AuthRequired(t *testing.T) {
	t.Parallel()
	r := newTestRouter(&fakePunchService{}, &fakeExceptionService{}, &fakeAuthService{})

	w := doJSON(r, http.MethodPost, "/v1/punches", "", map[string]any{}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: want 401, got %d", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/v1/punches", "Bearer not-a-jwt", map[string]any{}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: want 401, got %d", w.Code)
	}
}

func TestServer_DeviceLogin(t *testing.T) {
	t.Parallel()
	exp := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	auth := &fakeAuthService{out: model.Tokens{AccessToken: "tok", ExpiresAt: exp}}
	r := newTestRouter(&fakePunchService{}, &fakeExceptionService{}, auth)

	body := map[string]any{
		"tenant_id": uuid.Must(uuid.NewV4()).String(),
		"device_id": uuid.Must(uuid.NewV4()).String(),
		"pin":       "482910",
	}
	w := doJSON(r, http.MethodPost, "/v1/device-auth", "", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body)
	}
	var resp deviceLoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.AccessToken != "tok" {
		t.Fatalf("bad login response: %s", w.Body)
	}
}

func TestServer_DeviceLogin_Failures(t *testing.T) {
	t.Parallel()
	body := map[string]any{
		"tenant_id": uuid.Must(uuid.NewV4()).String(),
		"device_id": uuid.Must(uuid.NewV4()).String(),
		"pin":       "000000",
	}

	r := newTestRouter(&fakePunchService{}, &fakeExceptionService{}, &fakeAuthService{err: errs.ErrUnauthorized})
	if w := doJSON(r, http.MethodPost, "/v1/device-auth", "", body, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}

	r = newTestRouter(&fakePunchService{}, &fakeExceptionService{}, &fakeAuthService{err: errs.ErrRateLimited})
	if w := doJSON(r, http.MethodPost, "/v1/device-auth", "", body, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", w.Code)
	}
}

func TestServer_ListPunches(t *testing.T) {
	t.Parallel()
	punches := &fakePunchService{historyOut: []model.Punch{{Type: model.PunchIn}, {Type: model.PunchOut}}}
	r := newTestRouter(punches, &fakeExceptionService{}, &fakeAuthService{})
	auth := bearerToken(t, uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))

	path := "/v1/punches?employee_id=" + uuid.Must(uuid.NewV4()).String() +
		"&from=2026-03-02T00:00:00Z&to=2026-03-03T00:00:00Z"
	w := doJSON(r, http.MethodGet, path, auth, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Items []model.Punch `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || len(resp.Items) != 2 {
		t.Fatalf("bad list response: %s", w.Body)
	}

	w = doJSON(r, http.MethodGet, "/v1/punches?employee_id=nope&from=x&to=y", auth, nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad query: want 400, got %d", w.Code)
	}
}

func TestServer_RunExceptions(t *testing.T) {
	t.Parallel()
	excs := &fakeExceptionService{out: []model.AttendanceException{{Type: model.ExceptionAbsence}}}
	r := newTestRouter(&fakePunchService{}, excs, &fakeAuthService{})
	auth := bearerToken(t, uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))

	body := map[string]any{
		"employee_id": uuid.Must(uuid.NewV4()).String(),
		"shift_id":    uuid.Must(uuid.NewV4()).String(),
		"date":        "2026-03-02",
	}
	w := doJSON(r, http.MethodPost, "/v1/exceptions/run", auth, body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body)
	}

	body["date"] = "02/03/2026"
	if w := doJSON(r, http.MethodPost, "/v1/exceptions/run", auth, body, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad date: want 400, got %d", w.Code)
	}
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()
	r := newTestRouter(&fakePunchService{}, &fakeExceptionService{}, &fakeAuthService{})
	w := doJSON(r, http.MethodGet, "/healthz", "", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
}
