package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vetdesk/internal/domain"
	"vetdesk/internal/service/scheduling"
	"vetdesk/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSchedulingService struct {
	scheduleFn     func(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error)
	rescheduleFn   func(ctx context.Context, id uuid.UUID, in scheduling.ScheduleInput) (domain.Appointment, error)
	cancelFn       func(ctx context.Context, id uuid.UUID) error
	markServicedFn func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	listAllFn      func(ctx context.Context) ([]domain.Appointment, error)
}

func (f *fakeSchedulingService) Schedule(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error) {
	if f.scheduleFn == nil {
		panic("Schedule not configured")
	}
	return f.scheduleFn(ctx, in)
}

func (f *fakeSchedulingService) Reschedule(ctx context.Context, id uuid.UUID, in scheduling.ScheduleInput) (domain.Appointment, error) {
	if f.rescheduleFn == nil {
		panic("Reschedule not configured")
	}
	return f.rescheduleFn(ctx, id, in)
}

func (f *fakeSchedulingService) Cancel(ctx context.Context, id uuid.UUID) error {
	if f.cancelFn == nil {
		panic("Cancel not configured")
	}
	return f.cancelFn(ctx, id)
}

func (f *fakeSchedulingService) MarkServiced(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.markServicedFn == nil {
		panic("MarkServiced not configured")
	}
	return f.markServicedFn(ctx, id)
}

func (f *fakeSchedulingService) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	if f.listAllFn == nil {
		panic("ListAll not configured")
	}
	return f.listAllFn(ctx)
}

func perform(t *testing.T, svc schedulingService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(svc, nil)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func testAppointment() domain.Appointment {
	return domain.Appointment{
		ID:            uuid.MustParse("00000000-0000-0000-0000-000000000010"),
		StartTime:     time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
		ServiceType:   domain.ServiceTypeCheckup,
		RequesterName: "Jane Doe",
		Contact:       "jane@example.com",
	}
}

func TestCreate_ReturnsCreatedAppointment(t *testing.T) {
	var gotInput scheduling.ScheduleInput
	svc := &fakeSchedulingService{
		scheduleFn: func(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error) {
			gotInput = in
			return testAppointment(), nil
		},
	}

	body := `{"start_time":"2026-03-09T10:00:00Z","service_type":"checkup","requester_name":"Jane Doe","contact":"jane@example.com","notify":true}`
	rec := perform(t, svc, http.MethodPost, "/v1/appointments", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if !gotInput.Notify {
		t.Fatalf("expected notify flag to reach the service")
	}
	if gotInput.ServiceType != domain.ServiceTypeCheckup {
		t.Fatalf("service_type = %q", gotInput.ServiceType)
	}

	var resp appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID != "00000000-0000-0000-0000-000000000010" {
		t.Fatalf("id = %q", resp.ID)
	}
}

func TestCreate_RejectsMalformedBody(t *testing.T) {
	svc := &fakeSchedulingService{}

	rec := perform(t, svc, http.MethodPost, "/v1/appointments", `{"start_time": not-json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreate_MapsValidationError(t *testing.T) {
	svc := &fakeSchedulingService{
		scheduleFn: func(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error) {
			return domain.Appointment{}, &scheduling.ValidationError{}
		},
	}

	rec := perform(t, svc, http.MethodPost, "/v1/appointments", `{"service_type":"checkup"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreate_MapsConflict(t *testing.T) {
	svc := &fakeSchedulingService{
		scheduleFn: func(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error) {
			return domain.Appointment{}, store.ErrConflict
		},
	}

	rec := perform(t, svc, http.MethodPost, "/v1/appointments", `{"service_type":"checkup"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if !strings.Contains(rec.Body.String(), "already booked") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCreate_MapsStoreFaultToInternal(t *testing.T) {
	svc := &fakeSchedulingService{
		scheduleFn: func(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error) {
			return domain.Appointment{}, errors.New("connection reset")
		},
	}

	rec := perform(t, svc, http.MethodPost, "/v1/appointments", `{"service_type":"checkup"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Fatalf("store fault leaked to client: %s", rec.Body.String())
	}
}

func TestReschedule_RejectsInvalidUUID(t *testing.T) {
	svc := &fakeSchedulingService{}

	rec := perform(t, svc, http.MethodPut, "/v1/appointments/not-a-uuid", `{"service_type":"checkup"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestReschedule_MapsAlreadyServiced(t *testing.T) {
	svc := &fakeSchedulingService{
		rescheduleFn: func(ctx context.Context, id uuid.UUID, in scheduling.ScheduleInput) (domain.Appointment, error) {
			return domain.Appointment{}, store.ErrAlreadyServiced
		},
	}

	rec := perform(t, svc, http.MethodPut, "/v1/appointments/00000000-0000-0000-0000-000000000010", `{"service_type":"checkup"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if !strings.Contains(rec.Body.String(), "already taken place") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCancel_MapsNotFound(t *testing.T) {
	svc := &fakeSchedulingService{
		cancelFn: func(ctx context.Context, id uuid.UUID) error {
			return store.ErrNotFound
		},
	}

	rec := perform(t, svc, http.MethodDelete, "/v1/appointments/00000000-0000-0000-0000-000000000010", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCancel_ReturnsNoContent(t *testing.T) {
	var gotID uuid.UUID
	svc := &fakeSchedulingService{
		cancelFn: func(ctx context.Context, id uuid.UUID) error {
			gotID = id
			return nil
		},
	}

	rec := perform(t, svc, http.MethodDelete, "/v1/appointments/00000000-0000-0000-0000-000000000010", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if gotID != uuid.MustParse("00000000-0000-0000-0000-000000000010") {
		t.Fatalf("id = %s", gotID)
	}
}

func TestMarkServiced_ReturnsUpdatedAppointment(t *testing.T) {
	svc := &fakeSchedulingService{
		markServicedFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
			a := testAppointment()
			a.Serviced = true
			return a, nil
		},
	}

	rec := perform(t, svc, http.MethodPost, "/v1/appointments/00000000-0000-0000-0000-000000000010/serviced", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Serviced {
		t.Fatalf("expected serviced response")
	}
}

func TestList_ReturnsOrderedAppointments(t *testing.T) {
	first := testAppointment()
	second := testAppointment()
	second.ID = uuid.MustParse("00000000-0000-0000-0000-000000000011")
	second.StartTime = first.StartTime.Add(time.Hour)

	svc := &fakeSchedulingService{
		listAllFn: func(ctx context.Context) ([]domain.Appointment, error) {
			return []domain.Appointment{first, second}, nil
		},
	}

	rec := perform(t, svc, http.MethodGet, "/v1/appointments", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Appointments []appointmentResponse `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Appointments) != 2 {
		t.Fatalf("len = %d, want 2", len(resp.Appointments))
	}
	if resp.Appointments[0].ID != first.ID.String() || resp.Appointments[1].ID != second.ID.String() {
		t.Fatalf("order not preserved: %+v", resp.Appointments)
	}
}
