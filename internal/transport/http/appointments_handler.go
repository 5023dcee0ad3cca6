package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vetdesk/internal/domain"
	"vetdesk/internal/service/scheduling"
	"vetdesk/internal/store"
)

const conflictMessage = "That time slot is already booked. Pick a different slot."

type schedulingService interface {
	Schedule(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, in scheduling.ScheduleInput) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	MarkServiced(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListAll(ctx context.Context) ([]domain.Appointment, error)
}

type AppointmentsHandler struct {
	svc schedulingService
	log *slog.Logger
}

func NewAppointmentsHandler(svc schedulingService, log *slog.Logger) *AppointmentsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.appointments")),
	}
}

func NewRouter(svc schedulingService, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	NewAppointmentsHandler(svc, log).Register(r)
	return r
}

func (h *AppointmentsHandler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/appointments", h.create)
	v1.GET("/appointments", h.list)
	v1.PUT("/appointments/:id", h.reschedule)
	v1.DELETE("/appointments/:id", h.cancel)
	v1.POST("/appointments/:id/serviced", h.markServiced)
}

type appointmentRequest struct {
	StartTime     time.Time `json:"start_time"`
	ServiceType   string    `json:"service_type"`
	RequesterName string    `json:"requester_name"`
	Contact       string    `json:"contact"`
	Notify        bool      `json:"notify"`
}

func (r appointmentRequest) toInput() scheduling.ScheduleInput {
	return scheduling.ScheduleInput{
		StartTime:     r.StartTime,
		ServiceType:   domain.ServiceType(r.ServiceType),
		RequesterName: r.RequesterName,
		Contact:       r.Contact,
		Notify:        r.Notify,
	}
}

type appointmentResponse struct {
	ID            string    `json:"id"`
	StartTime     time.Time `json:"start_time"`
	ServiceType   string    `json:"service_type"`
	RequesterName string    `json:"requester_name"`
	Contact       string    `json:"contact"`
	Serviced      bool      `json:"serviced"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:            a.ID.String(),
		StartTime:     a.StartTime,
		ServiceType:   string(a.ServiceType),
		RequesterName: a.RequesterName,
		Contact:       a.Contact,
		Serviced:      a.Serviced,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func (h *AppointmentsHandler) create(c *gin.Context) {
	log := h.log.With(slog.String("handler", "create"))

	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_body"), slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	appt, err := h.svc.Schedule(c.Request.Context(), req.toInput())
	if err != nil {
		h.writeError(c, log, err)
		return
	}

	log.Info(
		"appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.Time("start_time", appt.StartTime),
		slog.String("service_type", string(appt.ServiceType)),
	)
	c.JSON(http.StatusCreated, toResponse(appt))
}

func (h *AppointmentsHandler) list(c *gin.Context) {
	log := h.log.With(slog.String("handler", "list"))

	appts, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, log, err)
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toResponse(a))
	}

	log.Debug("appointments listed", slog.Int("count", len(out)))
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

func (h *AppointmentsHandler) reschedule(c *gin.Context) {
	log := h.log.With(slog.String("handler", "reschedule"))

	id, ok := h.appointmentID(c, log)
	if !ok {
		return
	}

	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_body"), slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	appt, err := h.svc.Reschedule(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.writeError(c, log.With(slog.String("appointment_id", id.String())), err)
		return
	}

	log.Info(
		"appointment rescheduled",
		slog.String("appointment_id", appt.ID.String()),
		slog.Time("start_time", appt.StartTime),
	)
	c.JSON(http.StatusOK, toResponse(appt))
}

func (h *AppointmentsHandler) cancel(c *gin.Context) {
	log := h.log.With(slog.String("handler", "cancel"))

	id, ok := h.appointmentID(c, log)
	if !ok {
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), id); err != nil {
		h.writeError(c, log.With(slog.String("appointment_id", id.String())), err)
		return
	}

	log.Info("appointment cancelled", slog.String("appointment_id", id.String()))
	c.Status(http.StatusNoContent)
}

func (h *AppointmentsHandler) markServiced(c *gin.Context) {
	log := h.log.With(slog.String("handler", "mark_serviced"))

	id, ok := h.appointmentID(c, log)
	if !ok {
		return
	}

	appt, err := h.svc.MarkServiced(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, log.With(slog.String("appointment_id", id.String())), err)
		return
	}

	log.Info("appointment marked serviced", slog.String("appointment_id", appt.ID.String()))
	c.JSON(http.StatusOK, toResponse(appt))
}

func (h *AppointmentsHandler) appointmentID(c *gin.Context, log *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointment id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *AppointmentsHandler) writeError(c *gin.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrConflict):
		log.Info("slot conflict")
		c.JSON(http.StatusConflict, gin.H{"error": conflictMessage})
	case errors.Is(err, store.ErrAlreadyServiced):
		log.Info("appointment already serviced")
		c.JSON(http.StatusConflict, gin.H{"error": "This appointment has already taken place and can no longer be changed."})
	case errors.Is(err, store.ErrNotFound):
		log.Info("appointment not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
	default:
		var vErr *scheduling.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err))
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		log.Error("request failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
