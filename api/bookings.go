package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/Domenick1991/clinicbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	DoctorID      string `json:"doctor_id" binding:"required"`
	PatientID     string `json:"patient_id"`
	BookingDate   string `json:"booking_date" binding:"required"`
	SlotStartTime string `json:"slot_start_time" binding:"required"`
	Notes         string `json:"notes"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type bookingResponse struct {
	ID                 string `json:"id"`
	DoctorID           string `json:"doctor_id"`
	PatientID          string `json:"patient_id"`
	BookingDate        string `json:"booking_date"`
	SlotStartTime      string `json:"slot_start_time"`
	SlotEndTime        string `json:"slot_end_time"`
	Status             string `json:"status"`
	Notes              string `json:"notes,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:                 b.ID.String(),
		DoctorID:           b.DoctorID.String(),
		PatientID:          b.PatientID.String(),
		BookingDate:        b.BookingDate.Format(domain.DateLayout),
		SlotStartTime:      b.SlotStartTime.String(),
		SlotEndTime:        b.SlotEndTime.String(),
		Status:             string(b.Status),
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          b.UpdatedAt.Format(time.RFC3339),
	}
}

func toPageResponse(p domain.Page[domain.Booking]) domain.Page[bookingResponse] {
	items := make([]bookingResponse, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, toBookingResponse(&p.Items[i]))
	}
	return domain.Page[bookingResponse]{Items: items, Page: p.Page, Size: p.Size, Total: p.Total, TotalPages: p.TotalPages}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register expects router to already carry JWTAuth.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	staff := RequireRole(domain.RoleStaff, domain.RoleAdmin)
	anyone := RequireRole(domain.RolePatient, domain.RoleStaff, domain.RoleAdmin)

	router.POST("", anyone, h.create)
	router.GET("", staff, h.list)
	router.GET("/me", RequireRole(domain.RolePatient), h.listMine)
	router.GET("/:id", anyone, h.get)
	router.PUT("/:id/confirm", staff, h.confirm)
	router.PUT("/:id/complete", staff, h.complete)
	router.PUT("/:id/no-show", staff, h.noShow)
	router.PUT("/:id/cancel", anyone, h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		badRequest(c, "doctor_id: invalid id")
		return
	}
	var patientID uuid.UUID
	if req.PatientID != "" {
		if patientID, err = uuid.Parse(req.PatientID); err != nil {
			badRequest(c, "patient_id: invalid id")
			return
		}
	}
	date, err := domain.ParseDate(req.BookingDate)
	if err != nil {
		badRequest(c, "booking_date: "+err.Error())
		return
	}
	start, err := domain.ParseTimeOfDay(req.SlotStartTime)
	if err != nil {
		badRequest(c, "slot_start_time: "+err.Error())
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		ActorUserID: actorID(c),
		PatientID:   patientID,
		DoctorID:    doctorID,
		Date:        date,
		StartTime:   start,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) list(c *gin.Context) {
	var filter domain.BookingFilter
	var err error
	if v := c.Query("doctor_id"); v != "" {
		if filter.DoctorID, err = uuid.Parse(v); err != nil {
			badRequest(c, "doctor_id: invalid id")
			return
		}
	}
	if v := c.Query("patient_id"); v != "" {
		if filter.PatientID, err = uuid.Parse(v); err != nil {
			badRequest(c, "patient_id: invalid id")
			return
		}
	}
	if v := c.Query("date"); v != "" {
		date, err := domain.ParseDate(v)
		if err != nil {
			badRequest(c, "date: "+err.Error())
			return
		}
		filter.Date = &date
	}
	page, ok := pageRequest(c)
	if !ok {
		return
	}

	result, err := h.service.ListBookings(c.Request.Context(), filter, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageResponse(result))
}

func (h *BookingHandler) listMine(c *gin.Context) {
	page, ok := pageRequest(c)
	if !ok {
		return
	}
	result, err := h.service.ListMyBookings(c.Request.Context(), actorID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageResponse(result))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	h.transition(c, h.service.ConfirmBooking)
}

func (h *BookingHandler) complete(c *gin.Context) {
	h.transition(c, h.service.CompleteBooking)
}

func (h *BookingHandler) noShow(c *gin.Context) {
	h.transition(c, h.service.MarkNoShow)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	b, err := h.service.CancelBooking(c.Request.Context(), id, actorID(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*domain.Booking, error)) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := apply(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func bookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid booking id")
		return uuid.Nil, false
	}
	return id, true
}

func pageRequest(c *gin.Context) (domain.PageRequest, bool) {
	var req domain.PageRequest
	var err error
	if v := c.Query("page"); v != "" {
		if req.Page, err = strconv.Atoi(v); err != nil {
			badRequest(c, "page must be an integer")
			return req, false
		}
	}
	if v := c.Query("size"); v != "" {
		if req.Size, err = strconv.Atoi(v); err != nil {
			badRequest(c, "size must be an integer")
			return req, false
		}
	}
	return req.Normalize(), true
}
