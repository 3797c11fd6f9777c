package api

import (
	"net/http"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/Domenick1991/clinicbooking/internal/service/availability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DoctorHandler struct {
	service availability.AvailabilityUseCase
}

func NewDoctorHandler(service availability.AvailabilityUseCase) *DoctorHandler {
	return &DoctorHandler{service: service}
}

func (h *DoctorHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id/available-slots", h.availableSlots)
}

func (h *DoctorHandler) availableSlots(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid doctor id")
		return
	}
	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		badRequest(c, "date: "+err.Error())
		return
	}

	slots, err := h.service.GenerateAvailableSlots(c.Request.Context(), doctorID, date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
