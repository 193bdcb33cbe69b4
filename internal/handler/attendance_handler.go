package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zus-pop/academix-api/internal/models"
	"github.com/zus-pop/academix-api/internal/service"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
	"github.com/zus-pop/academix-api/pkg/response"
)

// AttendanceHandler exposes attendance session endpoints.
type AttendanceHandler struct {
	attendances *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendances *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendances: attendances}
}

// List godoc
// @Summary List attendance sessions
// @Tags Attendances
// @Produce json
// @Param enrollmentId query string false "Filter by enrollment"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendances [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.EnrollmentID = c.Query("enrollmentId")
	filter.Status = c.Query("status")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	sessions, pagination, err := h.attendances.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get attendance session
// @Tags Attendances
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Router /attendances/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	session, err := h.attendances.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// UpdateStatus godoc
// @Summary Mark an attendance session
// @Tags Attendances
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body models.UpdateAttendanceRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /attendances/{id} [patch]
func (h *AttendanceHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.attendances.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
