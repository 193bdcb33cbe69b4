package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zus-pop/academix-api/internal/models"
	"github.com/zus-pop/academix-api/internal/service"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
	"github.com/zus-pop/academix-api/pkg/response"
)

// AlertHandler exposes academic risk alert endpoints.
type AlertHandler struct {
	alerts *service.AlertService
}

// NewAlertHandler constructs AlertHandler.
func NewAlertHandler(alerts *service.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// List godoc
// @Summary List risk alerts
// @Tags Alerts
// @Produce json
// @Param enrollmentId query string false "Filter by enrollment"
// @Param studentId query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param riskLevel query string false "Filter by risk level"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var filter models.AlertFilter
	filter.EnrollmentID = c.Query("enrollmentId")
	filter.StudentID = c.Query("studentId")
	filter.Status = strings.ToUpper(c.Query("status"))
	filter.RiskLevel = strings.ToUpper(c.Query("riskLevel"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	alerts, pagination, err := h.alerts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, pagination)
}

// Get godoc
// @Summary Get risk alert
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Router /alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.alerts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}

// Create godoc
// @Summary Open a risk alert for a student
// @Tags Alerts
// @Accept json
// @Produce json
// @Param payload body models.CreateAlertRequest true "Alert payload"
// @Success 201 {object} response.Envelope
// @Router /alerts [post]
func (h *AlertHandler) Create(c *gin.Context) {
	var req models.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	alert, err := h.alerts.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, alert)
}

// Respond godoc
// @Summary Record a supervisor response on an alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param payload body models.RespondAlertRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /alerts/{id}/response [patch]
func (h *AlertHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.RespondAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	alert, err := h.alerts.Respond(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}

// Resolve godoc
// @Summary Resolve a responded alert
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /alerts/{id}/resolve [patch]
func (h *AlertHandler) Resolve(c *gin.Context) {
	alert, err := h.alerts.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}

// UpdateRiskLevel godoc
// @Summary Change the risk level of an open alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param payload body models.UpdateRiskLevelRequest true "Risk level payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /alerts/{id} [patch]
func (h *AlertHandler) UpdateRiskLevel(c *gin.Context) {
	var req models.UpdateRiskLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	alert, err := h.alerts.UpdateRiskLevel(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}
