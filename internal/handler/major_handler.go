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

// MajorHandler exposes major catalog endpoints.
type MajorHandler struct {
	majors *service.MajorService
}

// NewMajorHandler constructs MajorHandler.
func NewMajorHandler(majors *service.MajorService) *MajorHandler {
	return &MajorHandler{majors: majors}
}

// List godoc
// @Summary List majors
// @Tags Majors
// @Produce json
// @Param search query string false "Search by code or name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /majors [get]
func (h *MajorHandler) List(c *gin.Context) {
	filter := catalogFilterFromQuery(c)
	majors, pagination, err := h.majors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, majors, pagination)
}

// Get godoc
// @Summary Get major
// @Tags Majors
// @Produce json
// @Param id path string true "Major ID"
// @Success 200 {object} response.Envelope
// @Router /majors/{id} [get]
func (h *MajorHandler) Get(c *gin.Context) {
	major, err := h.majors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, major, nil)
}

// Create godoc
// @Summary Create major
// @Tags Majors
// @Accept json
// @Produce json
// @Param payload body service.MajorRequest true "Major payload"
// @Success 201 {object} response.Envelope
// @Router /majors [post]
func (h *MajorHandler) Create(c *gin.Context) {
	var req service.MajorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	major, err := h.majors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, major)
}

// Update godoc
// @Summary Update major
// @Tags Majors
// @Accept json
// @Produce json
// @Param id path string true "Major ID"
// @Param payload body service.MajorRequest true "Major payload"
// @Success 200 {object} response.Envelope
// @Router /majors/{id} [put]
func (h *MajorHandler) Update(c *gin.Context) {
	var req service.MajorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	major, err := h.majors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, major, nil)
}

// Delete godoc
// @Summary Delete major
// @Tags Majors
// @Produce json
// @Param id path string true "Major ID"
// @Success 204
// @Router /majors/{id} [delete]
func (h *MajorHandler) Delete(c *gin.Context) {
	if err := h.majors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func catalogFilterFromQuery(c *gin.Context) models.CatalogFilter {
	var filter models.CatalogFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.MajorID = c.Query("majorId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
