package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zus-pop/academix-api/internal/service"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
	"github.com/zus-pop/academix-api/pkg/response"
)

// ComboHandler exposes combo catalog endpoints.
type ComboHandler struct {
	combos *service.ComboService
}

// NewComboHandler constructs ComboHandler.
func NewComboHandler(combos *service.ComboService) *ComboHandler {
	return &ComboHandler{combos: combos}
}

// List godoc
// @Summary List combos
// @Tags Combos
// @Produce json
// @Param search query string false "Search by code or name"
// @Param majorId query string false "Filter by major"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /combos [get]
func (h *ComboHandler) List(c *gin.Context) {
	filter := catalogFilterFromQuery(c)
	combos, pagination, err := h.combos.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, combos, pagination)
}

// Get godoc
// @Summary Get combo
// @Tags Combos
// @Produce json
// @Param id path string true "Combo ID"
// @Success 200 {object} response.Envelope
// @Router /combos/{id} [get]
func (h *ComboHandler) Get(c *gin.Context) {
	combo, err := h.combos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, combo, nil)
}

// Create godoc
// @Summary Create combo
// @Tags Combos
// @Accept json
// @Produce json
// @Param payload body service.ComboRequest true "Combo payload"
// @Success 201 {object} response.Envelope
// @Router /combos [post]
func (h *ComboHandler) Create(c *gin.Context) {
	var req service.ComboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	combo, err := h.combos.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, combo)
}

// Update godoc
// @Summary Update combo
// @Tags Combos
// @Accept json
// @Produce json
// @Param id path string true "Combo ID"
// @Param payload body service.ComboRequest true "Combo payload"
// @Success 200 {object} response.Envelope
// @Router /combos/{id} [put]
func (h *ComboHandler) Update(c *gin.Context) {
	var req service.ComboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	combo, err := h.combos.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, combo, nil)
}

// Delete godoc
// @Summary Delete combo
// @Tags Combos
// @Produce json
// @Param id path string true "Combo ID"
// @Success 204
// @Router /combos/{id} [delete]
func (h *ComboHandler) Delete(c *gin.Context) {
	if err := h.combos.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
