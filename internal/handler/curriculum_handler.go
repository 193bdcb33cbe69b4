package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zus-pop/academix-api/internal/service"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
	"github.com/zus-pop/academix-api/pkg/response"
)

// CurriculumHandler exposes curriculum endpoints including subject slots.
type CurriculumHandler struct {
	curriculums *service.CurriculumService
}

// NewCurriculumHandler constructs CurriculumHandler.
func NewCurriculumHandler(curriculums *service.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculums: curriculums}
}

// List godoc
// @Summary List curriculums
// @Tags Curriculums
// @Produce json
// @Param search query string false "Search by code or name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /curriculums [get]
func (h *CurriculumHandler) List(c *gin.Context) {
	filter := catalogFilterFromQuery(c)
	curriculums, pagination, err := h.curriculums.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, curriculums, pagination)
}

// Get godoc
// @Summary Get curriculum with subject slots
// @Tags Curriculums
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Router /curriculums/{id} [get]
func (h *CurriculumHandler) Get(c *gin.Context) {
	curriculum, err := h.curriculums.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, curriculum, nil)
}

// Create godoc
// @Summary Create curriculum
// @Tags Curriculums
// @Accept json
// @Produce json
// @Param payload body service.CurriculumRequest true "Curriculum payload"
// @Success 201 {object} response.Envelope
// @Router /curriculums [post]
func (h *CurriculumHandler) Create(c *gin.Context) {
	var req service.CurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	curriculum, err := h.curriculums.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, curriculum)
}

// Update godoc
// @Summary Update curriculum
// @Tags Curriculums
// @Accept json
// @Produce json
// @Param id path string true "Curriculum ID"
// @Param payload body service.CurriculumRequest true "Curriculum payload"
// @Success 200 {object} response.Envelope
// @Router /curriculums/{id} [put]
func (h *CurriculumHandler) Update(c *gin.Context) {
	var req service.CurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	curriculum, err := h.curriculums.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, curriculum, nil)
}

// Delete godoc
// @Summary Delete curriculum
// @Tags Curriculums
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 204
// @Router /curriculums/{id} [delete]
func (h *CurriculumHandler) Delete(c *gin.Context) {
	if err := h.curriculums.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddSubject godoc
// @Summary Add a subject slot to a curriculum
// @Tags Curriculums
// @Accept json
// @Produce json
// @Param id path string true "Curriculum ID"
// @Param payload body service.AddCurriculumSubjectRequest true "Subject slot payload"
// @Success 201 {object} response.Envelope
// @Router /curriculums/{id}/subjects [post]
func (h *CurriculumHandler) AddSubject(c *gin.Context) {
	var req service.AddCurriculumSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.curriculums.AddSubject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// RemoveSubject godoc
// @Summary Remove a subject slot from a curriculum
// @Tags Curriculums
// @Produce json
// @Param id path string true "Curriculum ID"
// @Param subjectId path string true "Subject ID"
// @Success 204
// @Router /curriculums/{id}/subjects/{subjectId} [delete]
func (h *CurriculumHandler) RemoveSubject(c *gin.Context) {
	if err := h.curriculums.RemoveSubject(c.Request.Context(), c.Param("id"), c.Param("subjectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
