package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/export"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductionsHandler struct {
	svc    service.ProductionService
	export service.ExportService
}

func NewProductionsHandler(svc service.ProductionService, exportSvc service.ExportService) *ProductionsHandler {
	return &ProductionsHandler{svc: svc, export: exportSvc}
}

// Create godoc
// @Summary Create a production lot
// @Tags productions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.CreateProductionRequest true "Production"
// @Success 201 {object} dto.ProductionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/productions [post]
func (h *ProductionsHandler) Create(c *gin.Context) {
	var req dto.CreateProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), scopeFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary List productions
// @Tags productions
// @Security BearerAuth
// @Produce json
// @Param lot_number query string false "Lot number (partial)"
// @Param generated query string false "true | false"
// @Param sort query string false "created_at | lot_number | variety | production_date"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.ProductionListResponse
// @Router /v1/productions [get]
func (h *ProductionsHandler) List(c *gin.Context) {
	var filter dto.ProductionFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), scopeFrom(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductionsHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), scopeFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductionsHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), scopeFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductionsHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), scopeFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRange godoc
// @Summary First/last production code and serial of a lot
// @Tags productions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Production ID"
// @Success 200 {object} dto.RegisterRangeResponse
// @Router /v1/productions/{id}/register-range [get]
func (h *ProductionsHandler) RegisterRange(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.RegisterRange(c.Request.Context(), scopeFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductionsHandler) Registers(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var filter dto.RegisterFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Registers(c.Request.Context(), scopeFrom(c), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export godoc
// @Summary Certification report of the filtered productions
// @Tags productions
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param format query string false "xlsx (default) | csv"
// @Success 200 {file} file
// @Router /v1/productions/export [get]
func (h *ProductionsHandler) Export(c *gin.Context) {
	var filter dto.ProductionFilter
	if !bindQuery(c, &filter) {
		return
	}
	format := c.DefaultQuery("format", export.FormatXLSX)
	if format != export.FormatXLSX && format != export.FormatCSV {
		respondError(c, fmt.Errorf("%w: format must be xlsx or csv", service.ErrValidation))
		return
	}

	rows, err := h.export.CollectProductions(c.Request.Context(), scopeFrom(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if format == export.FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	filename := fmt.Sprintf("productions-%s.%s", time.Now().Format("20060102"), format)
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)
	if err := h.export.Write(c.Writer, format, rows); err != nil {
		_ = c.Error(err)
	}
}
