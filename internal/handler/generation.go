package handler

import (
	"net/http"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type GenerationHandler struct {
	svc    service.GenerationService
	tokens service.TokenImportService
}

func NewGenerationHandler(svc service.GenerationService, tokens service.TokenImportService) *GenerationHandler {
	return &GenerationHandler{svc: svc, tokens: tokens}
}

// Generate godoc
// @Summary Generate the registers of one production and wait for completion
// @Tags generation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.GenerateRequest true "Production and QR token"
// @Success 200 {object} dto.GenerateResponse
// @Failure 409 {object} apierror.APIError "Already generated"
// @Router /v1/registers/generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Generate(c.Request.Context(), scopeFrom(c), req)
	if err != nil {
		if resp != nil {
			log.Error().Err(err).Str("job_id", resp.JobID).Str("production_id", resp.ProductionID).Msg("inline generation failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"detail": "Register generation stopped, see the job progress for the failing batch",
				"job":    resp,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Enqueue godoc
// @Summary Queue register generation and return the job id to poll
// @Tags generation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.GenerateRequest true "Production and QR token"
// @Success 202 {object} dto.GenerateResponse
// @Router /v1/registers/generate/async [post]
func (h *GenerationHandler) Enqueue(c *gin.Context) {
	var req dto.GenerateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Enqueue(c.Request.Context(), scopeFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// Bulk godoc
// @Summary Generate several productions one after another
// @Tags generation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.BulkGenerateRequest true "Items"
// @Success 200 {object} dto.BulkSummary
// @Router /v1/registers/generate/bulk [post]
func (h *GenerationHandler) Bulk(c *gin.Context) {
	var req dto.BulkGenerateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.GenerateBulk(c.Request.Context(), scopeFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Progress godoc
// @Summary Progress of a generation job
// @Tags generation
// @Security BearerAuth
// @Produce json
// @Param job_id path string true "Job ID"
// @Success 200 {object} progress.Progress
// @Failure 404 {object} apierror.APIError
// @Router /v1/registers/progress/{job_id} [get]
func (h *GenerationHandler) Progress(c *gin.Context) {
	p, err := h.svc.Progress(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PreviewTokens godoc
// @Summary Parse uploaded QR token files and match them to productions
// @Tags generation
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Token CSV files named <lot number>.csv"
// @Success 200 {object} dto.TokenPreviewResponse
// @Router /v1/registers/tokens/preview [post]
func (h *GenerationHandler) PreviewTokens(c *gin.Context) {
	files, ok := formFiles(c)
	if !ok {
		return
	}
	resp, err := h.tokens.Preview(c.Request.Context(), scopeFrom(c), tokenFilesFrom(files))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
