package handler

import (
	"net/http"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/apierror"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

type ComplaintsHandler struct {
	svc            service.ComplaintService
	investigations service.InvestigationService
}

func NewComplaintsHandler(svc service.ComplaintService, investigations service.InvestigationService) *ComplaintsHandler {
	return &ComplaintsHandler{svc: svc, investigations: investigations}
}

// ── Public intake ────────────────────────────────────────────────────────────

// Submit godoc
// @Summary File a customer complaint
// @Tags public
// @Accept json
// @Produce json
// @Param body body dto.CreateComplaintRequest true "Complaint"
// @Success 201 {object} dto.ComplaintResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/public/complaints [post]
func (h *ComplaintsHandler) Submit(c *gin.Context) {
	var req dto.CreateComplaintRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// AddAttachments godoc
// @Summary Attach photos or documents to a complaint
// @Tags public
// @Accept multipart/form-data
// @Produce json
// @Param number path string true "Complaint number"
// @Param phone formData string true "Phone number given on the complaint"
// @Param files formData file true "Up to 5 JPEG, PNG or PDF files of at most 5 MB"
// @Success 200 {object} dto.AttachmentUploadResponse
// @Router /v1/public/complaints/{number}/attachments [post]
func (h *ComplaintsHandler) AddAttachments(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, (service.MaxAttachmentFiles+1)*service.MaxAttachmentBytes)
	files, ok := formFiles(c)
	if !ok {
		return
	}
	phone := c.PostForm("phone")
	if phone == "" {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{"phone": "required"}))
		return
	}
	resp, err := h.svc.AddAttachments(c.Request.Context(), c.Param("number"), phone, uploadsFrom(files))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Track godoc
// @Summary Complaint status for the customer
// @Tags public
// @Produce json
// @Param number path string true "Complaint number"
// @Param phone query string true "Phone number given on the complaint"
// @Success 200 {object} dto.ComplaintTrackingResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/public/complaints/{number} [get]
func (h *ComplaintsHandler) Track(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{"phone": "required"}))
		return
	}
	resp, err := h.svc.Track(c.Request.Context(), c.Param("number"), phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Back office ──────────────────────────────────────────────────────────────

// List godoc
// @Summary List complaints
// @Tags complaints
// @Security BearerAuth
// @Produce json
// @Param status query string false "Status"
// @Param search query string false "Number, customer or lot"
// @Success 200 {object} dto.ComplaintListResponse
// @Router /v1/complaints [get]
func (h *ComplaintsHandler) List(c *gin.Context) {
	var filter dto.ComplaintFilter
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

func (h *ComplaintsHandler) Get(c *gin.Context) {
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

func (h *ComplaintsHandler) Assign(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AssignComplaintRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Assign(c.Request.Context(), scopeFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Transition godoc
// @Summary Move a complaint to another status
// @Tags complaints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param body body dto.TransitionComplaintRequest true "Target status"
// @Success 200 {object} dto.ComplaintResponse
// @Failure 409 {object} apierror.APIError "Transition not allowed"
// @Router /v1/complaints/{id}/status [patch]
func (h *ComplaintsHandler) Transition(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionComplaintRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Transition(c.Request.Context(), scopeFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ComplaintsHandler) Delete(c *gin.Context) {
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

// ── Investigations ───────────────────────────────────────────────────────────

func (h *ComplaintsHandler) OpenInvestigation(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.OpenInvestigationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.investigations.Open(c.Request.Context(), scopeFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ComplaintsHandler) GetInvestigation(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.investigations.Get(c.Request.Context(), scopeFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ComplaintsHandler) UpdateInvestigation(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateInvestigationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.investigations.Update(c.Request.Context(), scopeFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CompleteInvestigation godoc
// @Summary Record the conclusion and resolve the complaint
// @Tags complaints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param body body dto.CompleteInvestigationRequest true "Conclusion"
// @Success 200 {object} dto.InvestigationResponse
// @Router /v1/complaints/{id}/investigation/complete [post]
func (h *ComplaintsHandler) CompleteInvestigation(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CompleteInvestigationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.investigations.Complete(c.Request.Context(), scopeFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ComplaintsHandler) AddEvidence(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	files, ok := formFiles(c)
	if !ok {
		return
	}
	resp, err := h.investigations.AddEvidence(c.Request.Context(), scopeFrom(c), id, uploadsFrom(files))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
