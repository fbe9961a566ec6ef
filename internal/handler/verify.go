package handler

import (
	"net/http"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// VerifyHandler serves the public product authenticity lookup.
type VerifyHandler struct{ svc service.VerificationService }

func NewVerifyHandler(svc service.VerificationService) *VerifyHandler {
	return &VerifyHandler{svc: svc}
}

// Verify godoc
// @Summary Verify a product by its serial number
// @Description Public endpoint, no authentication. Pass the printed production code when the serial alone is ambiguous.
// @Tags public
// @Produce json
// @Param serial path string true "Serial number"
// @Param code query string false "Production code"
// @Success 200 {object} dto.VerifyResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError "Serial shared by several products"
// @Router /v1/public/verify/{serial} [get]
func (h *VerifyHandler) Verify(c *gin.Context) {
	resp, err := h.svc.Verify(c.Request.Context(), c.Param("serial"), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
