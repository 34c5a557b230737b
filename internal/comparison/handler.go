package comparison

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docverify-backend/internal/documents"
	"docverify-backend/internal/shared/server/respond"
)

// Handler exposes the pairwise comparison endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes mounts the comparison endpoint on r.
func (h *Handler) RegisterAdminRoutes(r gin.IRouter) {
	r.GET("/compare", h.compare)
}

func (h *Handler) compare(c *gin.Context) {
	res, err := h.svc.Compare(c.Request.Context(), c.Query("doc1"), c.Query("doc2"))
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
		}
		return
	}
	respond.OK(c, res)
}
