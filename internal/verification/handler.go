package verification

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"docverify-backend/internal/documents"
	"docverify-backend/internal/shared/server/respond"
)

// maxUploadBytes caps a single upload at 16 MiB.
const maxUploadBytes = 16 << 20

// Handler exposes the document intake and verification endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public endpoints on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/documents", h.ingest)
	r.GET("/documents/:id", h.get)
	r.POST("/verifications", h.verifyProbe)
	r.GET("/verifications/:fingerprint", h.verifyFingerprint)
	r.GET("/owners/:ownerId/documents", h.listByOwner)
}

// RegisterAdminRoutes mounts the review-queue endpoints on r.
func (h *Handler) RegisterAdminRoutes(r gin.IRouter) {
	r.GET("/documents/pending", h.listPending)
	r.POST("/documents/:id/decision", h.decide)
}

type decideRequest struct {
	ReviewerID string `json:"reviewerId"`
	Decision   string `json:"decision" binding:"required"`
	Remarks    string `json:"remarks"`
}

func (h *Handler) ingest(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	data, err := readUpload(fileHeader)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	res, err := h.svc.Ingest(c.Request.Context(), IngestInput{
		OwnerID:  c.PostForm("ownerId"),
		FileName: fileHeader.Filename,
		DocType:  c.PostForm("docType"),
		Data:     data,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	respond.JSON(c, http.StatusCreated, gin.H{
		"document": res.Document,
		"findings": res.Findings,
	})
}

func (h *Handler) get(c *gin.Context) {
	doc, findings, decisions, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"document":  doc,
		"findings":  findings,
		"decisions": decisions,
	})
}

func (h *Handler) verifyProbe(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	data, err := readUpload(fileHeader)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	res, err := h.svc.VerifyByProbe(c.Request.Context(), c.PostForm("ownerId"), data)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, probePayload(res))
}

func (h *Handler) verifyFingerprint(c *gin.Context) {
	res, err := h.svc.VerifyByFingerprint(c.Request.Context(), c.Query("ownerId"), c.Param("fingerprint"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, probePayload(res))
}

func (h *Handler) listByOwner(c *gin.Context) {
	docs, err := h.svc.ListByOwner(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"documents": emptyIfNil(docs)})
}

func (h *Handler) listPending(c *gin.Context) {
	docs, err := h.svc.ListPending(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"documents": emptyIfNil(docs)})
}

func (h *Handler) decide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "decision is required", nil)
		return
	}

	dec, err := h.svc.Decide(c.Request.Context(), DecideInput{
		DocumentID: c.Param("id"),
		ReviewerID: req.ReviewerID,
		Decision:   req.Decision,
		Remarks:    req.Remarks,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"decision": dec})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, documents.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrUnsupportedFileType):
		respond.Error(c, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", err.Error(), nil)
	case errors.Is(err, documents.ErrFingerprintExists):
		respond.Error(c, http.StatusConflict, "DUPLICATE_DOCUMENT", err.Error(), nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

func probePayload(res *ProbeResult) gin.H {
	payload := gin.H{
		"fingerprint": res.Fingerprint,
		"found":       res.Found,
	}
	if res.Document != nil {
		payload["document"] = res.Document
	}
	if res.Findings != nil {
		payload["findings"] = res.Findings
	}
	return payload
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUploadBytes {
		return nil, errors.New("file exceeds the 16 MiB upload limit")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
}

func emptyIfNil(docs []documents.Document) []documents.Document {
	if docs == nil {
		return []documents.Document{}
	}
	return docs
}
