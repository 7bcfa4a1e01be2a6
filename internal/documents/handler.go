package documents

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyviz-backend/internal/events"
	"studyviz-backend/internal/extract"
	"studyviz-backend/internal/shared/metrics"
	"studyviz-backend/internal/shared/server/respond"
)

const maxUploadSize = 20 << 20 // 20MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc    *Service
	Events *events.Hub
}

// NewHandler constructs a Handler. hub may be nil, which disables the event stream.
func NewHandler(svc *Service, hub *events.Hub) *Handler {
	return &Handler{Svc: svc, Events: hub}
}

// RegisterRoutes attaches document routes to the router group. uploadMiddleware
// runs in front of the upload endpoint only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, uploadMiddleware ...gin.HandlerFunc) {
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/events", h.events)
	rg.GET("/documents/:id/file", h.file)
	rg.GET("/documents/:id/visualizations/:vizId", h.visualization)
	rg.DELETE("/documents/:id", h.remove)
	rg.GET("/visualizations/:documentId", h.visualizations)
	rg.POST("/upload", append(uploadMiddleware, h.upload)...)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.IncUploadsRejected("too_large")
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "File is too large (max 20MB)", nil)
			return
		}
		metrics.IncUploadsRejected(rejectReason(ErrNoFile))
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, ValidationMessage(ErrNoFile), nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		metrics.IncUploadsRejected("unreadable")
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		metrics.IncUploadsRejected("unreadable")
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}

	ctx := c.Request.Context()
	doc, err := h.Svc.Submit(ctx, SubmitInput{
		FileName: fileHeader.Filename,
		Data:     data,
		Kind:     c.PostForm("type"),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			metrics.IncUploadsRejected(rejectReason(err))
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, ValidationMessage(err), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to upload file", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	c.Set("statusTransition", "none->processing")
	respond.OK(c, doc)
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to fetch documents", nil)
		return
	}
	respond.List(c, docs)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)

	doc, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to fetch document", nil)
		}
		return
	}
	respond.OK(c, doc)
}

func (h *Handler) visualizations(c *gin.Context) {
	id := c.Param("documentId")
	c.Set("documentId", id)

	vizzes, err := h.Svc.Visualizations(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to fetch visualizations", nil)
		return
	}
	respond.List(c, vizzes)
}

func (h *Handler) visualization(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)

	viz, err := h.Svc.Visualization(c.Request.Context(), id, c.Param("vizId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Visualization not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to fetch visualization", nil)
		}
		return
	}
	respond.OK(c, viz)
}

// file serves the archived upload as an attachment.
func (h *Handler) file(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)

	doc, rc, err := h.Svc.OpenFile(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Document not found", nil)
		case errors.Is(err, ErrNotArchived):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Original file is not available", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to read file", nil)
		}
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxUploadSize+1))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to read file", nil)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, extract.MimeType(data), data)
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)

	ctx := c.Request.Context()
	existed, err := h.Svc.Delete(ctx, id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to delete document", nil)
		return
	}
	if !existed {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Document not found", nil)
		return
	}
	respond.Success(c)
}
