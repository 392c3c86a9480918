package upload

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare/internal/middleware"
	"homecare/internal/pkg/response"
)

// Handler serves uploads for any authenticated user. Ownership is tracked by
// user id.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Upload godoc
// @Summary Upload a chat attachment
// @Description Images, audio, PDF, plain text and Word documents up to 10MB.
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Success 201 {object} Response
// @Failure 400,401,413,500 {object} map[string]interface{}
// @Router /uploads [post]
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxFileSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", ErrFileTooLarge.Error())
			return
		}
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "no file provided")
		return
	}

	u, err := h.service.Upload(c.Request.Context(), middleware.UserID(c), fileHeader)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error())
			return
		}
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toResponse(u))
}

func (h *Handler) GetByID(c *gin.Context) {
	u, err := h.service.GetByID(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(u))
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) ListMy(c *gin.Context) {
	uploads, err := h.service.ListByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	items := make([]Response, 0, len(uploads))
	for _, u := range uploads {
		items = append(items, toResponse(u))
	}
	response.Success(c, http.StatusOK, gin.H{"uploads": items})
}
