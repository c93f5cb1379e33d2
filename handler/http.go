package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vivekg189/smart-classroom/dto"
	"github.com/vivekg189/smart-classroom/service"
)

// HTTPHandler exposes the lecture file operations over REST.
type HTTPHandler struct {
	uploads       service.UploadService
	transcription service.TranscriptionService
}

func NewHTTPHandler(uploads service.UploadService, transcription service.TranscriptionService) *HTTPHandler {
	return &HTTPHandler{uploads: uploads, transcription: transcription}
}

func (h *HTTPHandler) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/lectures/:id/files", h.UploadFile)
	api.GET("/lectures/:id/files", h.ListFiles)
	api.DELETE("/files/:id", h.DeleteFile)
	api.POST("/files/:id/primary", h.SetPrimaryFile)
	api.POST("/files/:id/transcription", h.RequestTranscription)
}

func (h *HTTPHandler) UploadFile(c *gin.Context) {
	lectureId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_lecture_id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing_file", "message": "multipart field 'file' is required"})
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable_file"})
		return
	}
	defer src.Close()

	result, err := h.uploads.Upload(c.Request.Context(), dto.UploadRequest{
		LectureID:   lectureId,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:   fileHeader.Size,
		Data:        src,
		Transcribe:  c.PostForm("transcribe") == "true",
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "file": result})
}

func (h *HTTPHandler) ListFiles(c *gin.Context) {
	lectureId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_lecture_id"})
		return
	}

	views, err := h.uploads.ListByLecture(c.Request.Context(), lectureId)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "files": views})
}

func (h *HTTPHandler) DeleteFile(c *gin.Context) {
	fileId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_file_id"})
		return
	}

	if err := h.uploads.Delete(c.Request.Context(), fileId); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTPHandler) SetPrimaryFile(c *gin.Context) {
	fileId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_file_id"})
		return
	}

	var body struct {
		LectureID uuid.UUID `json:"lectureId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_body", "message": "lectureId is required"})
		return
	}

	if err := h.uploads.SetPrimary(c.Request.Context(), body.LectureID, fileId); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTPHandler) RequestTranscription(c *gin.Context) {
	fileId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_file_id"})
		return
	}

	if err := h.transcription.Request(c.Request.Context(), fileId); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "transcriptStatus": "pending"})
}

func (h *HTTPHandler) renderError(c *gin.Context, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, service.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, gorm.ErrRecordNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrStorage):
		status, kind = http.StatusInternalServerError, "storage_error"
	case errors.Is(err, service.ErrDatabase):
		status, kind = http.StatusInternalServerError, "database_error"
	default:
		status, kind = http.StatusInternalServerError, "internal_error"
	}
	c.JSON(status, gin.H{"success": false, "error": kind, "message": err.Error()})
}
