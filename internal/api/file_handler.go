package api

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// FileHandler attaches instructor reference files to items and lessons.
type FileHandler struct {
	uploadService service.UploadService
	notifier
}

func NewFileHandler(uploadService service.UploadService, courseService service.CourseService, hub *LiveHub) *FileHandler {
	return &FileHandler{
		uploadService: uploadService,
		notifier:      notifier{courses: courseService, hub: hub},
	}
}

// AttachItemFile uploads the reference file of a task or assignment. A file
// with a different name replaces the previous one.
func (h *FileHandler) AttachItemFile(kind domain.ItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		upload, ok := h.formUpload(c)
		if !ok {
			return
		}
		defer closeUpload(upload)

		item, err := h.uploadService.AttachItemFile(c.Request.Context(), c.Param("subjectId"), kind, c.Param("itemId"), upload)
		if respondApplied(c, http.StatusOK, item, err) {
			h.notify()
		}
	}
}

func (h *FileHandler) AttachLessonFile(c *gin.Context) {
	upload, ok := h.formUpload(c)
	if !ok {
		return
	}
	defer closeUpload(upload)

	lesson, err := h.uploadService.AttachLessonFile(c.Request.Context(), c.Param("subjectId"), c.Param("lessonId"), upload)
	if respondApplied(c, http.StatusOK, lesson, err) {
		h.notify()
	}
}

func (h *FileHandler) formUpload(c *gin.Context) (service.FileUpload, bool) {
	if h.uploadService == nil {
		abortWithError(c, http.StatusServiceUnavailable, "File uploads are not configured")
		return service.FileUpload{}, false
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Missing file field")
		return service.FileUpload{}, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Unreadable file")
		return service.FileUpload{}, false
	}
	return service.FileUpload{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
	}, true
}

func closeUpload(u service.FileUpload) {
	if closer, ok := u.Body.(interface{ Close() error }); ok {
		closer.Close()
	}
}
