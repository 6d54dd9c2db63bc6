package api

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/service"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SubmissionHandler serves student submissions and instructor scoring for
// one item kind; routes for tasks and assignments each get their own.
type SubmissionHandler struct {
	kind              domain.ItemKind
	submissionService service.SubmissionService
	uploadService     service.UploadService // nil when no blob store is configured
	notifier
}

func NewSubmissionHandler(
	kind domain.ItemKind,
	submissionService service.SubmissionService,
	uploadService service.UploadService,
	courseService service.CourseService,
	hub *LiveHub,
) *SubmissionHandler {
	return &SubmissionHandler{
		kind:              kind,
		submissionService: submissionService,
		uploadService:     uploadService,
		notifier:          notifier{courses: courseService, hub: hub},
	}
}

// SubmitRequest is the JSON form of a submission whose file was already
// stored by the client.
type SubmitRequest struct {
	FileName string `json:"fileName" binding:"required"`
	FileURL  string `json:"fileUrl" binding:"required,url"`
	Note     string `json:"note"`
}

type ScoreRequest struct {
	Score *float64 `json:"score" binding:"required"`
}

type DownloadResponse struct {
	URL string `json:"url"`
}

// Submit godoc
// @Summary Submit work for a task or assignment
// @Description Accepts either a multipart upload (field "file", optional "note") or a JSON blob reference. Replaces the caller's earlier submission and clears its score.
// @Tags Submissions
// @Security BearerAuth
// @Success 201 {object} domain.Submission
// @Success 202 {object} DegradedResponse "Saved locally only"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Subject or item not found"
// @Router /subjects/{subjectId}/{kind}/{itemId}/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	student, err := getSessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify student from token.")
		return
	}
	subjectID, itemID := c.Param("subjectId"), c.Param("itemId")

	var sub *domain.Submission
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if h.uploadService == nil {
			abortWithError(c, http.StatusServiceUnavailable, "File uploads are not configured")
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Missing file field")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Unreadable file")
			return
		}
		defer file.Close()

		sub, err = h.uploadService.SubmitFile(c.Request.Context(), subjectID, h.kind, itemID, student, c.PostForm("note"), service.FileUpload{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Body:        file,
		})
		if respondApplied(c, http.StatusCreated, sub, err) {
			h.notify()
		}
		return
	}

	var req SubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err = h.submissionService.Submit(c.Request.Context(), subjectID, h.kind, itemID, student.ID, student.DisplayName(),
		service.BlobRef{FileName: req.FileName, FileURL: req.FileURL}, req.Note)
	if respondApplied(c, http.StatusCreated, sub, err) {
		h.notify()
	}
}

// Score sets the score of a student's submission.
func (h *SubmissionHandler) Score(c *gin.Context) {
	var req ScoreRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.submissionService.Score(c.Request.Context(), c.Param("subjectId"), h.kind, c.Param("itemId"), c.Param("studentId"), *req.Score)
	if respondApplied(c, http.StatusOK, sub, err) {
		h.notify()
	}
}

// ListSubmissions returns every student's submission for the item.
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	subs, err := h.submissionService.ListSubmissions(c.Param("subjectId"), h.kind, c.Param("itemId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// MySubmission returns the caller's own submission and score.
func (h *SubmissionHandler) MySubmission(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	sub, err := h.submissionService.GetSubmission(c.Param("subjectId"), h.kind, c.Param("itemId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Download returns a short-lived link to a submission file. Students may
// only fetch their own.
func (h *SubmissionHandler) Download(c *gin.Context) {
	if h.uploadService == nil {
		abortWithError(c, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}
	session, err := getSessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	studentID := c.Param("studentId")
	if !session.IsInstructor() && session.ID != studentID {
		abortWithError(c, http.StatusForbidden, "Access denied to this submission")
		return
	}

	url, err := h.uploadService.SubmissionDownloadURL(c.Request.Context(), c.Param("subjectId"), h.kind, c.Param("itemId"), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DownloadResponse{URL: url})
}
