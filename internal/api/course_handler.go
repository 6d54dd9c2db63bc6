package api

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CourseHandler serves subjects and their nested items.
type CourseHandler struct {
	courseService service.CourseService
	notifier
}

func NewCourseHandler(courseService service.CourseService, hub *LiveHub) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		notifier:      notifier{courses: courseService, hub: hub},
	}
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return false
	}
	return true
}

// === Subjects ===

func (h *CourseHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.courseService.ListSubjects()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

func (h *CourseHandler) GetSubject(c *gin.Context) {
	subject, err := h.courseService.GetSubject(c.Param("subjectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subject)
}

// CreateSubject godoc
// @Summary Add a subject to the course
// @Tags Subjects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subject body service.SubjectInput true "Subject"
// @Success 201 {object} domain.Subject
// @Success 202 {object} DegradedResponse "Saved locally only"
// @Failure 400 {object} gin.H "Invalid input"
// @Router /subjects [post]
func (h *CourseHandler) CreateSubject(c *gin.Context) {
	var req service.SubjectInput
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.courseService.AddSubject(c.Request.Context(), req)
	if respondApplied(c, http.StatusCreated, subject, err) {
		h.notify()
	}
}

func (h *CourseHandler) UpdateSubject(c *gin.Context) {
	var req service.SubjectInput
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.courseService.UpdateSubject(c.Request.Context(), c.Param("subjectId"), req)
	if respondApplied(c, http.StatusOK, subject, err) {
		h.notify()
	}
}

// DeleteSubject removes the subject and everything nested in it.
func (h *CourseHandler) DeleteSubject(c *gin.Context) {
	err := h.courseService.DeleteSubject(c.Request.Context(), c.Param("subjectId"))
	if respondApplied(c, http.StatusNoContent, nil, err) {
		h.notify()
	}
}

// === Tasks ===

func (h *CourseHandler) ListTasks(c *gin.Context) {
	tasks, err := h.courseService.ListTasks(c.Param("subjectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *CourseHandler) GetTask(c *gin.Context) {
	task, err := h.courseService.GetTask(c.Param("subjectId"), c.Param("itemId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *CourseHandler) CreateTask(c *gin.Context) {
	var req service.TaskInput
	if !bindJSON(c, &req) {
		return
	}
	userID, _ := getUserIDFromContext(c)
	task, err := h.courseService.AddTask(c.Request.Context(), c.Param("subjectId"), req, userID)
	if respondApplied(c, http.StatusCreated, task, err) {
		h.notify()
	}
}

func (h *CourseHandler) UpdateTask(c *gin.Context) {
	var req service.TaskInput
	if !bindJSON(c, &req) {
		return
	}
	task, err := h.courseService.UpdateTask(c.Request.Context(), c.Param("subjectId"), c.Param("itemId"), req)
	if respondApplied(c, http.StatusOK, task, err) {
		h.notify()
	}
}

// === Assignments ===

func (h *CourseHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.courseService.ListAssignments(c.Param("subjectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignments)
}

func (h *CourseHandler) GetAssignment(c *gin.Context) {
	assignment, err := h.courseService.GetAssignment(c.Param("subjectId"), c.Param("itemId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

func (h *CourseHandler) CreateAssignment(c *gin.Context) {
	var req service.AssignmentInput
	if !bindJSON(c, &req) {
		return
	}
	userID, _ := getUserIDFromContext(c)
	assignment, err := h.courseService.AddAssignment(c.Request.Context(), c.Param("subjectId"), req, userID)
	if respondApplied(c, http.StatusCreated, assignment, err) {
		h.notify()
	}
}

func (h *CourseHandler) UpdateAssignment(c *gin.Context) {
	var req service.AssignmentInput
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.courseService.UpdateAssignment(c.Request.Context(), c.Param("subjectId"), c.Param("itemId"), req)
	if respondApplied(c, http.StatusOK, assignment, err) {
		h.notify()
	}
}

// DeleteItem removes a task or assignment, depending on the route it is
// mounted on.
func (h *CourseHandler) DeleteItem(kind domain.ItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.courseService.DeleteItem(c.Request.Context(), c.Param("subjectId"), kind, c.Param("itemId"))
		if respondApplied(c, http.StatusNoContent, nil, err) {
			h.notify()
		}
	}
}

// === Lessons ===

func (h *CourseHandler) ListLessons(c *gin.Context) {
	lessons, err := h.courseService.ListLessons(c.Param("subjectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lessons)
}

func (h *CourseHandler) CreateLesson(c *gin.Context) {
	var req service.LessonInput
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.courseService.AddLesson(c.Request.Context(), c.Param("subjectId"), req)
	if respondApplied(c, http.StatusCreated, lesson, err) {
		h.notify()
	}
}

func (h *CourseHandler) UpdateLesson(c *gin.Context) {
	var req service.LessonInput
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.courseService.UpdateLesson(c.Request.Context(), c.Param("subjectId"), c.Param("lessonId"), req)
	if respondApplied(c, http.StatusOK, lesson, err) {
		h.notify()
	}
}

func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	err := h.courseService.DeleteLesson(c.Request.Context(), c.Param("subjectId"), c.Param("lessonId"))
	if respondApplied(c, http.StatusNoContent, nil, err) {
		h.notify()
	}
}

// === Quizzes ===

func (h *CourseHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.courseService.ListQuizzes(c.Param("subjectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *CourseHandler) CreateQuiz(c *gin.Context) {
	var req service.QuizInput
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := h.courseService.AddQuiz(c.Request.Context(), c.Param("subjectId"), req)
	if respondApplied(c, http.StatusCreated, quiz, err) {
		h.notify()
	}
}

func (h *CourseHandler) UpdateQuiz(c *gin.Context) {
	var req service.QuizInput
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := h.courseService.UpdateQuiz(c.Request.Context(), c.Param("subjectId"), c.Param("quizId"), req)
	if respondApplied(c, http.StatusOK, quiz, err) {
		h.notify()
	}
}

func (h *CourseHandler) DeleteQuiz(c *gin.Context) {
	err := h.courseService.DeleteQuiz(c.Request.Context(), c.Param("subjectId"), c.Param("quizId"))
	if respondApplied(c, http.StatusNoContent, nil, err) {
		h.notify()
	}
}
