package api

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every endpoint. uploadService may be nil when no blob
// store is configured; file endpoints then answer 503.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	sessionService service.SessionService,
	courseService service.CourseService,
	submissionService service.SubmissionService,
	uploadService service.UploadService,
	hub *LiveHub,
) {
	sessionHandler := NewSessionHandler(sessionService)
	courseHandler := NewCourseHandler(courseService, hub)
	fileHandler := NewFileHandler(uploadService, courseService, hub)

	authMiddleware := AuthMiddleware(jwtSecret)
	instructorOnly := RoleMiddleware(domain.RoleInstructor)
	studentOnly := RoleMiddleware(domain.RoleStudent)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	apiV1.POST("/session", sessionHandler.StartSession)

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/session", sessionHandler.GetSession)
		protected.DELETE("/session", sessionHandler.EndSession)

		protected.GET("/live", hub.Serve(func() []domain.Subject {
			subjects, err := courseService.ListSubjects()
			if err != nil {
				return nil
			}
			return subjects
		}))

		subjectGroup := protected.Group("/subjects")
		{
			subjectGroup.GET("", courseHandler.ListSubjects)
			subjectGroup.POST("", instructorOnly, courseHandler.CreateSubject)
			subjectGroup.GET("/:subjectId", courseHandler.GetSubject)
			subjectGroup.PUT("/:subjectId", instructorOnly, courseHandler.UpdateSubject)
			subjectGroup.DELETE("/:subjectId", instructorOnly, courseHandler.DeleteSubject)

			subjectGroup.GET("/:subjectId/lessons", courseHandler.ListLessons)
			subjectGroup.POST("/:subjectId/lessons", instructorOnly, courseHandler.CreateLesson)
			subjectGroup.PUT("/:subjectId/lessons/:lessonId", instructorOnly, courseHandler.UpdateLesson)
			subjectGroup.DELETE("/:subjectId/lessons/:lessonId", instructorOnly, courseHandler.DeleteLesson)
			subjectGroup.POST("/:subjectId/lessons/:lessonId/file", instructorOnly, fileHandler.AttachLessonFile)

			subjectGroup.GET("/:subjectId/quizzes", courseHandler.ListQuizzes)
			subjectGroup.POST("/:subjectId/quizzes", instructorOnly, courseHandler.CreateQuiz)
			subjectGroup.PUT("/:subjectId/quizzes/:quizId", instructorOnly, courseHandler.UpdateQuiz)
			subjectGroup.DELETE("/:subjectId/quizzes/:quizId", instructorOnly, courseHandler.DeleteQuiz)
		}

		// Tasks and assignments share one route shape.
		itemRoutes := []struct {
			kind           domain.ItemKind
			list, get      gin.HandlerFunc
			create, update gin.HandlerFunc
		}{
			{domain.KindTask, courseHandler.ListTasks, courseHandler.GetTask, courseHandler.CreateTask, courseHandler.UpdateTask},
			{domain.KindAssignment, courseHandler.ListAssignments, courseHandler.GetAssignment, courseHandler.CreateAssignment, courseHandler.UpdateAssignment},
		}
		for _, r := range itemRoutes {
			submissionHandler := NewSubmissionHandler(r.kind, submissionService, uploadService, courseService, hub)

			items := subjectGroup.Group("/:subjectId/" + r.kind.Plural())
			items.GET("", r.list)
			items.POST("", instructorOnly, r.create)
			items.GET("/:itemId", r.get)
			items.PUT("/:itemId", instructorOnly, r.update)
			items.DELETE("/:itemId", instructorOnly, courseHandler.DeleteItem(r.kind))
			items.POST("/:itemId/file", instructorOnly, fileHandler.AttachItemFile(r.kind))

			items.POST("/:itemId/submissions", studentOnly, submissionHandler.Submit)
			items.GET("/:itemId/submissions", instructorOnly, submissionHandler.ListSubmissions)
			items.GET("/:itemId/my-submission", studentOnly, submissionHandler.MySubmission)
			items.PUT("/:itemId/submissions/:studentId/score", instructorOnly, submissionHandler.Score)
			items.GET("/:itemId/submissions/:studentId/download", submissionHandler.Download)
		}
	}
}
