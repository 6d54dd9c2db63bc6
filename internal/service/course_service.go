package service

import (
	"alcyxob/classroom/internal/domain"
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTaskPriority = "medium"
	DefaultItemStatus   = "pending"
	DefaultQuizStatus   = "available"
)

// --- Inputs ---

type SubjectInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Teacher     string `json:"teacher" validate:"max=200"`
	Time        string `json:"time" validate:"max=100"`
	Description string `json:"description"`
}

type TaskInput struct {
	Title       string `json:"title" validate:"required,max=300"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string `json:"status"`
}

type AssignmentInput struct {
	Title        string `json:"title" validate:"required,max=300"`
	Instructions string `json:"instructions"`
	DueDate      string `json:"dueDate"`
	Points       int    `json:"points" validate:"gte=0"`
	Status       string `json:"status"`
}

type LessonInput struct {
	Title    string `json:"title" validate:"required,max=300"`
	Duration string `json:"duration"`
	Status   string `json:"status"`
	Content  string `json:"content"`
}

type QuizInput struct {
	Title        string `json:"title" validate:"required,max=300"`
	DueDate      string `json:"dueDate"`
	Points       int    `json:"points" validate:"gte=0"`
	Status       string `json:"status"`
	Instructions string `json:"instructions"`
}

// --- Service Interface ---

// CourseService edits the course document on behalf of an instructor. Every
// mutation goes through the sync engine's Commit; reads use the in-memory copy.
type CourseService interface {
	ListSubjects() ([]domain.Subject, error)
	GetSubject(subjectID string) (*domain.Subject, error)
	AddSubject(ctx context.Context, in SubjectInput) (*domain.Subject, error)
	UpdateSubject(ctx context.Context, subjectID string, in SubjectInput) (*domain.Subject, error)
	DeleteSubject(ctx context.Context, subjectID string) error

	ListTasks(subjectID string) ([]domain.Task, error)
	GetTask(subjectID, taskID string) (*domain.Task, error)
	AddTask(ctx context.Context, subjectID string, in TaskInput, createdBy string) (*domain.Task, error)
	UpdateTask(ctx context.Context, subjectID, taskID string, in TaskInput) (*domain.Task, error)

	ListAssignments(subjectID string) ([]domain.Assignment, error)
	GetAssignment(subjectID, assignmentID string) (*domain.Assignment, error)
	AddAssignment(ctx context.Context, subjectID string, in AssignmentInput, createdBy string) (*domain.Assignment, error)
	UpdateAssignment(ctx context.Context, subjectID, assignmentID string, in AssignmentInput) (*domain.Assignment, error)

	// DeleteItem removes a task or assignment along with its submissions.
	DeleteItem(ctx context.Context, subjectID string, kind domain.ItemKind, itemID string) error

	ListLessons(subjectID string) ([]domain.Lesson, error)
	AddLesson(ctx context.Context, subjectID string, in LessonInput) (*domain.Lesson, error)
	UpdateLesson(ctx context.Context, subjectID, lessonID string, in LessonInput) (*domain.Lesson, error)
	DeleteLesson(ctx context.Context, subjectID, lessonID string) error

	ListQuizzes(subjectID string) ([]domain.Quiz, error)
	AddQuiz(ctx context.Context, subjectID string, in QuizInput) (*domain.Quiz, error)
	UpdateQuiz(ctx context.Context, subjectID, quizID string, in QuizInput) (*domain.Quiz, error)
	DeleteQuiz(ctx context.Context, subjectID, quizID string) error
}

// --- Service Implementation ---

// courseService implements the CourseService interface.
type courseService struct {
	engine   Engine
	validate *validator.Validate
	now      func() time.Time
}

// NewCourseService creates a new instance of courseService.
func NewCourseService(engine Engine, validate *validator.Validate) CourseService {
	return &courseService{
		engine:   engine,
		validate: validate,
		now:      time.Now,
	}
}

func (s *courseService) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// withSubject runs fn on a subject inside a commit.
func (s *courseService) withSubject(ctx context.Context, subjectID string, fn func(subject *domain.Subject) error) error {
	return s.engine.Commit(ctx, func(doc *domain.CourseDocument) error {
		subject, err := doc.Subject(subjectID)
		if err != nil {
			return err
		}
		return fn(subject)
	})
}

// readSubject runs fn on a subject of the in-memory document.
func (s *courseService) readSubject(subjectID string, fn func(subject *domain.Subject) error) error {
	return s.engine.Read(func(doc *domain.CourseDocument) error {
		subject, err := doc.Subject(subjectID)
		if err != nil {
			return err
		}
		return fn(subject)
	})
}

// === Subjects ===

func (s *courseService) ListSubjects() ([]domain.Subject, error) {
	var subjects []domain.Subject
	err := s.engine.Read(func(doc *domain.CourseDocument) error {
		subjects = domain.CloneSubjects(doc.Subjects)
		return nil
	})
	return subjects, err
}

func (s *courseService) GetSubject(subjectID string) (*domain.Subject, error) {
	var out domain.Subject
	err := s.readSubject(subjectID, func(subject *domain.Subject) error {
		out = subject.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddSubject appends a new subject; order of the list is display order.
func (s *courseService) AddSubject(ctx context.Context, in SubjectInput) (*domain.Subject, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	subject := domain.Subject{
		ID:          domain.NewID(),
		Name:        in.Name,
		Teacher:     in.Teacher,
		Time:        in.Time,
		Description: in.Description,
	}
	subject.Normalize()

	err := s.engine.Commit(ctx, func(doc *domain.CourseDocument) error {
		doc.Subjects = append(doc.Subjects, subject.Clone())
		return nil
	})
	return appliedResult(&subject, err)
}

// UpdateSubject edits display fields in place; nested items are kept.
func (s *courseService) UpdateSubject(ctx context.Context, subjectID string, in SubjectInput) (*domain.Subject, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out domain.Subject
	err := s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		subject.Name = in.Name
		subject.Teacher = in.Teacher
		subject.Time = in.Time
		subject.Description = in.Description
		out = subject.Clone()
		return nil
	})
	return appliedResult(&out, err)
}

func (s *courseService) DeleteSubject(ctx context.Context, subjectID string) error {
	return s.engine.Commit(ctx, func(doc *domain.CourseDocument) error {
		return doc.RemoveSubject(subjectID)
	})
}

// === Tasks ===

func (s *courseService) ListTasks(subjectID string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.readSubject(subjectID, func(subject *domain.Subject) error {
		tasks = subject.Clone().Tasks
		return nil
	})
	return tasks, err
}

func (s *courseService) GetTask(subjectID, taskID string) (*domain.Task, error) {
	var out domain.Task
	err := s.readSubject(subjectID, func(subject *domain.Subject) error {
		c := subject.Clone()
		task, err := c.Task(taskID)
		if err != nil {
			return err
		}
		out = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *courseService) AddTask(ctx context.Context, subjectID string, in TaskInput, createdBy string) (*domain.Task, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	task := domain.Task{
		Gradable: domain.Gradable{
			ID:          domain.NewID(),
			Title:       in.Title,
			DueDate:     in.DueDate,
			Status:      DefaultItemStatus,
			CreatedBy:   createdBy,
			CreatedAt:   domain.Timestamp(s.now()),
			Submissions: []domain.Submission{},
		},
		Description: in.Description,
		Priority:    orDefault(in.Priority, DefaultTaskPriority),
	}
	err := s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		subject.Tasks = append(subject.Tasks, task)
		return nil
	})
	return appliedResult(&task, err)
}

// UpdateTask keeps submissions and the attached file.
func (s *courseService) UpdateTask(ctx context.Context, subjectID, taskID string, in TaskInput) (*domain.Task, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out domain.Task
	err := s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		task, err := subject.Task(taskID)
		if err != nil {
			return err
		}
		task.Title = in.Title
		task.Description = in.Description
		task.DueDate = in.DueDate
		task.Priority = orDefault(in.Priority, DefaultTaskPriority)
		task.Status = orDefault(in.Status, task.Status)
		task.UpdatedAt = domain.Timestamp(s.now())
		out = *task
		return nil
	})
	return appliedResult(&out, err)
}

// === Assignments ===

func (s *courseService) ListAssignments(subjectID string) ([]domain.Assignment, error) {
	var assignments []domain.Assignment
	err := s.readSubject(subjectID, func(subject *domain.Subject) error {
		assignments = subject.Clone().Assignments
		return nil
	})
	return assignments, err
}

func (s *courseService) GetAssignment(subjectID, assignmentID string) (*domain.Assignment, error) {
	var out domain.Assignment
	err := s.readSubject(subjectID, func(subject *domain.Subject) error {
		c := subject.Clone()
		assignment, err := c.Assignment(assignmentID)
		if err != nil {
			return err
		}
		out = *assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *courseService) AddAssignment(ctx context.Context, subjectID string, in AssignmentInput, createdBy string) (*domain.Assignment, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	assignment := domain.Assignment{
		Gradable: domain.Gradable{
			ID:          domain.NewID(),
			Title:       in.Title,
			DueDate:     in.DueDate,
			Status:      orDefault(in.Status, DefaultItemStatus),
			CreatedBy:   createdBy,
			CreatedAt:   domain.Timestamp(s.now()),
			Submissions: []domain.Submission{},
		},
		Instructions: in.Instructions,
		Points:       in.Points,
	}
	err := s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		subject.Assignments = append(subject.Assignments, assignment)
		return nil
	})
	return appliedResult(&assignment, err)
}

// UpdateAssignment keeps submissions and the attached file. Scores already
// given above a lowered point total are left as they are.
func (s *courseService) UpdateAssignment(ctx context.Context, subjectID, assignmentID string, in AssignmentInput) (*domain.Assignment, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out domain.Assignment
	err := s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		assignment, err := subject.Assignment(assignmentID)
		if err != nil {
			return err
		}
		assignment.Title = in.Title
		assignment.Instructions = in.Instructions
		assignment.DueDate = in.DueDate
		assignment.Points = in.Points
		assignment.Status = orDefault(in.Status, assignment.Status)
		assignment.UpdatedAt = domain.Timestamp(s.now())
		out = *assignment
		return nil
	})
	return appliedResult(&out, err)
}

func (s *courseService) DeleteItem(ctx context.Context, subjectID string, kind domain.ItemKind, itemID string) error {
	return s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		return subject.RemoveItem(kind, itemID)
	})
}

// === Lessons ===

func (s *courseService) ListLessons(subjectID string) ([]domain.Lesson, error) {
	var lessons []domain.Lesson
	err := s.readSubject(subjectID, func(subject *domain.Subject) error {
		lessons = subject.Clone().Lessons
		return nil
	})
	return lessons, err
}

func (s *courseService) AddLesson(ctx context.Context, subjectID string, in LessonInput) (*domain.Lesson, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	lesson := domain.Lesson{
		ID:       domain.NewID(),
		Title:    in.Title,
		Duration: in.Duration,
		Status:   in.Status,
		Content:  in.Content,
	}
	err := s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		subject.Lessons = append(subject.Lessons, lesson)
		return nil
	})
	return appliedResult(&lesson, err)
}

func (s *courseService) UpdateLesson(ctx context.Context, subjectID, lessonID string, in LessonInput) (*domain.Lesson, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out domain.Lesson
	err := s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		lesson, err := subject.Lesson(lessonID)
		if err != nil {
			return err
		}
		lesson.Title = in.Title
		lesson.Duration = in.Duration
		lesson.Status = in.Status
		lesson.Content = in.Content
		out = *lesson
		return nil
	})
	return appliedResult(&out, err)
}

func (s *courseService) DeleteLesson(ctx context.Context, subjectID, lessonID string) error {
	return s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		return subject.RemoveLesson(lessonID)
	})
}

// === Quizzes ===

func (s *courseService) ListQuizzes(subjectID string) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	err := s.readSubject(subjectID, func(subject *domain.Subject) error {
		quizzes = subject.Clone().Quizzes
		return nil
	})
	return quizzes, err
}

func (s *courseService) AddQuiz(ctx context.Context, subjectID string, in QuizInput) (*domain.Quiz, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	quiz := domain.Quiz{
		ID:           domain.NewID(),
		Title:        in.Title,
		DueDate:      in.DueDate,
		Points:       in.Points,
		Status:       orDefault(in.Status, DefaultQuizStatus),
		Instructions: in.Instructions,
	}
	err := s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		subject.Quizzes = append(subject.Quizzes, quiz)
		return nil
	})
	return appliedResult(&quiz, err)
}

func (s *courseService) UpdateQuiz(ctx context.Context, subjectID, quizID string, in QuizInput) (*domain.Quiz, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out domain.Quiz
	err := s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		quiz, err := subject.Quiz(quizID)
		if err != nil {
			return err
		}
		quiz.Title = in.Title
		quiz.DueDate = in.DueDate
		quiz.Points = in.Points
		quiz.Status = orDefault(in.Status, quiz.Status)
		quiz.Instructions = in.Instructions
		out = *quiz
		return nil
	})
	return appliedResult(&out, err)
}

func (s *courseService) DeleteQuiz(ctx context.Context, subjectID, quizID string) error {
	return s.withSubject(ctx, subjectID, func(subject *domain.Subject) error {
		return subject.RemoveQuiz(quizID)
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
