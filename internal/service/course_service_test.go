package service

import (
	"alcyxob/classroom/internal/domain"
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCourseServiceFor(f *fixture) *courseService {
	return &courseService{engine: f.engine, validate: validator.New(), now: clock(t0)}
}

func TestSubjectLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := newCourseServiceFor(f)
	ctx := context.Background()

	added, err := svc.AddSubject(ctx, SubjectInput{Name: "Biology", Teacher: "Dr. Lee"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.NotNil(t, added.Tasks)

	subjects, err := svc.ListSubjects()
	require.NoError(t, err)
	require.Len(t, subjects, 4)
	assert.Equal(t, "Biology", subjects[3].Name)

	updated, err := svc.UpdateSubject(ctx, "1", SubjectInput{Name: "Maths", Teacher: "Mr. Anderson"})
	require.NoError(t, err)
	assert.Equal(t, "Maths", updated.Name)
	assert.Len(t, updated.Tasks, 1, "nested items survive an edit")

	require.NoError(t, svc.DeleteSubject(ctx, "1"))
	_, err = svc.GetSubject("1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetTask("1", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteSubject(ctx, "1"), domain.ErrNotFound)

	remote, err := f.store.Get(ctx, "C1")
	require.NoError(t, err)
	assert.Len(t, remote.Subjects, 3)
}

func TestAddSubjectValidation(t *testing.T) {
	f := newFixture(t)
	svc := newCourseServiceFor(f)

	_, err := svc.AddSubject(context.Background(), SubjectInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	subjects, _ := svc.ListSubjects()
	assert.Len(t, subjects, 3)
}

func TestTaskDefaultsAndUpdate(t *testing.T) {
	f := newFixture(t)
	svc := newCourseServiceFor(f)
	ctx := context.Background()

	task, err := svc.AddTask(ctx, "2", TaskInput{Title: "Lab report", DueDate: "2024-04-01"}, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTaskPriority, task.Priority)
	assert.Equal(t, DefaultItemStatus, task.Status)
	assert.Equal(t, "teacher-1", task.CreatedBy)
	assert.Equal(t, domain.Timestamp(t0), task.CreatedAt)

	// A student submission must survive an instructor edit.
	subs := newSubmissionServiceAt(f.engine, clock(t0))
	_, err = subs.Submit(ctx, "2", domain.KindTask, task.ID, "u1", "Ann", BlobRef{"r.pdf", "https://blob/r.pdf"}, "")
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, "2", task.ID, TaskInput{Title: "Lab report v2", Priority: "high", Status: "done"})
	require.NoError(t, err)
	assert.Equal(t, "high", updated.Priority)
	assert.Equal(t, "done", updated.Status)
	assert.NotEmpty(t, updated.UpdatedAt)

	got, err := svc.GetTask("2", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lab report v2", got.Title)
	assert.Len(t, got.Submissions, 1)

	tasks, err := svc.ListTasks("2")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	_, err = svc.AddTask(ctx, "2", TaskInput{Title: "x", Priority: "urgent"}, "teacher-1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.UpdateTask(ctx, "2", "missing", TaskInput{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssignmentLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := newCourseServiceFor(f)
	ctx := context.Background()

	a, err := svc.AddAssignment(ctx, "3", AssignmentInput{Title: "Sorting essay", Points: 20}, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultItemStatus, a.Status)

	_, err = svc.UpdateAssignment(ctx, "3", a.ID, AssignmentInput{Title: "Sorting essay", Points: 30})
	require.NoError(t, err)

	got, err := svc.GetAssignment("3", a.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Points)
	assert.Equal(t, DefaultItemStatus, got.Status)

	require.NoError(t, svc.DeleteItem(ctx, "3", domain.KindAssignment, a.ID))
	list, err := svc.ListAssignments("3")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, svc.DeleteItem(ctx, "3", domain.KindAssignment, a.ID), domain.ErrNotFound)

	_, err = svc.AddAssignment(ctx, "3", AssignmentInput{Title: "neg", Points: -1}, "teacher-1")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLessonsAndQuizzes(t *testing.T) {
	f := newFixture(t)
	svc := newCourseServiceFor(f)
	ctx := context.Background()

	lesson, err := svc.AddLesson(ctx, "1", LessonInput{Title: "Limits", Duration: "45 min", Status: "upcoming"})
	require.NoError(t, err)
	_, err = svc.UpdateLesson(ctx, "1", lesson.ID, LessonInput{Title: "Limits", Status: "completed"})
	require.NoError(t, err)
	lessons, err := svc.ListLessons("1")
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "completed", lessons[0].Status)
	require.NoError(t, svc.DeleteLesson(ctx, "1", lesson.ID))
	assert.ErrorIs(t, svc.DeleteLesson(ctx, "1", lesson.ID), domain.ErrNotFound)

	quiz, err := svc.AddQuiz(ctx, "1", QuizInput{Title: "Chapter 1 Quiz", Points: 50})
	require.NoError(t, err)
	assert.NotEmpty(t, quiz.ID)
	assert.Equal(t, DefaultQuizStatus, quiz.Status)
	_, err = svc.UpdateQuiz(ctx, "1", quiz.ID, QuizInput{Title: "Chapter 1 Quiz", Points: 60})
	require.NoError(t, err)
	quizzes, err := svc.ListQuizzes("1")
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, 60, quizzes[0].Points)
	assert.Equal(t, DefaultQuizStatus, quizzes[0].Status)
	require.NoError(t, svc.DeleteQuiz(ctx, "1", quiz.ID))
}
