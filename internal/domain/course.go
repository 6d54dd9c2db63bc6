package domain

import (
	"fmt"
	"time"
)

// CourseDocument is the single unit of remote persistence for a course.
// All subjects, with their nested items and submissions, live in it.
type CourseDocument struct {
	CourseID    string    `bson:"_id" json:"courseId"`
	Subjects    []Subject `bson:"subjects" json:"subjects"`
	LastUpdated time.Time `bson:"lastUpdated,omitempty" json:"lastUpdated,omitempty"` // Server-assigned, advisory only
}

// Subject is a course unit. Order within CourseDocument.Subjects is display order.
type Subject struct {
	ID          string       `bson:"id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	Teacher     string       `bson:"teacher" json:"teacher"`
	Time        string       `bson:"time" json:"time"`
	Description string       `bson:"description" json:"description"`
	Tasks       []Task       `bson:"tasks" json:"tasks"`
	Assignments []Assignment `bson:"assignments" json:"assignments"`
	Lessons     []Lesson     `bson:"lessons" json:"lessons"`
	Quizzes     []Quiz       `bson:"quizzes" json:"quizzes"`
}

// Lesson is plain content without submissions.
type Lesson struct {
	ID       string `bson:"id" json:"id"`
	Title    string `bson:"title" json:"title"`
	Duration string `bson:"duration" json:"duration"`
	Status   string `bson:"status" json:"status"`
	Content  string `bson:"content" json:"content"`
	File     string `bson:"file,omitempty" json:"file,omitempty"`
	FileURL  string `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
}

// Quiz is plain content without submissions.
type Quiz struct {
	ID           string `bson:"id" json:"id"`
	Title        string `bson:"title" json:"title"`
	DueDate      string `bson:"dueDate" json:"dueDate"`
	Points       int    `bson:"points" json:"points"`
	Status       string `bson:"status" json:"status"`
	Instructions string `bson:"instructions" json:"instructions"`
}

// Subject returns the subject with the given id.
func (d *CourseDocument) Subject(id string) (*Subject, error) {
	i := indexOf(d.Subjects, id, func(s *Subject) string { return s.ID })
	if i < 0 {
		return nil, fmt.Errorf("subject %s: %w", id, ErrNotFound)
	}
	return &d.Subjects[i], nil
}

// RemoveSubject deletes a subject together with everything nested in it.
func (d *CourseDocument) RemoveSubject(id string) error {
	subjects, ok := removeByID(d.Subjects, id, func(s *Subject) string { return s.ID })
	if !ok {
		return fmt.Errorf("subject %s: %w", id, ErrNotFound)
	}
	d.Subjects = subjects
	return nil
}

// Clone returns a deep copy that shares no slices or pointers with d.
func (d *CourseDocument) Clone() *CourseDocument {
	if d == nil {
		return nil
	}
	return &CourseDocument{
		CourseID:    d.CourseID,
		Subjects:    CloneSubjects(d.Subjects),
		LastUpdated: d.LastUpdated,
	}
}

// CloneSubjects deep-copies a subject list.
func CloneSubjects(subjects []Subject) []Subject {
	if subjects == nil {
		return nil
	}
	out := make([]Subject, len(subjects))
	for i := range subjects {
		out[i] = subjects[i].Clone()
	}
	return out
}

// Clone deep-copies the subject and its nested items.
func (s Subject) Clone() Subject {
	c := s
	if s.Tasks != nil {
		c.Tasks = make([]Task, len(s.Tasks))
		for i, t := range s.Tasks {
			t.Submissions = cloneSubmissions(t.Submissions)
			c.Tasks[i] = t
		}
	}
	if s.Assignments != nil {
		c.Assignments = make([]Assignment, len(s.Assignments))
		for i, a := range s.Assignments {
			a.Submissions = cloneSubmissions(a.Submissions)
			c.Assignments[i] = a
		}
	}
	if s.Lessons != nil {
		c.Lessons = make([]Lesson, len(s.Lessons))
		copy(c.Lessons, s.Lessons)
	}
	if s.Quizzes != nil {
		c.Quizzes = make([]Quiz, len(s.Quizzes))
		copy(c.Quizzes, s.Quizzes)
	}
	return c
}

// Normalize replaces nil item slices with empty ones so the document
// serializes with [] rather than null, the way freshly created subjects do.
func (s *Subject) Normalize() {
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.Assignments == nil {
		s.Assignments = []Assignment{}
	}
	if s.Lessons == nil {
		s.Lessons = []Lesson{}
	}
	if s.Quizzes == nil {
		s.Quizzes = []Quiz{}
	}
	for i := range s.Tasks {
		if s.Tasks[i].Submissions == nil {
			s.Tasks[i].Submissions = []Submission{}
		}
	}
	for i := range s.Assignments {
		if s.Assignments[i].Submissions == nil {
			s.Assignments[i].Submissions = []Submission{}
		}
	}
}

// Item returns the gradable item of the given kind, dispatching on the variant.
func (s *Subject) Item(kind ItemKind, id string) (GradableItem, error) {
	switch kind {
	case KindTask:
		return s.Task(id)
	case KindAssignment:
		return s.Assignment(id)
	default:
		return nil, fmt.Errorf("%q: %w", kind, ErrInvalidItemKind)
	}
}

// RemoveItem deletes a gradable item and its submissions.
func (s *Subject) RemoveItem(kind ItemKind, id string) error {
	switch kind {
	case KindTask:
		return s.RemoveTask(id)
	case KindAssignment:
		return s.RemoveAssignment(id)
	default:
		return fmt.Errorf("%q: %w", kind, ErrInvalidItemKind)
	}
}

func (s *Subject) Task(id string) (*Task, error) {
	i := indexOf(s.Tasks, id, func(t *Task) string { return t.ID })
	if i < 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return &s.Tasks[i], nil
}

func (s *Subject) Assignment(id string) (*Assignment, error) {
	i := indexOf(s.Assignments, id, func(a *Assignment) string { return a.ID })
	if i < 0 {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	return &s.Assignments[i], nil
}

func (s *Subject) Lesson(id string) (*Lesson, error) {
	i := indexOf(s.Lessons, id, func(l *Lesson) string { return l.ID })
	if i < 0 {
		return nil, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	return &s.Lessons[i], nil
}

func (s *Subject) Quiz(id string) (*Quiz, error) {
	i := indexOf(s.Quizzes, id, func(q *Quiz) string { return q.ID })
	if i < 0 {
		return nil, fmt.Errorf("quiz %s: %w", id, ErrNotFound)
	}
	return &s.Quizzes[i], nil
}

func (s *Subject) RemoveTask(id string) error {
	tasks, ok := removeByID(s.Tasks, id, func(t *Task) string { return t.ID })
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	s.Tasks = tasks
	return nil
}

func (s *Subject) RemoveAssignment(id string) error {
	assignments, ok := removeByID(s.Assignments, id, func(a *Assignment) string { return a.ID })
	if !ok {
		return fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	s.Assignments = assignments
	return nil
}

func (s *Subject) RemoveLesson(id string) error {
	lessons, ok := removeByID(s.Lessons, id, func(l *Lesson) string { return l.ID })
	if !ok {
		return fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	s.Lessons = lessons
	return nil
}

func (s *Subject) RemoveQuiz(id string) error {
	quizzes, ok := removeByID(s.Quizzes, id, func(q *Quiz) string { return q.ID })
	if !ok {
		return fmt.Errorf("quiz %s: %w", id, ErrNotFound)
	}
	s.Quizzes = quizzes
	return nil
}

func indexOf[T any](items []T, id string, key func(*T) string) int {
	for i := range items {
		if key(&items[i]) == id {
			return i
		}
	}
	return -1
}

// removeByID returns a new slice without the matching element; the input
// slice is left untouched.
func removeByID[T any](items []T, id string, key func(*T) string) ([]T, bool) {
	i := indexOf(items, id, key)
	if i < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), true
}
