package domain

import (
	"fmt"
	"math"
	"time"
)

// ItemKind selects one of the two submission-bearing item variants.
type ItemKind string

const (
	KindTask       ItemKind = "task"
	KindAssignment ItemKind = "assignment"
)

// ParseItemKind accepts the singular or plural form ("task", "tasks").
func ParseItemKind(s string) (ItemKind, error) {
	switch s {
	case "task", "tasks":
		return KindTask, nil
	case "assignment", "assignments":
		return KindAssignment, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidItemKind)
}

// Plural is the collection name used in URLs and blob paths.
func (k ItemKind) Plural() string {
	return string(k) + "s"
}

// GradableItem is implemented by *Task and *Assignment.
type GradableItem interface {
	Kind() ItemKind
	Core() *Gradable
	// CheckScore reports ErrInvalidScore when value is outside the item's range.
	CheckScore(value float64) error
}

// Gradable holds the fields shared by tasks and assignments.
type Gradable struct {
	ID          string       `bson:"id" json:"id"`
	Title       string       `bson:"title" json:"title"`
	DueDate     string       `bson:"dueDate" json:"dueDate"`
	Status      string       `bson:"status" json:"status"`
	File        string       `bson:"file,omitempty" json:"file,omitempty"`       // Instructor reference file name
	FileURL     string       `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"` // Set together with File
	CreatedBy   string       `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt   string       `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt   string       `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	Submissions []Submission `bson:"submissions" json:"submissions"`
}

// Task is a gradable item with a priority and no upper score bound.
type Task struct {
	Gradable    `bson:",inline"`
	Description string `bson:"description" json:"description"`
	Priority    string `bson:"priority" json:"priority"`
}

// Assignment is a gradable item scored within [0, Points].
type Assignment struct {
	Gradable     `bson:",inline"`
	Instructions string `bson:"instructions" json:"instructions"`
	Points       int    `bson:"points" json:"points"`
}

// Submission is one student's current artifact for a gradable item.
type Submission struct {
	StudentID   string   `bson:"studentId" json:"studentId"`
	StudentName string   `bson:"studentName" json:"studentName"` // Copy taken at submission time
	FileName    string   `bson:"fileName" json:"fileName"`
	FileURL     string   `bson:"fileUrl" json:"fileUrl"`
	Note        string   `bson:"note,omitempty" json:"note,omitempty"`
	SubmittedAt string   `bson:"submittedAt" json:"submittedAt"`             // RFC 3339, client clock
	Score       *float64 `bson:"score,omitempty" json:"score,omitempty"` // nil until an instructor scores it
}

// IsScored reports whether an instructor has recorded a score.
func (s *Submission) IsScored() bool {
	return s.Score != nil
}

func (t *Task) Kind() ItemKind  { return KindTask }
func (t *Task) Core() *Gradable { return &t.Gradable }

func (t *Task) CheckScore(value float64) error {
	if !isFinite(value) || value < 0 {
		return fmt.Errorf("%v is not a non-negative number: %w", value, ErrInvalidScore)
	}
	return nil
}

func (a *Assignment) Kind() ItemKind  { return KindAssignment }
func (a *Assignment) Core() *Gradable { return &a.Gradable }

func (a *Assignment) CheckScore(value float64) error {
	if !isFinite(value) || value < 0 || value > float64(a.Points) {
		return fmt.Errorf("%v outside [0, %d]: %w", value, a.Points, ErrInvalidScore)
	}
	return nil
}

// Submission returns the entry for studentID.
func (g *Gradable) Submission(studentID string) (*Submission, error) {
	for i := range g.Submissions {
		if g.Submissions[i].StudentID == studentID {
			return &g.Submissions[i], nil
		}
	}
	return nil, fmt.Errorf("student %s on %s: %w", studentID, g.ID, ErrNoSubmission)
}

// PutSubmission drops any earlier entry from the same student and appends sub,
// keeping at most one submission per student.
func (g *Gradable) PutSubmission(sub Submission) {
	kept := make([]Submission, 0, len(g.Submissions)+1)
	for _, s := range g.Submissions {
		if s.StudentID != sub.StudentID {
			kept = append(kept, s)
		}
	}
	g.Submissions = append(kept, sub)
}

// HasFile reports whether an instructor reference file is attached.
func (g *Gradable) HasFile() bool {
	return g.FileURL != ""
}

// SetFile attaches a reference file; both fields are set or cleared together.
func (g *Gradable) SetFile(name, url string) {
	if url == "" {
		g.File, g.FileURL = "", ""
		return
	}
	g.File, g.FileURL = name, url
}

// Timestamp formats t the way submission and item timestamps are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func cloneSubmissions(subs []Submission) []Submission {
	if subs == nil {
		return nil
	}
	out := make([]Submission, len(subs))
	for i, s := range subs {
		if s.Score != nil {
			v := *s.Score
			s.Score = &v
		}
		out[i] = s
	}
	return out
}
