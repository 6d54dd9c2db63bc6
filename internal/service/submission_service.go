package service

import (
	"alcyxob/classroom/internal/coursesync"
	"alcyxob/classroom/internal/domain"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// --- Error Definitions ---
var (
	ErrInvalidInput = errors.New("invalid input")
)

// Engine is the part of the sync engine the services depend on.
type Engine interface {
	Commit(ctx context.Context, mutate coursesync.Mutator) error
	Read(fn func(doc *domain.CourseDocument) error) error
}

// BlobRef points at an artifact already stored by the blob store.
type BlobRef struct {
	FileName string `validate:"required"`
	FileURL  string `validate:"required"`
}

type SubmissionService interface {
	// Submit records studentID's artifact on a task or assignment, replacing
	// any earlier submission from the same student. The score is cleared.
	Submit(ctx context.Context, subjectID string, kind domain.ItemKind, itemID, studentID, studentName string, blob BlobRef, note string) (*domain.Submission, error)
	// Score sets the score of an existing submission.
	Score(ctx context.Context, subjectID string, kind domain.ItemKind, itemID, studentID string, value float64) (*domain.Submission, error)
	GetSubmission(subjectID string, kind domain.ItemKind, itemID, studentID string) (*domain.Submission, error)
	ListSubmissions(subjectID string, kind domain.ItemKind, itemID string) ([]domain.Submission, error)
}

// submissionService implements the SubmissionService interface.
type submissionService struct {
	engine   Engine
	validate *validator.Validate
	now      func() time.Time
}

// NewSubmissionService creates a new instance of submissionService.
func NewSubmissionService(engine Engine, validate *validator.Validate) SubmissionService {
	return &submissionService{
		engine:   engine,
		validate: validate,
		now:      time.Now,
	}
}

// Submit implements the replace-not-append submission rule. The returned
// submission is non-nil whenever the mutation was applied, including the
// degraded case where err wraps coursesync.ErrRemoteWriteFailed.
func (s *submissionService) Submit(ctx context.Context, subjectID string, kind domain.ItemKind, itemID, studentID, studentName string, blob BlobRef, note string) (*domain.Submission, error) {
	if studentID == "" {
		return nil, fmt.Errorf("student id is required: %w", ErrInvalidInput)
	}
	if err := s.validate.Struct(blob); err != nil {
		return nil, fmt.Errorf("blob reference: %w: %v", ErrInvalidInput, err)
	}

	var submitted domain.Submission
	err := s.engine.Commit(ctx, func(doc *domain.CourseDocument) error {
		item, err := locateItem(doc, subjectID, kind, itemID)
		if err != nil {
			return err
		}
		submitted = domain.Submission{
			StudentID:   studentID,
			StudentName: studentName,
			FileName:    blob.FileName,
			FileURL:     blob.FileURL,
			Note:        note,
			SubmittedAt: domain.Timestamp(s.now()),
		}
		item.Core().PutSubmission(submitted)
		return nil
	})
	return appliedResult(&submitted, err)
}

// Score checks, in order, that the item exists, that the student has
// submitted, and that value is in range for the item kind.
func (s *submissionService) Score(ctx context.Context, subjectID string, kind domain.ItemKind, itemID, studentID string, value float64) (*domain.Submission, error) {
	var scored domain.Submission
	err := s.engine.Commit(ctx, func(doc *domain.CourseDocument) error {
		item, err := locateItem(doc, subjectID, kind, itemID)
		if err != nil {
			return err
		}
		sub, err := item.Core().Submission(studentID)
		if err != nil {
			return err
		}
		if err := item.CheckScore(value); err != nil {
			return err
		}
		v := value
		sub.Score = &v
		scored = *sub
		return nil
	})
	return appliedResult(&scored, err)
}

func (s *submissionService) GetSubmission(subjectID string, kind domain.ItemKind, itemID, studentID string) (*domain.Submission, error) {
	var found domain.Submission
	err := s.engine.Read(func(doc *domain.CourseDocument) error {
		item, err := locateItem(doc, subjectID, kind, itemID)
		if err != nil {
			return err
		}
		sub, err := item.Core().Submission(studentID)
		if err != nil {
			return err
		}
		found = *sub
		if sub.Score != nil {
			v := *sub.Score
			found.Score = &v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (s *submissionService) ListSubmissions(subjectID string, kind domain.ItemKind, itemID string) ([]domain.Submission, error) {
	var subs []domain.Submission
	err := s.engine.Read(func(doc *domain.CourseDocument) error {
		item, err := locateItem(doc, subjectID, kind, itemID)
		if err != nil {
			return err
		}
		subs = make([]domain.Submission, 0, len(item.Core().Submissions))
		for _, sub := range item.Core().Submissions {
			if sub.Score != nil {
				v := *sub.Score
				sub.Score = &v
			}
			subs = append(subs, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func locateItem(doc *domain.CourseDocument, subjectID string, kind domain.ItemKind, itemID string) (domain.GradableItem, error) {
	subject, err := doc.Subject(subjectID)
	if err != nil {
		return nil, err
	}
	return subject.Item(kind, itemID)
}

// appliedResult returns v alongside err when the commit applied the mutation
// (no error, or only a persistence failure after the local apply).
func appliedResult[T any](v *T, err error) (*T, error) {
	if err == nil || Applied(err) {
		return v, err
	}
	return nil, err
}

// Applied reports whether a commit error still left the mutation applied in
// memory, i.e. it only failed to reach the cache or the remote store.
func Applied(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, coursesync.ErrRemoteWriteFailed) || errors.Is(err, coursesync.ErrLocalWriteFailed)
}
