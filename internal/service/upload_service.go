package service

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/storage"
	"context"
	"errors"
	"io"
	"log"
)

var ErrNoFile = errors.New("no file attached")

// UploadService stores files in the blob store and records their references
// in the course document.
type UploadService interface {
	// SubmitFile uploads a student's artifact and records the submission. A
	// previous artifact stored under a different name is removed afterwards.
	SubmitFile(ctx context.Context, subjectID string, kind domain.ItemKind, itemID string, student *domain.Session, note string, file FileUpload) (*domain.Submission, error)
	// AttachItemFile uploads an instructor reference file for a task or assignment.
	AttachItemFile(ctx context.Context, subjectID string, kind domain.ItemKind, itemID string, file FileUpload) (*domain.Gradable, error)
	AttachLessonFile(ctx context.Context, subjectID, lessonID string, file FileUpload) (*domain.Lesson, error)
	// SubmissionDownloadURL returns a short-lived link to a stored submission.
	SubmissionDownloadURL(ctx context.Context, subjectID string, kind domain.ItemKind, itemID, studentID string) (string, error)
}

// FileUpload is a file received from a client.
type FileUpload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// uploadService implements the UploadService interface.
type uploadService struct {
	engine      Engine
	files       storage.FileStorage
	submissions SubmissionService
}

// NewUploadService creates a new instance of uploadService.
func NewUploadService(engine Engine, files storage.FileStorage, submissions SubmissionService) UploadService {
	return &uploadService{
		engine:      engine,
		files:       files,
		submissions: submissions,
	}
}

func (s *uploadService) SubmitFile(ctx context.Context, subjectID string, kind domain.ItemKind, itemID string, student *domain.Session, note string, file FileUpload) (*domain.Submission, error) {
	if file.Body == nil {
		return nil, ErrNoFile
	}
	name, err := storage.CleanFileName(file.Name)
	if err != nil {
		return nil, err
	}
	file.Name = name
	key, err := storage.SubmissionKey(subjectID, itemID, student.ID, file.Name)
	if err != nil {
		return nil, err
	}

	// Check the item exists before storing anything, and remember the old file.
	var previous string
	err = s.engine.Read(func(doc *domain.CourseDocument) error {
		item, err := locateItem(doc, subjectID, kind, itemID)
		if err != nil {
			return err
		}
		if sub, err := item.Core().Submission(student.ID); err == nil {
			previous = sub.FileName
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	url, err := s.files.Upload(ctx, key, file.Body, file.ContentType)
	if err != nil {
		return nil, err
	}

	sub, err := s.submissions.Submit(ctx, subjectID, kind, itemID, student.ID, student.DisplayName(), BlobRef{
		FileName: file.Name,
		FileURL:  url,
	}, note)
	if sub == nil {
		return nil, err
	}

	// A save that did not reach the remote store leaves other clients
	// pointing at the old object.
	if err == nil && previous != "" && previous != file.Name {
		if oldKey, keyErr := storage.SubmissionKey(subjectID, itemID, student.ID, previous); keyErr == nil {
			s.deleteBestEffort(ctx, oldKey)
		}
	}
	return sub, err
}

func (s *uploadService) AttachItemFile(ctx context.Context, subjectID string, kind domain.ItemKind, itemID string, file FileUpload) (*domain.Gradable, error) {
	if file.Body == nil {
		return nil, ErrNoFile
	}
	name, err := storage.CleanFileName(file.Name)
	if err != nil {
		return nil, err
	}
	file.Name = name
	key, err := storage.ItemFileKey(subjectID, itemID, file.Name)
	if err != nil {
		return nil, err
	}

	var previous string
	err = s.engine.Read(func(doc *domain.CourseDocument) error {
		item, err := locateItem(doc, subjectID, kind, itemID)
		if err != nil {
			return err
		}
		previous = item.Core().File
		return nil
	})
	if err != nil {
		return nil, err
	}

	url, err := s.files.Upload(ctx, key, file.Body, file.ContentType)
	if err != nil {
		return nil, err
	}

	var out domain.Gradable
	err = s.engine.Commit(ctx, func(doc *domain.CourseDocument) error {
		item, err := locateItem(doc, subjectID, kind, itemID)
		if err != nil {
			return err
		}
		item.Core().SetFile(file.Name, url)
		out = *item.Core()
		return nil
	})
	if !Applied(err) {
		return nil, err
	}

	if err == nil {
		s.dropReplaced(ctx, subjectID, itemID, previous, file.Name)
	}
	return &out, err
}

func (s *uploadService) AttachLessonFile(ctx context.Context, subjectID, lessonID string, file FileUpload) (*domain.Lesson, error) {
	if file.Body == nil {
		return nil, ErrNoFile
	}
	name, err := storage.CleanFileName(file.Name)
	if err != nil {
		return nil, err
	}
	file.Name = name
	key, err := storage.ItemFileKey(subjectID, lessonID, file.Name)
	if err != nil {
		return nil, err
	}

	var previous string
	err = s.engine.Read(func(doc *domain.CourseDocument) error {
		subject, err := doc.Subject(subjectID)
		if err != nil {
			return err
		}
		lesson, err := subject.Lesson(lessonID)
		if err != nil {
			return err
		}
		previous = lesson.File
		return nil
	})
	if err != nil {
		return nil, err
	}

	url, err := s.files.Upload(ctx, key, file.Body, file.ContentType)
	if err != nil {
		return nil, err
	}

	var out domain.Lesson
	err = s.engine.Commit(ctx, func(doc *domain.CourseDocument) error {
		subject, err := doc.Subject(subjectID)
		if err != nil {
			return err
		}
		lesson, err := subject.Lesson(lessonID)
		if err != nil {
			return err
		}
		lesson.File, lesson.FileURL = file.Name, url
		out = *lesson
		return nil
	})
	if !Applied(err) {
		return nil, err
	}

	if err == nil {
		s.dropReplaced(ctx, subjectID, lessonID, previous, file.Name)
	}
	return &out, err
}

func (s *uploadService) SubmissionDownloadURL(ctx context.Context, subjectID string, kind domain.ItemKind, itemID, studentID string) (string, error) {
	sub, err := s.submissions.GetSubmission(subjectID, kind, itemID, studentID)
	if err != nil {
		return "", err
	}
	key, err := storage.SubmissionKey(subjectID, itemID, studentID, sub.FileName)
	if err != nil {
		return "", err
	}
	return s.files.GeneratePresignedDownloadURL(ctx, key, storage.DefaultPresignedURLExpiry)
}

func (s *uploadService) dropReplaced(ctx context.Context, subjectID, itemID, previous, current string) {
	if previous == "" || previous == current {
		return
	}
	if oldKey, err := storage.ItemFileKey(subjectID, itemID, previous); err == nil {
		s.deleteBestEffort(ctx, oldKey)
	}
}

func (s *uploadService) deleteBestEffort(ctx context.Context, key string) {
	if err := s.files.DeleteObject(ctx, key); err != nil {
		log.Printf("WARN: Could not remove replaced file '%s': %v", key, err)
	}
}
