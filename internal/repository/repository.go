package repository

import (
	"alcyxob/classroom/internal/domain" // Import our defined domain models
	"context"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed") // Replace could not write the document
	ErrWatchClosed  = RepositoryError("watch closed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// CourseStore is the remote document store holding one CourseDocument per course.
type CourseStore interface {
	// Get returns ErrNotFound when the course document has never been written.
	Get(ctx context.Context, courseID string) (*domain.CourseDocument, error)
	// Replace overwrites the whole document (creating it if needed). The store
	// assigns LastUpdated.
	Replace(ctx context.Context, doc *domain.CourseDocument) error
	// Watch invokes onChange every time the stored document changes, including
	// changes caused by this client's own writes. onError receives terminal
	// stream failures. The returned cancel func stops the watch and may be
	// called more than once.
	Watch(ctx context.Context, courseID string, onChange func(*domain.CourseDocument), onError func(error)) (cancel func(), err error)
	// List returns every course document, used to resolve a course id from
	// locally cached subjects.
	List(ctx context.Context) ([]domain.CourseDocument, error)
}

// LocalCache is the offline copy kept on the device: the subject list under
// a well-known key plus the signed-in session record.
type LocalCache interface {
	// LoadSubjects reports ok=false when nothing has been cached yet.
	LoadSubjects() (subjects []domain.Subject, ok bool, err error)
	SaveSubjects(subjects []domain.Subject) error
	// LoadSession returns ErrNotFound when no session is stored.
	LoadSession() (*domain.Session, error)
	SaveSession(session *domain.Session) error
	ClearSession() error
	Close() error
}
