package domain

// DomainError distinguishes errors raised by the course document model.
type DomainError string

func (e DomainError) Error() string {
	return string(e)
}

var (
	ErrNotFound        = DomainError("not found")
	ErrNoSubmission    = DomainError("no submission for student")
	ErrInvalidScore    = DomainError("invalid score")
	ErrInvalidItemKind = DomainError("invalid item kind")
)
