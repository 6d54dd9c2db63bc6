package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

var ErrInvalidFileName = errors.New("invalid file name")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// Upload writes body under objectKey, overwriting any existing object, and
	// returns the URL stored in the course document.
	Upload(ctx context.Context, objectKey string, body io.Reader, contentType string) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// SubmissionKey is where a student's artifact for an item lives. A
// resubmission with the same file name lands on the same object.
func SubmissionKey(subjectID, itemID, studentID, fileName string) (string, error) {
	name, err := CleanFileName(fileName)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{"subjects", subjectID, itemID, "submissions", studentID, name}, "/"), nil
}

// ItemFileKey is where an instructor's reference file for a task, assignment
// or lesson lives.
func ItemFileKey(subjectID, itemID, fileName string) (string, error) {
	name, err := CleanFileName(fileName)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{"subjects", subjectID, itemID, name}, "/"), nil
}

// CleanFileName strips any directory part a client sent along with the name.
func CleanFileName(fileName string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), `\`, "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", ErrInvalidFileName
	}
	return name, nil
}
