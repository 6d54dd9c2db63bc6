package service

import (
	"alcyxob/classroom/internal/coursesync"
	"alcyxob/classroom/internal/domain"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFiles is an in-memory FileStorage.
type fakeFiles struct {
	mu        sync.Mutex
	objects   map[string]string
	deleted   []string
	uploadErr error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{objects: make(map[string]string)}
}

func (f *fakeFiles) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = string(data)
	return "https://blob.test/" + key, nil
}

func (f *fakeFiles) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://blob.test/" + key + "?signed=1", nil
}

func (f *fakeFiles) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func newUploadFixture(t *testing.T) (*fixture, *fakeFiles, UploadService) {
	f := newFixture(t)
	files := newFakeFiles()
	subs := newSubmissionServiceAt(f.engine, clock(t0))
	return f, files, NewUploadService(f.engine, files, subs)
}

func upload(name, content string) FileUpload {
	return FileUpload{Name: name, ContentType: "application/pdf", Body: strings.NewReader(content)}
}

func TestSubmitFileStoresUnderStudentPath(t *testing.T) {
	_, files, svc := newUploadFixture(t)
	student := &domain.Session{ID: "u1", Name: "Ann", Role: domain.RoleStudent}

	sub, err := svc.SubmitFile(context.Background(), "1", domain.KindAssignment, "a1", student, "done", upload("essay.pdf", "v1"))
	require.NoError(t, err)

	key := "subjects/1/a1/submissions/u1/essay.pdf"
	assert.Equal(t, "v1", files.objects[key])
	assert.Equal(t, "https://blob.test/"+key, sub.FileURL)
	assert.Equal(t, "Ann", sub.StudentName)
	assert.Equal(t, "done", sub.Note)

	// Same name overwrites in place.
	_, err = svc.SubmitFile(context.Background(), "1", domain.KindAssignment, "a1", student, "", upload("essay.pdf", "v2"))
	require.NoError(t, err)
	assert.Equal(t, "v2", files.objects[key])
	assert.Empty(t, files.deleted)

	// A new name removes the old object.
	_, err = svc.SubmitFile(context.Background(), "1", domain.KindAssignment, "a1", student, "", upload("essay-final.pdf", "v3"))
	require.NoError(t, err)
	assert.Equal(t, []string{key}, files.deleted)
	assert.Len(t, files.objects, 1)

	url, err := svc.SubmissionDownloadURL(context.Background(), "1", domain.KindAssignment, "a1", "u1")
	require.NoError(t, err)
	assert.Contains(t, url, "subjects/1/a1/submissions/u1/essay-final.pdf")
}

func TestSubmitFileToMissingItemUploadsNothing(t *testing.T) {
	_, files, svc := newUploadFixture(t)
	student := &domain.Session{ID: "u1", Role: domain.RoleStudent}

	_, err := svc.SubmitFile(context.Background(), "1", domain.KindTask, "nope", student, "", upload("a.pdf", "x"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, files.objects)
}

func TestSubmitFileUploadFailure(t *testing.T) {
	f, files, svc := newUploadFixture(t)
	files.uploadErr = errors.New("bucket gone")
	student := &domain.Session{ID: "u1", Role: domain.RoleStudent}

	_, err := svc.SubmitFile(context.Background(), "1", domain.KindTask, "t1", student, "", upload("a.pdf", "x"))

	assert.Error(t, err)
	subject, _ := f.engine.Document().Subject("1")
	assert.Empty(t, subject.Tasks[0].Submissions)
}

func TestDegradedResubmissionKeepsOldObject(t *testing.T) {
	f, files, svc := newUploadFixture(t)
	ctx := context.Background()
	student := &domain.Session{ID: "u1", Role: domain.RoleStudent}

	_, err := svc.SubmitFile(ctx, "1", domain.KindAssignment, "a1", student, "", upload("essay.pdf", "v1"))
	require.NoError(t, err)

	f.store.FailWrites(errors.New("offline"))
	sub, err := svc.SubmitFile(ctx, "1", domain.KindAssignment, "a1", student, "", upload("essay-final.pdf", "v2"))
	require.ErrorIs(t, err, coursesync.ErrRemoteWriteFailed)
	require.NotNil(t, sub)

	// Other clients still see the first file in the remote document.
	assert.Empty(t, files.deleted)
	assert.Contains(t, files.objects, "subjects/1/a1/submissions/u1/essay.pdf")
	remote := f.remoteSubject(t, "1")
	assert.Equal(t, "essay.pdf", remote.Assignments[0].Submissions[0].FileName)
}

func TestAttachItemFileReplacesPrevious(t *testing.T) {
	f, files, svc := newUploadFixture(t)
	ctx := context.Background()

	g, err := svc.AttachItemFile(ctx, "1", domain.KindTask, "t1", upload("brief.pdf", "b1"))
	require.NoError(t, err)
	assert.Equal(t, "brief.pdf", g.File)
	assert.Equal(t, "https://blob.test/subjects/1/t1/brief.pdf", g.FileURL)

	_, err = svc.AttachItemFile(ctx, "1", domain.KindTask, "t1", upload("brief-v2.pdf", "b2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"subjects/1/t1/brief.pdf"}, files.deleted)

	subject, _ := f.engine.Document().Subject("1")
	assert.Equal(t, "brief-v2.pdf", subject.Tasks[0].File)
}

func TestAttachLessonFile(t *testing.T) {
	f, files, svc := newUploadFixture(t)
	ctx := context.Background()
	courses := newCourseServiceFor(f)
	lesson, err := courses.AddLesson(ctx, "2", LessonInput{Title: "Optics"})
	require.NoError(t, err)

	got, err := svc.AttachLessonFile(ctx, "2", lesson.ID, upload("slides.pdf", "s"))
	require.NoError(t, err)
	assert.Equal(t, "slides.pdf", got.File)
	assert.Contains(t, files.objects, "subjects/2/"+lesson.ID+"/slides.pdf")

	_, err = svc.AttachLessonFile(ctx, "2", "missing", upload("slides.pdf", "s"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadRequiresFile(t *testing.T) {
	_, _, svc := newUploadFixture(t)
	_, err := svc.AttachItemFile(context.Background(), "1", domain.KindTask, "t1", FileUpload{Name: "x.pdf"})
	assert.ErrorIs(t, err, ErrNoFile)
}
