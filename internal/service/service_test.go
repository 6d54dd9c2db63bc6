package service

import (
	"alcyxob/classroom/internal/coursesync"
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *memory.CourseStore
	cache  *memory.Cache
	engine *coursesync.Engine
}

// newFixture loads course C1 seeded with the demo subjects.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewCourseStore()
	cache := memory.NewCache()
	engine := coursesync.NewEngine(store, cache, domain.DemoSubjects())
	require.NoError(t, engine.Load(context.Background(), "C1"))
	return &fixture{store: store, cache: cache, engine: engine}
}

func (f *fixture) remoteSubject(t *testing.T, id string) domain.Subject {
	t.Helper()
	doc, err := f.store.Get(context.Background(), "C1")
	require.NoError(t, err)
	s, err := doc.Subject(id)
	require.NoError(t, err)
	return *s
}

// clock returns successive instants one second apart.
func clock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func newSubmissionServiceAt(engine Engine, now func() time.Time) *submissionService {
	return &submissionService{engine: engine, validate: validator.New(), now: now}
}
