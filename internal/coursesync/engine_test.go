package coursesync

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository"
	"alcyxob/classroom/internal/repository/memory"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subject(id, name string) domain.Subject {
	s := domain.Subject{ID: id, Name: name}
	s.Normalize()
	return s
}

func addSubject(s domain.Subject) Mutator {
	return func(doc *domain.CourseDocument) error {
		doc.Subjects = append(doc.Subjects, s)
		return nil
	}
}

func names(subjects []domain.Subject) []string {
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, s.Name)
	}
	return out
}

func TestLoadAdoptsCacheWithoutRemote(t *testing.T) {
	cache := memory.NewCache()
	require.NoError(t, cache.SaveSubjects([]domain.Subject{subject("s1", "Cached")}))

	e := NewEngine(nil, cache, domain.DemoSubjects())
	require.NoError(t, e.Load(context.Background(), ""))

	assert.Equal(t, []string{"Cached"}, names(e.Subjects()))
}

func TestLoadUsesSeedWhenCacheEmpty(t *testing.T) {
	e := NewEngine(nil, memory.NewCache(), domain.DemoSubjects())
	require.NoError(t, e.Load(context.Background(), ""))

	assert.Equal(t, []string{"Mathematics", "Physics", "Computer Science"}, names(e.Subjects()))
}

func TestLoadReplacesWithRemote(t *testing.T) {
	store := memory.NewCourseStore()
	store.Publish(&domain.CourseDocument{CourseID: "C1", Subjects: []domain.Subject{subject("r1", "Remote")}})
	cache := memory.NewCache()
	require.NoError(t, cache.SaveSubjects([]domain.Subject{subject("s1", "Cached")}))

	e := NewEngine(store, cache, nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	assert.Equal(t, []string{"Remote"}, names(e.Subjects()))
	cached, ok, err := cache.LoadSubjects()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Remote"}, names(cached))
}

func TestLoadBootstrapsMissingRemote(t *testing.T) {
	store := memory.NewCourseStore()
	cache := memory.NewCache()
	require.NoError(t, cache.SaveSubjects([]domain.Subject{subject("s1", "Cached")}))

	e := NewEngine(store, cache, nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	remote, err := store.Get(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cached"}, names(remote.Subjects))
	assert.False(t, remote.LastUpdated.IsZero())
}

func TestLoadKeepsLocalWhenRemoteEmpty(t *testing.T) {
	store := memory.NewCourseStore()
	store.Publish(&domain.CourseDocument{CourseID: "C1"})
	cache := memory.NewCache()
	require.NoError(t, cache.SaveSubjects([]domain.Subject{subject("s1", "Cached")}))

	e := NewEngine(store, cache, nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	assert.Equal(t, []string{"Cached"}, names(e.Subjects()))
}

func TestLoadReadFailureKeepsLocal(t *testing.T) {
	store := memory.NewCourseStore()
	boom := errors.New("unavailable")
	store.FailReads(boom)
	cache := memory.NewCache()
	require.NoError(t, cache.SaveSubjects([]domain.Subject{subject("s1", "Cached")}))

	e := NewEngine(store, cache, nil)
	err := e.Load(context.Background(), "C1")

	assert.ErrorIs(t, err, ErrRemoteReadFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"Cached"}, names(e.Subjects()))
}

func TestCommitBeforeLoad(t *testing.T) {
	e := NewEngine(nil, memory.NewCache(), nil)
	assert.ErrorIs(t, e.Commit(context.Background(), addSubject(subject("s1", "x"))), ErrNotLoaded)
}

func TestCommitWritesThrough(t *testing.T) {
	store := memory.NewCourseStore()
	cache := memory.NewCache()
	e := NewEngine(store, cache, nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	require.NoError(t, e.Commit(context.Background(), addSubject(subject("s1", "Biology"))))

	assert.Equal(t, []string{"Biology"}, names(e.Subjects()))
	cached, _, _ := cache.LoadSubjects()
	assert.Equal(t, []string{"Biology"}, names(cached))
	remote, err := store.Get(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Biology"}, names(remote.Subjects))
}

func TestCommitWithoutCourseIsLocalOnly(t *testing.T) {
	store := memory.NewCourseStore()
	cache := memory.NewCache()
	e := NewEngine(store, cache, nil)
	require.NoError(t, e.Load(context.Background(), ""))

	require.NoError(t, e.Commit(context.Background(), addSubject(subject("s1", "Biology"))))

	cached, _, _ := cache.LoadSubjects()
	assert.Equal(t, []string{"Biology"}, names(cached))
	docs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRejectedMutationLeavesDocumentUntouched(t *testing.T) {
	store := memory.NewCourseStore()
	e := NewEngine(store, memory.NewCache(), nil)
	require.NoError(t, e.Load(context.Background(), "C1"))
	require.NoError(t, e.Commit(context.Background(), addSubject(subject("s1", "Biology"))))

	var writes atomic.Int32
	store.BeforeReplace = func(context.Context, *domain.CourseDocument) error {
		writes.Add(1)
		return nil
	}

	err := e.Commit(context.Background(), func(doc *domain.CourseDocument) error {
		doc.Subjects[0].Name = "half-applied"
		return domain.ErrInvalidScore
	})

	assert.ErrorIs(t, err, domain.ErrInvalidScore)
	assert.Equal(t, []string{"Biology"}, names(e.Subjects()))
	assert.Zero(t, writes.Load())
}

func TestRemoteWriteFailureKeepsLocalCopy(t *testing.T) {
	store := memory.NewCourseStore()
	cache := memory.NewCache()
	e := NewEngine(store, cache, nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	boom := errors.New("offline")
	store.FailWrites(boom)
	err := e.Commit(context.Background(), addSubject(subject("s1", "Biology")))

	assert.ErrorIs(t, err, ErrRemoteWriteFailed)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, repository.ErrUpdateFailed)
	assert.Equal(t, []string{"Biology"}, names(e.Subjects()))
	cached, _, _ := cache.LoadSubjects()
	assert.Equal(t, []string{"Biology"}, names(cached))

	// A fresh engine over the same cache starts from the unsynced change.
	store.FailReads(boom)
	restarted := NewEngine(store, cache, nil)
	assert.ErrorIs(t, restarted.Load(context.Background(), "C1"), ErrRemoteReadFailed)
	assert.Equal(t, []string{"Biology"}, names(restarted.Subjects()))
}

func TestLocalCacheFailureStillWritesRemote(t *testing.T) {
	store := memory.NewCourseStore()
	cache := memory.NewCache()
	e := NewEngine(store, cache, nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	cache.FailSaves(errors.New("disk full"))
	err := e.Commit(context.Background(), addSubject(subject("s1", "Biology")))

	assert.ErrorIs(t, err, ErrLocalWriteFailed)
	assert.NotErrorIs(t, err, ErrRemoteWriteFailed)
	remote, getErr := store.Get(context.Background(), "C1")
	require.NoError(t, getErr)
	assert.Equal(t, []string{"Biology"}, names(remote.Subjects))
}

func TestSubscribeDeliversOtherWriters(t *testing.T) {
	store := memory.NewCourseStore()
	cache := memory.NewCache()
	e := NewEngine(store, cache, nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	var got [][]string
	require.NoError(t, e.Subscribe(context.Background(), "C1", func(s []domain.Subject) {
		got = append(got, names(s))
	}))

	store.Publish(&domain.CourseDocument{CourseID: "C1", Subjects: []domain.Subject{subject("x", "From elsewhere")}})

	require.Len(t, got, 1)
	assert.Equal(t, []string{"From elsewhere"}, got[0])
	assert.Equal(t, []string{"From elsewhere"}, names(e.Subjects()))
	cached, _, _ := cache.LoadSubjects()
	assert.Equal(t, []string{"From elsewhere"}, names(cached))

	// Documents of other courses are not ours.
	store.Publish(&domain.CourseDocument{CourseID: "C2", Subjects: []domain.Subject{subject("y", "Other course")}})
	assert.Len(t, got, 1)
}

func TestOwnWritesDoNotNotify(t *testing.T) {
	store := memory.NewCourseStore()
	e := NewEngine(store, memory.NewCache(), nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	calls := 0
	require.NoError(t, e.Subscribe(context.Background(), "C1", func([]domain.Subject) { calls++ }))

	require.NoError(t, e.Commit(context.Background(), addSubject(subject("s1", "Biology"))))
	require.NoError(t, e.Commit(context.Background(), addSubject(subject("s2", "Chemistry"))))

	assert.Zero(t, calls)
	assert.Equal(t, []string{"Biology", "Chemistry"}, names(e.Subjects()))
}

func TestLateOwnEchoesDoNotNotify(t *testing.T) {
	store := memory.NewCourseStore()
	store.DeferNotifications(true)
	e := NewEngine(store, memory.NewCache(), nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	calls := 0
	require.NoError(t, e.Subscribe(context.Background(), "C1", func([]domain.Subject) { calls++ }))

	require.NoError(t, e.Commit(context.Background(), addSubject(subject("s1", "Biology"))))
	require.NoError(t, e.Commit(context.Background(), addSubject(subject("s2", "Chemistry"))))
	assert.Equal(t, 2, store.Flush())

	assert.Zero(t, calls)
	assert.Equal(t, []string{"Biology", "Chemistry"}, names(e.Subjects()))
}

func TestRevertByAnotherWriterIsApplied(t *testing.T) {
	for _, deferred := range []bool{false, true} {
		store := memory.NewCourseStore()
		store.DeferNotifications(deferred)
		e := NewEngine(store, memory.NewCache(), nil)
		require.NoError(t, e.Load(context.Background(), "C1"))

		var changes [][]string
		require.NoError(t, e.Subscribe(context.Background(), "C1", func(s []domain.Subject) {
			changes = append(changes, names(s))
		}))

		math, physics := subject("m", "Math"), subject("p", "Physics")
		require.NoError(t, e.Commit(context.Background(), addSubject(math)))
		store.Flush()

		store.Publish(&domain.CourseDocument{CourseID: "C1", Subjects: []domain.Subject{math, physics}})
		store.Flush()
		// Physics is deleted elsewhere, returning to the state we wrote.
		store.Publish(&domain.CourseDocument{CourseID: "C1", Subjects: []domain.Subject{math}})
		store.Flush()

		require.Len(t, changes, 2, "deferred=%v", deferred)
		assert.Equal(t, []string{"Math"}, changes[1])
		assert.Equal(t, []string{"Math"}, names(e.Subjects()))

		require.NoError(t, e.Commit(context.Background(), addSubject(subject("a", "Art"))))
		store.Flush()
		remote, err := store.Get(context.Background(), "C1")
		require.NoError(t, err)
		assert.Equal(t, []string{"Math", "Art"}, names(remote.Subjects), "deferred=%v", deferred)
	}
}

func TestFailedWriteIsNotTreatedAsEcho(t *testing.T) {
	store := memory.NewCourseStore()
	store.DeferNotifications(true)
	e := NewEngine(store, memory.NewCache(), nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	calls := 0
	require.NoError(t, e.Subscribe(context.Background(), "C1", func([]domain.Subject) { calls++ }))

	biology := subject("s1", "Biology")
	store.FailWrites(errors.New("offline"))
	require.ErrorIs(t, e.Commit(context.Background(), addSubject(biology)), ErrRemoteWriteFailed)
	store.FailWrites(nil)

	store.Publish(&domain.CourseDocument{CourseID: "C1", Subjects: []domain.Subject{subject("p", "Physics")}})
	store.Publish(&domain.CourseDocument{CourseID: "C1", Subjects: []domain.Subject{biology}})
	assert.Equal(t, 2, store.Flush())

	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"Biology"}, names(e.Subjects()))
}

func TestStaleNotificationDuringWriteIsIgnored(t *testing.T) {
	store := memory.NewCourseStore()
	e := NewEngine(store, memory.NewCache(), nil)
	require.NoError(t, e.Load(context.Background(), "C1"))
	require.NoError(t, e.Commit(context.Background(), addSubject(subject("s1", "Biology"))))

	var delivered []string
	require.NoError(t, e.Subscribe(context.Background(), "C1", func(s []domain.Subject) {
		delivered = append(delivered, names(s)...)
	}))

	entered := make(chan struct{})
	release := make(chan struct{})
	store.BeforeReplace = func(context.Context, *domain.CourseDocument) error {
		close(entered)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- e.Commit(context.Background(), addSubject(subject("s2", "Chemistry")))
	}()

	<-entered
	// Another writer's older state lands while our save is outstanding.
	store.Publish(&domain.CourseDocument{CourseID: "C1", Subjects: []domain.Subject{subject("s1", "Biology")}})
	assert.Equal(t, []string{"Biology", "Chemistry"}, names(e.Subjects()))

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("commit did not finish")
	}

	assert.Empty(t, delivered)
	assert.Equal(t, []string{"Biology", "Chemistry"}, names(e.Subjects()))
	remote, err := store.Get(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Biology", "Chemistry"}, names(remote.Subjects))
}

func TestConcurrentCommitsAllLand(t *testing.T) {
	store := memory.NewCourseStore()
	e := NewEngine(store, memory.NewCache(), nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.Commit(context.Background(), addSubject(subject(domain.NewID(), "n"))))
		}()
	}
	wg.Wait()

	assert.Len(t, e.Subjects(), 10)
	remote, err := store.Get(context.Background(), "C1")
	require.NoError(t, err)
	assert.Len(t, remote.Subjects, 10)
}

func TestSubscribeReplacesPreviousAndUnsubscribeIsIdempotent(t *testing.T) {
	store := memory.NewCourseStore()
	e := NewEngine(store, memory.NewCache(), nil)
	require.NoError(t, e.Load(context.Background(), "C1"))

	first, second := 0, 0
	require.NoError(t, e.Subscribe(context.Background(), "C1", func([]domain.Subject) { first++ }))
	require.NoError(t, e.Subscribe(context.Background(), "C1", func([]domain.Subject) { second++ }))
	assert.Equal(t, 1, store.WatcherCount("C1"))

	store.Publish(&domain.CourseDocument{CourseID: "C1", Subjects: []domain.Subject{subject("x", "X")}})
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	e.Unsubscribe()
	e.Unsubscribe()
	assert.Equal(t, 0, store.WatcherCount("C1"))

	store.Publish(&domain.CourseDocument{CourseID: "C1", Subjects: []domain.Subject{subject("y", "Y")}})
	assert.Equal(t, 1, second)
}

func TestSubscribeRequiresRemoteCourse(t *testing.T) {
	e := NewEngine(nil, memory.NewCache(), nil)
	require.NoError(t, e.Load(context.Background(), ""))
	assert.ErrorIs(t, e.Subscribe(context.Background(), "C1", func([]domain.Subject) {}), ErrNotBound)

	e = NewEngine(memory.NewCourseStore(), memory.NewCache(), nil)
	assert.ErrorIs(t, e.Subscribe(context.Background(), "", func([]domain.Subject) {}), ErrNotBound)
}

func TestBindSwitchesCourse(t *testing.T) {
	store := memory.NewCourseStore()
	store.Publish(&domain.CourseDocument{CourseID: "A", Subjects: []domain.Subject{subject("a", "Course A")}})
	store.Publish(&domain.CourseDocument{CourseID: "B", Subjects: []domain.Subject{subject("b", "Course B")}})
	e := NewEngine(store, memory.NewCache(), nil)

	calls := 0
	onChange := func([]domain.Subject) { calls++ }
	require.NoError(t, e.Bind(context.Background(), "A", onChange))
	assert.Equal(t, []string{"Course A"}, names(e.Subjects()))
	assert.Equal(t, 1, store.WatcherCount("A"))

	require.NoError(t, e.Bind(context.Background(), "B", onChange))
	assert.Equal(t, "B", e.CourseID())
	assert.Equal(t, []string{"Course B"}, names(e.Subjects()))
	assert.Equal(t, 0, store.WatcherCount("A"))
	assert.Equal(t, 1, store.WatcherCount("B"))

	store.Publish(&domain.CourseDocument{CourseID: "A", Subjects: []domain.Subject{subject("a2", "Changed A")}})
	assert.Zero(t, calls)

	require.NoError(t, e.Bind(context.Background(), "", onChange))
	assert.Equal(t, 0, store.WatcherCount("B"))
}
