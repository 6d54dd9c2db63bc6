// Package memory holds in-process implementations of the repository
// interfaces. They back the offline/dev mode of the server and the tests.
package memory

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CourseStore is an in-process remote document store. By default watchers
// are notified synchronously from inside Replace, before it returns, which is
// the earliest an echo of a write can possibly arrive. DeferNotifications
// queues them instead until Flush, the way a change stream delivers them
// after the write has been acknowledged.
type CourseStore struct {
	mu          sync.Mutex
	docs        map[string]*domain.CourseDocument
	watchers    map[string]map[int]func(*domain.CourseDocument)
	nextWatcher int
	readErr     error
	writeErr    error
	watchErr    error
	deferred    bool
	queue       []notification

	// BeforeReplace, when set, runs at the start of every Replace. Returning
	// an error fails the write.
	BeforeReplace func(ctx context.Context, doc *domain.CourseDocument) error
	Now           func() time.Time
}

type notification struct {
	doc       *domain.CourseDocument
	listeners []func(*domain.CourseDocument)
}

func NewCourseStore() *CourseStore {
	return &CourseStore{
		docs:     make(map[string]*domain.CourseDocument),
		watchers: make(map[string]map[int]func(*domain.CourseDocument)),
		Now:      time.Now,
	}
}

var _ repository.CourseStore = (*CourseStore)(nil)

// DeferNotifications switches between synchronous delivery and queueing
// notifications until Flush.
func (s *CourseStore) DeferNotifications(on bool) {
	s.mu.Lock()
	s.deferred = on
	s.mu.Unlock()
}

// Flush delivers queued notifications in write order and reports how many
// documents were delivered.
func (s *CourseStore) Flush() int {
	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, n := range queue {
		for _, fn := range n.listeners {
			fn(n.doc.Clone())
		}
	}
	return len(queue)
}

// FailReads makes Get and List return err until called again with nil.
func (s *CourseStore) FailReads(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// FailWrites makes Replace return err until called again with nil.
func (s *CourseStore) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// FailWatch makes Watch return err until called again with nil.
func (s *CourseStore) FailWatch(err error) {
	s.mu.Lock()
	s.watchErr = err
	s.mu.Unlock()
}

func (s *CourseStore) Get(ctx context.Context, courseID string) (*domain.CourseDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	doc, ok := s.docs[courseID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *CourseStore) Replace(ctx context.Context, doc *domain.CourseDocument) error {
	if s.BeforeReplace != nil {
		if err := s.BeforeReplace(ctx, doc); err != nil {
			return err
		}
	}
	s.mu.Lock()
	if s.writeErr != nil {
		err := s.writeErr
		s.mu.Unlock()
		return fmt.Errorf("%w: course %s: %w", repository.ErrUpdateFailed, doc.CourseID, err)
	}
	s.mu.Unlock()
	s.Publish(doc)
	return nil
}

// Publish stores doc and notifies watchers as if any client had written it.
func (s *CourseStore) Publish(doc *domain.CourseDocument) {
	stored := doc.Clone()
	if stored.Subjects == nil {
		stored.Subjects = []domain.Subject{}
	}

	s.mu.Lock()
	stored.LastUpdated = s.Now().UTC()
	s.docs[stored.CourseID] = stored
	listeners := make([]func(*domain.CourseDocument), 0, len(s.watchers[stored.CourseID]))
	ids := make([]int, 0, len(s.watchers[stored.CourseID]))
	for id := range s.watchers[stored.CourseID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, s.watchers[stored.CourseID][id])
	}
	if s.deferred {
		s.queue = append(s.queue, notification{doc: stored.Clone(), listeners: listeners})
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(stored.Clone())
	}
}

func (s *CourseStore) Watch(ctx context.Context, courseID string, onChange func(*domain.CourseDocument), onError func(error)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	id := s.nextWatcher
	s.nextWatcher++
	if s.watchers[courseID] == nil {
		s.watchers[courseID] = make(map[int]func(*domain.CourseDocument))
	}
	s.watchers[courseID][id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers[courseID], id)
			s.mu.Unlock()
		})
	}, nil
}

// WatcherCount reports how many live watches exist for a course.
func (s *CourseStore) WatcherCount(courseID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers[courseID])
}

func (s *CourseStore) List(ctx context.Context) ([]domain.CourseDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]domain.CourseDocument, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.docs[id].Clone())
	}
	return out, nil
}
