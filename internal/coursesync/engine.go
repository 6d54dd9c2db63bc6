// Package coursesync keeps one course document consistent between memory,
// the on-device cache and the remote document store.
package coursesync

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
)

var (
	// ErrRemoteWriteFailed marks a degraded success: the mutation is applied
	// in memory and in the local cache but did not reach the remote store.
	ErrRemoteWriteFailed = errors.New("remote write failed, changes saved locally only")
	// ErrRemoteReadFailed is returned by Load when the remote store could not
	// be read; the cached copy stays active.
	ErrRemoteReadFailed = errors.New("remote read failed, using local data")
	ErrLocalWriteFailed = errors.New("local cache write failed")
	ErrNotLoaded        = errors.New("course document not loaded")
	ErrNotBound         = errors.New("session is not bound to a remote course")
)

// maxPendingEchoes bounds the writes whose echo we still wait for; the
// oldest is forgotten first.
const maxPendingEchoes = 16

// Mutator edits the staged copy of the document. Returning an error discards
// the staged copy, leaving the document untouched.
type Mutator func(doc *domain.CourseDocument) error

// Engine owns the authoritative in-memory course document of one session.
// Commit, Subscribe, Load and Unsubscribe are its only mutation and
// observation surface.
type Engine struct {
	store repository.CourseStore // nil for a purely local session
	cache repository.LocalCache
	seed  []domain.Subject

	mu        sync.Mutex
	doc       *domain.CourseDocument
	gen       uint64              // generation of the latest commit
	inFlight  map[uint64]struct{} // generations whose remote write has not resolved
	current   [sha256.Size]byte   // digest of doc.Subjects
	pending   [][sha256.Size]byte // digests of our writes not yet echoed back, oldest first
	onChange  func([]domain.Subject)
	watching  bool

	writeMu      sync.Mutex
	persistedGen uint64 // highest generation known to be stored remotely

	subMu       sync.Mutex
	cancelWatch func()
}

// NewEngine creates an engine. store may be nil, in which case every commit
// only reaches the local cache. seed is the starting subject list used when
// the cache is empty.
func NewEngine(store repository.CourseStore, cache repository.LocalCache, seed []domain.Subject) *Engine {
	return &Engine{
		store:    store,
		cache:    cache,
		seed:     seed,
		inFlight: make(map[uint64]struct{}),
	}
}

// Load starts a session for courseID. The cached copy (or the seed) is
// adopted immediately; the remote copy then replaces it when it exists and
// is non-empty. A course with no remote document yet is bootstrapped from
// the in-memory document. Remote failures are returned wrapped in
// ErrRemoteReadFailed or ErrRemoteWriteFailed and leave the local copy active.
func (e *Engine) Load(ctx context.Context, courseID string) error {
	e.mu.Lock()
	doc := &domain.CourseDocument{CourseID: courseID}
	subjects, ok, err := e.cache.LoadSubjects()
	if err != nil {
		log.Printf("WARN: Could not read local cache, starting empty: %v", err)
	}
	switch {
	case ok:
		doc.Subjects = subjects
		log.Printf("INFO: Adopted %d cached subjects for course '%s'", len(subjects), courseID)
	case e.seed != nil:
		doc.Subjects = domain.CloneSubjects(e.seed)
	default:
		doc.Subjects = []domain.Subject{}
	}
	e.doc = doc
	e.current = digest(doc.Subjects)
	e.pending = nil
	startGen := e.gen
	e.mu.Unlock()

	if e.store == nil || courseID == "" {
		return nil
	}

	remote, err := e.store.Get(ctx, courseID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("INFO: No remote document for course '%s', pushing local data up", courseID)
		return e.Commit(ctx, func(*domain.CourseDocument) error { return nil })
	}
	if err != nil {
		log.Printf("WARN: Could not load course '%s' from remote, using local data: %v", courseID, err)
		return fmt.Errorf("%w: %w", ErrRemoteReadFailed, err)
	}
	if len(remote.Subjects) == 0 {
		log.Printf("INFO: Remote document for course '%s' is empty, keeping local data", courseID)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != startGen || e.doc.CourseID != courseID {
		// A commit landed while the read was outstanding; its write carries
		// the newer state to the remote store.
		log.Printf("INFO: Discarding remote read for course '%s', local state moved on", courseID)
		return nil
	}
	e.replaceLocked(remote)
	log.Printf("INFO: Loaded %d subjects from remote for course '%s'", len(remote.Subjects), courseID)
	return nil
}

// Commit applies mutate to a staged copy of the document, adopts it, writes
// it through to the local cache and, when the session is bound to a remote
// course, waits for the remote write. While that write is in flight incoming
// notifications are ignored.
//
// A non-nil error from mutate is returned as is and nothing is applied.
// Cache and remote failures are reported wrapped in ErrLocalWriteFailed and
// ErrRemoteWriteFailed; neither rolls back the in-memory mutation.
func (e *Engine) Commit(ctx context.Context, mutate Mutator) error {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	staged := e.doc.Clone()
	if err := mutate(staged); err != nil {
		e.mu.Unlock()
		return err
	}
	e.doc = staged
	e.current = digest(staged.Subjects)
	e.gen++
	gen := e.gen

	var cacheErr error
	if err := e.cache.SaveSubjects(staged.Subjects); err != nil {
		log.Printf("ERROR: Failed to write local cache: %v", err)
		cacheErr = fmt.Errorf("%w: %w", ErrLocalWriteFailed, err)
	}

	remote := e.store != nil && staged.CourseID != ""
	if remote {
		e.inFlight[gen] = struct{}{}
	}
	e.mu.Unlock()

	if !remote {
		return cacheErr
	}

	err := e.persist(ctx, gen)

	e.mu.Lock()
	delete(e.inFlight, gen)
	e.mu.Unlock()

	return errors.Join(cacheErr, err)
}

// persist writes the newest in-memory state remotely. Writes are serialized
// so the last one to reach the store always carries the newest generation;
// a generation already covered by a later snapshot is not written again.
func (e *Engine) persist(ctx context.Context, gen uint64) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if e.persistedGen >= gen {
		return nil
	}

	e.mu.Lock()
	snapshot := e.doc.Clone()
	snapshotGen := e.gen
	sum := e.current
	// Registered before the write: a store may notify before Replace returns.
	watching := e.watching
	if watching {
		e.pending = append(e.pending, sum)
		if len(e.pending) > maxPendingEchoes {
			e.pending = e.pending[len(e.pending)-maxPendingEchoes:]
		}
	}
	e.mu.Unlock()

	if err := e.store.Replace(ctx, snapshot); err != nil {
		if watching {
			e.mu.Lock()
			e.dropPendingLocked(sum)
			e.mu.Unlock()
		}
		log.Printf("ERROR: Cloud save failed for course '%s', data saved locally only: %v", snapshot.CourseID, err)
		return fmt.Errorf("%w: %w", ErrRemoteWriteFailed, err)
	}
	e.persistedGen = snapshotGen
	return nil
}

// Subscribe opens the live-update channel for courseID, replacing any
// previous one. onChange receives the full subject list each time another
// writer changes the remote document.
func (e *Engine) Subscribe(ctx context.Context, courseID string, onChange func([]domain.Subject)) error {
	if e.store == nil || courseID == "" {
		return ErrNotBound
	}

	e.subMu.Lock()
	defer e.subMu.Unlock()

	if e.cancelWatch != nil {
		e.cancelWatch()
		e.cancelWatch = nil
	}

	// Writes made before the channel opened are never echoed on it.
	e.mu.Lock()
	e.onChange = onChange
	e.watching = true
	e.pending = nil
	e.mu.Unlock()

	// The channel outlives the request that opened it; Unsubscribe closes it.
	cancel, err := e.store.Watch(context.WithoutCancel(ctx), courseID, e.handleRemote, func(err error) {
		log.Printf("ERROR: Realtime listener error for course '%s': %v", courseID, err)
	})
	if err != nil {
		e.mu.Lock()
		e.watching = false
		e.mu.Unlock()
		return fmt.Errorf("watch course %s: %w", courseID, err)
	}
	e.cancelWatch = cancel
	return nil
}

// Unsubscribe releases the live-update channel. It is a no-op when no
// channel is open.
func (e *Engine) Unsubscribe() {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	if e.cancelWatch == nil {
		return
	}
	e.cancelWatch()
	e.cancelWatch = nil

	e.mu.Lock()
	e.onChange = nil
	e.watching = false
	e.pending = nil
	e.mu.Unlock()
}

// handleRemote decides whether a notification is new information. The echo
// of one of our writes is consumed once and ignored. Anything else is dropped
// while a write of ours is in flight (that write already carries the newest
// local state), ignored when it matches what we hold, and otherwise replaces
// the document.
func (e *Engine) handleRemote(remote *domain.CourseDocument) {
	e.mu.Lock()
	if e.doc == nil || remote == nil || remote.CourseID != e.doc.CourseID {
		e.mu.Unlock()
		return
	}
	sum := digest(remote.Subjects)
	if e.consumePendingLocked(sum) {
		e.mu.Unlock()
		return
	}
	if len(e.inFlight) > 0 {
		e.mu.Unlock()
		log.Printf("INFO: Ignoring realtime update for course '%s' while a save is in flight", remote.CourseID)
		return
	}
	if sum == e.current {
		if remote.LastUpdated.After(e.doc.LastUpdated) {
			e.doc.LastUpdated = remote.LastUpdated
		}
		e.mu.Unlock()
		return
	}

	e.replaceLocked(remote)
	subjects := domain.CloneSubjects(e.doc.Subjects)
	onChange := e.onChange
	e.mu.Unlock()

	log.Printf("INFO: Realtime update received for course '%s'", remote.CourseID)
	if onChange != nil {
		onChange(subjects)
	}
}

// replaceLocked adopts remote as the whole document and mirrors it into the
// cache. e.mu must be held.
func (e *Engine) replaceLocked(remote *domain.CourseDocument) {
	e.doc = remote.Clone()
	if e.doc.Subjects == nil {
		e.doc.Subjects = []domain.Subject{}
	}
	e.current = digest(e.doc.Subjects)
	if err := e.cache.SaveSubjects(e.doc.Subjects); err != nil {
		log.Printf("ERROR: Failed to mirror remote document into local cache: %v", err)
	}
}

// consumePendingLocked removes the oldest pending echo equal to sum.
func (e *Engine) consumePendingLocked(sum [sha256.Size]byte) bool {
	for i, w := range e.pending {
		if w == sum {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return true
		}
	}
	return false
}

// dropPendingLocked forgets the newest pending echo equal to sum, used when
// the write that registered it failed.
func (e *Engine) dropPendingLocked(sum [sha256.Size]byte) {
	for i := len(e.pending) - 1; i >= 0; i-- {
		if e.pending[i] == sum {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return
		}
	}
}

// Bind switches the engine to courseID: the live channel is closed, the
// document reloaded and, for a remote course, a new channel opened. Load
// warnings are returned after the subscription is in place.
func (e *Engine) Bind(ctx context.Context, courseID string, onChange func([]domain.Subject)) error {
	e.Unsubscribe()
	loadErr := e.Load(ctx, courseID)
	if e.store == nil || courseID == "" {
		return loadErr
	}
	if err := e.Subscribe(ctx, courseID, onChange); err != nil {
		return errors.Join(loadErr, err)
	}
	return loadErr
}

// Subjects returns a copy of the current subject list.
func (e *Engine) Subjects() []domain.Subject {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil
	}
	return domain.CloneSubjects(e.doc.Subjects)
}

// Document returns a copy of the current document, or nil before Load.
func (e *Engine) Document() *domain.CourseDocument {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// Read runs fn against the current document without copying it. fn must not
// retain or modify doc.
func (e *Engine) Read(fn func(doc *domain.CourseDocument) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ErrNotLoaded
	}
	return fn(e.doc)
}

// CourseID returns the course the engine is loaded for.
func (e *Engine) CourseID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ""
	}
	return e.doc.CourseID
}

func digest(subjects []domain.Subject) [sha256.Size]byte {
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	var buf bytes.Buffer
	// Encoding plain structs cannot fail.
	_ = json.NewEncoder(&buf).Encode(subjects)
	return sha256.Sum256(buf.Bytes())
}
