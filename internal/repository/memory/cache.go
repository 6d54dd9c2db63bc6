package memory

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository"
	"sync"
)

// Cache is an in-process LocalCache.
type Cache struct {
	mu       sync.Mutex
	subjects []domain.Subject
	cached   bool
	session  *domain.Session
	saveErr  error
}

func NewCache() *Cache {
	return &Cache{}
}

var _ repository.LocalCache = (*Cache)(nil)

// FailSaves makes SaveSubjects return err until called again with nil.
func (c *Cache) FailSaves(err error) {
	c.mu.Lock()
	c.saveErr = err
	c.mu.Unlock()
}

func (c *Cache) LoadSubjects() ([]domain.Subject, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cached {
		return nil, false, nil
	}
	return domain.CloneSubjects(c.subjects), true, nil
}

func (c *Cache) SaveSubjects(subjects []domain.Subject) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	c.subjects = domain.CloneSubjects(subjects)
	if c.subjects == nil {
		c.subjects = []domain.Subject{}
	}
	c.cached = true
	return nil
}

func (c *Cache) LoadSession() (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, repository.ErrNotFound
	}
	s := *c.session
	return &s, nil
}

func (c *Cache) SaveSession(session *domain.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := *session
	c.session = &s
	return nil
}

func (c *Cache) ClearSession() error {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	return nil
}

func (c *Cache) Close() error {
	return nil
}
