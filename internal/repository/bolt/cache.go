package bolt

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository"
	"encoding/json"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var cacheBucket = []byte("LocalStorage")

// Well-known keys inside the cache bucket.
const (
	SubjectsKey = "subjects"
	SessionKey  = "userData"
)

// Cache is the on-device copy of the course document backed by a bbolt file.
type Cache struct {
	db *bbolt.DB
}

// Open opens (or creates) the cache file at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

var _ repository.LocalCache = (*Cache)(nil)

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) LoadSubjects() ([]domain.Subject, bool, error) {
	var subjects []domain.Subject
	found, err := get(c, SubjectsKey, &subjects)
	if err != nil || !found {
		return nil, false, err
	}
	return subjects, true, nil
}

func (c *Cache) SaveSubjects(subjects []domain.Subject) error {
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	return put(c, SubjectsKey, subjects)
}

func (c *Cache) LoadSession() (*domain.Session, error) {
	var session domain.Session
	found, err := get(c, SessionKey, &session)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (c *Cache) SaveSession(session *domain.Session) error {
	return put(c, SessionKey, session)
}

func (c *Cache) ClearSession() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cacheBucket).Delete([]byte(SessionKey))
	})
}

func put[T any](c *Cache, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(key), data)
	})
}

// get decodes the value under key into out and reports whether it existed.
func get[T any](c *Cache, key string, out *T) (bool, error) {
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(cacheBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, out)
	})
	return found, err
}
