package service

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
)

// --- Error Definitions ---
var (
	ErrNoSession          = errors.New("no signed-in session")
	ErrTokenGeneration    = errors.New("failed to generate session token")
	ErrCourseUnresolvable = errors.New("could not determine course for session")
)

// SessionInput is the identity handed over by the external sign-in flow.
type SessionInput struct {
	ID     string      `json:"id" validate:"required"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role" validate:"required,oneof=instructor student"`
	Course string      `json:"course"`
}

// CourseBinder points the sync engine at a course. It is called whenever a
// session starts with a (possibly different) course id.
type CourseBinder func(ctx context.Context, courseID string) error

// --- Service Interface ---
type SessionService interface {
	// Start records the session in the local cache, resolves its course and
	// binds the engine to it. The returned error may be a non-fatal sync
	// warning when token and session are non-nil.
	Start(ctx context.Context, in SessionInput) (token string, session *domain.Session, err error)
	Current() (*domain.Session, error)
	End() error
	// ResolveCourseID finds the course a session belongs to and records it in
	// the session. It returns "" for a session that can only work locally.
	ResolveCourseID(ctx context.Context, session *domain.Session) (string, error)
	IssueToken(session *domain.Session) (string, error)
	GetJWTSecret() string
}

// --- Service Implementation ---

// sessionService implements the SessionService interface.
type sessionService struct {
	cache         repository.LocalCache
	store         repository.CourseStore // nil when running without a remote store
	bind          CourseBinder
	validate      *validator.Validate
	defaultCourse string
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewSessionService creates a new instance of sessionService.
func NewSessionService(
	cache repository.LocalCache,
	store repository.CourseStore,
	bind CourseBinder,
	validate *validator.Validate,
	defaultCourse string,
	jwtSecret string,
	jwtExpiration time.Duration,
) SessionService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = 24 * time.Hour
	}
	return &sessionService{
		cache:         cache,
		store:         store,
		bind:          bind,
		validate:      validate,
		defaultCourse: defaultCourse,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *sessionService) Start(ctx context.Context, in SessionInput) (string, *domain.Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	session := &domain.Session{ID: in.ID, Name: in.Name, Role: in.Role, Course: in.Course}

	courseID, err := s.ResolveCourseID(ctx, session)
	if err != nil {
		// Scan failures leave the session local-only for now.
		log.Printf("WARN: Could not resolve course for session '%s': %v", session.ID, err)
	}
	if err := s.cache.SaveSession(session); err != nil {
		return "", nil, fmt.Errorf("save session: %w", err)
	}

	var syncErr error
	if s.bind != nil {
		syncErr = s.bind(ctx, courseID)
	}

	token, err := s.IssueToken(session)
	if err != nil {
		return "", nil, err
	}
	log.Printf("INFO: Session started for %s '%s' on course '%s'", session.Role, session.ID, courseID)
	return token, session, syncErr
}

func (s *sessionService) Current() (*domain.Session, error) {
	session, err := s.cache.LoadSession()
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoSession
	}
	return session, err
}

func (s *sessionService) End() error {
	return s.cache.ClearSession()
}

// ResolveCourseID tries, in order: the session's own course, a remote course
// containing one of the cached subjects (by id, then by name and teacher),
// the configured default, and for instructors a freshly created course.
func (s *sessionService) ResolveCourseID(ctx context.Context, session *domain.Session) (string, error) {
	if session.Course != "" {
		return session.Course, nil
	}

	found, scanErr := s.scanForCourse(ctx)
	switch {
	case found != "":
		log.Printf("INFO: Resolved course '%s' from cached subjects", found)
	case s.defaultCourse != "":
		found = s.defaultCourse
	case session.IsInstructor() && scanErr == nil:
		found = domain.NewCourseID()
		log.Printf("INFO: Created course '%s' for instructor '%s'", found, session.ID)
	}

	session.Course = found
	if found == "" && scanErr != nil {
		return "", fmt.Errorf("%w: %w", ErrCourseUnresolvable, scanErr)
	}
	return found, nil
}

func (s *sessionService) scanForCourse(ctx context.Context) (string, error) {
	if s.store == nil {
		return "", nil
	}
	cached, ok, err := s.cache.LoadSubjects()
	if err != nil || !ok || len(cached) == 0 {
		return "", err
	}
	docs, err := s.store.List(ctx)
	if err != nil {
		return "", err
	}
	return matchCourse(cached, docs), nil
}

// matchCourse returns the first course holding a cached subject, matching
// ids first and then case-insensitive name plus teacher.
func matchCourse(cached []domain.Subject, docs []domain.CourseDocument) string {
	ids := make(map[string]bool, len(cached))
	for _, s := range cached {
		ids[s.ID] = true
	}
	for _, doc := range docs {
		for _, s := range doc.Subjects {
			if ids[s.ID] {
				return doc.CourseID
			}
		}
	}

	type nameKey struct{ name, teacher string }
	names := make(map[nameKey]bool, len(cached))
	for _, s := range cached {
		names[nameKey{strings.ToLower(strings.TrimSpace(s.Name)), strings.ToLower(strings.TrimSpace(s.Teacher))}] = true
	}
	for _, doc := range docs {
		for _, s := range doc.Subjects {
			if names[nameKey{strings.ToLower(strings.TrimSpace(s.Name)), strings.ToLower(strings.TrimSpace(s.Teacher))}] {
				return doc.CourseID
			}
		}
	}
	return ""
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Name   string      `json:"name,omitempty"`
	Role   domain.Role `json:"role"`
	Course string      `json:"course,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken creates a signed token carrying the session record.
func (s *sessionService) IssueToken(session *domain.Session) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID: session.ID,
		Name:   session.Name,
		Role:   session.Role,
		Course: session.Course,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "classroom",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		log.Printf("ERROR: Failed to sign session token: %v", err)
		return "", ErrTokenGeneration
	}
	return signed, nil
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *sessionService) GetJWTSecret() string {
	return s.jwtSecret
}
