package domain

// Role type to distinguish between session roles
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Session is the lightweight signed-in identity kept in the local cache.
// Course is the course document this identity is bound to; empty means
// the session works against the local cache only.
type Session struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Course string `json:"course,omitempty"`
}

func (s *Session) IsInstructor() bool {
	return s.Role == RoleInstructor
}

func (s *Session) IsStudent() bool {
	return s.Role == RoleStudent
}

// DisplayName falls back to the id when no name was recorded.
func (s *Session) DisplayName() string {
	if s.Name == "" {
		return s.ID
	}
	return s.Name
}
