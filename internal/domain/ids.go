package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID returns a lexically sortable id for subjects and items.
// ulid.Make is monotonic within a process, so ids created in the same
// millisecond still sort in creation order.
func NewID() string {
	return strings.ToLower(ulid.Make().String())
}

// NewCourseID returns the key of a freshly created course document.
func NewCourseID() string {
	return uuid.NewString()
}
