package bolt

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	c, err := Open(path)
	require.NoError(t, err)
	return c, path
}

func TestSubjectsRoundTripAcrossReopen(t *testing.T) {
	c, path := openTemp(t)

	_, ok, err := c.LoadSubjects()
	require.NoError(t, err)
	assert.False(t, ok)

	score := 85.0
	subjects := []domain.Subject{{
		ID:   "s1",
		Name: "Mathematics",
		Assignments: []domain.Assignment{{
			Gradable: domain.Gradable{ID: "a1", Submissions: []domain.Submission{{StudentID: "u1", Score: &score}}},
			Points:   100,
		}},
	}}
	require.NoError(t, c.SaveSubjects(subjects))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	got, ok, err := c.LoadSubjects()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Assignments[0].Submissions[0].Score)
	assert.Equal(t, 85.0, *got[0].Assignments[0].Submissions[0].Score)
}

func TestEmptySubjectListIsStillCached(t *testing.T) {
	c, _ := openTemp(t)
	defer c.Close()

	require.NoError(t, c.SaveSubjects(nil))
	got, ok, err := c.LoadSubjects()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSessionRecord(t *testing.T) {
	c, _ := openTemp(t)
	defer c.Close()

	_, err := c.LoadSession()
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, c.SaveSession(&domain.Session{ID: "u1", Name: "Ada", Role: domain.RoleStudent, Course: "C1"}))
	s, err := c.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "C1", s.Course)
	assert.True(t, s.IsStudent())

	require.NoError(t, c.ClearSession())
	_, err = c.LoadSession()
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
