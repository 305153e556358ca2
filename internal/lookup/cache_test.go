package lookup

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
)

type countingSource struct {
	calls  int
	groups []store.Group
	err    error
}

func (s *countingSource) ListCompanies() ([]store.Company, error) {
	s.calls++
	return []store.Company{{ID: 1, Name: "JYP Entertainment"}}, s.err
}

func (s *countingSource) ListGroups() ([]store.Group, error) {
	s.calls++
	return s.groups, s.err
}

func (s *countingSource) ListNationalities() ([]store.Nationality, error) {
	s.calls++
	return nil, s.err
}

func TestCacheMemoizes(t *testing.T) {
	src := &countingSource{groups: []store.Group{{ID: 3, Name: "TWICE"}}}
	c := New(src)

	for i := 0; i < 3; i++ {
		groups, err := c.Groups()
		require.NoError(t, err)
		require.Len(t, groups, 1)
	}
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, Stats{Hits: 2, Misses: 1}, c.Stats())

	// an empty list is cached too
	_, err := c.Nationalities()
	require.NoError(t, err)
	_, err = c.Nationalities()
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)

	c.Invalidate()
	_, err = c.Groups()
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestCacheDoesNotKeepErrors(t *testing.T) {
	src := &countingSource{err: errors.New("database is locked")}
	c := New(src)

	_, err := c.Groups()
	require.Error(t, err)

	src.err = nil
	src.groups = []store.Group{{ID: 1, Name: "IVE"}}
	groups, err := c.Groups()
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestResolveNames(t *testing.T) {
	src := &countingSource{groups: []store.Group{
		{ID: 1, Name: "TWICE"},
		{ID: 2, Name: "ive"},
		{ID: 3, Name: "IVE"},
		{ID: 4, Name: "2NE1"},
		{ID: 5, Name: "Stray Kids"},
	}}
	c := New(src)

	tests := []struct {
		ref     string
		want    int64
		wantErr error
	}{
		{"TWICE", 1, nil},
		{"twice", 1, nil},
		{"IVE", 3, nil},
		{"Ive", 0, util.ErrValidation},
		{"stray kids", 5, nil},
		{"2NE1", 4, nil},
		{"5", 5, nil},
		{"42", 0, util.ErrNotFound},
		{"aespa", 0, util.ErrNotFound},
		{" ", 0, util.ErrValidation},
	}

	for _, tt := range tests {
		got, err := c.GroupID(tt.ref)
		if tt.wantErr != nil {
			assert.True(t, errors.Is(err, tt.wantErr), "%q: %v", tt.ref, err)
			continue
		}
		require.NoError(t, err, tt.ref)
		assert.Equal(t, tt.want, got, tt.ref)
	}

	id, err := c.CompanyID("jyp entertainment")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestCacheOverStore(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "kpop.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddNationality(&store.Nationality{Code: "KR", Name: store.Text("South Korea")}))
	c := New(s)

	code, err := c.NationalityCode(" kr ")
	require.NoError(t, err)
	assert.Equal(t, "KR", code)

	_, err = c.NationalityCode("JP")
	assert.True(t, errors.Is(err, util.ErrNotFound))

	require.NoError(t, s.AddNationality(&store.Nationality{Code: "JP", Name: store.Text("Japan")}))
	_, err = c.NationalityCode("JP")
	assert.Error(t, err, "stale until invalidated")

	c.Invalidate()
	_, err = c.NationalityCode("JP")
	assert.NoError(t, err)
}

func TestSuggest(t *testing.T) {
	names := []string{"TWICE", "TOMORROW X TOGETHER", "Stray Kids", "IVE"}

	assert.Equal(t, []string{"TWICE"}, Suggest("twc", names, 3))
	assert.Equal(t, []string{"Stray Kids"}, Suggest("straykids", names, 3))
	assert.Empty(t, Suggest("aespa", names, 3))

	c := New(&countingSource{groups: []store.Group{{ID: 1, Name: "TWICE"}}})
	_, err := c.GroupID("twic")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrNotFound))
	assert.Contains(t, err.Error(), `did you mean "TWICE"`)
}
