package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/kdex/internal/util"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TWICE", "TWICE"},
		{"TOMORROW X TOGETHER", "TOMORROW_X_TOGETHER"},
		{"  (G)I-DLE  ", "G_I-DLE"},
		{"Stray Kids!!!", "Stray_Kids"},
		{"a//b\\c", "a_b_c"},
		{"Cafe\u0301", "Caf\u00e9"},
		{"소녀시대", "소녀시대"},
		{"___", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeName(tt.in), tt.in)
	}
}

func TestMemberBase(t *testing.T) {
	assert.Equal(t, "TWICE_Momo", MemberBase("TWICE", "Momo"))
	assert.Equal(t, "TOMORROW_X_TOGETHER_Huening_Kai", MemberBase("TOMORROW X TOGETHER", "Huening Kai"))
}

func TestNormalizeExt(t *testing.T) {
	for in, want := range map[string]string{".JPG": ".jpg", "png": ".png", ".jpeg": ".jpeg"} {
		got, err := NormalizeExt(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := NormalizeExt(".gif")
	assert.True(t, errors.Is(err, util.ErrUnsupported))
}

func TestSaveWritesRelativePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStoreFs(fs)

	rel, err := s.Save(context.Background(), KindGroup, "TWICE", ".PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "images/groups/TWICE.png", rel)

	data, err := afero.ReadFile(fs, rel)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	exists, err := afero.Exists(fs, rel+".part")
	require.NoError(t, err)
	assert.False(t, exists, "temp file must be renamed away")
}

func TestSaveNeverOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStoreFs(fs)
	ctx := context.Background()

	base := MemberBase("TWICE", "Momo")
	var paths []string
	for _, content := range []string{"one", "two", "three"} {
		rel, err := s.Save(ctx, KindMember, base, "jpg", strings.NewReader(content))
		require.NoError(t, err)
		paths = append(paths, rel)
	}

	assert.Equal(t, []string{
		"images/members/TWICE_Momo.jpg",
		"images/members/TWICE_Momo_1.jpg",
		"images/members/TWICE_Momo_2.jpg",
	}, paths)

	first, err := afero.ReadFile(fs, paths[0])
	require.NoError(t, err)
	assert.Equal(t, "one", string(first))
}

func TestSaveRejectsUnsupportedInput(t *testing.T) {
	s := NewStoreFs(afero.NewMemMapFs())
	ctx := context.Background()

	_, err := s.Save(ctx, KindGroup, "TWICE", ".gif", strings.NewReader("x"))
	assert.True(t, errors.Is(err, util.ErrUnsupported))

	_, err = s.Save(ctx, Kind("albums"), "TWICE", ".jpg", strings.NewReader("x"))
	assert.True(t, errors.Is(err, util.ErrUnsupported))

	_, err = s.Save(ctx, KindGroup, "!!!", ".jpg", strings.NewReader("x"))
	assert.True(t, errors.Is(err, util.ErrValidation))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestSaveCleansUpOnFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStoreFs(fs)

	_, err := s.Save(context.Background(), KindGroup, "TWICE", ".jpg", failingReader{})
	require.Error(t, err)

	entries, err := afero.ReadDir(fs, "images/groups")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveHonoursCancellation(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStoreFs(fs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, KindGroup, "TWICE", ".jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)

	exists, err := afero.Exists(fs, "images/groups/TWICE.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStoreFs(fs)

	rel, err := s.Save(context.Background(), KindGroup, "IVE", ".jpg", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(rel))
	require.NoError(t, s.Remove(rel), "removing a missing file is not an error")

	_, err = s.Open(rel)
	assert.Error(t, err)
}
