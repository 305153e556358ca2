package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/kdex/internal/report"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
)

var fixture = map[string]string{
	store.TableCompanies: `company_name,founder,founded_date
HYBE,Bang Si-hyuk,2005-02-01
JYP Entertainment,Park Jin-young,1997-04-25
`,
	store.TableGroups: `group_name,company_name,debut_date,fandom_name
TOMORROW X TOGETHER,HYBE,2019-03-04,MOA
TWICE,JYP Entertainment,2015-10-20,ONCE
Indie Act,,,
`,
	store.TableMembers: `group_name,stage_name,real_name,birth_date
TOMORROW X TOGETHER,Yeonjun,Choi Yeon-jun,1999-09-13
TOMORROW X TOGETHER,Huening Kai,,2002-08-14
TWICE,Nayeon,Im Na-yeon,1995-09-22
TWICE,Momo,Hirai Momo,1996-11-09
`,
	store.TableNationalities: `nationality_code,nationality_name
KR,South Korea
JP,Japan
US,United States
`,
	store.TableMemberNationalities: `group_name,stage_name,nationality_code
TOMORROW X TOGETHER,Yeonjun,KR
TOMORROW X TOGETHER,Huening Kai,KR
TOMORROW X TOGETHER,Huening Kai,US
TWICE,Nayeon,KR
TWICE,Momo,JP
`,
	store.TableReleases: `group_name,release_name,release_type,release_lang,release_date
TOMORROW X TOGETHER,The Dream Chapter: STAR,EP,KR,2019-03-04
TWICE,Fancy You,EP,KR,2019-04-22
TWICE,#TWICE,ALBUM,JP,2017-06-28
`,
	store.TableSongs: `group_name,release_name,release_type,release_lang,title,youtube_url
TOMORROW X TOGETHER,The Dream Chapter: STAR,EP,KR,Crown,
TOMORROW X TOGETHER,The Dream Chapter: STAR,EP,KR,Blue Orangeade,
TWICE,Fancy You,EP,KR,FANCY,https://youtu.be/kOHB85vDuow
TWICE,#TWICE,ALBUM,JP,Signal (Japanese ver.),
`,
}

func writeFixture(t *testing.T, overrides map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for table, content := range fixture {
		if o, ok := overrides[table]; ok {
			content = o
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName(table)), []byte(content), 0644))
	}
	return dir
}

func newTestImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kpop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger, err := report.NewEventLogger(t.TempDir(), report.LevelDebug)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	return New(&Config{Store: s, Logger: logger}), s
}

func runImport(t *testing.T, im *Importer, dir string, opts RunOptions) (*Result, error) {
	t.Helper()
	sources, err := LoadSources(context.Background(), dir)
	require.NoError(t, err)
	return im.Run(context.Background(), sources, opts)
}

func TestRunImportsAllTables(t *testing.T) {
	im, s := newTestImporter(t)

	result, err := runImport(t, im, writeFixture(t, nil), RunOptions{})
	require.NoError(t, err)

	want := map[string]int{
		store.TableCompanies:           2,
		store.TableGroups:              3,
		store.TableMembers:             4,
		store.TableNationalities:       3,
		store.TableMemberNationalities: 5,
		store.TableReleases:            3,
		store.TableSongs:               4,
	}
	for table, n := range want {
		assert.Equal(t, n, result.Counts.Get(table), table)
	}
	require.Len(t, result.Tables, len(store.ImportOrder))
	for _, tr := range result.Tables {
		assert.Equal(t, tr.Read, tr.Inserted, tr.Table)
		assert.Zero(t, tr.Skipped, tr.Table)
	}

	groups, err := s.SearchGroups(store.GroupFilter{Unaffiliated: true})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Indie Act", groups[0].Name)
	assert.False(t, groups[0].DebutDate.Valid, "blank cells must be stored as absent")
}

func TestRunIsIdempotent(t *testing.T) {
	im, s := newTestImporter(t)
	dir := writeFixture(t, nil)

	_, err := runImport(t, im, dir, RunOptions{})
	require.NoError(t, err)
	before, err := s.TableCounts()
	require.NoError(t, err)

	result, err := runImport(t, im, dir, RunOptions{})
	require.NoError(t, err)

	after, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	for _, tr := range result.Tables {
		assert.Zero(t, tr.Inserted, tr.Table)
		assert.Equal(t, tr.Read, tr.Skipped, tr.Table)
	}
}

func TestRunWithWipeReplacesData(t *testing.T) {
	im, s := newTestImporter(t)
	require.NoError(t, s.AddCompany(&store.Company{Name: "Stale Label"}))

	result, err := runImport(t, im, writeFixture(t, nil), RunOptions{Wipe: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Counts.Get(store.TableCompanies))

	companies, err := s.ListCompanies()
	require.NoError(t, err)
	assert.Equal(t, int64(1), companies[0].ID, "identity counters are reset by the wipe")
	for _, c := range companies {
		assert.NotEqual(t, "Stale Label", c.Name)
	}
}

func TestRunFailsOnUnknownGroup(t *testing.T) {
	im, s := newTestImporter(t)
	dir := writeFixture(t, map[string]string{
		store.TableMembers: `group_name,stage_name
TWICE,Nayeon
aespa,Karina
aespa,Winter
`,
	})

	_, err := runImport(t, im, dir, RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrValidation))
	assert.True(t, errors.Is(err, util.ErrNotFound))
	assert.Contains(t, err.Error(), `"aespa"`)

	var ve *store.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, store.TableMembers, ve.Entity)
	require.Len(t, ve.Violations, 1)
	assert.Equal(t, 1, ve.Violations[0].Total)

	// the whole run is rolled back, not only the members
	counts, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Total())
}

func TestRunRejectsInvalidReleaseType(t *testing.T) {
	im, s := newTestImporter(t)
	dir := writeFixture(t, map[string]string{
		store.TableReleases: `group_name,release_name,release_type,release_lang,release_date
TWICE,Fancy You,EP,KR,2019-04-22
TWICE,Live in Seoul,LIVE,KR,
`,
	})

	_, err := runImport(t, im, dir, RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrValidation))
	assert.Contains(t, err.Error(), "release_type")
	assert.Contains(t, err.Error(), `"LIVE"`)

	counts, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Get(store.TableReleases))
}

func TestLoadSourcesReportsEveryProblem(t *testing.T) {
	dir := writeFixture(t, map[string]string{
		store.TableMembers: "group_name,real_name\nTWICE,Im Na-yeon\n",
	})
	require.NoError(t, os.Remove(filepath.Join(dir, FileName(store.TableSongs))))

	_, err := LoadSources(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrValidation))
	assert.Contains(t, err.Error(), "stage_name")
	assert.Contains(t, err.Error(), "songs.csv")
}

func TestImportTableNeedsParents(t *testing.T) {
	im, s := newTestImporter(t)

	src, err := ReadSource(store.TableMembers, "members.csv", strings.NewReader(fixture[store.TableMembers]))
	require.NoError(t, err)

	_, err = im.ImportTable(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"TWICE"`)

	groups, err := ReadSource(store.TableGroups, "groups.csv", strings.NewReader("group_name\nTWICE\nTOMORROW X TOGETHER\n"))
	require.NoError(t, err)
	tr, err := im.ImportTable(context.Background(), groups)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Inserted)

	tr, err = im.ImportTable(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 4, tr.Inserted)

	members, err := s.SearchMembers(store.MemberFilter{Group: "TWICE"})
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestRunRejectsMissingSource(t *testing.T) {
	im, _ := newTestImporter(t)
	_, err := im.Run(context.Background(), Sources{}, RunOptions{})
	assert.Error(t, err)
}

func TestRunHonoursCancellation(t *testing.T) {
	im, s := newTestImporter(t)
	sources, err := LoadSources(context.Background(), writeFixture(t, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = im.Run(ctx, sources, RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)

	counts, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Total())
}

func TestRunWritesEvents(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "kpop.db"))
	require.NoError(t, err)
	defer s.Close()

	logDir := t.TempDir()
	logger, err := report.NewEventLogger(logDir, report.LevelInfo)
	require.NoError(t, err)

	im := New(&Config{Store: s, Logger: logger})
	_, err = runImport(t, im, writeFixture(t, nil), RunOptions{})
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	events, err := report.ReadEvents(logger.Path())
	require.NoError(t, err)

	imports := 0
	for _, e := range events {
		if e.Event == report.EventImport {
			imports++
		}
	}
	assert.Equal(t, len(store.ImportOrder), imports)
	assert.Equal(t, report.EventCommit, events[len(events)-1].Event)
}

func TestManyUnknownGroupsArePreviewed(t *testing.T) {
	var b strings.Builder
	b.WriteString("group_name,stage_name\n")
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "Group %02d,Member\n", i)
	}
	src, err := ReadSource(store.TableMembers, "members.csv", strings.NewReader(b.String()))
	require.NoError(t, err)

	_, err = ValidateMembers(src, map[string]int64{})
	require.Error(t, err)

	var ve *store.ValidationError
	require.True(t, errors.As(err, &ve))
	v := ve.Violations[0]
	assert.Equal(t, 15, v.Total)
	assert.Len(t, v.Values, 10)
	assert.Equal(t, "Group 00", v.Values[0])
	assert.Contains(t, err.Error(), "(15 distinct)")
}
