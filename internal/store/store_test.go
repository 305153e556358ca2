package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/kdex/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedCatalog creates one company with one group, two members and one
// release with two songs
func seedCatalog(t *testing.T, s *Store) (*Company, *Group) {
	t.Helper()

	company := &Company{Name: "BigHit Music", Founder: Text("Bang Si-hyuk")}
	require.NoError(t, s.AddNationality(&Nationality{Code: "KR", Name: Text("Korea")}))
	require.NoError(t, s.AddNationality(&Nationality{Code: "US", Name: Text("United States")}))
	require.NoError(t, s.AddCompany(company))

	group := &Group{
		CompanyID:  NullID(company.ID),
		Name:       "TOMORROW X TOGETHER",
		DebutDate:  Text("2019-03-04"),
		FandomName: Text("MOA"),
	}
	require.NoError(t, s.AddGroup(group))

	require.NoError(t, s.AddMember(&Member{GroupID: group.ID, StageName: "Yeonjun", Nationalities: []string{"KR"}}))
	require.NoError(t, s.AddMember(&Member{GroupID: group.ID, StageName: "Huening Kai", Nationalities: []string{"KR", "US"}}))

	release := &Release{GroupID: group.ID, Name: "The Dream Chapter: STAR", Type: ReleaseEP, Language: LanguageKR}
	require.NoError(t, s.AddRelease(release))
	require.NoError(t, s.AddSong(&Song{ReleaseID: release.ID, Title: "Crown"}))
	require.NoError(t, s.AddSong(&Song{ReleaseID: release.ID, Title: "Blue Orangeade"}))

	return company, group
}

func TestStoreOpenAndMigrate(t *testing.T) {
	s := openTestStore(t)

	version, err := s.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	for _, table := range append([]string{"schema_version"}, ImportOrder...) {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "expected table %s to exist", table)
	}

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestStoreReopenIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.AddCompany(&Company{Name: "JYP Entertainment"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Initialize(false))
	counts, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Get(TableCompanies))
}

func TestInitializeWipeResetsIdentity(t *testing.T) {
	s := openTestStore(t)
	seedCatalog(t, s)

	require.NoError(t, s.Initialize(true))

	counts, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Total())

	c := &Company{Name: "SM Entertainment"}
	require.NoError(t, s.AddCompany(c))
	assert.Equal(t, int64(1), c.ID)
}

func TestDuplicateKeysAreIntegrityViolations(t *testing.T) {
	s := openTestStore(t)
	company, group := seedCatalog(t, s)
	releases, err := s.ListReleasesForGroup(group.ID)
	require.NoError(t, err)
	require.Len(t, releases, 1)

	tests := []struct {
		name  string
		table string
		add   func() error
	}{
		{"company name", TableCompanies, func() error {
			return s.AddCompany(&Company{Name: company.Name})
		}},
		{"group name", TableGroups, func() error {
			return s.AddGroup(&Group{Name: group.Name})
		}},
		{"stage name within group", TableMembers, func() error {
			return s.AddMember(&Member{GroupID: group.ID, StageName: "Yeonjun"})
		}},
		{"release key", TableReleases, func() error {
			return s.AddRelease(&Release{GroupID: group.ID, Name: "The Dream Chapter: STAR", Type: ReleaseEP, Language: LanguageKR})
		}},
		{"song title within release", TableSongs, func() error {
			return s.AddSong(&Song{ReleaseID: releases[0].ID, Title: "Crown"})
		}},
		{"nationality code", TableNationalities, func() error {
			return s.AddNationality(&Nationality{Code: "KR"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := s.TableCounts()
			require.NoError(t, err)

			err = tt.add()
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrIntegrity), "got %v", err)

			var ie *IntegrityError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, KindUnique, ie.Kind)
			assert.Equal(t, tt.table, ie.Table)
			assert.Contains(t, ie.Error(), "duplicate")

			after, err := s.TableCounts()
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestSameReleaseNameDifferentLanguageIsAllowed(t *testing.T) {
	s := openTestStore(t)
	_, group := seedCatalog(t, s)

	err := s.AddRelease(&Release{GroupID: group.ID, Name: "The Dream Chapter: STAR", Type: ReleaseEP, Language: LanguageJP})
	assert.NoError(t, err)
}

func TestDeleteGroupCascades(t *testing.T) {
	s := openTestStore(t)
	_, group := seedCatalog(t, s)

	deps, err := s.GroupDependents(group.ID)
	require.NoError(t, err)
	assert.Equal(t, Dependents{Members: 2, Releases: 1, Songs: 2, Nationalities: 3}, deps)

	require.NoError(t, s.DeleteGroup(group.ID))

	counts, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Get(TableGroups))
	assert.Equal(t, 0, counts.Get(TableMembers))
	assert.Equal(t, 0, counts.Get(TableMemberNationalities))
	assert.Equal(t, 0, counts.Get(TableReleases))
	assert.Equal(t, 0, counts.Get(TableSongs))
	assert.Equal(t, 2, counts.Get(TableNationalities))

	problems, err := s.CheckForeignKeys()
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestDeleteCompanyClearsGroupReference(t *testing.T) {
	s := openTestStore(t)
	company, group := seedCatalog(t, s)

	require.NoError(t, s.DeleteCompany(company.ID))

	got, err := s.GetGroup(group.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.CompanyID.Valid)
	assert.False(t, got.CompanyName.Valid)
}

func TestGroupRoundTrip(t *testing.T) {
	s := openTestStore(t)

	g := &Group{Name: "LE SSERAFIM", DebutDate: Text("2022-05-02"), FandomName: Text("MOA")}
	require.NoError(t, s.AddGroup(g))

	got, err := s.GetGroup(g.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2022-05-02", got.DebutDate.String)
	assert.Equal(t, "MOA", got.FandomName.String)
	assert.False(t, got.CompanyID.Valid)
	assert.False(t, got.ImagePath.Valid)
}

func TestSearchMembersByNationality(t *testing.T) {
	s := openTestStore(t)
	seedCatalog(t, s)

	// an unaffiliated group whose member also holds KR
	solo := &Group{Name: "Solo Project"}
	require.NoError(t, s.AddGroup(solo))
	require.NoError(t, s.AddMember(&Member{GroupID: solo.ID, StageName: "IU", Nationalities: []string{"KR"}}))
	require.NoError(t, s.AddMember(&Member{GroupID: solo.ID, StageName: "Nobody"}))

	members, err := s.SearchMembers(MemberFilter{Nationality: "KR"})
	require.NoError(t, err)

	var names []string
	for _, m := range members {
		names = append(names, m.StageName)
		assert.Contains(t, m.Nationalities, "KR")
	}
	assert.ElementsMatch(t, []string{"Yeonjun", "Huening Kai", "IU"}, names)

	us, err := s.SearchMembers(MemberFilter{Nationality: "US"})
	require.NoError(t, err)
	require.Len(t, us, 1)
	assert.Equal(t, []string{"KR", "US"}, us[0].Nationalities)
}

func TestSearchGroups(t *testing.T) {
	s := openTestStore(t)
	seedCatalog(t, s)
	require.NoError(t, s.AddGroup(&Group{Name: "100%_Real"}))

	byName, err := s.SearchGroups(GroupFilter{Name: "together"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "BigHit Music", byName[0].CompanyName.String)

	literal, err := s.SearchGroups(GroupFilter{Name: "%_"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "100%_Real", literal[0].Name)

	byCompany, err := s.SearchGroups(GroupFilter{Company: "BigHit Music"})
	require.NoError(t, err)
	assert.Len(t, byCompany, 1)

	unaffiliated, err := s.SearchGroups(GroupFilter{Unaffiliated: true})
	require.NoError(t, err)
	require.Len(t, unaffiliated, 1)
	assert.Equal(t, "100%_Real", unaffiliated[0].Name)
}

func TestSearchSongs(t *testing.T) {
	s := openTestStore(t)
	seedCatalog(t, s)

	hits, err := s.SearchSongs(SongFilter{Title: "crown"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "TOMORROW X TOGETHER", hits[0].GroupName)
	assert.Equal(t, ReleaseEP, hits[0].ReleaseType)

	none, err := s.SearchSongs(SongFilter{Language: LanguageJP})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestGetGroupDetail(t *testing.T) {
	s := openTestStore(t)
	_, group := seedCatalog(t, s)

	d, err := s.GetGroupDetail(group.ID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 2, d.MemberCount)
	assert.Equal(t, 1, d.ReleaseCount)
	assert.Equal(t, 2, d.SongCount)
	assert.Equal(t, "BigHit Music", d.CompanyName.String)

	missing, err := s.GetGroupDetail(999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetMemberDetail(t *testing.T) {
	s := openTestStore(t)
	_, group := seedCatalog(t, s)

	members, err := s.ListMembersForGroup(group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Huening Kai", members[0].StageName)

	d, err := s.GetMemberDetail(members[0].ID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "TOMORROW X TOGETHER", d.GroupName)
	assert.Equal(t, "BigHit Music", d.CompanyName.String)
	assert.Equal(t, []string{"KR", "US"}, d.Nationalities)
}

func TestWritesWithMissingParentAreValidationErrors(t *testing.T) {
	s := openTestStore(t)

	err := s.AddMember(&Member{GroupID: 42, StageName: "Ghost"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrValidation))
	assert.True(t, errors.Is(err, util.ErrNotFound))
	assert.False(t, errors.Is(err, util.ErrIntegrity))

	err = s.UpdateCompany(&Company{ID: 7, Name: "Nobody"})
	assert.True(t, errors.Is(err, util.ErrNotFound))

	err = s.DeleteSong(3)
	assert.True(t, errors.Is(err, util.ErrNotFound))
}

func TestAddReleaseRejectsInvalidEnum(t *testing.T) {
	s := openTestStore(t)
	_, group := seedCatalog(t, s)

	err := s.AddRelease(&Release{GroupID: group.ID, Name: "Live in Seoul", Type: "LIVE", Language: LanguageKR})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrValidation))
	assert.Contains(t, err.Error(), `"LIVE"`)

	counts, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Get(TableReleases))
}

func TestCheckConstraintIsIntegrityViolation(t *testing.T) {
	s := openTestStore(t)
	_, group := seedCatalog(t, s)

	// bypass Go-side validation to reach the CHECK constraint
	err := s.Transaction(func(tx *Tx) error {
		_, err := tx.InsertRelease(&Release{GroupID: group.ID, Name: "Live", Type: "LIVE", Language: LanguageKR}, false)
		return err
	})
	require.Error(t, err)

	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, KindCheck, ie.Kind)
}

func TestUpdateMemberReplacesNationalities(t *testing.T) {
	s := openTestStore(t)
	_, group := seedCatalog(t, s)

	members, err := s.SearchMembers(MemberFilter{StageName: "kai"})
	require.NoError(t, err)
	require.Len(t, members, 1)

	m := members[0]
	m.Nationalities = []string{"US"}
	m.RealName = Text("Kai Kamal Huening")
	require.NoError(t, s.UpdateMember(&m))

	got, err := s.GetMember(m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"US"}, got.Nationalities)
	assert.Equal(t, "Kai Kamal Huening", got.RealName.String)
	assert.Equal(t, group.ID, got.GroupID)

	err = s.SetMemberNationalities(m.ID, []string{"XX"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"XX"`)
}

func TestDeleteByParent(t *testing.T) {
	s := openTestStore(t)
	_, group := seedCatalog(t, s)

	releases, err := s.ListReleasesForGroup(group.ID)
	require.NoError(t, err)
	require.Len(t, releases, 1)

	n, err := s.DeleteSongsByRelease(releases[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.DeleteReleasesByGroup(group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteMembersByGroup(group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Get(TableGroups))
	assert.Equal(t, 0, counts.Get(TableMemberNationalities))
}

func TestReadsOfMissingRowsReturnNil(t *testing.T) {
	s := openTestStore(t)

	c, err := s.GetCompany(1)
	assert.NoError(t, err)
	assert.Nil(t, c)

	m, err := s.GetMember(1)
	assert.NoError(t, err)
	assert.Nil(t, m)

	songs, err := s.ListSongsForRelease(1)
	assert.NoError(t, err)
	assert.Empty(t, songs)
}

func TestInsertOrIgnoreSkipsDuplicates(t *testing.T) {
	s := openTestStore(t)

	err := s.Transaction(func(tx *Tx) error {
		ok, err := tx.InsertCompany(&Company{Name: "ADOR"}, true)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.InsertCompany(&Company{Name: "ADOR"}, true)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	counts, err := s.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Get(TableCompanies))
}

func TestNewViolationPreview(t *testing.T) {
	values := []string{"m", "l", "k", "j", "i", "h", "g", "f", "e", "d", "c", "b", "a", "a"}
	v := NewViolation("group_name", "unknown group", values)

	assert.Equal(t, 13, v.Total)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}, v.Values)
	assert.Contains(t, v.String(), "(13 distinct)")
}

func TestSearchFoldsUnicodeCase(t *testing.T) {
	s := openTestStore(t)
	_, group := seedCatalog(t, s)
	require.NoError(t, s.AddGroup(&Group{Name: "Épik High"}))
	require.NoError(t, s.AddGroup(&Group{Name: "ΑΩ Σ"}))
	require.NoError(t, s.AddMember(&Member{GroupID: group.ID, StageName: "BEOMGYU"}))

	for _, q := range []string{"épik", "ÉPIK", "E\u0301pik"} {
		groups, err := s.SearchGroups(GroupFilter{Name: q})
		require.NoError(t, err)
		require.Len(t, groups, 1, "query %q", q)
		assert.Equal(t, "Épik High", groups[0].Name)
	}

	greek, err := s.SearchGroups(GroupFilter{Name: "ωσ"})
	require.NoError(t, err)
	assert.Empty(t, greek)
	greek, err = s.SearchGroups(GroupFilter{Name: "ω σ"})
	require.NoError(t, err)
	assert.Len(t, greek, 1)

	members, err := s.SearchMembers(MemberFilter{StageName: "beom"})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "BEOMGYU", members[0].StageName)
}

func TestListsSortIgnoringCase(t *testing.T) {
	s := openTestStore(t)
	for _, name := range []string{"TWICE", "aespa", "ITZY"} {
		require.NoError(t, s.AddGroup(&Group{Name: name}))
		require.NoError(t, s.AddCompany(&Company{Name: name + " Entertainment"}))
	}

	groups, err := s.ListGroups()
	require.NoError(t, err)
	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"aespa", "ITZY", "TWICE"}, names)

	companies, err := s.ListCompanies()
	require.NoError(t, err)
	require.Len(t, companies, 3)
	assert.Equal(t, "aespa Entertainment", companies[0].Name)
}

func TestFold(t *testing.T) {
	assert.Equal(t, Fold("épik"), Fold("ÉPIK"))
	assert.Equal(t, Fold("Caf\u00e9"), Fold("CAFE\u0301"))
	assert.Equal(t, "소녀시대", Fold("소녀시대"))
}
