package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
)

func mustSource(t *testing.T, table, data string) *Source {
	t.Helper()
	src, err := ReadSource(table, table+".csv", strings.NewReader(data))
	require.NoError(t, err)
	return src
}

func TestReadSourceNormalizesValues(t *testing.T) {
	// decomposed "é" followed by trailing spaces, header padded with spaces
	src := mustSource(t, store.TableGroups, "\ufeff group_name , fandom_name\nCafe\u0301  ,\n,\n")

	require.Len(t, src.Rows, 1, "fully blank rows are dropped")
	assert.Equal(t, []string{"group_name", "fandom_name"}, src.Columns)
	assert.Equal(t, "Caf\u00e9", src.Rows[0].Get("group_name"))
	assert.Equal(t, "", src.Rows[0].Get("fandom_name"))
	assert.Equal(t, "", src.Rows[0].Get("debut_date"))
	assert.Equal(t, 2, src.Rows[0].Line)
}

func TestReadSourceMissingColumn(t *testing.T) {
	_, err := ReadSource(store.TableReleases, "releases.csv",
		strings.NewReader("group_name,release_name\nTWICE,Fancy You\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrValidation))
	assert.Contains(t, err.Error(), `"release_lang"`)
	assert.Contains(t, err.Error(), `"release_type"`)
}

func TestValidateGroupsUnknownCompany(t *testing.T) {
	src := mustSource(t, store.TableGroups, "group_name,company_name\nTWICE,JYP\nIVE,Starship\nSolo,\n")

	_, err := ValidateGroups(src, map[string]int64{"JYP": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Starship"`)
	assert.NotContains(t, err.Error(), `"JYP"`)

	groups, err := ValidateGroups(src, map[string]int64{"JYP": 1, "Starship": 2})
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, int64(2), groups[1].CompanyID.Int64)
	assert.False(t, groups[2].CompanyID.Valid)
}

func TestValidateCollectsAllViolations(t *testing.T) {
	src := mustSource(t, store.TableMemberNationalities,
		"group_name,stage_name,nationality_code\nTWICE,Momo,JP\nTWICE,Tzuyu,TW\nTWICE,,KR\n")

	members := map[store.MemberKey]int64{{Group: "TWICE", StageName: "Momo"}: 1}
	codes := map[string]struct{}{"JP": {}, "KR": {}}

	_, err := ValidateMemberNationalities(src, members, codes)
	require.Error(t, err)

	var ve *store.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Violations, 3)
	assert.Equal(t, "(TWICE, Tzuyu)", ve.Violations[0].Values[0])
	assert.Equal(t, "TW", ve.Violations[1].Values[0])
	assert.Equal(t, "stage_name", ve.Violations[2].Field)
	assert.Equal(t, "line 4", ve.Violations[2].Values[0])
}

func TestValidateSongsResolvesReleaseKey(t *testing.T) {
	src := mustSource(t, store.TableSongs,
		"group_name,release_name,release_type,release_lang,title\n"+
			"TWICE,Fancy You,EP,KR,FANCY\n"+
			"TWICE,Fancy You,EP,JP,FANCY\n"+
			"TWICE,Fancy You,ep,KR,FANCY\n")

	releases := map[store.ReleaseKey]int64{
		{Group: "TWICE", Name: "Fancy You", Type: store.ReleaseEP, Language: store.LanguageKR}: 9,
	}

	_, err := ValidateSongs(src, releases)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(TWICE, Fancy You, EP, JP)")
	assert.Contains(t, err.Error(), `release_type: must be one of ALBUM, EP, SINGLE, SINGLE_ALBUM: "ep"`)

	valid := &Source{Table: src.Table, Rows: src.Rows[:1]}
	songs, err := ValidateSongs(valid, releases)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, int64(9), songs[0].ReleaseID)
}

func TestValidateReleasesRejectsUnknownLanguage(t *testing.T) {
	src := mustSource(t, store.TableReleases,
		"group_name,release_name,release_type,release_lang\n"+
			"TWICE,Fancy You,EP,KR\n"+
			"TWICE,Fancy You,EP,CN\n"+
			"TWICE,#TWICE,ALBUM,kr\n")

	releases, err := ValidateReleases(src, map[string]int64{"TWICE": 1})
	require.Error(t, err)
	assert.Nil(t, releases)
	assert.True(t, errors.Is(err, util.ErrValidation))

	var ve *store.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Violations, 1)
	assert.Equal(t, "release_lang", ve.Violations[0].Field)
	assert.Equal(t, []string{"CN", "kr"}, ve.Violations[0].Values)
	assert.Contains(t, err.Error(), "must be one of KR, JP, EN")
}
