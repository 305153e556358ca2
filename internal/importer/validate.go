package importer

import (
	"fmt"
	"strings"

	"github.com/franz/kdex/internal/store"
)

// Link is a resolved member_nationalities row
type Link struct {
	MemberID int64
	Code     string
}

// checker accumulates offending values per rule so that every problem in a
// file is reported at once
type checker struct {
	order  []string
	values map[string][]string
	rules  map[string]store.Violation
}

func newChecker() *checker {
	return &checker{values: make(map[string][]string), rules: make(map[string]store.Violation)}
}

func (c *checker) add(field, reason string, notFound bool, value string) {
	key := field + "\x00" + reason
	if _, ok := c.rules[key]; !ok {
		c.order = append(c.order, key)
		c.rules[key] = store.Violation{Field: field, Reason: reason, NotFound: notFound}
	}
	c.values[key] = append(c.values[key], value)
}

// require records a missing-value violation for every listed column that
// is blank in row and reports whether all were present
func (c *checker) require(row Row, columns ...string) bool {
	ok := true
	for _, col := range columns {
		if row.Get(col) == "" {
			c.add(col, "missing required value", false, fmt.Sprintf("line %d", row.Line))
			ok = false
		}
	}
	return ok
}

func (c *checker) err(table string) error {
	if len(c.order) == 0 {
		return nil
	}
	violations := make([]store.Violation, 0, len(c.order))
	for _, key := range c.order {
		rule := c.rules[key]
		v := store.NewViolation(rule.Field, rule.Reason, c.values[key])
		v.NotFound = rule.NotFound
		violations = append(violations, v)
	}
	return &store.ValidationError{Entity: table, Violations: violations}
}

func enumReason(allowed []string) string {
	return "must be one of " + strings.Join(allowed, ", ")
}

// ValidateCompanies converts company rows
func ValidateCompanies(src *Source) ([]store.Company, error) {
	c := newChecker()
	out := make([]store.Company, 0, len(src.Rows))
	for _, row := range src.Rows {
		if !c.require(row, "company_name") {
			continue
		}
		out = append(out, store.Company{
			Name:        row.Get("company_name"),
			Founder:     store.Text(row.Get("founder")),
			FoundedDate: store.Text(row.Get("founded_date")),
		})
	}
	if err := c.err(src.Table); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateGroups converts group rows, resolving company_name against
// companies. A blank company_name leaves the group unaffiliated; a name
// that matches no company is a violation.
func ValidateGroups(src *Source, companies map[string]int64) ([]store.Group, error) {
	c := newChecker()
	out := make([]store.Group, 0, len(src.Rows))
	for _, row := range src.Rows {
		if !c.require(row, "group_name") {
			continue
		}
		g := store.Group{
			Name:       row.Get("group_name"),
			DebutDate:  store.Text(row.Get("debut_date")),
			FandomName: store.Text(row.Get("fandom_name")),
			ImagePath:  store.Text(row.Get("image_path")),
		}
		if name := row.Get("company_name"); name != "" {
			id, ok := companies[name]
			if !ok {
				c.add("company_name", "unknown company", true, name)
				continue
			}
			g.CompanyID = store.NullID(id)
		}
		out = append(out, g)
	}
	if err := c.err(src.Table); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateMembers converts member rows, resolving group_name against groups
func ValidateMembers(src *Source, groups map[string]int64) ([]store.Member, error) {
	c := newChecker()
	out := make([]store.Member, 0, len(src.Rows))
	for _, row := range src.Rows {
		if !c.require(row, "group_name", "stage_name") {
			continue
		}
		groupID, ok := groups[row.Get("group_name")]
		if !ok {
			c.add("group_name", "unknown group", true, row.Get("group_name"))
			continue
		}
		out = append(out, store.Member{
			GroupID:   groupID,
			StageName: row.Get("stage_name"),
			RealName:  store.Text(row.Get("real_name")),
			BirthDate: store.Text(row.Get("birth_date")),
			ImagePath: store.Text(row.Get("image_path")),
		})
	}
	if err := c.err(src.Table); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateNationalities converts nationality rows
func ValidateNationalities(src *Source) ([]store.Nationality, error) {
	c := newChecker()
	out := make([]store.Nationality, 0, len(src.Rows))
	for _, row := range src.Rows {
		if !c.require(row, "nationality_code") {
			continue
		}
		out = append(out, store.Nationality{
			Code: row.Get("nationality_code"),
			Name: store.Text(row.Get("nationality_name")),
		})
	}
	if err := c.err(src.Table); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateMemberNationalities resolves (group_name, stage_name) against
// members and checks every code against the known nationalities
func ValidateMemberNationalities(src *Source, members map[store.MemberKey]int64, codes map[string]struct{}) ([]Link, error) {
	c := newChecker()
	out := make([]Link, 0, len(src.Rows))
	for _, row := range src.Rows {
		if !c.require(row, "group_name", "stage_name", "nationality_code") {
			continue
		}
		key := store.MemberKey{Group: row.Get("group_name"), StageName: row.Get("stage_name")}
		memberID, memberOK := members[key]
		if !memberOK {
			c.add("group_name, stage_name", "unknown member", true,
				fmt.Sprintf("(%s, %s)", key.Group, key.StageName))
		}
		code := row.Get("nationality_code")
		_, codeOK := codes[code]
		if !codeOK {
			c.add("nationality_code", "unknown nationality", true, code)
		}
		if memberOK && codeOK {
			out = append(out, Link{MemberID: memberID, Code: code})
		}
	}
	if err := c.err(src.Table); err != nil {
		return nil, err
	}
	return out, nil
}

// releaseKey checks the release columns of row and returns its natural
// key; ok is false when a value is missing or not an accepted literal
func releaseKey(c *checker, row Row) (store.ReleaseKey, bool) {
	if !c.require(row, "group_name", "release_name", "release_type", "release_lang") {
		return store.ReleaseKey{}, false
	}
	key := store.ReleaseKey{
		Group:    row.Get("group_name"),
		Name:     row.Get("release_name"),
		Type:     store.ReleaseType(row.Get("release_type")),
		Language: store.Language(row.Get("release_lang")),
	}
	ok := true
	if !key.Type.Valid() {
		c.add("release_type", enumReason(store.ReleaseTypeNames()), false, string(key.Type))
		ok = false
	}
	if !key.Language.Valid() {
		c.add("release_lang", enumReason(store.LanguageNames()), false, string(key.Language))
		ok = false
	}
	return key, ok
}

// ValidateReleases converts release rows, checking the enumerated columns
// and resolving group_name against groups
func ValidateReleases(src *Source, groups map[string]int64) ([]store.Release, error) {
	c := newChecker()
	out := make([]store.Release, 0, len(src.Rows))
	for _, row := range src.Rows {
		key, ok := releaseKey(c, row)
		groupID, groupOK := groups[key.Group]
		if key.Group != "" && !groupOK {
			c.add("group_name", "unknown group", true, key.Group)
		}
		if !ok || !groupOK {
			continue
		}
		out = append(out, store.Release{
			GroupID:  groupID,
			Name:     key.Name,
			Type:     key.Type,
			Language: key.Language,
			Date:     store.Text(row.Get("release_date")),
		})
	}
	if err := c.err(src.Table); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateSongs converts song rows, resolving (group_name, release_name,
// release_type, release_lang) against releases
func ValidateSongs(src *Source, releases map[store.ReleaseKey]int64) ([]store.Song, error) {
	c := newChecker()
	out := make([]store.Song, 0, len(src.Rows))
	for _, row := range src.Rows {
		key, ok := releaseKey(c, row)
		titleOK := c.require(row, "title")
		if !ok {
			continue
		}
		releaseID, found := releases[key]
		if !found {
			c.add("release", "unknown release", true,
				fmt.Sprintf("(%s, %s, %s, %s)", key.Group, key.Name, key.Type, key.Language))
			continue
		}
		if !titleOK {
			continue
		}
		out = append(out, store.Song{
			ReleaseID:  releaseID,
			Title:      row.Get("title"),
			YouTubeURL: store.Text(row.Get("youtube_url")),
		})
	}
	if err := c.err(src.Table); err != nil {
		return nil, err
	}
	return out, nil
}
