package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/franz/kdex/internal/report"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
)

// testCatalog points the event log at a temp dir and returns a fresh
// database path
func testCatalog(t *testing.T) (dbPath, eventsDir string) {
	t.Helper()
	eventsDir = t.TempDir()
	viper.Set("events", eventsDir)
	t.Cleanup(func() { viper.Set("events", defaults.Events) })
	return filepath.Join(t.TempDir(), "kpop.db"), eventsDir
}

func runKdex(t *testing.T, args ...string) error {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func writeEvents(t *testing.T, dir string) []report.Event {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "events-*.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	var writes []report.Event
	for _, p := range paths {
		events, err := report.ReadEvents(p)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range events {
			if e.Event == report.EventWrite {
				writes = append(writes, e)
			}
		}
	}
	return writes
}

func TestAddDuplicateCompanyIsIntegrityError(t *testing.T) {
	dbPath, eventsDir := testCatalog(t)

	if err := runKdex(t, "--db", dbPath, "add", "company", "SM Entertainment"); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	err := runKdex(t, "--db", dbPath, "add", "company", "SM Entertainment")
	if err == nil {
		t.Fatal("expected duplicate company name to fail")
	}
	if !errors.Is(err, util.ErrIntegrity) {
		t.Errorf("expected an integrity violation, got %v", err)
	}
	var ie *store.IntegrityError
	if !errors.As(err, &ie) || ie.Kind != store.KindUnique {
		t.Errorf("expected a unique constraint error, got %#v", err)
	}
	if !strings.Contains(err.Error(), `company "SM Entertainment", it already exists`) {
		t.Errorf("error does not name the cause: %v", err)
	}
	if code := exitCode(err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	companies, err := db.ListCompanies()
	if err != nil {
		t.Fatal(err)
	}
	if len(companies) != 1 {
		t.Errorf("expected 1 company after the rejected add, got %d", len(companies))
	}

	writes := writeEvents(t, eventsDir)
	if len(writes) != 2 {
		t.Fatalf("expected 2 write events, got %d", len(writes))
	}
	failed := 0
	for _, e := range writes {
		if e.Table != store.TableCompanies || e.Action != "add" {
			t.Errorf("unexpected write event %+v", e)
		}
		if e.Error != "" {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected exactly one failed write event, got %d", failed)
	}
}

func TestAddAndUpdateCatalogRows(t *testing.T) {
	dbPath, _ := testCatalog(t)

	steps := [][]string{
		{"add", "company", "BigHit Music"},
		{"add", "nationality", "kr", "--name", "Korea"},
		{"add", "group", "TOMORROW X TOGETHER", "--company", "bighit music", "--debut", "2019-03-04"},
		{"add", "member", "tomorrow x together", "Yeonjun", "--nationality", "KR"},
		{"add", "release", "TOMORROW X TOGETHER", "The Dream Chapter: STAR", "--type", "ep", "--lang", "kr"},
		{"update", "group", "TOMORROW X TOGETHER", "--fandom", "MOA"},
	}
	for _, args := range steps {
		if err := runKdex(t, append([]string{"--db", dbPath}, args...)...); err != nil {
			t.Fatalf("kdex %s: %v", strings.Join(args, " "), err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	groups, err := db.SearchGroups(store.GroupFilter{Company: "BigHit Music"})
	if err != nil || len(groups) != 1 {
		t.Fatalf("expected the group under its company, got %v, %v", groups, err)
	}
	g := groups[0]
	if g.DebutDate.String != "2019-03-04" || g.FandomName.String != "MOA" {
		t.Errorf("unexpected group row %+v", g)
	}

	members, err := db.SearchMembers(store.MemberFilter{Nationality: "KR"})
	if err != nil || len(members) != 1 || members[0].StageName != "Yeonjun" {
		t.Errorf("expected Yeonjun with nationality KR, got %v, %v", members, err)
	}

	releases, err := db.ListReleasesForGroup(g.ID)
	if err != nil || len(releases) != 1 {
		t.Fatalf("expected one release, got %v, %v", releases, err)
	}
	if releases[0].Type != store.ReleaseEP || releases[0].Language != store.LanguageKR {
		t.Errorf("release enums not normalised: %+v", releases[0])
	}
}

func TestAddRejectsUnknownParent(t *testing.T) {
	dbPath, _ := testCatalog(t)

	err := runKdex(t, "--db", dbPath, "add", "group", "IVE", "--company", "Starship")
	if err == nil {
		t.Fatal("expected unknown company to fail")
	}
	if !errors.Is(err, util.ErrValidation) || !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected a validation error for the missing company, got %v", err)
	}
	if !strings.Contains(err.Error(), `"Starship"`) {
		t.Errorf("error does not name the company: %v", err)
	}
}

func TestDateValue(t *testing.T) {
	if v, err := dateValue("debut", " 2022-05-02 "); err != nil || v.String != "2022-05-02" {
		t.Errorf("dateValue = %+v, %v", v, err)
	}
	if v, err := dateValue("debut", ""); err != nil || v.Valid {
		t.Errorf("empty date should be absent, got %+v, %v", v, err)
	}
	if _, err := dateValue("debut", "02.05.2022"); !errors.Is(err, util.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
