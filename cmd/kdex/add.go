package main

import (
	"fmt"
	"strings"

	"github.com/franz/kdex/internal/lookup"
	"github.com/franz/kdex/internal/store"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add one row to the catalog",
	Long: `Add a company, group, member, release, song or nationality.

Parents are given by name (or id) and must already exist. A name that is
already taken is reported as an integrity violation and nothing is
written.`,
}

var addCompanyCmd = &cobra.Command{
	Use:   "company <name>",
	Short: "Add a company",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddCompany,
}

var addGroupCmd = &cobra.Command{
	Use:   "group <name>",
	Short: "Add a group, optionally under a company",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddGroup,
}

var addMemberCmd = &cobra.Command{
	Use:   "member <group> <stage-name>",
	Short: "Add a member to a group",
	Args:  cobra.ExactArgs(2),
	RunE:  runAddMember,
}

var addReleaseCmd = &cobra.Command{
	Use:   "release <group> <name>",
	Short: "Add a release to a group",
	Args:  cobra.ExactArgs(2),
	RunE:  runAddRelease,
}

var addSongCmd = &cobra.Command{
	Use:   "song <release-id> <title>",
	Short: "Add a song to a release",
	Args:  cobra.ExactArgs(2),
	RunE:  runAddSong,
}

var addNationalityCmd = &cobra.Command{
	Use:   "nationality <code>",
	Short: "Add a nationality code",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddNationality,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.AddCommand(addCompanyCmd, addGroupCmd, addMemberCmd, addReleaseCmd, addSongCmd, addNationalityCmd)

	addCompanyCmd.Flags().String("founder", "", "founder")
	addCompanyCmd.Flags().String("founded", "", "founding date (YYYY-MM-DD)")

	addGroupCmd.Flags().String("company", "", "company name or id (empty for unaffiliated)")
	addGroupCmd.Flags().String("debut", "", "debut date (YYYY-MM-DD)")
	addGroupCmd.Flags().String("fandom", "", "fan-base name")

	addMemberCmd.Flags().String("real-name", "", "real name")
	addMemberCmd.Flags().String("birth", "", "birth date (YYYY-MM-DD)")
	addMemberCmd.Flags().StringSlice("nationality", nil, "nationality codes, comma separated")

	addReleaseCmd.Flags().String("type", "", "release type ("+strings.Join(store.ReleaseTypeNames(), ", ")+")")
	addReleaseCmd.Flags().String("lang", "", "release language ("+strings.Join(store.LanguageNames(), ", ")+")")
	addReleaseCmd.Flags().String("date", "", "release date (YYYY-MM-DD)")
	addReleaseCmd.MarkFlagRequired("type")
	addReleaseCmd.MarkFlagRequired("lang")

	addSongCmd.Flags().String("youtube", "", "video link")

	addNationalityCmd.Flags().String("name", "", "descriptive name, e.g. Korea")
}

func runAddCompany(cmd *cobra.Command, args []string) error {
	founder, _ := cmd.Flags().GetString("founder")
	founded, _ := cmd.Flags().GetString("founded")

	date, err := dateValue("founded", founded)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	c := &store.Company{Name: args[0], Founder: store.Text(founder), FoundedDate: date}
	return applyWrite(lookup.New(db), &rowWrite{
		table:  store.TableCompanies,
		action: "add",
		label:  fmt.Sprintf("company %q", strings.TrimSpace(c.Name)),
		id:     func() int64 { return c.ID },
		run:    func() error { return db.AddCompany(c) },
	})
}

func runAddGroup(cmd *cobra.Command, args []string) error {
	company, _ := cmd.Flags().GetString("company")
	debut, _ := cmd.Flags().GetString("debut")
	fandom, _ := cmd.Flags().GetString("fandom")

	date, err := dateValue("debut", debut)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cache := lookup.New(db)
	companyID, err := companyRef(cache, company)
	if err != nil {
		return err
	}

	g := &store.Group{
		CompanyID:  companyID,
		Name:       args[0],
		DebutDate:  date,
		FandomName: store.Text(fandom),
	}
	return applyWrite(cache, &rowWrite{
		table:  store.TableGroups,
		action: "add",
		label:  fmt.Sprintf("group %q", strings.TrimSpace(g.Name)),
		id:     func() int64 { return g.ID },
		run:    func() error { return db.AddGroup(g) },
	})
}

func runAddMember(cmd *cobra.Command, args []string) error {
	realName, _ := cmd.Flags().GetString("real-name")
	birth, _ := cmd.Flags().GetString("birth")
	codes, _ := cmd.Flags().GetStringSlice("nationality")

	date, err := dateValue("birth", birth)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cache := lookup.New(db)
	groupID, err := cache.GroupID(args[0])
	if err != nil {
		return asInvalid(err)
	}
	nationalities, err := nationalityCodes(cache, codes)
	if err != nil {
		return err
	}

	m := &store.Member{
		GroupID:       groupID,
		StageName:     args[1],
		RealName:      store.Text(realName),
		BirthDate:     date,
		Nationalities: nationalities,
	}
	return applyWrite(cache, &rowWrite{
		table:  store.TableMembers,
		action: "add",
		label:  fmt.Sprintf("member %q", strings.TrimSpace(m.StageName)),
		id:     func() int64 { return m.ID },
		run:    func() error { return db.AddMember(m) },
	})
}

func runAddRelease(cmd *cobra.Command, args []string) error {
	typ, _ := cmd.Flags().GetString("type")
	lang, _ := cmd.Flags().GetString("lang")
	released, _ := cmd.Flags().GetString("date")

	releaseType, language, err := releaseEnums(typ, lang)
	if err != nil {
		return err
	}
	date, err := dateValue("date", released)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cache := lookup.New(db)
	groupID, err := cache.GroupID(args[0])
	if err != nil {
		return asInvalid(err)
	}

	r := &store.Release{
		GroupID:  groupID,
		Name:     args[1],
		Type:     releaseType,
		Language: language,
		Date:     date,
	}
	return applyWrite(cache, &rowWrite{
		table:  store.TableReleases,
		action: "add",
		label:  fmt.Sprintf("release %q [%s, %s]", strings.TrimSpace(r.Name), r.Type, r.Language),
		id:     func() int64 { return r.ID },
		run:    func() error { return db.AddRelease(r) },
	})
}

func runAddSong(cmd *cobra.Command, args []string) error {
	youtube, _ := cmd.Flags().GetString("youtube")

	releaseID, err := parseID(args[0])
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	s := &store.Song{ReleaseID: releaseID, Title: args[1], YouTubeURL: store.Text(youtube)}
	return applyWrite(lookup.New(db), &rowWrite{
		table:  store.TableSongs,
		action: "add",
		label:  fmt.Sprintf("song %q", strings.TrimSpace(s.Title)),
		id:     func() int64 { return s.ID },
		run:    func() error { return db.AddSong(s) },
	})
}

func runAddNationality(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	n := &store.Nationality{Code: strings.ToUpper(strings.TrimSpace(args[0])), Name: store.Text(name)}
	return applyWrite(lookup.New(db), &rowWrite{
		table:  store.TableNationalities,
		action: "add",
		label:  "nationality " + n.Code,
		id:     func() int64 { return 0 },
		run:    func() error { return db.AddNationality(n) },
	})
}
