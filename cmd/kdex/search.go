package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/franz/kdex/internal/lookup"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the catalog",
}

var searchGroupsCmd = &cobra.Command{
	Use:   "groups [name]",
	Short: "Search groups by name and company",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearchGroups,
}

var searchMembersCmd = &cobra.Command{
	Use:   "members [stage-name]",
	Short: "Search members by stage name, group and nationality",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearchMembers,
}

var searchSongsCmd = &cobra.Command{
	Use:   "songs [title]",
	Short: "Search songs by title, group and release language",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearchSongs,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchGroupsCmd, searchMembersCmd, searchSongsCmd)

	searchGroupsCmd.Flags().String("company", "", "only groups of this company")
	searchGroupsCmd.Flags().Bool("unaffiliated", false, "only groups without a company")

	searchMembersCmd.Flags().String("group", "", "only members of this group")
	searchMembersCmd.Flags().String("nationality", "", "only members holding this nationality code")

	searchSongsCmd.Flags().String("group", "", "only songs of this group")
	searchSongsCmd.Flags().String("lang", "", "only releases in this language ("+strings.Join(store.LanguageNames(), ", ")+")")
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// groupName turns a loosely typed group reference into the stored name
func groupName(cache *lookup.Cache, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	id, err := cache.GroupID(ref)
	if err != nil {
		return "", err
	}
	groups, err := cache.Groups()
	if err != nil {
		return "", err
	}
	for _, g := range groups {
		if g.ID == id {
			return g.Name, nil
		}
	}
	return "", fmt.Errorf("%w: group %q", util.ErrNotFound, ref)
}

func companyName(cache *lookup.Cache, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	id, err := cache.CompanyID(ref)
	if err != nil {
		return "", err
	}
	companies, err := cache.Companies()
	if err != nil {
		return "", err
	}
	for _, c := range companies {
		if c.ID == id {
			return c.Name, nil
		}
	}
	return "", fmt.Errorf("%w: company %q", util.ErrNotFound, ref)
}

func runSearchGroups(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	company, _ := cmd.Flags().GetString("company")
	unaffiliated, _ := cmd.Flags().GetBool("unaffiliated")
	if company != "" && unaffiliated {
		return fmt.Errorf("%w: --company and --unaffiliated exclude each other", util.ErrInvalidConfig)
	}

	if company, err = companyName(lookup.New(db), company); err != nil {
		return err
	}

	groups, err := db.SearchGroups(store.GroupFilter{
		Name:         firstArg(args),
		Company:      company,
		Unaffiliated: unaffiliated,
	})
	if err != nil {
		return err
	}

	t := newTable("ID", "GROUP", "COMPANY", "DEBUT", "FANDOM")
	for _, g := range groups {
		t.add(strconv.FormatInt(g.ID, 10), g.Name, orDash(g.CompanyName), orDash(g.DebutDate), orDash(g.FandomName))
	}
	t.write(cmd.OutOrStdout())
	util.InfoLog("%s group(s)", util.FormatCount(len(groups)))
	return nil
}

func runSearchMembers(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cache := lookup.New(db)
	group, _ := cmd.Flags().GetString("group")
	if group, err = groupName(cache, group); err != nil {
		return err
	}
	nationality, _ := cmd.Flags().GetString("nationality")
	if nationality != "" {
		if nationality, err = cache.NationalityCode(nationality); err != nil {
			return err
		}
	}

	members, err := db.SearchMembers(store.MemberFilter{
		StageName:   firstArg(args),
		Group:       group,
		Nationality: nationality,
	})
	if err != nil {
		return err
	}

	t := newTable("ID", "STAGE NAME", "GROUP", "REAL NAME", "BIRTH", "NATIONALITY")
	for _, m := range members {
		nat := strings.Join(m.Nationalities, ",")
		if nat == "" {
			nat = "-"
		}
		t.add(strconv.FormatInt(m.ID, 10), m.StageName, m.GroupName, orDash(m.RealName), orDash(m.BirthDate), nat)
	}
	t.write(cmd.OutOrStdout())
	util.InfoLog("%s member(s)", util.FormatCount(len(members)))
	return nil
}

func runSearchSongs(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	group, _ := cmd.Flags().GetString("group")
	if group, err = groupName(lookup.New(db), group); err != nil {
		return err
	}

	var lang store.Language
	if s, _ := cmd.Flags().GetString("lang"); s != "" {
		var ok bool
		if lang, ok = store.ParseLanguage(s); !ok {
			return fmt.Errorf("%w: language %q (want one of %s)", util.ErrValidation, s, strings.Join(store.LanguageNames(), ", "))
		}
	}

	hits, err := db.SearchSongs(store.SongFilter{
		Title:    firstArg(args),
		Group:    group,
		Language: lang,
	})
	if err != nil {
		return err
	}

	t := newTable("ID", "TITLE", "GROUP", "RELEASE", "TYPE", "LANG", "YOUTUBE")
	for _, h := range hits {
		t.add(strconv.FormatInt(h.ID, 10), h.Title, h.GroupName, h.ReleaseName,
			string(h.ReleaseType), string(h.Language), orDash(h.YouTubeURL))
	}
	t.write(cmd.OutOrStdout())
	util.InfoLog("%s song(s)", util.FormatCount(len(hits)))
	return nil
}
