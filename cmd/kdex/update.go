package main

import (
	"fmt"

	"github.com/franz/kdex/internal/lookup"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change one row of the catalog",
	Long: `Change a company, group, member, release or song.

The current row is read, the given flags replace its values and the whole
row is written back. A flag given as an empty string clears an optional
value, e.g. --fandom "".`,
}

var updateCompanyCmd = &cobra.Command{
	Use:   "company <name|id>",
	Short: "Change a company",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateCompany,
}

var updateGroupCmd = &cobra.Command{
	Use:   "group <name|id>",
	Short: "Change a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateGroup,
}

var updateMemberCmd = &cobra.Command{
	Use:   "member <id>",
	Short: "Change a member or its nationalities",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateMember,
}

var updateReleaseCmd = &cobra.Command{
	Use:   "release <id>",
	Short: "Change a release",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateRelease,
}

var updateSongCmd = &cobra.Command{
	Use:   "song <id>",
	Short: "Change a song",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateSong,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.AddCommand(updateCompanyCmd, updateGroupCmd, updateMemberCmd, updateReleaseCmd, updateSongCmd)

	updateCompanyCmd.Flags().String("name", "", "new name")
	updateCompanyCmd.Flags().String("founder", "", "founder")
	updateCompanyCmd.Flags().String("founded", "", "founding date (YYYY-MM-DD)")

	updateGroupCmd.Flags().String("name", "", "new name")
	updateGroupCmd.Flags().String("company", "", "company name or id")
	updateGroupCmd.Flags().Bool("unaffiliated", false, "clear the company")
	updateGroupCmd.Flags().String("debut", "", "debut date (YYYY-MM-DD)")
	updateGroupCmd.Flags().String("fandom", "", "fan-base name")
	updateGroupCmd.MarkFlagsMutuallyExclusive("company", "unaffiliated")

	updateMemberCmd.Flags().String("group", "", "move to this group (name or id)")
	updateMemberCmd.Flags().String("stage-name", "", "new stage name")
	updateMemberCmd.Flags().String("real-name", "", "real name")
	updateMemberCmd.Flags().String("birth", "", "birth date (YYYY-MM-DD)")
	updateMemberCmd.Flags().StringSlice("nationality", nil, "replace the nationality codes")

	updateReleaseCmd.Flags().String("group", "", "move to this group (name or id)")
	updateReleaseCmd.Flags().String("name", "", "new name")
	updateReleaseCmd.Flags().String("type", "", "release type")
	updateReleaseCmd.Flags().String("lang", "", "release language")
	updateReleaseCmd.Flags().String("date", "", "release date (YYYY-MM-DD)")

	updateSongCmd.Flags().String("release", "", "move to this release id")
	updateSongCmd.Flags().String("title", "", "new title")
	updateSongCmd.Flags().String("youtube", "", "video link")
}

// changed returns a flag's value when the user gave it
func changed(cmd *cobra.Command, name string) (string, bool) {
	if !cmd.Flags().Changed(name) {
		return "", false
	}
	v, _ := cmd.Flags().GetString(name)
	return v, true
}

func runUpdateCompany(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cache := lookup.New(db)
	id, err := cache.CompanyID(args[0])
	if err != nil {
		return err
	}
	c, err := db.GetCompany(id)
	if err != nil || c == nil {
		return missing(err, "company", args[0])
	}

	if v, ok := changed(cmd, "name"); ok {
		c.Name = v
	}
	if v, ok := changed(cmd, "founder"); ok {
		c.Founder = store.Text(v)
	}
	if v, ok := changed(cmd, "founded"); ok {
		if c.FoundedDate, err = dateValue("founded", v); err != nil {
			return err
		}
	}

	return applyWrite(cache, &rowWrite{
		table:  store.TableCompanies,
		action: "update",
		label:  fmt.Sprintf("company %q", c.Name),
		id:     func() int64 { return c.ID },
		run:    func() error { return db.UpdateCompany(c) },
	})
}

func runUpdateGroup(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cache := lookup.New(db)
	id, err := cache.GroupID(args[0])
	if err != nil {
		return err
	}
	g, err := db.GetGroup(id)
	if err != nil || g == nil {
		return missing(err, "group", args[0])
	}

	if v, ok := changed(cmd, "name"); ok {
		g.Name = v
	}
	if v, ok := changed(cmd, "company"); ok {
		if g.CompanyID, err = companyRef(cache, v); err != nil {
			return err
		}
	}
	if unaffiliated, _ := cmd.Flags().GetBool("unaffiliated"); unaffiliated {
		g.CompanyID = store.NullID(0)
	}
	if v, ok := changed(cmd, "debut"); ok {
		if g.DebutDate, err = dateValue("debut", v); err != nil {
			return err
		}
	}
	if v, ok := changed(cmd, "fandom"); ok {
		g.FandomName = store.Text(v)
	}

	return applyWrite(cache, &rowWrite{
		table:  store.TableGroups,
		action: "update",
		label:  fmt.Sprintf("group %q", g.Name),
		id:     func() int64 { return g.ID },
		run:    func() error { return db.UpdateGroup(g) },
	})
}

func runUpdateMember(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.GetMember(id)
	if err != nil || m == nil {
		return missing(err, "member", args[0])
	}

	cache := lookup.New(db)
	rowChanged := false
	if v, ok := changed(cmd, "group"); ok {
		if m.GroupID, err = cache.GroupID(v); err != nil {
			return asInvalid(err)
		}
		rowChanged = true
	}
	if v, ok := changed(cmd, "stage-name"); ok {
		m.StageName = v
		rowChanged = true
	}
	if v, ok := changed(cmd, "real-name"); ok {
		m.RealName = store.Text(v)
		rowChanged = true
	}
	if v, ok := changed(cmd, "birth"); ok {
		if m.BirthDate, err = dateValue("birth", v); err != nil {
			return err
		}
		rowChanged = true
	}
	codesChanged := cmd.Flags().Changed("nationality")
	if codesChanged {
		codes, _ := cmd.Flags().GetStringSlice("nationality")
		if m.Nationalities, err = nationalityCodes(cache, codes); err != nil {
			return err
		}
	}

	w := &rowWrite{
		table:  store.TableMembers,
		action: "update",
		label:  fmt.Sprintf("member %q", m.StageName),
		id:     func() int64 { return m.ID },
		run:    func() error { return db.UpdateMember(m) },
	}
	switch {
	case !rowChanged && !codesChanged:
		return fmt.Errorf("%w: nothing to change, give at least one flag", util.ErrValidation)
	case !rowChanged:
		w.table = store.TableMemberNationalities
		w.run = func() error { return db.SetMemberNationalities(m.ID, m.Nationalities) }
	}
	return applyWrite(cache, w)
}

func runUpdateRelease(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := db.GetRelease(id)
	if err != nil || r == nil {
		return missing(err, "release", args[0])
	}

	cache := lookup.New(db)
	if v, ok := changed(cmd, "group"); ok {
		if r.GroupID, err = cache.GroupID(v); err != nil {
			return asInvalid(err)
		}
	}
	if v, ok := changed(cmd, "name"); ok {
		r.Name = v
	}
	typ, lang := string(r.Type), string(r.Language)
	if v, ok := changed(cmd, "type"); ok {
		typ = v
	}
	if v, ok := changed(cmd, "lang"); ok {
		lang = v
	}
	if r.Type, r.Language, err = releaseEnums(typ, lang); err != nil {
		return err
	}
	if v, ok := changed(cmd, "date"); ok {
		if r.Date, err = dateValue("date", v); err != nil {
			return err
		}
	}

	return applyWrite(cache, &rowWrite{
		table:  store.TableReleases,
		action: "update",
		label:  fmt.Sprintf("release %q [%s, %s]", r.Name, r.Type, r.Language),
		id:     func() int64 { return r.ID },
		run:    func() error { return db.UpdateRelease(r) },
	})
}

func runUpdateSong(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := db.GetSong(id)
	if err != nil || s == nil {
		return missing(err, "song", args[0])
	}

	if v, ok := changed(cmd, "release"); ok {
		if s.ReleaseID, err = parseID(v); err != nil {
			return err
		}
	}
	if v, ok := changed(cmd, "title"); ok {
		s.Title = v
	}
	if v, ok := changed(cmd, "youtube"); ok {
		s.YouTubeURL = store.Text(v)
	}

	return applyWrite(lookup.New(db), &rowWrite{
		table:  store.TableSongs,
		action: "update",
		label:  fmt.Sprintf("song %q", s.Title),
		id:     func() int64 { return s.ID },
		run:    func() error { return db.UpdateSong(s) },
	})
}
