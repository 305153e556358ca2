package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/franz/kdex/internal/lookup"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one catalog entry in detail",
}

var showGroupCmd = &cobra.Command{
	Use:   "group <name|id>",
	Short: "Show a group with its members and releases",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowGroup,
}

var showMemberCmd = &cobra.Command{
	Use:   "member <id>",
	Short: "Show a member with group, company and nationalities",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowMember,
}

var showReleaseCmd = &cobra.Command{
	Use:   "release <id>",
	Short: "Show a release and its songs",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRelease,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.AddCommand(showGroupCmd, showMemberCmd, showReleaseCmd)

	showGroupCmd.Flags().Bool("songs", false, "list the songs of every release")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a row id", util.ErrValidation, s)
	}
	return id, nil
}

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%-12s %s\n", label+":", value)
}

func runShowGroup(cmd *cobra.Command, args []string) error {
	withSongs, _ := cmd.Flags().GetBool("songs")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := lookup.New(db).GroupID(args[0])
	if err != nil {
		return err
	}

	g, err := db.GetGroupDetail(id)
	if err != nil {
		return err
	}
	if g == nil {
		return fmt.Errorf("%w: group %d", util.ErrNotFound, id)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (#%d)\n\n", g.Name, g.ID)
	field(out, "Company", orDash(g.CompanyName))
	field(out, "Debut", orDash(g.DebutDate))
	field(out, "Fandom", orDash(g.FandomName))
	field(out, "Image", orDash(g.ImagePath))
	field(out, "Catalog", fmt.Sprintf("%d members, %d releases, %d songs", g.MemberCount, g.ReleaseCount, g.SongCount))

	members, err := db.ListMembersForGroup(g.ID)
	if err != nil {
		return err
	}
	if len(members) > 0 {
		fmt.Fprintln(out, "\nMembers")
		t := newTable("ID", "STAGE NAME", "REAL NAME", "BIRTH", "NATIONALITY")
		for _, m := range members {
			t.add(strconv.FormatInt(m.ID, 10), m.StageName, orDash(m.RealName), orDash(m.BirthDate), strings.Join(m.Nationalities, ","))
		}
		t.write(out)
	}

	releases, err := db.ListReleasesForGroup(g.ID)
	if err != nil {
		return err
	}
	if len(releases) > 0 {
		fmt.Fprintln(out, "\nReleases")
		t := newTable("ID", "RELEASE", "TYPE", "LANG", "DATE")
		for _, r := range releases {
			t.add(strconv.FormatInt(r.ID, 10), r.Name, string(r.Type), string(r.Language), orDash(r.Date))
		}
		t.write(out)
	}

	if withSongs {
		for _, r := range releases {
			songs, err := db.ListSongsForRelease(r.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s [%s, %s]\n", r.Name, r.Type, r.Language)
			for i, s := range songs {
				fmt.Fprintf(out, "  %2d. %s\n", i+1, s.Title)
			}
		}
	}

	return nil
}

func runShowMember(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.GetMemberDetail(id)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: member %d", util.ErrNotFound, id)
	}

	nationalities := "-"
	if len(m.Nationalities) > 0 {
		nationalities = strings.Join(m.Nationalities, ", ")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (#%d)\n\n", m.StageName, m.ID)
	field(out, "Group", fmt.Sprintf("%s (#%d)", m.GroupName, m.GroupID))
	field(out, "Company", orDash(m.CompanyName))
	field(out, "Real name", orDash(m.RealName))
	field(out, "Birth date", orDash(m.BirthDate))
	field(out, "Nationality", nationalities)
	field(out, "Image", orDash(m.ImagePath))
	return nil
}

func runShowRelease(cmd *cobra.Command, args []string) error {
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
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: release %d", util.ErrNotFound, id)
	}
	songs, err := db.ListSongsForRelease(r.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (#%d)\n\n", r.Name, r.ID)
	field(out, "Group", fmt.Sprintf("%s (#%d)", r.GroupName, r.GroupID))
	field(out, "Type", string(r.Type))
	field(out, "Language", string(r.Language))
	field(out, "Date", orDash(r.Date))

	if len(songs) > 0 {
		fmt.Fprintln(out)
		t := newTable("ID", "TITLE", "YOUTUBE")
		for _, s := range songs {
			t.add(strconv.FormatInt(s.ID, 10), s.Title, orDash(s.YouTubeURL))
		}
		t.write(out)
	}
	return nil
}
