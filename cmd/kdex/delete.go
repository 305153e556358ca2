package main

import (
	"fmt"
	"strings"

	"github.com/franz/kdex/internal/lookup"
	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <company|group|member|release|song|nationality|members-of|releases-of|songs-of> <id|name>",
	Short: "Delete a catalog row and everything that depends on it",
	Long: `Delete one row, or every child row of a parent. Dependent rows are
removed by the database:

  company      groups stay, their company is cleared
  group        members, their nationalities, releases and songs
  member       the member's nationality links
  release      its songs
  nationality  every member link to the code
  members-of   every member of a group, keeping the group
  releases-of  every release of a group and their songs
  songs-of     every song of a release, keeping the release

The rows about to be removed are listed and confirmation is asked unless
--yes is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

// deletion describes a pending delete
type deletion struct {
	table   string
	id      int64
	summary string
	run     func() error
}

func runDelete(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	d, err := planDeletion(db, strings.ToLower(args[0]), args[1])
	if err != nil {
		return err
	}

	if !yes {
		ok, err := util.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete "+d.summary+"?")
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrCancelled
		}
	}

	logger := openEventLog()
	defer logger.Close()

	err = d.run()
	logger.LogWrite(d.table, "delete", d.id, err)
	if err != nil {
		return err
	}

	util.SuccessLog("Deleted %s", d.summary)
	return nil
}

func planDeletion(db *store.Store, kind, ref string) (*deletion, error) {
	switch kind {
	case "company":
		id, err := lookup.New(db).CompanyID(ref)
		if err != nil {
			return nil, err
		}
		c, err := db.GetCompany(id)
		if err != nil || c == nil {
			return nil, missing(err, "company", ref)
		}
		groups, err := db.SearchGroups(store.GroupFilter{Company: c.Name})
		if err != nil {
			return nil, err
		}
		return &deletion{
			table:   store.TableCompanies,
			id:      id,
			summary: fmt.Sprintf("company %q (%d groups become unaffiliated)", c.Name, len(groups)),
			run:     func() error { return db.DeleteCompany(id) },
		}, nil

	case "group":
		id, err := lookup.New(db).GroupID(ref)
		if err != nil {
			return nil, err
		}
		g, err := db.GetGroup(id)
		if err != nil || g == nil {
			return nil, missing(err, "group", ref)
		}
		deps, err := db.GroupDependents(id)
		if err != nil {
			return nil, err
		}
		return &deletion{
			table: store.TableGroups,
			id:    id,
			summary: fmt.Sprintf("group %q with %d members, %d nationality links, %d releases and %d songs",
				g.Name, deps.Members, deps.Nationalities, deps.Releases, deps.Songs),
			run: func() error { return db.DeleteGroup(id) },
		}, nil

	case "member":
		id, err := parseID(ref)
		if err != nil {
			return nil, err
		}
		m, err := db.GetMember(id)
		if err != nil || m == nil {
			return nil, missing(err, "member", ref)
		}
		return &deletion{
			table:   store.TableMembers,
			id:      id,
			summary: fmt.Sprintf("member %q of %s with %d nationality links", m.StageName, m.GroupName, len(m.Nationalities)),
			run:     func() error { return db.DeleteMember(id) },
		}, nil

	case "release":
		id, err := parseID(ref)
		if err != nil {
			return nil, err
		}
		r, err := db.GetRelease(id)
		if err != nil || r == nil {
			return nil, missing(err, "release", ref)
		}
		songs, err := db.ListSongsForRelease(id)
		if err != nil {
			return nil, err
		}
		return &deletion{
			table:   store.TableReleases,
			id:      id,
			summary: fmt.Sprintf("release %q of %s with %d songs", r.Name, r.GroupName, len(songs)),
			run:     func() error { return db.DeleteRelease(id) },
		}, nil

	case "song":
		id, err := parseID(ref)
		if err != nil {
			return nil, err
		}
		s, err := db.GetSong(id)
		if err != nil || s == nil {
			return nil, missing(err, "song", ref)
		}
		return &deletion{
			table:   store.TableSongs,
			id:      id,
			summary: fmt.Sprintf("song %q", s.Title),
			run:     func() error { return db.DeleteSong(id) },
		}, nil

	case "nationality":
		code, err := lookup.New(db).NationalityCode(ref)
		if err != nil {
			return nil, err
		}
		members, err := db.SearchMembers(store.MemberFilter{Nationality: code})
		if err != nil {
			return nil, err
		}
		return &deletion{
			table:   store.TableNationalities,
			summary: fmt.Sprintf("nationality %s (linked to %d members)", code, len(members)),
			run:     func() error { return db.DeleteNationality(code) },
		}, nil

	case "members-of", "releases-of":
		id, err := lookup.New(db).GroupID(ref)
		if err != nil {
			return nil, err
		}
		g, err := db.GetGroupDetail(id)
		if err != nil || g == nil {
			return nil, missing(err, "group", ref)
		}
		if kind == "members-of" {
			return &deletion{
				table:   store.TableMembers,
				id:      id,
				summary: fmt.Sprintf("all %d members of %q", g.MemberCount, g.Name),
				run:     dropCount(func() (int64, error) { return db.DeleteMembersByGroup(id) }),
			}, nil
		}
		return &deletion{
			table:   store.TableReleases,
			id:      id,
			summary: fmt.Sprintf("all %d releases of %q with %d songs", g.ReleaseCount, g.Name, g.SongCount),
			run:     dropCount(func() (int64, error) { return db.DeleteReleasesByGroup(id) }),
		}, nil

	case "songs-of":
		id, err := parseID(ref)
		if err != nil {
			return nil, err
		}
		r, err := db.GetRelease(id)
		if err != nil || r == nil {
			return nil, missing(err, "release", ref)
		}
		songs, err := db.ListSongsForRelease(id)
		if err != nil {
			return nil, err
		}
		return &deletion{
			table:   store.TableSongs,
			id:      id,
			summary: fmt.Sprintf("all %d songs of release %q", len(songs), r.Name),
			run:     dropCount(func() (int64, error) { return db.DeleteSongsByRelease(id) }),
		}, nil
	}

	return nil, fmt.Errorf("%w: cannot delete %q (want company, group, member, release, song, nationality, members-of, releases-of or songs-of)", util.ErrValidation, kind)
}

// dropCount adapts a delete-by-parent call, logging how many rows went
func dropCount(del func() (int64, error)) func() error {
	return func() error {
		n, err := del()
		if err == nil {
			util.DebugLog("Deleted %d rows", n)
		}
		return err
	}
}

func missing(err error, entity, ref string) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s %s", util.ErrNotFound, entity, ref)
}
