package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/franz/kdex/internal/lookup"
	"github.com/franz/kdex/internal/media"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
)

var imageCmd = &cobra.Command{
	Use:   "image <group|member> <name|id> <file>",
	Short: "Store a picture for a group or member",
	Long: `Copy a .jpg, .jpeg or .png file into <images>/images/groups or
<images>/images/members and record its relative path on the row.

Group pictures are named after the group, member pictures after
<group>_<stage name>. An existing picture is never overwritten; the new
file gets a numeric suffix instead.`,
	Args: cobra.ExactArgs(3),
	RunE: runImage,
}

func init() {
	rootCmd.AddCommand(imageCmd)
}

func runImage(cmd *cobra.Command, args []string) error {
	kind, ref, file := args[0], args[1], args[2]

	if _, err := media.NormalizeExt(filepath.Ext(file)); err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		table string
		id    int64
		base  string
		set   func(id int64, path string) error
	)

	switch kind {
	case "group":
		if id, err = lookup.New(db).GroupID(ref); err != nil {
			return err
		}
		g, err := db.GetGroup(id)
		if err != nil || g == nil {
			return missing(err, "group", ref)
		}
		table, base, set = "groups", g.Name, db.SetGroupImage
	case "member":
		if id, err = parseID(ref); err != nil {
			return err
		}
		m, err := db.GetMember(id)
		if err != nil || m == nil {
			return missing(err, "member", ref)
		}
		table, base, set = "members", media.MemberBase(m.GroupName, m.StageName), db.SetMemberImage
	default:
		return fmt.Errorf("%w: image kind %q (want group or member)", util.ErrValidation, kind)
	}

	src, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer src.Close()

	images := media.NewStore(GetConfigString("images", "."))
	rel, err := images.Save(cmd.Context(), media.Kind(table), base, filepath.Ext(file), src)
	if err != nil {
		return err
	}

	logger := openEventLog()
	defer logger.Close()

	if err := set(id, rel); err != nil {
		images.Remove(rel)
		logger.LogWrite(table, "image", id, err)
		return err
	}
	logger.LogImage(table, id, file, rel)

	util.SuccessLog("Stored %s", rel)
	return nil
}
