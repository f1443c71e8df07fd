package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/stockmeta/internal/curation"
	"github.com/jackzampolin/stockmeta/internal/export"
	"github.com/jackzampolin/stockmeta/internal/output"
)

var (
	curateAdd     string
	curateDelete  []int
	curateEdit    []string
	curateMove    []string
	curatePromote []string
	curateReset   bool
)

var curateCmd = &cobra.Command{
	Use:   "curate <session-file> <image>",
	Short: "Edit the exported keyword list of one image in a saved session",
	Long: `Curate adjusts the top keyword list (initially the first 45 generated
keywords) that export writes to the CSV. Positions are 1-based. Operations run
in this order: reset, delete, edit, move, promote, add.

Without any operation the current lists are shown.

Examples:
  stockmeta curate session.json sunset.jpg --add "golden hour, dusk"
  stockmeta curate session.json sunset.jpg --delete 3 --delete 7
  stockmeta curate session.json sunset.jpg --edit "2=orange sky" --move 5:1
  stockmeta curate session.json sunset.jpg --promote silhouette`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := export.LoadSession(args[0])
		if err != nil {
			return err
		}
		rec, ok := session.Find(args[1])
		if !ok {
			return fmt.Errorf("image %q not found in %s", args[1], args[0])
		}
		if rec.Metadata == nil {
			return fmt.Errorf("image %q has no generated metadata", args[1])
		}

		set := curation.Restore(rec.Metadata.Keywords, rec.TopKeywords)
		changed, err := applyCuration(set)
		if err != nil {
			return err
		}
		if changed {
			rec.TopKeywords = set.Top()
			if err := export.SaveSession(args[0], session); err != nil {
				return err
			}
		}

		view := map[string]any{
			"image":     rec.Filename,
			"top":       set.Top(),
			"remaining": set.Remaining(),
		}
		if output.IsStructured() {
			return output.Print(view)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: %d keywords selected\n", rec.Filename, len(set.Top()))
		for i, k := range set.Top() {
			fmt.Fprintf(w, "%3d. %s\n", i+1, k)
		}
		if rest := set.Remaining(); len(rest) > 0 {
			fmt.Fprintf(w, "remaining: %s\n", strings.Join(rest, ", "))
		}
		return nil
	},
}

// applyCuration runs the flag operations against set.
func applyCuration(set *curation.Set) (bool, error) {
	changed := false
	if curateReset {
		set.Reset()
		changed = true
	}

	// Highest position first so earlier deletes don't shift later ones.
	dels := slices.Clone(curateDelete)
	slices.Sort(dels)
	slices.Reverse(dels)
	for _, pos := range slices.Compact(dels) {
		if err := set.Delete(pos - 1); err != nil {
			return false, err
		}
		changed = true
	}

	for _, e := range curateEdit {
		pos, value, ok := strings.Cut(e, "=")
		if !ok {
			return false, fmt.Errorf("invalid --edit %q: want POSITION=VALUE", e)
		}
		i, err := strconv.Atoi(strings.TrimSpace(pos))
		if err != nil {
			return false, fmt.Errorf("invalid --edit position %q", pos)
		}
		if _, err := set.Edit(i-1, value); err != nil {
			return false, err
		}
		changed = true
	}

	for _, m := range curateMove {
		from, to, ok := strings.Cut(m, ":")
		if !ok {
			return false, fmt.Errorf("invalid --move %q: want FROM:TO", m)
		}
		f, err1 := strconv.Atoi(strings.TrimSpace(from))
		t, err2 := strconv.Atoi(strings.TrimSpace(to))
		if err1 != nil || err2 != nil {
			return false, fmt.Errorf("invalid --move %q: want FROM:TO", m)
		}
		if err := set.Move(f-1, t-1); err != nil {
			return false, err
		}
		changed = true
	}

	for _, k := range curatePromote {
		if set.Promote(strings.TrimSpace(k)) {
			changed = true
		}
	}

	if curateAdd != "" && set.AddCustom(curateAdd) > 0 {
		changed = true
	}
	return changed, nil
}

func init() {
	f := curateCmd.Flags()
	f.StringVar(&curateAdd, "add", "", "comma-separated keywords to append")
	f.IntSliceVar(&curateDelete, "delete", nil, "position to remove (repeatable)")
	f.StringArrayVar(&curateEdit, "edit", nil, "POSITION=VALUE replacement; commas expand to several keywords (repeatable)")
	f.StringArrayVar(&curateMove, "move", nil, "FROM:TO reorder (repeatable)")
	f.StringArrayVar(&curatePromote, "promote", nil, "keyword from the remaining list to append (repeatable)")
	f.BoolVar(&curateReset, "reset", false, "restore the first 45 generated keywords")
	rootCmd.AddCommand(curateCmd)
}
