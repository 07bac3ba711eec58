package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/barkeepd/barkeep/internal/layout"
	"github.com/barkeepd/barkeep/internal/storage"
	"github.com/barkeepd/barkeep/pkg/bar"
	"github.com/barkeepd/barkeep/pkg/gamedata"
)

var layoutsCmd = &cobra.Command{
	Use:   "layouts [character]",
	Short: "List saved layouts, or dump one character's",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLayouts,
}

var pruneCmd = &cobra.Command{
	Use:   "prune <character>",
	Short: "Drop durable layouts below a level",
	Long: `Removes durable layouts saved below --below. Without --below the
highest seen level is used, which leaves only the master layout. The session
tier only lives inside a running daemon, so prune never touches it.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrune,
}

var wipeCmd = &cobra.Command{
	Use:   "wipe <character>",
	Short: "Delete saved layouts",
	Long: `With --spec, clears that specialization's layouts and re-saves the
file. Without it, deletes the character's save file entirely.`,
	Args: cobra.ExactArgs(1),
	RunE: runWipe,
}

var (
	flagShowLevel  int
	flagShowSpec   int
	flagPruneBelow int
	flagPruneSpec  int
	flagWipeSpec   int
)

func runLayouts(_ *cobra.Command, args []string) error {
	store, err := storage.New(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return listCharacters(store)
	}
	return showCharacter(store, args[0])
}

func listCharacters(store *storage.Storage) error {
	names, err := store.ListCharacters()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no saved characters")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "CHARACTER\tHIGHEST\tLAYOUTS")
	for _, name := range names {
		st, err := store.LoadStore(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, st.HighestSeen(), layoutSummary(st))
	}
	return tw.Flush()
}

func layoutSummary(st *layout.Store) string {
	perSpec := make(map[int][]int)
	st.EachDurable(func(spec, level int, _ *bar.Snapshot) {
		perSpec[spec] = append(perSpec[spec], level)
	})
	if len(perSpec) == 0 {
		return "-"
	}
	specs := make([]int, 0, len(perSpec))
	for spec := range perSpec {
		specs = append(specs, spec)
	}
	sort.Ints(specs)
	parts := make([]string, 0, len(specs))
	for _, spec := range specs {
		levels := make([]string, 0, len(perSpec[spec]))
		for _, lv := range perSpec[spec] {
			levels = append(levels, fmt.Sprintf("%d", lv))
		}
		parts = append(parts, fmt.Sprintf("spec %d: %s", spec, strings.Join(levels, ",")))
	}
	return strings.Join(parts, "; ")
}

func showCharacter(store *storage.Storage, name string) error {
	st, err := store.LoadStore(name)
	if err != nil {
		return err
	}
	catalog := loadCatalog()
	shown := 0
	st.EachDurable(func(spec, level int, snap *bar.Snapshot) {
		if flagShowSpec > 0 && spec != flagShowSpec {
			return
		}
		if flagShowLevel > 0 && level != flagShowLevel {
			return
		}
		shown++
		master := ""
		if level == st.HighestSeen() {
			master = " (master)"
		}
		fmt.Printf("%s spec %d level %d%s — %d occupied\n",
			st.Character(), spec, level, master, snap.Occupied())
		for _, slot := range snap.SlotIndexes() {
			d, _ := snap.Get(slot)
			fmt.Printf("  %3d  %s\n", slot, describe(d, catalog))
		}
	})
	if shown == 0 {
		return fmt.Errorf("%s: no matching layouts", name)
	}
	return nil
}

// describe renders a descriptor, resolving item names through the game-data
// bundle when one is available.
func describe(d bar.Descriptor, catalog *gamedata.Catalog) string {
	if d.Kind == bar.KindItem && catalog != nil {
		if it, ok := catalog.ItemByID(d.ID); ok {
			return fmt.Sprintf("item:%d (%s)", d.ID, it.Name)
		}
	}
	return d.String()
}

func loadCatalog() *gamedata.Catalog {
	catalog, err := gamedata.Load(cfg.BundleDir)
	if err != nil {
		logger.Debug("game-data bundle unavailable", "dir", cfg.BundleDir, "err", err)
		return nil
	}
	return catalog
}

func runPrune(_ *cobra.Command, args []string) error {
	store, err := storage.New(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	st, err := store.LoadStore(args[0])
	if err != nil {
		return err
	}
	keep := flagPruneBelow
	if keep <= 0 {
		keep = st.HighestSeen()
	}
	specs := []int{flagPruneSpec}
	if flagPruneSpec <= 0 {
		set := make(map[int]bool)
		st.EachDurable(func(spec, _ int, _ *bar.Snapshot) { set[spec] = true })
		specs = specs[:0]
		for spec := range set {
			specs = append(specs, spec)
		}
		sort.Ints(specs)
	}
	pruned := 0
	for _, spec := range specs {
		pruned += st.PruneBelow(keep, spec)
	}
	if pruned == 0 {
		fmt.Printf("nothing below level %d\n", keep)
		return nil
	}
	if err := store.SaveStore(st); err != nil {
		return err
	}
	fmt.Printf("pruned %d layouts below level %d\n", pruned, keep)
	return nil
}

func runWipe(_ *cobra.Command, args []string) error {
	store, err := storage.New(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	name := args[0]
	if flagWipeSpec > 0 {
		st, err := store.LoadStore(name)
		if err != nil {
			return err
		}
		st.ClearAll(flagWipeSpec)
		if err := store.SaveStore(st); err != nil {
			return err
		}
		fmt.Printf("cleared spec %d layouts for %s\n", flagWipeSpec, name)
		return nil
	}
	if err := store.DeleteCharacter(name); err != nil {
		return err
	}
	fmt.Printf("deleted save file for %s\n", name)
	return nil
}

func init() {
	layoutsCmd.Flags().IntVar(&flagShowLevel, "level", 0, "only this level")
	layoutsCmd.Flags().IntVar(&flagShowSpec, "spec", 0, "only this specialization")
	pruneCmd.Flags().IntVar(&flagPruneBelow, "below", 0, "keep layouts at or above this level (default: highest seen)")
	pruneCmd.Flags().IntVar(&flagPruneSpec, "spec", 0, "only this specialization (default: all)")
	wipeCmd.Flags().IntVar(&flagWipeSpec, "spec", 0, "clear one specialization instead of deleting the file")

	rootCmd.AddCommand(layoutsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(wipeCmd)
}
