package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/notegraph/notegraph/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "admin",
	Short:   "Clone or pull the repository and rebuild the tree once",
	Long: `Synchronize the working copy with the remote and rebuild the category tree.

With --precache the command also renders every note and prints the cache
statistics afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		precache, _ := cmd.Flags().GetBool("precache")

		a, err := newApp(appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("%s Syncing %s (%s)...\n", ui.RenderAccent("→"), appConfig.Repo.URL, a.repo.Branch())
		start := time.Now()
		if err := a.orch.Refresh(cmd.Context()); err != nil {
			return err
		}

		st := a.orch.State()
		dirs, files := st.Root.Count()
		head := st.Head
		if len(head) > 12 {
			head = head[:12]
		}
		fmt.Printf("%s Synced %s at %s: %d directories, %d notes in %v\n",
			ui.RenderOK("✓"), st.ContentRoot, head, dirs, files, time.Since(start).Round(time.Millisecond))

		if precache {
			a.orch.Wait()
			fmt.Println()
			fmt.Print(ui.RenderCacheStats(a.cache.Stats()))
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("precache", false, "Render every note and report cache statistics")
	rootCmd.AddCommand(syncCmd)
}
