package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notegraph/notegraph/internal/history"
	"github.com/notegraph/notegraph/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "admin",
	Short:   "List recent sync runs",
	Long: `List refreshes and patches recorded in the sync journal (history.path),
newest first.

Example usage:
  notegraph history
  notegraph history --limit 50 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		if appConfig.History.Path == "" {
			return errors.New("history is disabled (history.path is empty)")
		}
		store, err := history.Open(appConfig.History.Path, appConfig.History.Keep, newLogger("history"))
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if asJSON {
			if runs == nil {
				runs = []history.Run{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		if len(runs) == 0 {
			fmt.Println(ui.RenderMuted("No sync runs recorded yet."))
			return nil
		}
		fmt.Print(ui.RenderHistory(runs))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().Bool("json", false, "Output JSON")
	rootCmd.AddCommand(historyCmd)
}
