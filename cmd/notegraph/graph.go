package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:     "graph",
	GroupID: "content",
	Short:   "Print the wiki-link graph as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		statsOnly, _ := cmd.Flags().GetBool("stats")

		a, err := newApp(appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.orch.Graph(cmd.Context())
		if err != nil {
			return err
		}

		if statsOnly {
			fmt.Println(g.Stats())
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	},
}

func init() {
	graphCmd.Flags().Bool("stats", false, "Print only node and link counts")
	rootCmd.AddCommand(graphCmd)
}
