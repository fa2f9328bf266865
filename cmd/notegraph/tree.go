package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/notegraph/notegraph/internal/ui"
)

var treeCmd = &cobra.Command{
	Use:     "tree",
	GroupID: "content",
	Short:   "Print the category tree",
	Long: `Synchronize if needed and print the category tree.

Formats:
  text  indented tree (default)
  json  the same document served by /api/study/tree
  yaml  YAML rendering of the tree`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		links, _ := cmd.Flags().GetBool("links")
		dates, _ := cmd.Flags().GetBool("dates")

		a, err := newApp(appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		root, err := a.orch.CurrentTree(cmd.Context())
		if err != nil {
			return err
		}

		switch format {
		case "text":
			fmt.Print(ui.RenderTree(root, ui.TreeOptions{Links: links, Dates: dates}))
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(root)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(root)
		default:
			return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
		}
		return nil
	},
}

func init() {
	treeCmd.Flags().StringP("format", "f", "text", "Output format: text, json or yaml")
	treeCmd.Flags().Bool("links", false, "Show each note's link targets (text format)")
	treeCmd.Flags().Bool("dates", false, "Show modification dates (text format)")
	rootCmd.AddCommand(treeCmd)
}
