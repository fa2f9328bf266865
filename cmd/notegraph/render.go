package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notegraph/notegraph/internal/render"
)

var renderCmd = &cobra.Command{
	Use:     "render <file>",
	GroupID: "content",
	Short:   "Render a note to HTML",
	Long: `Render a markdown note to HTML on stdout.

By default the repository is synchronized first so wiki links resolve to the
notes they name and the file must live in the content folder. With --offline
any markdown file is rendered as-is and wiki links point at "<name>.md".

Use --css to print the stylesheet for highlighted code blocks instead.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if css, _ := cmd.Flags().GetString("css"); css != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if style, _ := cmd.Flags().GetString("css"); style != "" {
			css, err := render.HighlightCSS(style)
			if err != nil {
				return err
			}
			fmt.Print(css)
			return nil
		}

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		if offline, _ := cmd.Flags().GetBool("offline"); offline {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			fmt.Println(render.NewMarkdown(render.WithLogger(newLogger("render"))).Render(string(content)))
			return nil
		}

		a, err := newApp(appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		html, err := a.orch.RenderFile(cmd.Context(), path)
		if err != nil {
			return err
		}
		fmt.Println(html)
		return nil
	},
}

func init() {
	renderCmd.Flags().Bool("offline", false, "Render without synchronizing the repository")
	renderCmd.Flags().String("css", "", "Print highlight CSS for the named chroma style (e.g. "+render.DefaultStyle+")")
	rootCmd.AddCommand(renderCmd)
}
