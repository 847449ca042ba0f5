// cmd/wordlists.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"

	"hiddenParamsGo/internal/core"
)

var wordlistsCmd = &cobra.Command{
	Use:   "wordlists",
	Short: "List the built-in wordlists.",
	Run: func(cmd *cobra.Command, args []string) {
		wm := core.NewWordlistManager()
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "Name", "Words", "Tags", "Description"})
		for _, wl := range wm.ListWordlists() {
			t.AppendRow(table.Row{wl.ID, wl.Name, wl.Size, strings.Join(wl.Tags, ", "), wl.Description})
		}
		t.Render()
	},
}

var wordlistsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print the words of a built-in wordlist, one per line.",
	Example: `  hiddenparams wordlists show common_parameters > params.txt
  hiddenparams wordlists show custom_values`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wl := core.NewWordlistManager().GetWordlist(args[0])
		if wl == nil {
			return fmt.Errorf("unknown wordlist %q", args[0])
		}
		for _, w := range wl.Words {
			fmt.Fprintln(cmd.OutOrStdout(), w)
		}
		if !silent {
			color.New(color.FgHiBlack).Fprintf(cmd.ErrOrStderr(), "%d words\n", wl.Size)
		}
		return nil
	},
}

func init() {
	wordlistsCmd.AddCommand(wordlistsShowCmd)
	rootCmd.AddCommand(wordlistsCmd)
}
