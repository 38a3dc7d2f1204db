package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ragsearch/retrieval"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List retriever kinds and their required keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tREQUIRED KEYS\tDESCRIPTION")
		for _, k := range retrieval.Kinds() {
			keys := append([]string{"kind"}, retrieval.RequiredKeys(k)...)
			fmt.Fprintf(tw, "%s\t%s\t%s\n", k, strings.Join(keys, ", "), k.Description())
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(kindsCmd)
}
