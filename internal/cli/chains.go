package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newChainsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List chains active on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chains, err := opts.client().Chains(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list chains: %w", err)
			}

			out := cmd.OutOrStdout()
			asJSON, err := useJSON(opts.output, out)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, map[string]any{"chains": chains, "count": len(chains)})
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tGECKOTERMINAL\tDEXSCREENER\tPOPULAR")
			for _, c := range chains {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					c.ChainID, c.Name, c.GeckoTerminalNetwork, c.DexScreenerChain, strings.Join(c.PopularTokens, " "))
			}
			return w.Flush()
		},
	}
}
