package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenscope/internal/validation"
	"github.com/pendergraft/tokenscope/pkg/client"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <address|symbol>",
		Short: "Search tokens by contract address or symbol",
		Long: `Search tokens by contract address or symbol.

An address is looked up on every active chain. A symbol is matched against
market data providers and the popular token lists.

EXAMPLES:
  tokenscope search WETH
  tokenscope search 0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48 -o json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(args[0])
			if err := validation.ValidateQuery(query); err != nil {
				return err
			}

			resp, err := opts.client().Search(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			tokens := resp.Data
			if limit > 0 && len(tokens) > limit {
				tokens = tokens[:limit]
			}

			out := cmd.OutOrStdout()
			asJSON, err := useJSON(opts.output, out)
			if err != nil {
				return err
			}
			if asJSON {
				resp.Data = tokens
				return writeJSON(out, resp)
			}

			if len(tokens) == 0 {
				fmt.Fprintf(out, "No tokens found for %q\n", query)
				return nil
			}
			printTokens(out, tokens)
			if len(tokens) < resp.Count {
				fmt.Fprintf(out, "\n(showing %d of %d results)\n", len(tokens), resp.Count)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results to show")

	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <chain-id> <address>",
		Short: "Show one token with market data",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := validation.ParseChainID(args[0])
			if err != nil {
				return err
			}
			if err := validation.ValidateAddress(args[1]); err != nil {
				return err
			}

			tok, err := opts.client().Token(cmd.Context(), chainID, args[1])
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("token %s not found on chain %d", args[1], chainID)
				}
				return fmt.Errorf("lookup failed: %w", err)
			}

			out := cmd.OutOrStdout()
			asJSON, err := useJSON(opts.output, out)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, tok)
			}
			printTokens(out, []client.Token{*tok})
			return nil
		},
	}
}

func printTokens(out io.Writer, tokens []client.Token) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tCHAIN\tADDRESS\tPRICE (USD)\t24H\tSOURCE\tFLAGS")
	for _, t := range tokens {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			t.Symbol,
			t.Name,
			t.ChainID,
			shortAddress(t.Address),
			formatDecimal(t.PriceUSD, 4),
			formatPercent(t.Change24h),
			t.Source,
			tokenFlags(t),
		)
	}
	w.Flush()
}

func tokenFlags(t client.Token) string {
	var flags []string
	if t.Popular {
		flags = append(flags, "popular")
	}
	if t.Verified {
		flags = append(flags, "verified")
	}
	if t.Native {
		flags = append(flags, "native")
	}
	return strings.Join(flags, ",")
}
