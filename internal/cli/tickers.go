package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenscope/internal/validation"
)

func newTickersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tickers <symbol>...",
		Short: "Show 24h exchange tickers",
		Long: `Show 24h exchange tickers for trading pairs.

EXAMPLES:
  tokenscope tickers BTCUSDT ETHUSDT bnbusdt
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := validation.NormalizeTickerSymbols(args)
			if err := validation.ValidateTickerSymbols(symbols); err != nil {
				return err
			}

			tickers, err := opts.client().Tickers(cmd.Context(), symbols...)
			if err != nil {
				return fmt.Errorf("failed to fetch tickers: %w", err)
			}

			out := cmd.OutOrStdout()
			asJSON, err := useJSON(opts.output, out)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, tickers)
			}

			keys := make([]string, 0, len(tickers))
			for k := range tickers {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tLAST\t24H\tHIGH\tLOW\tQUOTE VOLUME")
			for _, k := range keys {
				tk := tickers[k]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					k,
					formatDecimal(tk.LastPrice, 4),
					formatPercent(tk.PriceChangePercent),
					formatDecimal(tk.HighPrice, 4),
					formatDecimal(tk.LowPrice, 4),
					formatDecimal(tk.QuoteVolume, 0),
				)
			}
			if missing := len(symbols) - len(tickers); missing > 0 {
				fmt.Fprintf(w, "\n(%d symbols not listed)\n", missing)
			}
			return w.Flush()
		},
	}
}
