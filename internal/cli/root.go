// Package cli implements the tokenscope command line client.
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pendergraft/tokenscope/pkg/client"
)

type rootOptions struct {
	server string
	output string
}

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "tokenscope",
		Short: "Token search and market data CLI",
		Long: `tokenscope resolves token addresses and symbols across EVM chains and
shows market data from a tokenscope server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", "", "server URL (default $TOKENSCOPE_SERVER or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "auto", "output format: auto, table or json")

	rootCmd.AddCommand(newSearchCmd(opts))
	rootCmd.AddCommand(newTokenCmd(opts))
	rootCmd.AddCommand(newChainsCmd(opts))
	rootCmd.AddCommand(newTickersCmd(opts))

	return rootCmd
}

// serverURL returns the server URL from flag, env or the default
func (o *rootOptions) serverURL() string {
	if o.server != "" {
		return o.server
	}
	if env := strings.TrimSpace(os.Getenv("TOKENSCOPE_SERVER")); env != "" {
		return env
	}
	return "http://localhost:8080"
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.serverURL())
}
