// Package commands defines the CLI command structure and flag bindings.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the metalhook CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metalhook",
		Short: "Provision bare-metal hosts from reservation webhook events",
	}

	cmd.AddCommand(Serve())
	cmd.AddCommand(Version())

	return cmd
}
