package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the walletd command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "walletd",
		Short:         "Wallet session daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(serveCmd(), statusCmd(), connectCmd(), disconnectCmd())
	return root
}

// Execute runs the command line
func Execute() error {
	return NewRootCommand().Execute()
}
