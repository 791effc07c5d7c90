package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/voclaria/voclaria/cmd/voclariactl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "voclariactl",
		Short:        "Operator tools for the Voclaria backend",
		SilenceUsage: true,
	}

	cmd.AddConnectionFlags(rootCmd)

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.SeedDemoCmd())
	rootCmd.AddCommand(cmd.AvatarCmd())
	rootCmd.AddCommand(cmd.TokensCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
