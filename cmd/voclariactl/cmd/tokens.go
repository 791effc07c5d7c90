package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/voclaria/voclaria/internal/repository"
)

func TokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain one-time email tokens",
	}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete confirmation and reset tokens that expired or were used",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := repository.NewTokenRepository(database).Purge(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d tokens\n", n)
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "keep tokens that expired or were used within this window")
	cmd.AddCommand(purge)

	return cmd
}
