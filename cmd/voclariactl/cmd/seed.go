package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/voclaria/voclaria/internal/db"
	"github.com/voclaria/voclaria/internal/repository"
	"github.com/voclaria/voclaria/internal/service"
)

func SeedDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Create the demo teacher, students and class data",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.RunMigrations(cmd.Context(), database.DB, DBDriver); err != nil {
				return err
			}

			seeder := service.NewDemoSeeder(
				repository.NewUserRepository(database),
				repository.NewProfileRepository(database),
				repository.NewTeacherStudentRepository(database),
				repository.NewProgressRepository(database),
				repository.NewLiveSessionRepository(database),
				repository.NewJoinRequestRepository(database),
			)
			seeded, err := seeder.Seed(cmd.Context())
			if err != nil {
				return err
			}

			if !seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "demo data already present")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded demo class, sign in as %s@voclaria.test / %s\n", service.DemoTeacherID, service.DemoPassword)
			return nil
		},
	}
}
