package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/repository"
	"github.com/voclaria/voclaria/internal/storage"
)

func AvatarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Inspect stored avatars",
	}
	cmd.AddCommand(avatarResolveCmd())
	return cmd
}

func avatarResolveCmd() *cobra.Command {
	var (
		s3  storage.S3Config
		ttl time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve <user-id>...",
		Short: "Print the signed avatar URL for each user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			store, err := storage.NewS3Storage(s3)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			resolver := avatar.NewResolver(store, avatar.Config{Bucket: s3.Bucket, TTL: ttl})

			profiles, err := repository.NewProfileRepository(database).ByIDs(cmd.Context(), args)
			if err != nil {
				return err
			}
			hints := make(map[string]string, len(args))
			for _, id := range args {
				hints[id] = ""
			}
			for _, p := range profiles {
				hints[p.ID] = p.StoredAvatar()
			}

			urls := resolver.ResolveAll(cmd.Context(), hints)
			for _, id := range args {
				url := urls[id]
				if url == "" {
					url = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, url)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&s3.Region, "s3-region", envOr("S3_REGION", "us-east-1"), "S3 region")
	cmd.Flags().StringVar(&s3.Bucket, "s3-bucket", envOr("S3_BUCKET", "avatars"), "S3 bucket")
	cmd.Flags().StringVar(&s3.AccessKey, "s3-access-key", envOr("S3_ACCESS_KEY", ""), "S3 access key")
	cmd.Flags().StringVar(&s3.SecretKey, "s3-secret-key", envOr("S3_SECRET_KEY", ""), "S3 secret key")
	cmd.Flags().StringVar(&s3.Endpoint, "s3-endpoint", envOr("S3_ENDPOINT", ""), "S3-compatible endpoint")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "signed URL lifetime")
	return cmd
}
