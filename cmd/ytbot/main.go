package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/memohai/ytbot/internal/auth"
	"github.com/memohai/ytbot/internal/commands/yt"
	"github.com/memohai/ytbot/internal/config"
	"github.com/memohai/ytbot/internal/logger"
	"github.com/memohai/ytbot/internal/version"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ytbot",
		Short:         "Chat bot that searches and delivers YouTube videos",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv(opts.envFile)
		},
	}
	defaultPath := strings.TrimSpace(os.Getenv("CONFIG_PATH"))
	if defaultPath == "" {
		defaultPath = config.DefaultConfigPath
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultPath, "config file (TOML, or YAML by extension)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultDotEnvPath, "dotenv file loaded before the config")

	cmd.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Print the listing the bot would show for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			query := strings.TrimSpace(strings.Join(args, " "))

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Video.HTTPTimeout)
			defer cancel()
			results, err := newVideoClient(log, cfg).Search(ctx, query)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if len(results) == 0 {
				return errors.New("no results")
			}
			if len(results) > cfg.Video.MaxResults {
				results = results[:cfg.Video.MaxResults]
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), yt.FormatListing(query, results))
			return err
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var expiresIn time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a local channel token; each subject chats in its own thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if expiresIn <= 0 {
				expiresIn = cfg.Auth.JWTExpiresIn
			}
			token, expiresAt, err := auth.GenerateToken(args[0], cfg.Auth.JWTSecret, expiresIn)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime (defaults to auth.jwt_expires_in)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetInfo())
		},
	}
}
