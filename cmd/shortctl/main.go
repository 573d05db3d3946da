package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jack/shortlink-analytics/internal/codegen"
	"github.com/jack/shortlink-analytics/internal/config"
	"github.com/jack/shortlink-analytics/internal/repository"
	"github.com/jack/shortlink-analytics/internal/service"
	"github.com/spf13/cobra"
)

// openStore is replaced in tests.
var openStore = repository.Open

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "shortctl",
		Short:        "Operate the short link store from the command line.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			c.cfg = cfg
			return nil
		},
	}

	root.AddCommand(c.migrateCmd(), c.createCmd(), c.statsCmd())
	return root
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables of the configured store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s).\n", c.cfg.Store.Driver)
			return nil
		},
	}
}

func (c *cli) createCmd() *cobra.Command {
	var (
		targetURL string
		validity  int
		code      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a short link.",
		Example: `  shortctl create --url "https://example.com/landing"
  shortctl create --url "https://example.com" --validity 1440 --code promo2026`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			generator, err := codegen.NewGenerator(c.cfg.URL.ShortCodeLength)
			if err != nil {
				return err
			}
			allocator := service.NewAllocator(store, generator, time.Now, c.cfg.URL.DefaultValidityMinutes, c.cfg.URL.MaxAllocationAttempts)

			req := service.AllocateRequest{TargetURL: targetURL}
			if cmd.Flags().Changed("validity") {
				req.ValidityMinutes = &validity
			}
			if cmd.Flags().Changed("code") {
				req.Shortcode = &code
			}

			url, err := allocator.Allocate(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Code:   %s\n", url.ShortCode)
			if base := strings.TrimRight(c.cfg.App.BaseURL, "/"); base != "" {
				fmt.Fprintf(out, "Link:   %s/%s\n", base, url.ShortCode)
			}
			fmt.Fprintf(out, "Expiry: %s\n", url.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&targetURL, "url", "", "target URL (http or https)")
	cmd.Flags().IntVar(&validity, "validity", 0, "validity in minutes (default from URL_DEFAULT_VALIDITY_MINUTES)")
	cmd.Flags().StringVar(&code, "code", "", "custom shortcode, 3-20 letters or digits")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats CODE",
		Short: "Print click statistics for a shortcode as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			view, err := service.NewStatsProjector(store, time.Now).Project(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}
