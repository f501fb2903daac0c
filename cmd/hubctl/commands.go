package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/catalog"
	"github.com/boddenberg/household-hub-bfa/internal/config"
	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/infra/backend"
	"github.com/boddenberg/household-hub-bfa/internal/service"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hubctl",
		Short:         "Household hub maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newCatalogCmd(), newReconcileCmd(), newTokenCmd())
	return root
}

// =============================================================================
// CATALOG
// =============================================================================

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [section...]",
		Short: "Print the embedded section catalog as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			out, err := cat.YAML(args...)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// =============================================================================
// RECONCILE
// =============================================================================

func newReconcileCmd() *cobra.Command {
	var section, category, recordsPath string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a saved list payload against the catalog and print the board",
		Long: `Reads a backend list response (the full envelope, the payload object or a
bare array) and prints the slot board the dashboard would render for it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			sec, err := cat.Lookup(section)
			if err != nil {
				return err
			}
			if category == "" {
				category = sec.DefaultCategory()
			}
			if !sec.HasCategory(category) {
				return fmt.Errorf("unknown category %q for %s (have %v)", category, sec.Key, sec.CategoryNames())
			}

			raw, err := os.ReadFile(recordsPath)
			if err != nil {
				return fmt.Errorf("read records: %w", err)
			}
			records, err := backend.DecodeRecords(sec, raw)
			if err != nil {
				return fmt.Errorf("decode records: %w", err)
			}

			board := domain.BuildBoard(sec, category, records, time.Now().UTC())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(board)
		},
	}

	cmd.Flags().StringVar(&section, "section", "", "section key, e.g. utilities")
	cmd.Flags().StringVar(&category, "category", "", "category tab (defaults to the first)")
	cmd.Flags().StringVar(&recordsPath, "records", "", "path to a JSON list payload")
	_ = cmd.MarkFlagRequired("section")
	_ = cmd.MarkFlagRequired("records")
	return cmd
}

// =============================================================================
// TOKEN
// =============================================================================

func newTokenCmd() *cobra.Command {
	var user string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development bearer token with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = config.LoadDotEnv(".env")
			cfg := config.Load()

			token, err := service.NewTokenService(cfg.JWTSecret).Issue(user, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user the token names")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
