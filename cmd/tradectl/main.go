package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/config"
	"github.com/baljotchohan/Trade-Track-App/internal/database"
	"github.com/baljotchohan/Trade-Track-App/internal/export"
	"github.com/baljotchohan/Trade-Track-App/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	userFlag   string
	outFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "tradectl",
	Short: "Admin CLI for the Trade Track journal",
	Long: `Tradectl operates directly on the Trade Track database, bypassing the
web server and its authentication. It is intended for operators:
running schema migrations, inspecting a user's statistics, and
exporting a user's journal to CSV.`,
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run schema migration against the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := openRepo()
		if err != nil {
			return err
		}
		fmt.Println("schema migrated")
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a user's trading statistics as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}

		stats, err := repo.GetTradingStats(context.Background(), userFlag)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's trades as CSV to a file or stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}

		trades, err := repo.ListTradesInRange(context.Background(), userFlag, time.Unix(0, 0), time.Now())
		if err != nil {
			return err
		}

		out := os.Stdout
		if outFlag != "" {
			f, err := os.Create(outFlag)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return export.WriteTrades(out, trades)
	},
}

// openRepo connects to the configured database (running migration as a side
// effect) and returns a repository over it.
func openRepo() (*storage.Repository, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, err
	}
	return storage.NewRepository(db, zap.NewNop()), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs", "directory containing config.yml")

	statsCmd.Flags().StringVar(&userFlag, "user", "", "user ID")
	statsCmd.MarkFlagRequired("user")

	exportCmd.Flags().StringVar(&userFlag, "user", "", "user ID")
	exportCmd.Flags().StringVar(&outFlag, "out", "", "output file (default stdout)")
	exportCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(migrateCmd, statsCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
