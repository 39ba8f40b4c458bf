// kabuai — fundamental valuation and growth analysis for Japanese equities
// from J-Quants data.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/kabuai/internal/analyzer"
	"github.com/seenimoa/kabuai/internal/config"
	"github.com/seenimoa/kabuai/internal/infra"
	"github.com/seenimoa/kabuai/internal/jquants"
	"github.com/seenimoa/kabuai/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kabuai",
	Short: "kabuai — fundamental valuation and growth analysis for Japanese equities",
	Long: `kabuai reads listed-company statements and daily prices from J-Quants and
produces valuation and growth reports: PER, PBR, ROE, margins, multi-year
CAGR, growth trend and consistency, 0-100 scores and a recommendation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		logger = infra.NewLogger(level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(valuationCmd)
	rootCmd.AddCommand(growthCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(companyCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(statusCmd)
}

// newClient builds the J-Quants client from the loaded config.
func newClient() *jquants.Client {
	return jquants.NewFromConfig(cfg.JQuants, logger)
}

// newAnalyzer builds the analysis pipeline over a fresh client.
func newAnalyzer() *analyzer.Analyzer {
	return analyzer.New(newClient(), cfg, analyzer.WithLogger(logger))
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kabuai %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  kabuai — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (JST):    %s\n", utils.FormatDateTimeJST(utils.NowJST()))
		fmt.Println()

		fmt.Println("  Configuration:")
		if cfg.File != "" {
			fmt.Printf("    Config File:   %s\n", cfg.File)
		}
		fmt.Printf("    J-Quants API:  %s (min interval %s)\n", cfg.JQuants.BaseURL, cfg.JQuants.MinInterval())
		fmt.Printf("    Analysis:      %d years, concurrency %d\n", cfg.Analysis.AnalysisYears, cfg.Analysis.Concurrency)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		if cfg.Watchlist.Enabled {
			fmt.Printf("    Watchlist:     %d codes (%s)\n", len(cfg.Watchlist.Codes), cfg.Watchlist.Schedule)
		} else {
			fmt.Println("    Watchlist:     disabled")
		}
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if ping, _ := cmd.Flags().GetBool("ping"); ping {
			fmt.Println()
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			start := time.Now()
			if err := newClient().Ping(ctx); err != nil {
				fmt.Printf("  J-Quants:      ❌ %v\n", err)
			} else {
				fmt.Printf("  J-Quants:      ✅ authenticated in %s\n", time.Since(start).Round(time.Millisecond))
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("ping", false, "verify the refresh token against the J-Quants API")
}
