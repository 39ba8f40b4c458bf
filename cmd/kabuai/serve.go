package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/kabuai/api"
	"github.com/seenimoa/kabuai/internal/mcptools"
	"github.com/seenimoa/kabuai/internal/watchlist"
)

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and the watchlist scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := newAnalyzer()
		srv := api.NewServer(cfg, a, api.WithLogger(logger), api.WithVersion(version))

		if cfg.Watchlist.Enabled && len(cfg.Watchlist.Codes) > 0 {
			timeout := time.Duration(len(cfg.Watchlist.Codes)*cfg.Analysis.Timeout) * time.Second
			job := watchlist.NewRefreshJob(a, cfg.Watchlist.Codes, srv.Hub(), logger, watchlist.WithTimeout(timeout))
			srv.SetWatchlist(job)

			sched := watchlist.NewScheduler(logger)
			if err := sched.AddJob(cfg.Watchlist.Schedule, job); err != nil {
				return fmt.Errorf("invalid watchlist schedule %q: %w", cfg.Watchlist.Schedule, err)
			}
			sched.Start()
			defer sched.Stop()
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Fprintf(os.Stderr, "🌐 Starting kabuai API server on %s\n", addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

// --- MCP Command ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve analyze_valuation and analyze_growth as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := mcptools.NewServer(newAnalyzer(), version, logger)
		logger.Info().Str("version", version).Msg("MCP server starting on stdio")
		return mcptools.Serve(s)
	},
}
