package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/config"
	"github.com/jfmartin/lotoscope/internal/pipeline"
	"github.com/jfmartin/lotoscope/internal/report"
	"github.com/jfmartin/lotoscope/internal/rules"
	"github.com/jfmartin/lotoscope/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "lotoscope",
	Short:   "Assistant statistique pour les jeux de tirage FDJ",
	Long:    "lotoscope maintains a local archive of official draw results, computes statistical features over it, and recommends scored grids for Loto, EuroMillions, EuroDreams and Keno.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lotoscope", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/lotoscope/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to adjust the archive path, result sources, and recommender policy.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archive statistics per game",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		for _, r := range rules.All() {
			stats, err := db.GetStats(r.Name)
			if err != nil {
				return fmt.Errorf("getting stats for %s: %w", r.Name, err)
			}
			next, _ := rules.NextDrawDate(r.Name, time.Now().UTC())

			fmt.Printf("%s:\n", r.Name)
			fmt.Printf("  Draws stored: %d\n", stats.Draws)
			if stats.Draws > 0 {
				fmt.Printf("  First draw: %s\n", stats.FirstDraw)
				fmt.Printf("  Last draw: %s\n", stats.LastDraw)
			}
			fmt.Printf("  Next draw: %s\n", next.Format(archive.DateLayout))
			fmt.Printf("  Played grids: %d (%d settled)\n", stats.PlayedGrids, stats.Settled)
			fmt.Printf("  Reports: %d\n\n", stats.Reports)
		}
		return nil
	},
}

// --- ingest command ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch official results for every enabled game",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, db, err := openApp()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Fetching official results...")
		summary, err := app.RunIngestCycle(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("\nIngest run %s complete:\n", summary.RunID)
		fmt.Printf("  Inserted: %d\n", summary.Inserted())
		fmt.Printf("  Duplicates skipped: %d\n", summary.SkippedDuplicate())
		fmt.Printf("  Rejected: %d\n", summary.Rejected())
		fmt.Printf("  Failures: %d\n", summary.Failures())

		games := make([]string, 0, len(summary.Games))
		for g := range summary.Games {
			games = append(games, string(g))
		}
		sort.Strings(games)
		fmt.Println("\nBy game:")
		for _, g := range games {
			gs := summary.Games[rules.Game(g)]
			fmt.Printf("  %s: %d inserted, %d duplicates, %d rejected\n",
				g, gs.Inserted, gs.SkippedDuplicate, gs.Rejected)
		}
		return nil
	},
}

// --- recommend command ---

var (
	recommendCount  int
	recommendSeed   int64
	recommendUnique bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [game]",
	Short: "Recommend scored grids for the next draw",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		game, err := parseGame(args[0])
		if err != nil {
			return err
		}

		app, db, err := openApp()
		if err != nil {
			return err
		}
		defer db.Close()

		req := pipeline.RecommendRequest{Game: game, Count: recommendCount, Unique: recommendUnique}
		if cmd.Flags().Changed("seed") {
			req.Seed = &recommendSeed
		}

		res, err := app.GetRecommendation(cmd.Context(), req)
		if err != nil {
			return err
		}
		if res.Warning != nil {
			fmt.Printf("Warning: %v\n\n", res.Warning)
		}

		for i, g := range res.Grids {
			line := fmt.Sprintf("%d. %v", i+1, g.Main)
			if len(g.Special) > 0 {
				line += fmt.Sprintf(" + %v", g.Special)
			}
			line += fmt.Sprintf("  (score %.3f, confiance %.0f%%, gain espéré %.2f €)",
				g.Score, g.Confidence*100, g.EstimatedGain)
			if g.JackpotFlag {
				line += " ★"
			}
			fmt.Println(line)
		}
		if len(res.Grids) > 0 {
			fmt.Printf("\n%s\n", res.Grids[0].Notice)
		}
		return nil
	},
}

func init() {
	recommendCmd.Flags().IntVarP(&recommendCount, "count", "n", 3, "Number of grids")
	recommendCmd.Flags().Int64Var(&recommendSeed, "seed", 0, "RNG seed (default derives from date + game)")
	recommendCmd.Flags().BoolVar(&recommendUnique, "unique", false, "Force distinct grids")
}

// --- report command ---

var reportKind string

var reportCmd = &cobra.Command{
	Use:   "report [game]",
	Short: "Build and store a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		game, err := parseGame(args[0])
		if err != nil {
			return err
		}
		kind := report.Kind(reportKind)
		switch kind {
		case report.Daily, report.Weekly, report.Monthly:
		default:
			return fmt.Errorf("invalid report kind %q, want daily, weekly or monthly", reportKind)
		}

		app, db, err := openApp()
		if err != nil {
			return err
		}
		defer db.Close()

		rep, err := app.BuildReport(cmd.Context(), game, kind)
		if err != nil {
			return err
		}

		fmt.Printf("Report %s/%s/%s stored.\n", rep.Game, rep.Kind, rep.PeriodID)
		fmt.Printf("  Draws in window: %d\n", rep.Stats.DrawCount)
		fmt.Printf("  Predictions: %d\n", len(rep.Predictions))
		if rep.Warning != "" {
			fmt.Printf("  Warning: %s\n", rep.Warning)
		}
		fmt.Println("\nRun 'lotoscope serve' to view it.")
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportKind, "kind", "k", "daily", "Report kind: daily, weekly or monthly")
}

// --- play and settle commands ---

var (
	playMain    string
	playSpecial string
	playTag     string
)

var playCmd = &cobra.Command{
	Use:   "play [game]",
	Short: "Record a played grid in the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		game, err := parseGame(args[0])
		if err != nil {
			return err
		}
		main, err := parseNumbers(playMain)
		if err != nil {
			return fmt.Errorf("invalid --main: %w", err)
		}
		special, err := parseNumbers(playSpecial)
		if err != nil {
			return fmt.Errorf("invalid --special: %w", err)
		}

		app, db, err := openApp()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := app.RecordPlayedGrid(game, main, special, playTag)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded grid [%d] for %s: %v", id, game, main)
		if len(special) > 0 {
			fmt.Printf(" + %v", special)
		}
		fmt.Println()
		return nil
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle [game]",
	Short: "Settle played grids against arrived draws",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		game, err := parseGame(args[0])
		if err != nil {
			return err
		}

		app, db, err := openApp()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := app.SettlePlayedGrids(cmd.Context(), game)
		if err != nil {
			return err
		}
		fmt.Printf("Settled %d grids (%d still pending).\n", res.Settled, res.Pending)
		if res.Won > 0 {
			fmt.Printf("Winning grids: %d, gross gain %.2f €\n", res.Won, res.Gross)
		}
		return nil
	},
}

func init() {
	playCmd.Flags().StringVar(&playMain, "main", "", "Main numbers, comma separated (e.g. 3,17,22,38,44)")
	playCmd.Flags().StringVar(&playSpecial, "special", "", "Special numbers, comma separated")
	playCmd.Flags().StringVar(&playTag, "tag", "manual", "Model tag recorded with the grid")
	playCmd.MarkFlagRequired("main")
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the background scheduler (nightly ingest, hourly maintenance)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, db, err := openApp()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Scheduler running (ingest at %s, maintenance hourly). Press Ctrl+C to stop.\n",
			cfg.Scheduler.IngestTime)
		return app.RunSchedule(ctx)
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local report server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if !cmd.Flags().Changed("port") && cfg.Server.Port > 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- helpers ---

func openDB() (*archive.DB, error) {
	dbPath := cfg.ArchivePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return archive.Open(dbPath)
}

func openApp() (*pipeline.App, *archive.DB, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	app, err := pipeline.New(cfg, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return app, db, nil
}

func parseGame(arg string) (rules.Game, error) {
	g := rules.Game(strings.ToUpper(strings.TrimSpace(arg)))
	if _, err := rules.Get(g); err != nil {
		return "", err
	}
	return g, nil
}

func parseNumbers(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", p)
		}
		nums = append(nums, n)
	}
	return nums, nil
}
