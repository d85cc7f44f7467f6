// Command scraper collects LinkedIn job listings or MercadoLibre products
// with a headless browser and exports them as CSV.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/josequispe9/ScraperMELI-Linkedin/config"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitInvalid = 2
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra usage errors: unknown flag, bad value
	return exitInvalid
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	outputDir  string
	logLevel   string
}

// siteFlags are the per-run flags of jobs and products.
type siteFlags struct {
	terms    []string
	maxItems int
	test     bool
}

func newRootCmd(a *app) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Scrape LinkedIn jobs or MercadoLibre products into CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (.yaml, .yml or .toml)")
	root.PersistentFlags().StringVar(&g.outputDir, "output", "", "output directory (overrides export.dir)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newSiteCmd(a, g, "jobs", "linkedin", "max-jobs", "Scrape LinkedIn job listings"),
		newSiteCmd(a, g, "products", "mercadolibre", "max-products", "Scrape MercadoLibre products"),
		newCredentialsCmd(g),
	)
	return root
}

func newSiteCmd(a *app, g *globalFlags, use, siteName, maxFlag, short string) *cobra.Command {
	f := &siteFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return &exitError{code: exitInvalid, err: err}
			}
			return a.run(cmd.Context(), cfg, siteName, f)
		},
	}
	cmd.Flags().StringSliceVar(&f.terms, "terms", nil, "search terms (comma separated or repeated)")
	cmd.Flags().IntVar(&f.maxItems, maxFlag, 0, "run-wide item cap (overrides config)")
	cmd.Flags().BoolVar(&f.test, "test", false, "quick run: one term, at most 10 items")
	return cmd
}

// loadConfig loads the configuration and applies the global flags, then
// sets up logging.
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.outputDir != "" {
		cfg.Export.Dir = g.outputDir
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	initLogger(cfg.Log)
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, &app{launch: launchBrowser}, os.Args[1:])
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	if a.in != nil {
		root.SetIn(a.in)
	}
	if a.out != nil {
		root.SetOut(a.out)
	}
	err := root.ExecuteContext(ctx)
	code := exitCode(err)
	if err != nil && code == exitInvalid {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return code
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
