package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amosWeiskopf/mapharvest/internal/config"
	"github.com/amosWeiskopf/mapharvest/internal/logging"
	"github.com/amosWeiskopf/mapharvest/internal/server"
	"github.com/amosWeiskopf/mapharvest/pkg/analyzer"
	"github.com/amosWeiskopf/mapharvest/pkg/catalog"
	"github.com/amosWeiskopf/mapharvest/pkg/fetcher"
	"github.com/amosWeiskopf/mapharvest/pkg/reporter"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mapharvest",
	Short: "MapHarvest - OpenStreetMap extract catalog builder",
	Long: `MapHarvest reads the Geofabrik download listings and builds a catalog
of downloadable .osm.pbf extracts, grouped by region with sizes.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the catalog and write it out",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		b, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logging.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := b.Build(ctx)
		if err != nil {
			return explain(err)
		}
		reportDegraded(result)

		var buf bytes.Buffer
		if err := reporter.New().Render(&buf, result.Root, format); err != nil {
			return err
		}

		if output != "" {
			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write catalog: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Catalog saved to %s\n", output)
			return nil
		}
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Build the catalog and print counts, sizes and disabled entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		b, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logging.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := b.Build(ctx)
		if err != nil {
			return explain(err)
		}
		reportDegraded(result)

		s := analyzer.Summarize(result.Root)
		if asJSON {
			return printJSON(s)
		}

		fmt.Printf("Build %s: %d pages fetched\n", result.BuildID, result.Pages)
		fmt.Printf("Regions:    %d\n", len(s.Regions))
		fmt.Printf("Categories: %d\n", s.Categories)
		fmt.Printf("Documents:  %d (%d enabled)\n", s.Documents, s.EnabledDocuments)
		fmt.Printf("Enabled:    %s of %s\n", humanize.IBytes(s.EnabledBytes), humanize.IBytes(s.TotalBytes))
		for _, r := range s.Regions {
			fmt.Printf("  %-32s %10s  %d sub-regions\n", r.Name, humanize.IBytes(r.Size), r.SubRegions)
		}
		if len(s.Disabled) > 0 {
			fmt.Println("Disabled:")
			for _, name := range s.Disabled {
				fmt.Printf("  %s\n", name)
			}
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve freshly built catalogs over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		b, logger, err := newBuilder(cfg)
		if err != nil {
			return err
		}
		defer logging.Sync()

		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      server.New(b, logger).Handler(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	buildCmd.Flags().String("format", reporter.FormatJSON, "Catalog format (json, markdown, text, html)")
	buildCmd.Flags().String("output", "", "Output file for the catalog")

	summaryCmd.Flags().Bool("json", false, "Print the summary as JSON")

	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")

	for _, cmd := range []*cobra.Command{buildCmd, summaryCmd} {
		cmd.Flags().Bool("strict", false, "Abort when any sub-listing cannot be read")
		cmd.Flags().Int("workers", 0, "Concurrent sub-listing fetches (overrides crawler.max_workers)")
		cmd.Flags().String("base-url", "", "Root listing URL (overrides source.base_url)")
	}

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// setup loads config and applies the build flags shared by build and summary
func setup(cmd *cobra.Command) (*catalog.Builder, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		cfg.Crawler.Strict = true
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Crawler.MaxWorkers = workers
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.Source.BaseURL = baseURL
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return newBuilder(cfg)
}

func newBuilder(cfg *config.Config) (*catalog.Builder, *zap.Logger, error) {
	if err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to init logging: %w", err)
	}
	logger := logging.L()

	f := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:         cfg.Crawler.UserAgent,
		Timeout:           cfg.Crawler.Timeout,
		MaxRetries:        cfg.Crawler.MaxRetries,
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
		FollowRobotsTxt:   cfg.Crawler.FollowRobotsTxt,
		Logger:            logger,
	})

	b := catalog.NewBuilder(f,
		catalog.WithBaseURL(cfg.Source.BaseURL),
		catalog.WithWorkers(cfg.Crawler.MaxWorkers),
		catalog.WithStrict(cfg.Crawler.Strict),
		catalog.WithLogger(logger),
	)
	return b, logger, nil
}

// explain prefixes build errors with a hint telling network trouble apart
// from a listing layout the extractor no longer understands
func explain(err error) error {
	switch {
	case catalog.IsTransportError(err):
		return fmt.Errorf("could not reach listing source: %w", err)
	case catalog.IsSourceFormatError(err):
		return fmt.Errorf("listing source format changed: %w", err)
	default:
		return fmt.Errorf("catalog build failed: %w", err)
	}
}

func reportDegraded(result *catalog.Result) {
	for _, d := range result.Degraded {
		fmt.Fprintf(os.Stderr, "warning: %s listed without sub-regions: %v\n", d.Region, d.Err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
