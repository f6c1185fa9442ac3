package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amosWeiskopf/seosmith/internal/config"
	"github.com/amosWeiskopf/seosmith/pkg/analyzer"
	"github.com/amosWeiskopf/seosmith/pkg/cms"
	"github.com/amosWeiskopf/seosmith/pkg/crawler"
	"github.com/amosWeiskopf/seosmith/pkg/provider"
	"github.com/amosWeiskopf/seosmith/pkg/reflexion"
	"github.com/amosWeiskopf/seosmith/pkg/reporter"
	"github.com/amosWeiskopf/seosmith/pkg/scheduler"
	"github.com/amosWeiskopf/seosmith/pkg/sitemap"
	"github.com/amosWeiskopf/seosmith/pkg/utils"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "seosmith",
	Short: "SEOSmith - sitemap-driven SEO audit with AI rewrite suggestions",
	Long: `SEOSmith crawls a site's sitemap, audits every page's metadata, and
schedules AI generation jobs across a pool of provider credentials to
produce length-constrained title and description rewrites.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [URL]",
	Short: "Build the site page inventory from its sitemap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		explicit, _ := cmd.Flags().GetString("sitemap")

		pages, err := buildEngine(cfg, logger).CrawlSite(cmd.Context(), args[0], explicit, progressPrinter("crawl"))
		if err != nil {
			return fmt.Errorf("crawl failed: %w", err)
		}

		out, err := json.MarshalIndent(pages, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(cmd, string(out))
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit [URL]",
	Short: "Crawl, analyze, and generate rewrite suggestions for every page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		explicit, _ := cmd.Flags().GetString("sitemap")

		report, err := runAudit(cmd.Context(), cfg, logger, args[0], explicit)
		if err != nil {
			return err
		}

		rendered, err := reporter.Render(report, format)
		if err != nil {
			return err
		}
		return writeOutput(cmd, rendered)
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [URL]",
	Short: "Audit the site and push the top suggestion per page to the CMS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.CMS.Endpoint == "" {
			return fmt.Errorf("cms.endpoint is not configured")
		}
		explicit, _ := cmd.Flags().GetString("sitemap")

		report, err := runAudit(cmd.Context(), cfg, logger, args[0], explicit)
		if err != nil {
			return err
		}

		updater := cms.NewHTTPUpdater(cfg.CMS.Endpoint, cfg.CMS.Token)
		applied := 0
		for _, result := range report.Results {
			if result.Error != "" || len(result.Suggestions) == 0 {
				continue
			}
			best := result.Suggestions[0]
			update := cms.Update{URL: result.URL, NewTitle: best.Title, NewDescription: best.Description}
			if err := updater.ApplyUpdate(cmd.Context(), update); err != nil {
				logger.Error().Str("url", result.URL).Err(err).Msg("failed to apply update")
				continue
			}
			applied++
		}
		fmt.Printf("Applied %d of %d page updates\n", applied, len(report.Results))
		return nil
	},
}

func runAudit(ctx context.Context, cfg *config.Config, logger zerolog.Logger, siteURL, explicitSitemap string) (*reporter.AuditReport, error) {
	pages, err := buildEngine(cfg, logger).CrawlSite(ctx, siteURL, explicitSitemap, progressPrinter("crawl"))
	if err != nil {
		return nil, fmt.Errorf("crawl failed: %w", err)
	}

	capabilities, err := buildCapabilities(cfg.Providers)
	if err != nil {
		return nil, err
	}

	report := &reporter.AuditReport{
		Domain:      utils.GetDomainFromURL(siteURL),
		GeneratedAt: time.Now(),
		TotalPages:  len(pages),
		Findings:    analyzer.Analyze(pages),
	}

	sched, err := scheduler.New(capabilities,
		scheduler.WithCooldown(cfg.Scheduler.Cooldown),
		scheduler.WithMaxRetries(cfg.Scheduler.MaxRetries),
		scheduler.WithClusterCap(cfg.Scheduler.ClusterCap),
		scheduler.WithRefiner(reflexion.New(reflexion.WithLogger(logger))),
		scheduler.WithLogger(logger),
		scheduler.WithOnProgress(progressPrinter("generate")),
		scheduler.WithOnResult(func(r scheduler.JobResult) {
			page := reporter.PageResult{URL: r.URL, Provider: r.Provider, Suggestions: r.Suggestions}
			if r.Err != nil {
				page.Error = r.Err.Error()
			}
			for _, p := range pages {
				if p.URL == r.URL {
					page.Title = p.Title
					break
				}
			}
			report.Results = append(report.Results, page)
		}),
	)
	if err != nil {
		return nil, err
	}

	stats, err := sched.ProcessQueue(ctx, pages, scheduler.SharedContext{})
	if err != nil {
		return nil, fmt.Errorf("suggestion generation failed: %w", err)
	}
	logger.Info().Int("total", stats.Total).Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).Msg("audit complete")

	return report, nil
}

func buildEngine(cfg *config.Config, logger zerolog.Logger) *crawler.Engine {
	resolver := sitemap.New(
		sitemap.WithUserAgent(cfg.Crawler.UserAgent),
		sitemap.WithLogger(logger),
	)
	validator := crawler.NewValidator(nil, cfg.Crawler.UserAgent, logger)
	fetcher := crawler.NewFetcher(cfg.Crawler.UserAgent,
		crawler.WithFetchTimeout(cfg.Crawler.FetchTimeout),
		crawler.WithMaxRetries(cfg.Crawler.MaxRetries),
		crawler.WithRateLimit(cfg.Crawler.RequestsPerSecond),
		crawler.WithFetcherLogger(logger),
	)
	return crawler.NewEngine(resolver, validator, fetcher,
		crawler.WithValidateConcurrency(cfg.Crawler.ValidateConcurrency),
		crawler.WithFetchConcurrency(cfg.Crawler.FetchConcurrency),
		crawler.WithEngineLogger(logger),
	)
}

// buildCapabilities turns configured credentials into scheduler workers.
// Vendor-specific clients register here; "local" is the offline heuristic.
func buildCapabilities(providers []config.ProviderConfig) ([]provider.Capability, error) {
	capabilities := make([]provider.Capability, 0, len(providers))
	for _, p := range providers {
		switch p.Vendor {
		case "local":
			capabilities = append(capabilities, provider.NewLocal(p.Name))
		default:
			return nil, fmt.Errorf("unsupported provider vendor: %s", p.Vendor)
		}
	}
	return capabilities, nil
}

func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if cfg.Logging.Format == "json" {
		logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	}
	return cfg, logger, nil
}

func progressPrinter(stage string) func(completed, total int) {
	return func(completed, total int) {
		fmt.Fprintf(os.Stderr, "\r[%s] %d/%d", stage, completed, total)
		if completed == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func writeOutput(cmd *cobra.Command, content string) error {
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		fmt.Println(content)
		return nil
	}
	if err := os.WriteFile(output, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("Saved to %s\n", output)
	return nil
}

func init() {
	crawlCmd.Flags().String("sitemap", "", "Explicit sitemap URL, skips discovery")
	crawlCmd.Flags().String("output", "", "Output file for the page inventory")

	auditCmd.Flags().String("sitemap", "", "Explicit sitemap URL, skips discovery")
	auditCmd.Flags().String("format", "json", "Report format (json, markdown)")
	auditCmd.Flags().String("output", "", "Output file for the report")

	optimizeCmd.Flags().String("sitemap", "", "Explicit sitemap URL, skips discovery")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(optimizeCmd)

	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
