// Command enrich runs the facility enrichment pipeline: per-topic scraping
// commands, a vision-model extraction pass, and a full sequential run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"oasara-facility-enrichment/internal/config"
	"oasara-facility-enrichment/internal/extract"
	"oasara-facility-enrichment/internal/locate"
	"oasara-facility-enrichment/internal/models"
	"oasara-facility-enrichment/internal/pipeline"
	"oasara-facility-enrichment/internal/store"
	"oasara-facility-enrichment/internal/vision"
)

const (
	defaultLimit       = 10
	defaultVisionLimit = 5
)

// selectionFlags are shared by every subcommand.
type selectionFlags struct {
	facilityID string
	limit      int
	all        bool
}

func (s *selectionFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&s.facilityID, "facility-id", "", "enrich a single facility by id")
	cmd.Flags().IntVar(&s.limit, "limit", defaultLimit, "maximum facilities to process")
	cmd.Flags().BoolVar(&s.all, "all", false, "process every facility with a website")
}

func (s *selectionFlags) selection() models.Selection {
	return models.Selection{FacilityID: s.facilityID, Limit: s.limit, All: s.all}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich medical facility records by scraping their websites",
	}

	rootCmd.AddCommand(
		newStageCmd(models.StageDoctors, "doctors", "Scrape doctor rosters from facility staff pages"),
		newStageCmd(models.StagePricing, "pricing", "Scrape procedure pricing from facility websites"),
		newStageCmd(models.StagePackages, "packages", "Scrape all-inclusive package deals"),
		newStageCmd(models.StageTestimonials, "testimonials", "Scrape testimonials and success metrics"),
		newVisionCmd(),
		newAllCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newStageCmd builds one per-topic command.
func newStageCmd(stage, use, short string) *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer app.close()

			facilities, err := app.store.SelectFacilities(ctx, sel.selection())
			if err != nil {
				return err
			}
			if len(facilities) == 0 {
				app.log.Info().Msg("no facilities to process")
				return nil
			}

			report := app.orchestrator.RunStage(ctx, stage, facilities, pipeline.Options{})
			fmt.Print(report.Render())
			return nil
		},
	}
	sel.register(cmd, defaultLimit)
	return cmd
}

// newVisionCmd builds the vision-only command. It needs an OpenAI key and
// defaults to a smaller batch since every facility costs a model call.
func newVisionCmd() *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Extract facility data from screenshots with a vision model",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := setup(ctx, true)
			if err != nil {
				return err
			}
			defer app.close()

			facilities, err := app.store.SelectFacilities(ctx, sel.selection())
			if err != nil {
				return err
			}
			if len(facilities) == 0 {
				app.log.Info().Msg("no facilities to process")
				return nil
			}

			opts := pipeline.Options{VisionCostUSD: app.cfg.Vision.CostPerCall}
			report := app.orchestrator.RunStage(ctx, models.StageVision, facilities, opts)
			fmt.Print(report.Render())
			return nil
		},
	}
	sel.register(cmd, defaultVisionLimit)
	return cmd
}

// newAllCmd builds the full sequential run.
func newAllCmd() *cobra.Command {
	var (
		sel  selectionFlags
		opts pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run every enrichment stage in sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := setup(ctx, opts.UseVision)
			if err != nil {
				return err
			}
			defer app.close()

			opts.VisionCostUSD = app.cfg.Vision.CostPerCall

			facilities, err := app.store.SelectFacilities(ctx, sel.selection())
			if err != nil {
				return err
			}
			if len(facilities) == 0 {
				app.log.Info().Msg("no facilities to process")
				return nil
			}

			app.log.Info().
				Int("facilities", len(facilities)).
				Bool("doctors", !opts.SkipDoctors).
				Bool("pricing", !opts.SkipPricing).
				Bool("packages", !opts.SkipPackages).
				Bool("testimonials", !opts.SkipTestimonials).
				Bool("vision", opts.UseVision).
				Msg("starting full enrichment run")

			report := app.orchestrator.EnrichBatch(ctx, facilities, opts)
			fmt.Print(report.Render())
			printNextSteps(report, opts)
			return nil
		},
	}
	sel.register(cmd, defaultLimit)
	cmd.Flags().BoolVar(&opts.SkipDoctors, "skip-doctors", false, "skip the doctors stage")
	cmd.Flags().BoolVar(&opts.SkipPricing, "skip-pricing", false, "skip the pricing stage")
	cmd.Flags().BoolVar(&opts.SkipPackages, "skip-packages", false, "skip the packages stage")
	cmd.Flags().BoolVar(&opts.SkipTestimonials, "skip-testimonials", false, "skip the testimonials stage")
	cmd.Flags().BoolVar(&opts.UseVision, "use-ai", false, "also run vision-model extraction on every facility")
	return cmd
}

// printNextSteps suggests follow-up commands after a full run.
func printNextSteps(report models.Report, opts pipeline.Options) {
	fmt.Println("\nNext steps:")
	fmt.Println("   Review the enriched data in the facilities table")
	if report.Enriched < report.Facilities && !opts.UseVision {
		fmt.Println("   Re-run with --use-ai for facilities scraping could not enrich")
	}
	fmt.Println("   Run again with --all to cover the remaining facilities")
}

// app bundles the wired components behind the commands.
type app struct {
	cfg          *config.Config
	log          zerolog.Logger
	store        *store.Store
	orchestrator *pipeline.Orchestrator
}

func (a *app) close() {
	a.store.Close()
}

// setup loads configuration and wires the store, extractors, and
// orchestrator. needVision additionally requires an OpenAI key.
func setup(ctx context.Context, needVision bool) (*app, error) {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if needVision {
		if err := cfg.RequireOpenAI(); err != nil {
			return nil, err
		}
	}

	st, err := store.Connect(ctx, cfg.Database.DatabaseDSN(), log)
	if err != nil {
		return nil, err
	}

	extractor := &extract.Extractor{
		OpenSession: pipeline.NewBrowserSessionFactory(),
		Sink:        st,
		Probe:       locate.NewHTTPProber(),
		Log:         log,
	}

	orchestrator := &pipeline.Orchestrator{
		Stages: extractor,
		Marker: st,
		Log:    log,
	}
	if needVision {
		orchestrator.Vision = &vision.Runner{
			Capture:    pipeline.NewBrowserCapture(),
			Extractor:  vision.NewClient(cfg.OpenAI, cfg.Vision, log),
			Sink:       st,
			Log:        log,
			Confidence: cfg.Vision.ConfidenceScore,
		}
	}

	return &app{cfg: cfg, log: log, store: st, orchestrator: orchestrator}, nil
}

// signalContext cancels on SIGINT/SIGTERM so a run stops between stages
// instead of leaving browsers behind.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
