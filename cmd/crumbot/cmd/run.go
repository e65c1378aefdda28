package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/crumbot/internal/bot"
	"github.com/GriffinCanCode/crumbot/internal/config"
	"github.com/GriffinCanCode/crumbot/internal/desktop"
	"github.com/GriffinCanCode/crumbot/internal/dispatch"
	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/game"
	"github.com/GriffinCanCode/crumbot/internal/journal"
	"github.com/GriffinCanCode/crumbot/internal/layout"
	"github.com/GriffinCanCode/crumbot/internal/matcher"
	"github.com/GriffinCanCode/crumbot/internal/metrics"
	"github.com/GriffinCanCode/crumbot/internal/pointer"
	"github.com/GriffinCanCode/crumbot/internal/reader"
	"github.com/GriffinCanCode/crumbot/internal/screen"
	"github.com/GriffinCanCode/crumbot/internal/server"
	"github.com/GriffinCanCode/crumbot/internal/strategy"
	"github.com/GriffinCanCode/crumbot/internal/tooltip"
	"github.com/GriffinCanCode/crumbot/internal/trace"
	"github.com/GriffinCanCode/crumbot/internal/vision"
	"github.com/GriffinCanCode/crumbot/internal/vision/backend"
	"github.com/GriffinCanCode/crumbot/internal/window"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Find the game window and start playing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		closeLog, err := setupLogging(cfg.Logging)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(trace.WithRun(ctx, trace.NewRunID()), cfg)
	},
}

func run(ctx context.Context, cfg *config.Config) error {
	log := trace.Logger(ctx)

	lay, err := layout.Load(cfg.Layout.File)
	if err != nil {
		return err
	}

	locator := window.NewLocator(desktop.Windows{}, cfg.Window.Titles, cfg.Window.Retries,
		cfg.Window.RetryDelay.Duration, cfg.Window.FocusPause.Duration)
	if _, err := locator.Locate(ctx); err != nil {
		log.Error("game window not found", "titles", cfg.Window.Titles, "error", err)
		return err
	}

	met := metrics.New()

	rec, err := backend.Select(ctx, cfg.Vision)
	if err != nil {
		return err
	}
	defer func() { _ = rec.Close() }()
	if remote, ok := rec.(*vision.Remote); ok {
		remote.Client().Breaker().WithHook(met.BreakerHook())
	}
	log.Info("text recognition ready", "backend", rec.Name())

	ocr := vision.NewHashSkip(rec, cfg.Vision.HashSkipDistance)
	met.WatchOCRCache(ocr.Hits)

	capturer := screen.New(desktop.Screen{}, cfg.Vision.DebugScreenshots, cfg.Vision.DebugDir)

	tpl := matcher.NewTemplate(cfg.Vision.TemplatePath)
	if err := tpl.Load(); err != nil {
		log.Warn("bonus template unavailable, using colour detection only", "error", err)
	}
	go func() {
		if err := tpl.Watch(ctx); err != nil {
			log.Warn("template watch stopped", "error", err)
		}
	}()

	rdr := reader.New(capturer, ocr, lay, locator, matcher.NewDetector(tpl, cfg.Vision.MatchConfidence))
	state := game.NewState(rdr)

	guard := pointer.NewGuard(desktop.Mouse{}, cfg.Bot.FailsafeCorner)
	disp := dispatch.New(guard, locator, lay, dispatch.NewCooldown(cfg.Bot.BuyCooldown.Duration), cfg.Bot.MainJitter)

	engineOpts := []strategy.Option{strategy.WithStallAfter(cfg.Bot.StallAfter.Duration)}
	if cfg.Tooltip.Enabled {
		cache := tooltip.NewCache(cfg.Tooltip.Expiry.Duration)
		refresher := tooltip.NewRefresher(cache, disp, capturer, rec, lay, locator, tooltip.Options{
			BatchSize:   cfg.Tooltip.BatchSize,
			MinInterval: cfg.Tooltip.MinInterval.Duration,
			Settle:      cfg.Tooltip.SettleDelay.Duration,
		}).OnRead(func(_ string, ok bool) { met.TooltipRead(ok) })
		engineOpts = append(engineOpts, strategy.WithTooltips(cache, refresher))
	}
	engine := strategy.New(engineOpts...)

	deps := bot.Deps{
		State:   state,
		Engine:  engine,
		Clicker: disp,
		Bonus:   rdr,
		Window:  locator,
		Metrics: met,
	}

	var history server.History
	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Warn("purchase journal disabled", "error", err)
		} else {
			defer func() { _ = store.Close() }()
			batcher := journal.NewBatcher(store, trace.RunID(ctx), cfg.Journal.BatchSize, cfg.Journal.FlushDelay.Duration)
			defer batcher.Stop()
			deps.Journal = batcher
			history = store
		}
	}

	mgr := bot.New(deps, bot.OptionsFrom(cfg))

	if cfg.Server.Addr != "" {
		srv := server.New(mgr, engine, history, met.Handler())
		go func() {
			if err := srv.Serve(ctx, cfg.Server.Addr); err != nil {
				log.Error("status server stopped", "error", err)
			}
		}()
	}

	log.Info("crumbot starting", "window", locator.Rect().String(), "click_rate", cfg.Bot.ClickRate)
	err = mgr.Run(ctx)

	snap := mgr.Snapshot()
	log.Info("final state", "summary", snap.Summary(), "stats", mgr.Stats())
	log.Info("payoff report\n" + engine.Report(snap))

	if apperrors.IsFailsafe(err) {
		log.Warn("stopped by failsafe: pointer moved to the reserved corner")
		return nil
	}
	return err
}
