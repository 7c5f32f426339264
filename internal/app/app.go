package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/opedromartinss/cotacoes-cafe/internal/alerting"
	"github.com/opedromartinss/cotacoes-cafe/internal/config"
	"github.com/opedromartinss/cotacoes-cafe/internal/fetcher"
	"github.com/opedromartinss/cotacoes-cafe/internal/scheduler"
	"github.com/opedromartinss/cotacoes-cafe/internal/service"
	"github.com/opedromartinss/cotacoes-cafe/internal/site"
	"github.com/opedromartinss/cotacoes-cafe/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetchers() (fetcher.QuoteFetcher, fetcher.QuoteFetcher) {
	arabica := fetcher.NewNoticiasAgricolas(fetcher.Options{
		URL:       a.Config.Source.ArabicaURL,
		UserAgent: a.Config.Source.UserAgent,
		Timeout:   a.Config.Source.RequestTimeout,
	}, a.Logger)

	conilon := fetcher.NewNoticiasAgricolas(fetcher.Options{
		URL:       a.Config.Source.ConilonURL,
		UserAgent: a.Config.Source.UserAgent,
		Timeout:   a.Config.Source.RequestTimeout,
	}, a.Logger)

	return arabica, conilon
}

func (a *App) newWriter() *site.Writer {
	return site.NewWriter(site.Options{
		SnapshotPath: a.Config.Outputs.SnapshotPath,
		HistoryPath:  a.Config.Outputs.HistoryPath,
		DisplayPath:  a.Config.Outputs.DisplayPath,
		HistoryLimit: a.Config.Outputs.HistoryLimit,
		SourceLabel:  a.Config.Source.Label,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store) *service.Service {
	arabica, conilon := a.newFetchers()
	writer := a.newWriter()
	notifier := a.newNotifier()

	var sampleStore storage.QuoteSampleStore
	var alertStore storage.AlertStore
	if store != nil {
		sampleStore = store
		alertStore = store
	}

	return service.New(a.Config, arabica, conilon, writer, sampleStore, alertStore, notifier, a.Logger)
}

// Run performs a single scrape-and-publish cycle, the cron entry point.
func (a *App) Run(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	return a.newService(store).Run(ctx)
}

// Watch runs the scrape cycle on an interval until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; archive disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := a.newService(store)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting watch mode")
	err = sched.Run(ctx, svc.Tick)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch mode terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch mode stopped")
	return nil
}

// ExportOptions hold parameters for exporting archived samples.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
