package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/opedromartinss/cotacoes-cafe/internal/alerting"
	"github.com/opedromartinss/cotacoes-cafe/internal/config"
	"github.com/opedromartinss/cotacoes-cafe/internal/fetcher"
	"github.com/opedromartinss/cotacoes-cafe/internal/site"
	"github.com/opedromartinss/cotacoes-cafe/internal/storage"
)

// Service orchestrates one scrape run: fetch both grades, update the site
// artifacts, then archive and alert on a best-effort basis.
type Service struct {
	arabica    fetcher.QuoteFetcher
	conilon    fetcher.QuoteFetcher
	writer     *site.Writer
	archive    storage.QuoteSampleStore
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	source    string
	threshold decimal.Decimal
	channels  []string
	alertsOn  bool

	now func() time.Time
}

// New constructs the scrape service.
func New(cfg *config.Config, arabica, conilon fetcher.QuoteFetcher, writer *site.Writer, archive storage.QuoteSampleStore, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	threshold := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.ThresholdPct > 0 {
		threshold = decimal.NewFromFloat(cfg.Alerting.ThresholdPct)
	}

	return &Service{
		arabica:    arabica,
		conilon:    conilon,
		writer:     writer,
		archive:    archive,
		alertStore: alertStore,
		notifier:   notifier,
		logger:     logger.With().Str("component", "service").Logger(),
		source:     cfg.Source.Label,
		threshold:  threshold,
		channels:   cfg.Alerting.Channels,
		alertsOn:   cfg.Alerting.Enabled,
		now:        time.Now,
	}
}

// Run performs a single scrape-and-publish cycle. Both quotes must be
// fetched before any artifact is touched, so a fetch or parse failure leaves
// every file as it was. Artifact write failures are fatal; archive and alert
// failures are logged and swallowed.
func (s *Service) Run(ctx context.Context) error {
	arabicaQuote, err := s.arabica.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch arabica quote: %w", err)
	}

	conilonQuote, err := s.conilon.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch conilon quote: %w", err)
	}

	capturedAt := s.now()
	tradeDate := capturedAt.Format("02/01/2006")

	// Previous prices must be read before AppendHistory rewrites the file.
	previous, histErr := s.writer.History()
	if histErr != nil {
		s.logger.Warn().Err(histErr).Msg("could not read previous history; alerts skipped this run")
		previous = nil
	}

	if err := s.writer.WriteSnapshot(arabicaQuote.Price, conilonQuote.Price, capturedAt); err != nil {
		return err
	}
	if err := s.writer.AppendHistory(arabicaQuote.Price, conilonQuote.Price, tradeDate, capturedAt); err != nil {
		return err
	}
	if err := s.writer.PatchDisplay(arabicaQuote.Price, conilonQuote.Price); err != nil {
		return err
	}

	s.archiveSample(ctx, arabicaQuote, conilonQuote, capturedAt)

	if s.alertsOn && s.notifier != nil && !s.threshold.IsZero() && histErr == nil {
		s.checkAlert(ctx, site.TipoArabica, previous, arabicaQuote, capturedAt)
		s.checkAlert(ctx, site.TipoConillon, previous, conilonQuote, capturedAt)
	}

	s.logger.Info().
		Str("reference_date", arabicaQuote.ReferenceDate).
		Str("arabica", arabicaQuote.Price.StringFixed(2)).
		Str("conilon", conilonQuote.Price.StringFixed(2)).
		Msg("prices published")
	return nil
}

// Tick adapts Run to the watch-mode scheduler.
func (s *Service) Tick(ctx context.Context, _ time.Time) error {
	return s.Run(ctx)
}

func (s *Service) archiveSample(ctx context.Context, arabica, conilon fetcher.Quote, capturedAt time.Time) {
	if s.archive == nil {
		return
	}

	sample := storage.QuoteSample{
		CapturedAt:    capturedAt,
		ReferenceDate: arabica.ReferenceDate,
		ArabicaBRL:    arabica.Price,
		ConilonBRL:    conilon.Price,
		MarketOpen:    site.MarketOpen(capturedAt),
		Source:        s.source,
	}
	if err := s.archive.UpsertQuoteSample(ctx, sample); err != nil {
		s.logger.Error().Err(err).Msg("failed to archive sample")
	}
}

func (s *Service) checkAlert(ctx context.Context, grade string, previous []site.HistoryEntry, quote fetcher.Quote, capturedAt time.Time) {
	prev, ok := lastValue(previous, grade)
	if !ok || prev.IsZero() {
		return
	}

	change := quote.Price.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100))
	if change.Abs().LessThanOrEqual(s.threshold) {
		return
	}

	note := alerting.Notification{
		CapturedAt:    capturedAt,
		Grade:         grade,
		ReferenceDate: quote.ReferenceDate,
		PreviousBRL:   prev,
		CurrentBRL:    quote.Price,
		ChangePct:     change,
		ThresholdPct:  s.threshold,
		Channels:      s.channels,
	}

	if s.alertStore != nil {
		record := storage.AlertRecord{
			CapturedAt:   capturedAt,
			Grade:        grade,
			PreviousBRL:  prev,
			CurrentBRL:   quote.Price,
			ChangePct:    change,
			ThresholdPct: s.threshold,
			Channels:     s.channels,
		}
		if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("grade", grade).Msg("failed to persist alert record")
		}
	}

	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("grade", grade).Msg("failed to dispatch alert")
	}
}

func lastValue(entries []site.HistoryEntry, grade string) (decimal.Decimal, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Tipo == grade {
			return decimal.NewFromFloat(entries[i].Valor), true
		}
	}
	return decimal.Decimal{}, false
}
