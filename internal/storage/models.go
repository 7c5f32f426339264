package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSample is one archived scrape run: both grades captured at the same
// instant, plus the source-supplied reference date.
type QuoteSample struct {
	CapturedAt    time.Time
	ReferenceDate string
	ArabicaBRL    decimal.Decimal
	ConilonBRL    decimal.Decimal
	MarketOpen    bool
	Source        string
	CreatedAt     time.Time
}

// AlertRecord captures an emitted price-move alert for auditing.
type AlertRecord struct {
	ID           int64
	CapturedAt   time.Time
	Grade        string
	PreviousBRL  decimal.Decimal
	CurrentBRL   decimal.Decimal
	ChangePct    decimal.Decimal
	ThresholdPct decimal.Decimal
	Channels     []string
	CreatedAt    time.Time
}
