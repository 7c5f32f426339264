package site

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// timestampLayout mirrors the timestamp shape the front-end data loader
// already parses (a local time with microseconds, no zone).
const timestampLayout = "2006-01-02T15:04:05.000000"

// Snapshot is the current-state artifact, fully overwritten every run.
// Field names are part of the contract with the site's data loader. The
// "robusta" key is the canonical conilon entry; "conilon" is kept as a
// backwards-compatible alias of the same value.
type Snapshot struct {
	UltimaAtualizacao string       `json:"ultima_atualizacao"`
	DataFormatada     string       `json:"data_formatada"`
	HoraFormatada     string       `json:"hora_formatada"`
	PregaoAberto      bool         `json:"pregao_aberto"`
	Fonte             string       `json:"fonte"`
	Cafe              SnapshotCafe `json:"cafe"`
}

// SnapshotCafe carries the per-grade price objects.
type SnapshotCafe struct {
	Arabica SnapshotPrice `json:"arabica"`
	Robusta SnapshotPrice `json:"robusta"`
	Conilon SnapshotPrice `json:"conilon"`
}

// SnapshotPrice is one priced commodity grade.
type SnapshotPrice struct {
	Preco   float64 `json:"preco"`
	Unidade string  `json:"unidade"`
	PesoKG  int     `json:"peso_kg"`
	Moeda   string  `json:"moeda"`
}

func snapshotPrice(value decimal.Decimal) SnapshotPrice {
	return SnapshotPrice{
		Preco:   value.InexactFloat64(),
		Unidade: "saca",
		PesoKG:  60,
		Moeda:   "BRL",
	}
}

// WriteSnapshot overwrites the snapshot artifact with the latest prices.
// The write is truncate-and-rewrite, not atomic: a crash mid-write leaves a
// corrupt file that the next run simply replaces.
func (w *Writer) WriteSnapshot(arabica, conilon decimal.Decimal, capturedAt time.Time) error {
	conilonPrice := snapshotPrice(conilon)

	snap := Snapshot{
		UltimaAtualizacao: capturedAt.Format(timestampLayout),
		DataFormatada:     capturedAt.Format("02/01/2006"),
		HoraFormatada:     capturedAt.Format("15:04:05"),
		PregaoAberto:      MarketOpen(capturedAt),
		Fonte:             w.opts.SourceLabel,
		Cafe: SnapshotCafe{
			Arabica: snapshotPrice(arabica),
			Robusta: conilonPrice,
			Conilon: conilonPrice,
		},
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := ensureParentDir(w.opts.SnapshotPath); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(w.opts.SnapshotPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	w.logger.Info().
		Str("path", w.opts.SnapshotPath).
		Bool("pregao_aberto", snap.PregaoAberto).
		Msg("snapshot written")
	return nil
}
