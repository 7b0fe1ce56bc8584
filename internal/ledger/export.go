package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportTrades dumps every closed position to a CSV file named
// "<dir>/<mode>_Results_<brokerage>_<account>_<YYYYMMDD_HHMM>.csv", per
// §4.8. now supplies the export timestamp (passed in rather than read from
// the wall clock so backtests produce reproducible filenames).
func (l *Ledger) ExportTrades(dir string, now time.Time) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ledger: create export dir: %w", err)
	}

	name := fmt.Sprintf("%s_Results_%s_%s_%s.csv", l.Mode, l.Brokerage, l.Account, now.Format("20060102_1504"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ledger: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"position_id", "symbol_code", "side", "quantity_open", "average_price",
		"booked_pnl", "opened_at", "closed_at", "is_closed", "tag",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("ledger: write header: %w", err)
	}

	for _, closed := range l.positionsClosed {
		for _, p := range closed {
			record := []string{
				p.ID,
				string(p.SymbolCode),
				p.Side.String(),
				p.QuantityOpen.String(),
				p.AveragePrice.String(),
				p.BookedPnL.String(),
				p.OpenedAt.Format(time.RFC3339),
				p.ClosedAt.Format(time.RFC3339),
				fmt.Sprintf("%t", p.IsClosed),
				p.Tag,
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("ledger: write record for %s: %w", p.ID, err)
			}
		}
	}
	return w.Error()
}
