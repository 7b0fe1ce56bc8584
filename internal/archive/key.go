// Package archive implements the historical time-series store (C2): a
// per-(vendor, market, symbol, resolution, base-data-type) directory tree of
// gzip-compressed day files, backed by an mmap hot cache with LRU eviction
// and per-path write serialization.
package archive

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// Key identifies one archive directory: every BaseDatum stored under it
// shares a vendor, market, symbol name, resolution, and base-data-type.
type Key struct {
	Vendor     string
	Market     basedata.MarketType
	Symbol     string
	Resolution basedata.Resolution
	DataType   basedata.BaseDataType
}

// KeyOf derives a Key from a datum's own symbol/resolution/type fields.
func KeyOf(d basedata.BaseDatum) Key {
	sym := d.Symbol()
	return Key{
		Vendor:     sym.Vendor,
		Market:     sym.Market,
		Symbol:     sym.Name,
		Resolution: d.Resolution(),
		DataType:   d.DataType(),
	}
}

// resolutionDir renders a Resolution as a lexicographically sortable path
// segment, e.g. "1_minutes", "100_ticks".
func resolutionDir(r basedata.Resolution) string {
	return fmt.Sprintf("%d_%s", r.Multiplier, r.Kind)
}

// Dir returns the directory holding all day files for k, not including the
// YYYY/MM split.
//
// historical/<vendor>/<market>/<symbol>/<resolution>/<base-data-type>
func (k Key) Dir(root string) string {
	return filepath.Join(root, "historical", k.Vendor, k.Market.String(), k.Symbol,
		resolutionDir(k.Resolution), k.DataType.String())
}

// DayPath returns the path to the day file covering the UTC calendar day
// containing t.
//
// <Dir>/<YYYY>/<MM>/<YYYYMMDD>.bin
func (k Key) DayPath(root string, t time.Time) string {
	t = t.UTC()
	year := fmt.Sprintf("%04d", t.Year())
	month := fmt.Sprintf("%02d", t.Month())
	day := t.Format("20060102")
	return filepath.Join(k.Dir(root), year, month, day+".bin")
}

// dayBounds returns the [start, end) UTC window of the calendar day t falls
// in.
func dayBounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
