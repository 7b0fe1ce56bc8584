package backfill

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// SymbolCredential is one entry in a vendor's download_list.toml: a symbol
// this controller should keep backfilled, from start_date forward.
type SymbolCredential struct {
	SymbolName   string `toml:"symbol_name"`
	BaseDataType string `toml:"base_data_type"`
	StartDate    string `toml:"start_date"` // YYYY-MM-DD
	Resolution   string `toml:"resolution"`
}

// downloadList is download_list.toml's root shape, per §6.
type downloadList struct {
	Symbols []SymbolCredential `toml:"symbols"`
}

// VendorCredentials is one vendor directory's parsed download_list.toml.
type VendorCredentials struct {
	Vendor  string
	Symbols []SymbolCredential
}

// StartTime parses c's YYYY-MM-DD start_date as a UTC midnight instant.
func (c SymbolCredential) StartTime() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", c.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("backfill: parse start_date %q: %w", c.StartDate, err)
	}
	return t, nil
}

// LoadCredentials walks <dataDir>/credentials for every "<vendor>_credentials"
// subdirectory and parses its download_list.toml with BurntSushi/toml, per
// §6. Entries that are not a "*_credentials" directory are skipped;
// anything that parses as TOML but fails schema validation is a startup
// error, since a malformed credentials file silently backfilling nothing is
// worse than refusing to start.
func LoadCredentials(dataDir string) ([]VendorCredentials, error) {
	root := filepath.Join(dataDir, "credentials")
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backfill: read credentials dir: %w", err)
	}

	var out []VendorCredentials
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), "_credentials") {
			continue
		}
		vendor := strings.TrimSuffix(e.Name(), "_credentials")
		path := filepath.Join(root, e.Name(), "download_list.toml")

		var parsed downloadList
		if _, err := toml.DecodeFile(path, &parsed); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("backfill: parse %s: %w", path, err)
		}
		for _, s := range parsed.Symbols {
			if _, err := s.StartTime(); err != nil {
				return nil, fmt.Errorf("backfill: %s: %w", path, err)
			}
		}
		out = append(out, VendorCredentials{Vendor: vendor, Symbols: parsed.Symbols})
	}
	return out, nil
}

// BuildTargets converts parsed credentials into StartSchedule targets.
// marketOf resolves each (vendor, symbol) pair to its market type, since
// download_list.toml doesn't carry one.
func BuildTargets(creds []VendorCredentials, marketOf func(vendor, symbolName string) basedata.MarketType) ([]ScheduleTarget, error) {
	var out []ScheduleTarget
	for _, vc := range creds {
		for _, s := range vc.Symbols {
			res, err := basedata.ParseResolution(s.Resolution)
			if err != nil {
				return nil, fmt.Errorf("backfill: vendor %q symbol %q: %w", vc.Vendor, s.SymbolName, err)
			}
			dt, err := basedata.ParseBaseDataType(s.BaseDataType)
			if err != nil {
				return nil, fmt.Errorf("backfill: vendor %q symbol %q: %w", vc.Vendor, s.SymbolName, err)
			}
			start, err := s.StartTime()
			if err != nil {
				return nil, err
			}
			out = append(out, ScheduleTarget{
				Vendor:       vc.Vendor,
				Symbol:       basedata.Symbol{Name: s.SymbolName, Vendor: vc.Vendor, Market: marketOf(vc.Vendor, s.SymbolName)},
				Resolution:   res,
				DataType:     dt,
				BackwardFrom: start,
			})
		}
	}
	return out, nil
}
