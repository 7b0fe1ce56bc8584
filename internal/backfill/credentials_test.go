package backfill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

func writeDownloadList(t *testing.T, root, vendor, body string) {
	t.Helper()
	dir := filepath.Join(root, "credentials", vendor+"_credentials")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "download_list.toml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

const validList = `
[[symbols]]
symbol_name = "EUR-USD"
base_data_type = "candle"
start_date = "2024-01-01"
resolution = "1minutes"
`

func TestLoadCredentialsParsesValidList(t *testing.T) {
	root := t.TempDir()
	writeDownloadList(t, root, "oanda", validList)

	creds, err := LoadCredentials(root)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if len(creds) != 1 || creds[0].Vendor != "oanda" {
		t.Fatalf("got %+v, want one oanda entry", creds)
	}
	if len(creds[0].Symbols) != 1 || creds[0].Symbols[0].SymbolName != "EUR-USD" {
		t.Fatalf("got %+v, want EUR-USD", creds[0].Symbols)
	}
}

func TestLoadCredentialsSkipsNonCredentialDirs(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "credentials", "not_a_vendor_dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	creds, err := LoadCredentials(root)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if len(creds) != 0 {
		t.Fatalf("expected no vendors, got %+v", creds)
	}
}

func TestLoadCredentialsMissingDirIsNotAnError(t *testing.T) {
	creds, err := LoadCredentials(t.TempDir())
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds != nil {
		t.Fatalf("expected nil, got %+v", creds)
	}
}

func TestLoadCredentialsRejectsBadStartDate(t *testing.T) {
	root := t.TempDir()
	writeDownloadList(t, root, "rithmic", `
[[symbols]]
symbol_name = "ES"
base_data_type = "candle"
start_date = "not-a-date"
resolution = "1minutes"
`)
	if _, err := LoadCredentials(root); err == nil {
		t.Fatal("expected error for malformed start_date")
	}
}

func TestBuildTargetsResolvesResolutionAndDataType(t *testing.T) {
	creds := []VendorCredentials{{
		Vendor: "oanda",
		Symbols: []SymbolCredential{
			{SymbolName: "EUR-USD", BaseDataType: "candle", StartDate: "2024-01-01", Resolution: "5minutes"},
		},
	}}
	targets, err := BuildTargets(creds, func(vendor, symbol string) basedata.MarketType { return basedata.MarketForex })
	if err != nil {
		t.Fatalf("BuildTargets: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("got %d targets, want 1", len(targets))
	}
	want := basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 5}
	if targets[0].Resolution != want {
		t.Errorf("resolution = %v, want %v", targets[0].Resolution, want)
	}
	if targets[0].DataType != basedata.DataTypeCandle {
		t.Errorf("data type = %v, want candle", targets[0].DataType)
	}
	if targets[0].Symbol.Market != basedata.MarketForex {
		t.Errorf("market = %v, want forex", targets[0].Symbol.Market)
	}
}

func TestBuildTargetsRejectsUnknownResolution(t *testing.T) {
	creds := []VendorCredentials{{Vendor: "oanda", Symbols: []SymbolCredential{
		{SymbolName: "EUR-USD", BaseDataType: "candle", StartDate: "2024-01-01", Resolution: "bogus"},
	}}}
	if _, err := BuildTargets(creds, func(string, string) basedata.MarketType { return basedata.MarketForex }); err == nil {
		t.Fatal("expected error for unparseable resolution")
	}
}
