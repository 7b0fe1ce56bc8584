// Command archivetool inspects the historical archive (C2) from the
// command line: given a vendor/symbol/resolution/data-type key and a time
// window, it decodes the matching day files and prints each record as one
// JSON line.
//
// Usage:
//
//	archivetool -root ./data/historical -vendor mock -symbol NEXO -market equity -resolution 1minutes -datatype candle
//	archivetool -root ./data/historical -vendor mock -symbol NEXO -market equity -resolution 1ticks -datatype tick -from 2026-07-01 -to 2026-07-30 -raw
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

func main() {
	root := flag.String("root", "./data/historical", "archive root directory")
	vendor := flag.String("vendor", "", "vendor name")
	symbol := flag.String("symbol", "", "symbol name")
	market := flag.String("market", "equity", "market: equity | forex | futures | crypto | index")
	resolution := flag.String("resolution", "1minutes", "resolution, e.g. 1minutes, 1ticks, 5seconds")
	datatype := flag.String("datatype", "candle", "data type: tick | quote | candle | quote_bar | fundamental")
	from := flag.String("from", "", "window start, YYYY-MM-DD (default: 7 days ago)")
	to := flag.String("to", "", "window end, YYYY-MM-DD (default: now)")
	showRaw := flag.Bool("raw", false, "print the Go-syntax record instead of JSON")
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	if *vendor == "" || *symbol == "" {
		fmt.Fprintln(os.Stderr, "archivetool: -vendor and -symbol are required")
		os.Exit(2)
	}

	mkt, err := parseMarket(*market)
	if err != nil {
		log.Fatalf("archivetool: %v", err)
	}
	res, err := basedata.ParseResolution(*resolution)
	if err != nil {
		log.Fatalf("archivetool: %v", err)
	}
	dt, err := basedata.ParseBaseDataType(*datatype)
	if err != nil {
		log.Fatalf("archivetool: %v", err)
	}

	start, end, err := parseWindow(*from, *to)
	if err != nil {
		log.Fatalf("archivetool: %v", err)
	}

	store, err := archive.New(archive.Config{Root: *root}, nil)
	if err != nil {
		log.Fatalf("archivetool: open archive: %v", err)
	}

	key := archive.Key{Vendor: *vendor, Market: mkt, Symbol: *symbol, Resolution: res, DataType: dt}
	records, err := store.GetRange(context.Background(), key, start, end)
	if err != nil {
		log.Fatalf("archivetool: read range: %v", err)
	}

	log.Printf("%d records in %s..%s for %s/%s %s %s", len(records), start.Format("2006-01-02"), end.Format("2006-01-02"), *vendor, *symbol, res, dt)

	for _, rec := range records {
		if *showRaw {
			fmt.Printf("%+v\n", rec)
			continue
		}
		line, err := json.Marshal(rec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "archivetool: marshal record: %v\n", err)
			continue
		}
		fmt.Println(string(line))
	}
}

func parseMarket(s string) (basedata.MarketType, error) {
	switch strings.ToLower(s) {
	case "equity":
		return basedata.MarketEquity, nil
	case "forex":
		return basedata.MarketForex, nil
	case "futures":
		return basedata.MarketFutures, nil
	case "crypto":
		return basedata.MarketCrypto, nil
	case "index":
		return basedata.MarketIndex, nil
	default:
		return 0, fmt.Errorf("unknown market %q", s)
	}
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	to := time.Now().UTC()
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -to: %w", err)
		}
		to = t
	}
	from := to.Add(-7 * 24 * time.Hour)
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -from: %w", err)
		}
		from = t
	}
	return from, to, nil
}
