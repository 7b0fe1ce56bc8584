package coldstore

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

type fakeUploader struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func newFakeUploader() *fakeUploader { return &fakeUploader{puts: make(map[string][]byte)} }

func (f *fakeUploader) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	buf := make([]byte, 0)
	chunk := make([]byte, 4096)
	for {
		n, err := in.Body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	f.mu.Lock()
	f.puts[*in.Key] = buf
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeUploader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func newTestArchive(t *testing.T) (*archive.Store, basedata.Symbol) {
	t.Helper()
	store, err := archive.New(archive.Config{Root: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("archive.New: %v", err)
	}
	sym := basedata.Symbol{Name: "EUR-USD", Vendor: "oanda", Market: basedata.MarketForex}
	return store, sym
}

func testCandle(sym basedata.Symbol, at time.Time) basedata.BaseDatum {
	one := decimal.NewFromInt(1)
	return basedata.Candle{
		Sym: sym, Res: basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1},
		Open: one, High: one, Low: one, Close: one, Volume: one,
		TimeClosed: at, Closed: true,
	}
}

func TestShipKeyUploadsCompressedDayBlob(t *testing.T) {
	store, sym := newTestArchive(t)
	ctx := context.Background()
	day := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, testCandle(sym, day)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	key := archive.Key{Vendor: sym.Vendor, Market: sym.Market, Symbol: sym.Name,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}, DataType: basedata.DataTypeCandle}

	fake := newFakeUploader()
	s := New(Config{Bucket: "archive-bucket", Prefix: "fund-forge"}, store, fake, nil)

	if err := s.shipKey(ctx, key, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("shipKey: %v", err)
	}
	if fake.count() != 1 {
		t.Fatalf("got %d uploads, want 1", fake.count())
	}
	for objectKey := range fake.puts {
		if !strings.HasPrefix(objectKey, "fund-forge/historical/oanda/") {
			t.Errorf("object key %q missing expected prefix", objectKey)
		}
	}
}

func TestCycleSkipsWhenBucketUnconfigured(t *testing.T) {
	store, sym := newTestArchive(t)
	ctx := context.Background()
	if err := store.Save(ctx, testCandle(sym, time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	key := archive.Key{Vendor: sym.Vendor, Market: sym.Market, Symbol: sym.Name,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}, DataType: basedata.DataTypeCandle}

	fake := newFakeUploader()
	s := New(Config{}, store, fake, nil)
	s.cycle(ctx, []archive.Key{key})
	if fake.count() != 0 {
		t.Fatalf("expected no uploads with bucket unconfigured, got %d", fake.count())
	}
}

func TestCursorAdvancesAfterShip(t *testing.T) {
	store, sym := newTestArchive(t)
	ctx := context.Background()
	day := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, testCandle(sym, day)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	key := archive.Key{Vendor: sym.Vendor, Market: sym.Market, Symbol: sym.Name,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}, DataType: basedata.DataTypeCandle}

	fake := newFakeUploader()
	s := New(Config{Bucket: "b", Prefix: "p"}, store, fake, nil)
	future := time.Now().Add(time.Hour)

	if err := s.shipKey(ctx, key, future); err != nil {
		t.Fatalf("shipKey: %v", err)
	}
	if s.cursorFor(key).IsZero() {
		t.Fatal("expected cursor to advance after shipping")
	}
}
