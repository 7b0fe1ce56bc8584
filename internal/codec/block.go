// Package codec implements the day-file wire format: a length-prefixed
// binary encoding of a sorted BaseDatum vector, gzip-compressed end to end.
// decode is a pure inverse of encode for any legitimately produced blob; the
// only contract owed to the rest of the system is round-trip equality and
// stable sort by TimeClosedUTC.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// ErrCorruptBlock is returned when decode encounters a type-tag mismatch or
// a truncated/malformed record. The archive does not delete the offending
// file: a read returns the error, and a merge-write logs it and overwrites
// the file with the incoming items.
var ErrCorruptBlock = errors.New("codec: corrupt block")

const (
	magic       uint32 = 0xF0F0CAFE
	blockVersion byte   = 1
)

// Encode serializes items (in any order) into a gzip-compressed blob sorted
// by TimeClosedUTC ascending.
func Encode(items []basedata.BaseDatum) ([]byte, error) {
	raw, err := EncodeRaw(items)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	gz, err := gzip.NewWriterLevel(&out, gzip.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("codec: new gzip writer: %w", err)
	}
	if _, err := gz.Write(raw); err != nil {
		gz.Close()
		return nil, fmt.Errorf("codec: gzip write: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("codec: gzip close: %w", err)
	}
	return out.Bytes(), nil
}

// Decode is the pure inverse of Encode, returning items sorted ascending by
// TimeClosedUTC. A type-tag mismatch or truncated record yields
// ErrCorruptBlock.
func Decode(blob []byte) ([]basedata.BaseDatum, error) {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip open: %v", ErrCorruptBlock, err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip read: %v", ErrCorruptBlock, err)
	}
	return DecodeRaw(raw)
}

// EncodeRaw is Encode without the gzip wrapping step. The archive's mmap
// cache stores this uncompressed form directly (it is decompressed once on
// cache population, not on every read), so it needs the inner codec
// exposed separately from the on-disk gzip framing.
func EncodeRaw(items []basedata.BaseDatum) ([]byte, error) {
	sorted := make([]basedata.BaseDatum, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeClosedUTC().Before(sorted[j].TimeClosedUTC())
	})

	var raw bytes.Buffer
	header := make([]byte, 9)
	binary.BigEndian.PutUint32(header[0:4], magic)
	header[4] = blockVersion
	binary.BigEndian.PutUint32(header[5:9], uint32(len(sorted)))
	raw.Write(header)

	for _, d := range sorted {
		if err := encodeRecord(&raw, d); err != nil {
			return nil, fmt.Errorf("codec: encode record: %w", err)
		}
	}
	return raw.Bytes(), nil
}

// DecodeRaw is Decode without the gzip unwrapping step.
func DecodeRaw(raw []byte) ([]basedata.BaseDatum, error) {
	if len(raw) < 9 {
		return nil, fmt.Errorf("%w: truncated header", ErrCorruptBlock)
	}
	if binary.BigEndian.Uint32(raw[0:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptBlock)
	}
	if raw[4] != blockVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptBlock, raw[4])
	}
	count := binary.BigEndian.Uint32(raw[5:9])

	r := bytes.NewReader(raw[9:])
	items := make([]basedata.BaseDatum, 0, count)
	for i := uint32(0); i < count; i++ {
		d, err := decodeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorruptBlock, i, err)
		}
		items = append(items, d)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TimeClosedUTC().Before(items[j].TimeClosedUTC())
	})
	return items, nil
}

// --- record framing ---
//
// record := typeTag(1) + symbolName(lenPrefixed) + vendor(lenPrefixed) +
//           market(1) + resolutionKind(1) + resolutionMult(4) +
//           timeClosedUnixNano(8) + closed(1) + payload
//
// payload is type-specific; decimals are written as length-prefixed decimal
// strings (decimal.Decimal.String()) to preserve exact precision across the
// wire, matching the teacher's length-prefixed string fields for MPID/stock.

func encodeRecord(buf *bytes.Buffer, d basedata.BaseDatum) error {
	buf.WriteByte(byte(d.DataType()))
	sym := d.Symbol()
	writeString(buf, sym.Name)
	writeString(buf, sym.Vendor)
	buf.WriteByte(byte(sym.Market))
	res := d.Resolution()
	buf.WriteByte(byte(res.Kind))
	writeUint32(buf, uint32(res.Multiplier))
	writeInt64(buf, d.TimeClosedUTC().UnixNano())
	writeBool(buf, d.IsClosed())

	switch v := d.(type) {
	case basedata.Tick:
		writeDecimal(buf, v.Price)
		writeDecimal(buf, v.Size)
	case basedata.Quote:
		writeDecimal(buf, v.Bid)
		writeDecimal(buf, v.Ask)
		writeDecimal(buf, v.BidSize)
		writeDecimal(buf, v.AskSize)
	case basedata.Candle:
		writeDecimal(buf, v.Open)
		writeDecimal(buf, v.High)
		writeDecimal(buf, v.Low)
		writeDecimal(buf, v.Close)
		writeDecimal(buf, v.Volume)
	case basedata.QuoteBar:
		writeDecimal(buf, v.BidOpen)
		writeDecimal(buf, v.BidHigh)
		writeDecimal(buf, v.BidLow)
		writeDecimal(buf, v.BidClose)
		writeDecimal(buf, v.AskOpen)
		writeDecimal(buf, v.AskHigh)
		writeDecimal(buf, v.AskLow)
		writeDecimal(buf, v.AskClose)
		writeDecimal(buf, v.Volume)
	case basedata.Fundamental:
		writeUint32(buf, uint32(len(v.Fields)))
		for k, val := range v.Fields {
			writeString(buf, k)
			writeDecimal(buf, val)
		}
	default:
		return fmt.Errorf("codec: unknown variant %T", d)
	}
	return nil
}

func decodeRecord(r *bytes.Reader) (basedata.BaseDatum, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	tag := basedata.BaseDataType(tagByte)

	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	vendor, err := readString(r)
	if err != nil {
		return nil, err
	}
	marketByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	sym := basedata.Symbol{Name: name, Vendor: vendor, Market: basedata.MarketType(marketByte)}

	kindByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	mult, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	res := basedata.Resolution{Kind: basedata.ResolutionKind(kindByte), Multiplier: int(mult)}

	nanos, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	t := time.Unix(0, nanos).UTC()

	closed, err := readBool(r)
	if err != nil {
		return nil, err
	}

	switch tag {
	case basedata.DataTypeTick:
		price, err := readDecimal(r)
		if err != nil {
			return nil, err
		}
		size, err := readDecimal(r)
		if err != nil {
			return nil, err
		}
		return basedata.Tick{Sym: sym, Price: price, Size: size, Time: t}, nil

	case basedata.DataTypeQuote:
		bid, err := readDecimal(r)
		if err != nil {
			return nil, err
		}
		ask, err := readDecimal(r)
		if err != nil {
			return nil, err
		}
		bidSize, err := readDecimal(r)
		if err != nil {
			return nil, err
		}
		askSize, err := readDecimal(r)
		if err != nil {
			return nil, err
		}
		return basedata.Quote{Sym: sym, Bid: bid, Ask: ask, BidSize: bidSize, AskSize: askSize, Time: t}, nil

	case basedata.DataTypeCandle:
		vals, err := readDecimals(r, 5)
		if err != nil {
			return nil, err
		}
		return basedata.Candle{
			Sym: sym, Res: res,
			Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
			TimeClosed: t, Closed: closed,
		}, nil

	case basedata.DataTypeQuoteBar:
		vals, err := readDecimals(r, 9)
		if err != nil {
			return nil, err
		}
		return basedata.QuoteBar{
			Sym: sym, Res: res,
			BidOpen: vals[0], BidHigh: vals[1], BidLow: vals[2], BidClose: vals[3],
			AskOpen: vals[4], AskHigh: vals[5], AskLow: vals[6], AskClose: vals[7],
			Volume: vals[8], TimeClosed: t, Closed: closed,
		}, nil

	case basedata.DataTypeFundamental:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		fields := make(map[string]decimal.Decimal, n)
		for i := uint32(0); i < n; i++ {
			k, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := readDecimal(r)
			if err != nil {
				return nil, err
			}
			fields[k] = v
		}
		return basedata.Fundamental{Sym: sym, Time: t, Fields: fields}, nil

	default:
		return nil, fmt.Errorf("unknown type tag %d", tagByte)
	}
}

func readDecimals(r *bytes.Reader, n int) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, n)
	for i := 0; i < n; i++ {
		v, err := readDecimal(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
