// Package basedata holds the tagged-variant market data model shared by the
// archive, consolidator, subscription, matching, and ledger packages.
package basedata

import (
	"fmt"
	"strconv"
	"time"
)

// ResolutionKind is the unit a Resolution counts in.
type ResolutionKind int

const (
	ResolutionTicks ResolutionKind = iota
	ResolutionSeconds
	ResolutionMinutes
	ResolutionHours
	ResolutionDays
	ResolutionRenko
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionTicks:
		return "ticks"
	case ResolutionSeconds:
		return "seconds"
	case ResolutionMinutes:
		return "minutes"
	case ResolutionHours:
		return "hours"
	case ResolutionDays:
		return "days"
	case ResolutionRenko:
		return "renko"
	default:
		return "unknown"
	}
}

// Resolution is a logical timeframe, e.g. 5 Minutes or 100 Ticks.
type Resolution struct {
	Kind       ResolutionKind
	Multiplier int
}

// Duration returns the wall-clock span of one Resolution window.
// Tick- and renko-based resolutions have no fixed duration and return 0.
func (r Resolution) Duration() time.Duration {
	switch r.Kind {
	case ResolutionSeconds:
		return time.Duration(r.Multiplier) * time.Second
	case ResolutionMinutes:
		return time.Duration(r.Multiplier) * time.Minute
	case ResolutionHours:
		return time.Duration(r.Multiplier) * time.Hour
	case ResolutionDays:
		return time.Duration(r.Multiplier) * 24 * time.Hour
	default:
		return 0
	}
}

// Divides reports whether r evenly divides other's duration — used by the
// subscription handler to pick a primary resolution for a consolidator.
func (r Resolution) Divides(other Resolution) bool {
	rd, od := r.Duration(), other.Duration()
	if rd <= 0 || od <= 0 {
		return false
	}
	return od%rd == 0
}

// Boundary returns floor(t / period) * period in UTC, the window-close
// boundary a datum with TimeClosedUTC() == Boundary(t) belongs to.
func (r Resolution) Boundary(t time.Time) time.Time {
	period := r.Duration()
	if period <= 0 {
		return t
	}
	t = t.UTC()
	rem := t.UnixNano() % period.Nanoseconds()
	return t.Add(-time.Duration(rem))
}

func (r Resolution) String() string {
	return fmt.Sprintf("%d%s", r.Multiplier, r.Kind)
}

// ParseResolution is the inverse of String: "5minutes" -> {Minutes, 5}.
// Credential files and catalog records use this exact form.
func ParseResolution(s string) (Resolution, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return Resolution{}, fmt.Errorf("basedata: malformed resolution %q", s)
	}
	mult, err := strconv.Atoi(s[:i])
	if err != nil {
		return Resolution{}, fmt.Errorf("basedata: malformed resolution multiplier %q: %w", s, err)
	}
	kindStr := s[i:]
	for _, kind := range []ResolutionKind{ResolutionTicks, ResolutionSeconds, ResolutionMinutes, ResolutionHours, ResolutionDays, ResolutionRenko} {
		if kind.String() == kindStr {
			return Resolution{Kind: kind, Multiplier: mult}, nil
		}
	}
	return Resolution{}, fmt.Errorf("basedata: unknown resolution kind %q", kindStr)
}

// BaseDataType tags which BaseDatum variant a record holds.
type BaseDataType int

const (
	DataTypeTick BaseDataType = iota
	DataTypeQuote
	DataTypeCandle
	DataTypeQuoteBar
	DataTypeFundamental
)

// ParseBaseDataType is the inverse of String.
func ParseBaseDataType(s string) (BaseDataType, error) {
	for _, t := range []BaseDataType{DataTypeTick, DataTypeQuote, DataTypeCandle, DataTypeQuoteBar, DataTypeFundamental} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("basedata: unknown base data type %q", s)
}

func (t BaseDataType) String() string {
	switch t {
	case DataTypeTick:
		return "tick"
	case DataTypeQuote:
		return "quote"
	case DataTypeCandle:
		return "candle"
	case DataTypeQuoteBar:
		return "quote_bar"
	case DataTypeFundamental:
		return "fundamental"
	default:
		return "unknown"
	}
}
