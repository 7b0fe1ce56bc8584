package vendoradapter

import (
	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/subscription"
)

// Capabilities adapts a VendorAdapter to subscription.VendorCapabilities,
// so the subscription handler (C6) can pick a primary for any symbol
// without knowing which vendor backs it.
type Capabilities struct {
	Adapter VendorAdapter
}

var _ subscription.VendorCapabilities = Capabilities{}

// SupportsPrimary reports whether the adapter streams primary natively
// for sym.
func (c Capabilities) SupportsPrimary(sym basedata.Symbol, primary basedata.PrimarySubscription) bool {
	for _, res := range c.Adapter.Resolutions(sym) {
		if res != primary.Resolution {
			continue
		}
		for _, dt := range c.Adapter.BaseDataTypes(sym) {
			if dt == primary.DataType {
				return true
			}
		}
	}
	return false
}

// FinestPrimary returns the shortest-duration resolution the adapter
// offers for sym at dataType. Tick/renko resolutions (zero Duration) are
// treated as finest of all, since they carry no fixed wall-clock window.
func (c Capabilities) FinestPrimary(sym basedata.Symbol, dataType basedata.BaseDataType) (basedata.PrimarySubscription, bool) {
	hasType := false
	for _, dt := range c.Adapter.BaseDataTypes(sym) {
		if dt == dataType {
			hasType = true
			break
		}
	}
	if !hasType {
		return basedata.PrimarySubscription{}, false
	}

	var best basedata.Resolution
	found := false
	for _, res := range c.Adapter.Resolutions(sym) {
		if !found {
			best, found = res, true
			continue
		}
		if finer(res, best) {
			best = res
		}
	}
	if !found {
		return basedata.PrimarySubscription{}, false
	}
	return basedata.PrimarySubscription{Resolution: best, DataType: dataType}, true
}

func finer(a, b basedata.Resolution) bool {
	ad, bd := a.Duration(), b.Duration()
	if ad == 0 {
		return bd != 0 || a.Multiplier < b.Multiplier
	}
	if bd == 0 {
		return false
	}
	return ad < bd
}
