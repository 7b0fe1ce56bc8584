package matching

import "github.com/shopspring/decimal"

// triggered implements §4.7's trigger-condition column. market mirrors
// checkAdmission's reference: the opposite-side top of book (ask for a
// buy, bid for a sell).
func triggered(o *Order, market decimal.Decimal) bool {
	switch o.Type {
	case Market, EnterLong, EnterShort, ExitLong, ExitShort:
		return true

	case Limit:
		if o.Side == Buy {
			return market.LessThanOrEqual(o.LimitPrice)
		}
		return market.GreaterThanOrEqual(o.LimitPrice)

	case StopMarket:
		if o.Side == Buy {
			return market.GreaterThanOrEqual(o.StopPrice)
		}
		return market.LessThanOrEqual(o.StopPrice)

	case MarketIfTouched:
		if o.Side == Buy {
			return market.LessThanOrEqual(o.StopPrice)
		}
		return market.GreaterThanOrEqual(o.StopPrice)

	case StopLimit:
		if o.Side == Buy {
			return market.GreaterThanOrEqual(o.StopPrice) && market.LessThanOrEqual(o.LimitPrice)
		}
		return market.LessThanOrEqual(o.StopPrice) && market.GreaterThanOrEqual(o.LimitPrice)

	default:
		return false
	}
}
