package matching

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// checkAdmission implements §4.7's admission-check column. market is the
// opposite-side top of book: ask for a buy, bid for a sell — the same
// reference price the trigger condition crosses against, per spec scenario
// 6 (a buy limit priced above the current ask is rejected outright, not
// accepted as an immediately-marketable order).
func checkAdmission(o *Order, market decimal.Decimal, heldRequiredSide bool) (ok bool, reason string) {
	switch o.Type {
	case Market, EnterLong, EnterShort:
		return true, ""

	case Limit:
		return checkLimitAdmission(o.Side, o.LimitPrice, market)

	case StopMarket:
		return checkStopAdmission(o.Side, o.StopPrice, market)

	case MarketIfTouched:
		return checkMITAdmission(o.Side, o.StopPrice, market)

	case StopLimit:
		if ok, reason := checkStopAdmission(o.Side, o.StopPrice, market); !ok {
			return false, reason
		}
		return checkStopLimitRange(o.Side, o.StopPrice, o.LimitPrice)

	case ExitLong, ExitShort:
		if !heldRequiredSide {
			return false, fmt.Sprintf("no open %s position to exit", exitHeldSide(o.Type))
		}
		return true, ""

	default:
		return false, "unknown order type"
	}
}

func checkLimitAdmission(side Side, limit, market decimal.Decimal) (bool, string) {
	if side == Buy {
		if limit.GreaterThan(market) {
			return false, "Buy Limit Price Must Be At or Below Market Price"
		}
		return true, ""
	}
	if limit.LessThan(market) {
		return false, "Sell Limit Price Must Be At or Above Market Price"
	}
	return true, ""
}

func checkStopAdmission(side Side, stop, market decimal.Decimal) (bool, string) {
	if side == Buy {
		if stop.LessThanOrEqual(market) {
			return false, "Buy Stop Trigger Must Be Above Market Price"
		}
		return true, ""
	}
	if stop.GreaterThanOrEqual(market) {
		return false, "Sell Stop Trigger Must Be Below Market Price"
	}
	return true, ""
}

func checkMITAdmission(side Side, trigger, market decimal.Decimal) (bool, string) {
	if side == Buy {
		if trigger.GreaterThanOrEqual(market) {
			return false, "Buy MarketIfTouched Trigger Must Be Below Market Price"
		}
		return true, ""
	}
	if trigger.LessThanOrEqual(market) {
		return false, "Sell MarketIfTouched Trigger Must Be Above Market Price"
	}
	return true, ""
}

// checkStopLimitRange ensures the limit leg can actually fill once the stop
// triggers: a buy stop-limit's limit must sit at or above its stop (room to
// buy as price rises through the trigger); a sell stop-limit's limit must
// sit at or below its stop.
func checkStopLimitRange(side Side, stop, limit decimal.Decimal) (bool, string) {
	if side == Buy {
		if limit.LessThan(stop) {
			return false, "Buy StopLimit Limit Price Must Be At or Above Stop Price"
		}
		return true, ""
	}
	if limit.GreaterThan(stop) {
		return false, "Sell StopLimit Limit Price Must Be At or Below Stop Price"
	}
	return true, ""
}

func exitHeldSide(t Type) string {
	if t == ExitLong {
		return "long"
	}
	return "short"
}
