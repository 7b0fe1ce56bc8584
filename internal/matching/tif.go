package matching

import "time"

// tifExpired implements §4.7's TIF semantics, evaluated at matching time
// rather than on the next tick after creation — the spec flags the
// source's "IOC rejects unconditionally one tick later" behavior as an
// ambiguity; resolving IOC/FOK here, at the moment of matching, avoids an
// order that was immediately fillable on arrival expiring before its first
// matching pass ever runs.
func tifExpired(o *Order, now time.Time) (bool, string) {
	switch o.TIF.Kind {
	case GTC:
		return false, ""
	case Day:
		loc := o.TIF.Loc
		if loc == nil {
			loc = time.UTC
		}
		createdDate := o.CreatedAt.In(loc)
		nowDate := now.In(loc)
		if nowDate.Year() != createdDate.Year() || nowDate.YearDay() != createdDate.YearDay() {
			return true, "Day order expired at calendar rollover"
		}
		return false, ""
	case Time:
		if !now.Before(o.TIF.At) {
			return true, "order expired at configured time"
		}
		return false, ""
	case IOC, FOK:
		// Resolved at the matching pass itself (see matchOne): an IOC
		// leaves no unfilled remainder resting, and FOK either fills in
		// full or not at all. Neither expires by elapsed time alone.
		return false, ""
	default:
		return false, ""
	}
}
