package rag

import "time"

// ResolveDateRange turns a time-period tag into an inclusive calendar range
// relative to now. Unrecognized or absent periods default to the trailing
// 30 days.
func ResolveDateRange(period TimePeriod, now time.Time) DateRange {
	today := truncateToDay(now)

	switch period {
	case PeriodToday:
		return DateRange{Start: today, End: today}
	case PeriodYesterday:
		y := today.AddDate(0, 0, -1)
		return DateRange{Start: y, End: y}
	case PeriodLastWeek:
		return DateRange{Start: today.AddDate(0, 0, -7), End: today}
	case PeriodThisMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return DateRange{Start: first, End: today}
	case PeriodLastMonth:
		firstOfThis := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		end := firstOfThis.AddDate(0, 0, -1)
		start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
		return DateRange{Start: start, End: end}
	case PeriodQuarter:
		quarterMonth := time.Month((int(today.Month())-1)/3*3 + 1)
		start := time.Date(today.Year(), quarterMonth, 1, 0, 0, 0, 0, today.Location())
		return DateRange{Start: start, End: today}
	case PeriodYear:
		start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		return DateRange{Start: start, End: today}
	default:
		return DateRange{Start: today.AddDate(0, 0, -30), End: today}
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
