/**
 * @description
 * This file defines the creation-time windows used to filter account listings.
 * Each timeframe resolves to a half-open [start, end) interval anchored to an
 * explicit reference time, so callers never depend on ambient clock state.
 */

package domain

import "time"

// Timeframe names a creation-time window for account listings.
type Timeframe string

const (
	TimeframeAllTime     Timeframe = ""
	TimeframeToday       Timeframe = "today"
	TimeframeThisWeek    Timeframe = "this_week"
	TimeframeThisMonth   Timeframe = "this_month"
	TimeframeLastMonth   Timeframe = "last_month"
	TimeframeThisQuarter Timeframe = "this_quarter"
	TimeframeThisYear    Timeframe = "this_year"
)

// Window resolves the timeframe to a half-open [start, end) interval relative
// to now. A zero start means unbounded below; a zero end means unbounded above.
// Weeks start on Monday, matching date_trunc('week') in the store.
func (tf Timeframe) Window(now time.Time) (start, end time.Time) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch tf {
	case TimeframeToday:
		return today, today.AddDate(0, 0, 1)
	case TimeframeThisWeek:
		weekday := int(today.Weekday())
		if weekday == 0 { // Sunday
			weekday = 7
		}
		monday := today.AddDate(0, 0, -(weekday - 1))
		return monday, time.Time{}
	case TimeframeThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), time.Time{}
	case TimeframeLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return first.AddDate(0, -1, 0), first
	case TimeframeThisQuarter:
		quarterStart := time.Month((int(now.Month())-1)/3*3 + 1)
		return time.Date(now.Year(), quarterStart, 1, 0, 0, 0, 0, loc), time.Time{}
	case TimeframeThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc), time.Time{}
	default:
		return time.Time{}, time.Time{}
	}
}

// ParseTimeframe maps a query-string value to a known Timeframe. Unknown
// values fall back to all time.
func ParseTimeframe(value string) Timeframe {
	switch Timeframe(value) {
	case TimeframeToday, TimeframeThisWeek, TimeframeThisMonth,
		TimeframeLastMonth, TimeframeThisQuarter, TimeframeThisYear:
		return Timeframe(value)
	default:
		return TimeframeAllTime
	}
}
