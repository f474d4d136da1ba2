package services

import (
	"time"

	"festival-scraper/models"
)

// IsPast reports whether the festival is already over at now. It is
// conservative: whenever the dates are unknown or ambiguous the record is
// kept (false).
//
// Order: endDate, then startDate, then the raw date fragments. A record with
// fragments is past only if every parseable fragment ends before today and
// at least one parsed.
func IsPast(f *models.Festival, now time.Time) bool {
	today := DateOf(now)

	if d, ok := ParseISODate(f.EndDate); ok {
		return d.Before(today)
	}
	if d, ok := ParseISODate(f.StartDate); ok {
		return d.Before(today)
	}

	parsed := 0
	for _, fragment := range f.Dates {
		end, ok := fragmentEnd(fragment, now)
		if !ok {
			continue
		}
		parsed++
		if !end.Before(today) {
			return false
		}
	}
	return parsed > 0
}

func fragmentEnd(fragment string, now time.Time) (CalendarDate, bool) {
	if r, ok := ParseDateRange(fragment, now); ok {
		return r.End, true
	}
	if d, ok := ParseISODate(fragment); ok {
		return d, true
	}
	return ParseNaturalDateAt(fragment, now)
}
