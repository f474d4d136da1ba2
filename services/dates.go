package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

const italianMonths = `gennaio|febbraio|marzo|aprile|maggio|giugno|luglio|agosto|settembre|ottobre|novembre|dicembre`

var (
	// naturalDateRegexp captures day, Italian month name and optional year.
	naturalDateRegexp = regexp.MustCompile(`(?i)\b(\d{1,2})(?:°|º)?\s*(?:di\s+)?(` + italianMonths + `)\b(?:\s*,?\s*(\d{4})\b)?`)
	monthNameRegexp   = regexp.MustCompile(`(?i)\b(` + italianMonths + `)\b`)
	yearRegexp        = regexp.MustCompile(`\b(\d{4})\b`)
	leadingYearRegexp = regexp.MustCompile(`^\s*,?\s*(\d{4})\b`)
	dayNumberRegexp   = regexp.MustCompile(`\b(\d{1,2})\b`)
	clockWordRegexp   = regexp.MustCompile(`(?i)\b(?:ore|dalle|alle|h)\s*$`)
)

// CalendarDate is a date without time of day.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// String formats the date as ISO YYYY-MM-DD.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MonthYear formats the month granularity key YYYY-MM.
func (d CalendarDate) MonthYear() string {
	return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
}

// Time returns midnight UTC of the date.
func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is strictly earlier than o.
func (d CalendarDate) Before(o CalendarDate) bool {
	return d.Time().Before(o.Time())
}

func (d CalendarDate) IsZero() bool { return d == CalendarDate{} }

// ParseNaturalDate parses the first "day month-name [year]" triple found in
// text. The year defaults to the current one.
func ParseNaturalDate(text string) (CalendarDate, bool) {
	return ParseNaturalDateAt(text, time.Now())
}

// ParseNaturalDateAt is ParseNaturalDate with an explicit reference time for
// the default year. Malformed input yields false, never a panic.
func ParseNaturalDateAt(text string, ref time.Time) (CalendarDate, bool) {
	m := naturalDateRegexp.FindStringSubmatch(text)
	if m == nil {
		return CalendarDate{}, false
	}
	day, _ := strconv.Atoi(m[1])
	year := ref.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	return parseTriple(day, m[2], year)
}

// parseTriple builds a date from its Italian parts. monday does the month
// name translation and rejects impossible days such as 31 febbraio.
func parseTriple(day int, monthName string, year int) (CalendarDate, bool) {
	value := fmt.Sprintf("%d %s %04d", day, strings.ToLower(monthName), year)
	t, err := monday.Parse("2 January 2006", value, monday.LocaleItIT)
	if err != nil {
		return CalendarDate{}, false
	}
	return DateOf(t), true
}

// ParseISODate parses YYYY-MM-DD, also when followed by a time part
// (2025-11-07T18:00, RFC3339), as found in JSON-LD.
func ParseISODate(s string) (CalendarDate, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return CalendarDate{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return CalendarDate{}, false
	}
	if len(s) > 10 && s[10] != 'T' && s[10] != ' ' {
		return CalendarDate{}, false
	}
	return DateOf(t), true
}

// DateRange is a start/end pair parsed from one text fragment.
type DateRange struct {
	Start CalendarDate
	End   CalendarDate
}

type textPos struct {
	value int
	start int
	end   int
}

// ParseDateRange extracts a start/end range from a fragment that may list
// several days attached to one or two month names:
//
//	"7-8-14-15 Novembre 2025"       -> 2025-11-07 .. 2025-11-15
//	"31 Ottobre 1-2 Novembre 2025"  -> 2025-10-31 .. 2025-11-02
//
// With one month the smallest and largest day are used. With more months
// the first and last month mentioned are used: days before the last month's
// first mention belong to the first month, days after the first month's
// name belong to the last month; start is the first of the former, end the
// last of the latter in text order. Fragments naming three or more months
// are resolved with the same positional rule and may be wrong.
func ParseDateRange(text string, ref time.Time) (DateRange, bool) {
	months := monthNameRegexp.FindAllStringSubmatchIndex(text, -1)
	if len(months) == 0 {
		return DateRange{}, false
	}

	year := rangeYear(text, months[len(months)-1][1], ref)

	days := dayNumbers(text)
	if len(days) == 0 {
		return DateRange{}, false
	}

	firstName := strings.ToLower(text[months[0][2]:months[0][3]])
	lastName := strings.ToLower(text[months[len(months)-1][2]:months[len(months)-1][3]])

	if firstName == lastName {
		lo, hi := days[0].value, days[0].value
		for _, d := range days[1:] {
			lo = min(lo, d.value)
			hi = max(hi, d.value)
		}
		start, ok := parseTriple(lo, firstName, year)
		if !ok {
			return DateRange{}, false
		}
		end, ok := parseTriple(hi, firstName, year)
		if !ok {
			return DateRange{}, false
		}
		return DateRange{Start: start, End: end}, true
	}

	lastFirstMention := -1
	for _, m := range months {
		if strings.EqualFold(text[m[2]:m[3]], lastName) {
			lastFirstMention = m[0]
			break
		}
	}
	firstNameEnd := months[0][1]

	var firstDays, lastDays []int
	for _, d := range days {
		if d.end <= lastFirstMention {
			firstDays = append(firstDays, d.value)
		}
		if d.start >= firstNameEnd {
			lastDays = append(lastDays, d.value)
		}
	}
	if len(firstDays) == 0 || len(lastDays) == 0 {
		return DateRange{}, false
	}

	end, ok := parseTriple(lastDays[len(lastDays)-1], lastName, year)
	if !ok {
		return DateRange{}, false
	}
	startYear := year
	start, ok := parseTriple(firstDays[0], firstName, startYear)
	if ok && end.Before(start) {
		// dicembre .. gennaio: the year printed belongs to the end
		start, ok = parseTriple(firstDays[0], firstName, startYear-1)
	}
	if !ok {
		return DateRange{}, false
	}
	return DateRange{Start: start, End: end}, true
}

// rangeYear returns the year printed right after the last month name, else
// the last one printed before it, else the year of ref. Other four-digit
// numbers further on ("edizione 2019", street numbers) are ignored.
func rangeYear(text string, lastMonthEnd int, ref time.Time) int {
	if m := leadingYearRegexp.FindStringSubmatch(text[lastMonthEnd:]); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y
	}
	if ys := yearRegexp.FindAllStringSubmatch(text[:lastMonthEnd], -1); len(ys) > 0 {
		y, _ := strconv.Atoi(ys[len(ys)-1][1])
		return y
	}
	return ref.Year()
}

// dayNumbers returns the 1..31 numbers of text in order, skipping those
// that are part of a clock time (19:30, 19.30, "ore 21") or a numeric date
// (7/11).
func dayNumbers(text string) []textPos {
	var out []textPos
	for _, m := range dayNumberRegexp.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > 0 && strings.ContainsRune(":/.", rune(text[m[0]-1])) {
			continue
		}
		if m[1] < len(text) && strings.ContainsRune(":/", rune(text[m[1]])) {
			continue
		}
		if m[1]+1 < len(text) && strings.ContainsRune(".,", rune(text[m[1]])) && isDigit(text[m[1]+1]) {
			continue
		}
		if clockWordRegexp.MatchString(text[:m[0]]) {
			continue
		}
		n, _ := strconv.Atoi(text[m[2]:m[3]])
		if n < 1 || n > 31 {
			continue
		}
		out = append(out, textPos{value: n, start: m[0], end: m[1]})
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
