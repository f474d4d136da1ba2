package services

import (
	"errors"
	"strings"

	"festival-scraper/models"
	"festival-scraper/utils"
)

// ErrDuplicate is returned by the page pipeline for records already seen in
// this run.
var ErrDuplicate = errors.New("duplicate festival")

// Detector rejects festivals already seen in the current run. Identity is
// title + location + month, never the URL. It is created once per run and
// shared by every page handler.
type Detector struct {
	seen *utils.KeySet
}

// NewDetector creates an empty Detector.
func NewDetector() *Detector {
	return &Detector{seen: utils.NewKeySet()}
}

// IsDuplicate reports whether f was already seen and remembers its key when
// it was not. Check and insert are atomic.
func (d *Detector) IsDuplicate(f *models.Festival) bool {
	return !d.seen.Add(DuplicateKey(f))
}

// Forget releases the key of f so a later page with the same identity is
// accepted. Used when a record is rejected after the duplicate check.
func (d *Detector) Forget(f *models.Festival) { d.seen.Remove(DuplicateKey(f)) }

// Reset forgets every key.
func (d *Detector) Reset() { d.seen.Reset() }

// Len returns the number of keys remembered.
func (d *Detector) Len() int { return d.seen.Size() }

// DuplicateKey builds "title|location|YYYY-MM" from the normalised title,
// the location name and the month of the start date (or of the first raw
// date fragment).
func DuplicateKey(f *models.Festival) string {
	title := strings.ToLower(strings.TrimSpace(f.Title))
	location := strings.ToLower(strings.TrimSpace(f.Location.DisplayName()))

	monthYear := ""
	if d, ok := ParseISODate(f.StartDate); ok {
		monthYear = d.MonthYear()
	} else if len(f.Dates) > 0 {
		if d, ok := ParseNaturalDate(f.Dates[0]); ok {
			monthYear = d.MonthYear()
		}
	}
	return title + "|" + location + "|" + monthYear
}
