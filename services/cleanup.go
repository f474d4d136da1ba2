package services

import (
	"context"
	"fmt"
	"time"

	"festival-scraper/utils"
)

// EntryStore is the part of the CMS API the cleanup job needs.
type EntryStore interface {
	List(ctx context.Context, page, pageSize int) (*CMSPage, error)
	Delete(ctx context.Context, id int) error
}

// ExpiredEntries walks every page of the store and returns the entries whose
// end date (or start date, when the end is missing) is before today. Entries
// without a readable date are kept.
func ExpiredEntries(ctx context.Context, store EntryStore, pageSize int, now time.Time) ([]CMSEntry, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	today := DateOf(now)

	var expired []CMSEntry
	for page := 1; ; page++ {
		res, err := store.List(ctx, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}
		for _, e := range res.Data {
			if entryEnded(e, today) {
				expired = append(expired, e)
			}
		}
		if len(res.Data) == 0 || page >= res.Meta.Pagination.PageCount {
			return expired, nil
		}
	}
}

func entryEnded(e CMSEntry, today CalendarDate) bool {
	end, ok := ParseISODate(e.Attributes.EndDate)
	if !ok {
		end, ok = ParseISODate(e.Attributes.StartDate)
	}
	return ok && end.Before(today)
}

// PurgeExpired deletes every expired entry and returns how many were
// removed. A failed delete is logged and the job moves on.
func PurgeExpired(ctx context.Context, store EntryStore, pageSize int, now time.Time, logger *utils.Logger) (int, error) {
	expired, err := ExpiredEntries(ctx, store, pageSize, now)
	if err != nil {
		return 0, err
	}
	logger.Info("[cleanup] %d expired festival(s) found", len(expired))

	deleted := 0
	for _, e := range expired {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := store.Delete(ctx, e.ID); err != nil {
			logger.Error("[cleanup] delete %d (%s): %v", e.ID, e.Attributes.Slug, err)
			continue
		}
		logger.Debug("[cleanup] deleted %d %q (ended %s)", e.ID, e.Attributes.Title, e.Attributes.EndDate)
		deleted++
	}
	return deleted, nil
}
