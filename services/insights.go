package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"festival-scraper/models"
	"festival-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// Generate builds the end-of-run report from the accepted festivals.
func (s *InsightService) Generate(festivals []*models.ValidatedFestival, summary models.RunSummary) *models.InsightReport {
	report := &models.InsightReport{
		Summary:    summary,
		BySource:   make(map[string]int),
		ByProvince: make(map[string]int),
		ByMonth:    make(map[string]int),
	}

	for _, f := range festivals {
		report.TotalFestivals++
		report.BySource[f.Source]++
		if f.Province != "" {
			report.ByProvince[f.Province]++
		}
		if f.StructuredData != nil {
			report.WithStructured++
		}
		if f.Coordinates() != nil {
			report.WithCoordinates++
		}
		if month := monthOf(&f.Festival); month != "" {
			report.ByMonth[month]++
		}
	}

	return report
}

func monthOf(f *models.Festival) string {
	if d, ok := ParseISODate(f.StartDate); ok {
		return d.MonthYear()
	}
	return ""
}

func (s *InsightService) Print(r *models.InsightReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🎪 FESTIVAL SCRAPE SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Run
	sum := r.Summary
	fmt.Fprintf(w, "\033[1;33m  Run %s\033[0m\n", sum.RunID)
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Pages scraped          : \033[1m%d\033[0m\n", sum.PagesScraped)
	fmt.Fprintf(w, "  Pages failed           : \033[1m%d\033[0m\n", sum.PagesFailed)
	fmt.Fprintf(w, "  Festivals emitted      : \033[1;32m%d\033[0m\n", sum.Emitted)
	fmt.Fprintf(w, "  Skipped as past        : %d\n", sum.SkippedPast)
	fmt.Fprintf(w, "  Skipped as duplicate   : %d\n", sum.SkippedDuplicate)
	fmt.Fprintf(w, "  Failed validation      : %d\n", sum.FailedValidation)
	fmt.Fprintf(w, "  Empty title            : %d\n", sum.EmptyTitle)
	fmt.Fprintln(w)

	// Collaborators
	fmt.Fprintf(w, "\033[1;33m  Upload & Geocoding\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if sum.UploadSuccesses+sum.UploadFailures == 0 {
		fmt.Fprintf(w, "  Upload disabled or nothing to upload\n")
	} else {
		fmt.Fprintf(w, "  Uploads ok / failed    : \033[1;32m%d\033[0m / \033[1;31m%d\033[0m (%.2f%% ok)\n",
			sum.UploadSuccesses, sum.UploadFailures,
			round2(percent(sum.UploadSuccesses, sum.UploadSuccesses+sum.UploadFailures)))
	}
	fmt.Fprintf(w, "  Geocode hits / misses  : %d / %d\n", sum.GeocodeHits, sum.GeocodeMisses)
	fmt.Fprintln(w)

	// Coverage
	fmt.Fprintf(w, "\033[1;33m  Coverage\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  With coordinates       : %d of %d\n", r.WithCoordinates, r.TotalFestivals)
	fmt.Fprintf(w, "  With structured data   : %d of %d\n", r.WithStructured, r.TotalFestivals)
	fmt.Fprintln(w)

	s.printBreakdown(w, "Festivals by Source", r.BySource, thin, false)
	s.printBreakdown(w, "Festivals by Province", r.ByProvince, thin, false)
	s.printBreakdown(w, "Festivals by Month", r.ByMonth, thin, true)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func (s *InsightService) printBreakdown(w io.Writer, title string, counts map[string]int, thin string, byKey bool) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}
	for _, e := range sortedCounts(counts, byKey) {
		bar := strings.Repeat("█", min(e.count, 40))
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(e.key, 28), bar, e.count)
	}
	fmt.Fprintln(w)
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders by count descending, or by key when byKey is set.
func sortedCounts(counts map[string]int, byKey bool) []keyCount {
	out := make([]keyCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if byKey || out[i].count == out[j].count {
			return out[i].key < out[j].key
		}
		return out[i].count > out[j].count
	})
	return out
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
