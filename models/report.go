package models

// RunSummary holds the user-visible counters of one run.
type RunSummary struct {
	RunID            string
	PagesScraped     int
	PagesFailed      int
	Emitted          int
	SkippedPast      int
	SkippedDuplicate int
	FailedValidation int
	EmptyTitle       int
	UploadSuccesses  int
	UploadFailures   int
	GeocodeHits      int
	GeocodeMisses    int
}

// InsightReport holds the end-of-run breakdown of accepted festivals.
type InsightReport struct {
	Summary         RunSummary
	TotalFestivals  int
	WithCoordinates int
	WithStructured  int
	BySource        map[string]int
	ByProvince      map[string]int
	ByMonth         map[string]int
}
