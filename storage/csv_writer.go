package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"festival-scraper/models"
)

// Sequence and object columns hold JSON.
var csvHeader = []string{
	"source", "title", "start_date", "end_date", "location", "province",
	"latitude", "longitude", "url", "scraped_at",
	"name", "description", "meta_description", "og_image", "og_title",
	"dates", "images", "paragraphs", "contacts", "social_media",
	"categories", "schedule", "prices", "structured_data", "full_text",
}

// CSVWriter appends accepted festivals to a CSV dataset file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{path: path, file: f, writer: w}, nil
}

// Emit writes one row and flushes it to disk.
func (c *CSVWriter) Emit(_ context.Context, f *models.ValidatedFestival) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := csvRow(f)
	if err != nil {
		return fmt.Errorf("csv: encode %s: %w", f.URL, err)
	}
	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	c.rows++
	return nil
}

func csvRow(f *models.ValidatedFestival) ([]string, error) {
	var lat, lng string
	if g := f.Coordinates(); g != nil {
		lat = strconv.FormatFloat(g.Latitude, 'f', -1, 64)
		lng = strconv.FormatFloat(g.Longitude, 'f', -1, 64)
	}

	var cells []string
	for _, v := range []any{
		f.Dates, f.Images, f.Paragraphs, f.Contacts, f.Social,
		f.Categories, f.Schedule, f.Prices, f.StructuredData,
	} {
		cell, err := jsonCell(v)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}

	row := []string{
		f.Source,
		f.Title,
		f.StartDate,
		f.EndDate,
		f.Location.DisplayName(),
		f.Province,
		lat,
		lng,
		f.URL,
		f.ScrapedAt,
		f.Name,
		f.Description,
		f.MetaDescription,
		f.OgImage,
		f.OgTitle,
	}
	row = append(row, cells...)
	return append(row, f.FullText), nil
}

// jsonCell encodes v, leaving the cell empty for nil objects.
func jsonCell(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "", nil
	}
	return string(b), nil
}

// Path returns the file being written.
func (c *CSVWriter) Path() string { return c.path }

// Rows returns how many festivals were written.
func (c *CSVWriter) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
