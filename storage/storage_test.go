package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"festival-scraper/models"
)

func sampleFestival(url string) *models.ValidatedFestival {
	f := models.NewFestival(url, "sagritaly", time.Date(2025, 10, 20, 9, 30, 0, 0, time.UTC))
	f.Title = "Sagra del Tortello"
	f.StartDate = "2025-11-07"
	f.EndDate = "2025-11-09"
	f.Province = "MN"
	f.Dates = []string{"7-8-9 Novembre 2025"}
	f.Images = []models.Image{{Src: "https://www.sagritaly.com/img/tortelli.jpg", Alt: "Tortelli"}}
	f.Description = "Tortelli di zucca\n\nMusica dal vivo"
	f.Location = models.PlaceLocation(&models.Place{
		Name: "Piazza Sordello",
		Geo:  &models.GeoCoordinates{Latitude: 45.1604, Longitude: 10.7975},
	})
	return &models.ValidatedFestival{Festival: *f}
}

func TestCSVWriterEmit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "festivals.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	ctx := context.Background()
	if err := w.Emit(ctx, sampleFestival("https://www.sagritaly.com/evento/a/")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	plain := sampleFestival("https://www.sagritaly.com/evento/b/")
	plain.Location = models.TextLocation("Mantova, centro storico")
	if err := w.Emit(ctx, plain); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if w.Rows() != 2 {
		t.Errorf("Rows: got %d", w.Rows())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records: got %d, want header + 2", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header: got %v", records[0])
	}
	first := records[1]
	if first[1] != "Sagra del Tortello" || first[4] != "Piazza Sordello" || first[6] != "45.1604" || first[7] != "10.7975" {
		t.Errorf("row: got %v", first)
	}
	if records[2][4] != "Mantova, centro storico" || records[2][6] != "" {
		t.Errorf("text-location row: got %v", records[2])
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	var dates []string
	if err := json.Unmarshal([]byte(first[col["dates"]]), &dates); err != nil || len(dates) != 1 || dates[0] != "7-8-9 Novembre 2025" {
		t.Errorf("dates cell %q: %v, %v", first[col["dates"]], dates, err)
	}
	var images []models.Image
	if err := json.Unmarshal([]byte(first[col["images"]]), &images); err != nil || len(images) != 1 || images[0].Alt != "Tortelli" {
		t.Errorf("images cell %q: %v, %v", first[col["images"]], images, err)
	}
	if first[col["description"]] != "Tortelli di zucca\n\nMusica dal vivo" {
		t.Errorf("description cell: %q", first[col["description"]])
	}
	if first[col["contacts"]] != "" || first[col["categories"]] != "[]" {
		t.Errorf("empty cells: contacts %q, categories %q", first[col["contacts"]], first[col["categories"]])
	}
}

func TestCSVWriterConcurrentEmit(t *testing.T) {
	w, err := NewCSVWriter(filepath.Join(t.TempDir(), "f.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Emit(context.Background(), sampleFestival("https://www.sagritaly.com/evento/x/"))
		}()
	}
	wg.Wait()
	if w.Rows() != 50 {
		t.Errorf("Rows: got %d, want 50", w.Rows())
	}
}

func TestFestivalArgs(t *testing.T) {
	args, err := festivalArgs(sampleFestival("https://www.sagritaly.com/evento/a/"))
	if err != nil {
		t.Fatalf("festivalArgs: %v", err)
	}
	if len(args) != 9 {
		t.Fatalf("args: got %d, want 9", len(args))
	}
	if args[5] != "Piazza Sordello" {
		t.Errorf("location arg: got %v", args[5])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(args[7].(string)), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["title"] != "Sagra del Tortello" {
		t.Errorf("payload title: got %v", payload["title"])
	}
	if ts := args[8].(time.Time); !ts.Equal(time.Date(2025, 10, 20, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("scraped_at: got %v", ts)
	}
}

type fakeChannel struct {
	keys []string
	msgs []amqp.Publishing
	err  error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, exchange+"/"+key)
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestAMQPPublisherEmit(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{channel: ch, exchange: "festivals", timeout: time.Second}

	for _, u := range []string{"https://www.sagritaly.com/evento/a/", "https://www.sagritaly.com/evento/b/"} {
		if err := p.Emit(context.Background(), sampleFestival(u)); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	if ch.keys[0] != "festivals/festival.accepted.sagritaly" {
		t.Errorf("routing: got %q", ch.keys[0])
	}
	msg := ch.msgs[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent {
		t.Errorf("message properties: %+v", msg)
	}
	if msg.MessageId == "" || msg.MessageId == ch.msgs[1].MessageId {
		t.Errorf("message ids should be unique: %q, %q", msg.MessageId, ch.msgs[1].MessageId)
	}
	var body models.Festival
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.URL != "https://www.sagritaly.com/evento/a/" || !body.Location.IsPlace() {
		t.Errorf("body: %+v", body)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestAMQPPublisherError(t *testing.T) {
	p := &AMQPPublisher{channel: &fakeChannel{err: amqp.ErrClosed}, exchange: "festivals", timeout: time.Second}
	err := p.Emit(context.Background(), sampleFestival("https://www.sagritaly.com/evento/a/"))
	if !errors.Is(err, amqp.ErrClosed) {
		t.Errorf("expected wrapped ErrClosed, got %v", err)
	}
}

type recordingSink struct {
	emitted int
	closed  bool
	err     error
}

func (s *recordingSink) Emit(context.Context, *models.ValidatedFestival) error {
	s.emitted++
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{err: errors.New("disk full")}
	m := NewMultiSink(a)
	m.Add(b)

	err := m.Emit(context.Background(), sampleFestival("https://www.sagritaly.com/evento/a/"))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Emit: got %v", err)
	}
	if a.emitted != 1 || b.emitted != 1 {
		t.Errorf("every sink should receive the festival: %d, %d", a.emitted, b.emitted)
	}
	if m.Len() != 2 {
		t.Errorf("Len: got %d", m.Len())
	}
	if err := m.Close(); err != nil || !a.closed || !b.closed {
		t.Errorf("Close: err=%v a=%v b=%v", err, a.closed, b.closed)
	}
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2025, 10, 20, 23, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	if got := ArchiveKey("run-1", at); got != "festivals/2025-10-20/run-1.csv" {
		t.Errorf("ArchiveKey: got %q", got)
	}
}
