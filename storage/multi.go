package storage

import (
	"context"
	"errors"

	"festival-scraper/models"
)

// MultiSink fans every festival out to several sinks. Every sink is tried;
// the errors are joined.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Add appends a sink.
func (m *MultiSink) Add(s Sink) { m.sinks = append(m.sinks, s) }

// Len returns the number of sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

func (m *MultiSink) Emit(ctx context.Context, f *models.ValidatedFestival) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Emit(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
