package storage

import (
	"context"

	"festival-scraper/models"
)

// Sink is the interface any output backend must satisfy. Emit is called once
// per accepted festival and may be called concurrently.
type Sink interface {
	Emit(ctx context.Context, f *models.ValidatedFestival) error
	Close() error
}
