package notify

import (
	"context"
	"fmt"

	"github.com/Zeenjinn/sign-language-translation/internal/store"
)

// StoreSink records accepted predictions in the history store.
type StoreSink struct {
	store  *store.Store
	source store.SessionSource
}

// NewStoreSink creates a StoreSink. Events for sessions the store has not seen
// yet create them with the given source.
func NewStoreSink(s *store.Store, source store.SessionSource) *StoreSink {
	return &StoreSink{store: s, source: source}
}

func (s *StoreSink) Name() string { return "store" }

// Publish stores recognized events and ignores the rest.
func (s *StoreSink) Publish(ctx context.Context, ev Event) error {
	if !ev.Recognized() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.store.Sessions().Ensure(ev.Session, s.source); err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}

	err := s.store.Predictions().Create(&store.Prediction{
		SessionID:  ev.Session,
		Label:      ev.Label,
		Confidence: ev.Confidence,
		CreatedAt:  ev.At,
	})
	if err != nil {
		return fmt.Errorf("record prediction: %w", err)
	}
	return nil
}
