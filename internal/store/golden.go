package store

import (
	"context"
	"fmt"
)

// GoldenBatch returns the golden batch id of the active model, or "".
func (s *Store) GoldenBatch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.golden
}

// SetGoldenBatch toggles the golden batch of the active model: setting the
// current id again clears it. Returns the resulting id.
func (s *Store) SetGoldenBatch(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	if s.golden == id || id == "" {
		s.golden = ""
	} else {
		if s.indexLocked(id) < 0 {
			s.mu.Unlock()
			return "", s.notFound(id)
		}
		s.golden = id
	}
	cur, model := s.golden, s.view.Model
	msg := "Golden batch cleared."
	if cur != "" {
		msg = "Golden batch set."
	}
	evs, err := s.persisted(s.saveGolden(ctx), msg)
	s.mu.Unlock()

	s.events.Publish(evs...)
	s.log.Info("golden batch toggled", "model", model, "id", cur)
	return cur, err
}

// ClearGoldenBatch removes the golden batch of the active model.
func (s *Store) ClearGoldenBatch(ctx context.Context) error {
	s.mu.Lock()
	s.golden = ""
	evs, err := s.persisted(s.saveGolden(ctx), "Golden batch cleared.")
	s.mu.Unlock()

	s.events.Publish(evs...)
	if err != nil {
		return fmt.Errorf("clear golden batch: %w", err)
	}
	return nil
}
