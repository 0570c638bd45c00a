package store

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// View returns the active view.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Current returns the current page of the active view.
func (s *Store) Current() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked()
}

// Query returns one page for an explicit view, filter and sort without
// changing the store's own view state. An empty sort key means no sorting.
func (s *Store) Query(q Query) (Page, error) {
	if err := q.Filter.Validate(); err != nil {
		return Page{}, err
	}
	if err := validateSort(q.Sort); err != nil {
		return Page{}, err
	}
	q.View.Model = record.NormalizeModel(q.View.Model)

	s.mu.Lock()
	defer s.mu.Unlock()
	visible := filterSorted(s.records, q.View, q.Filter, q.Sort, s.collator)
	recs, current, total := paginate(visible, q.Page)
	p := Page{
		Records:     record.CloneAll(recs),
		CurrentPage: current,
		TotalPages:  total,
		Total:       len(visible),
		View:        q.View,
		Sort:        q.Sort,
	}
	if q.View.Model == s.view.Model {
		p.GoldenID = s.golden
	}
	return p, nil
}

// VisibleRecords returns every record of the active view that passes the
// active filter, in the active sort order, across all pages.
func (s *Store) VisibleRecords() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return record.CloneAll(filterSorted(s.records, s.view, s.filter, s.sort, s.collator))
}

// pageLocked computes the current page, resetting the page number to 1
// when it is past the last page.
func (s *Store) pageLocked() Page {
	visible := filterSorted(s.records, s.view, s.filter, s.sort, s.collator)
	recs, current, total := paginate(visible, s.page)
	s.page = current
	return Page{
		Records:     record.CloneAll(recs),
		CurrentPage: current,
		TotalPages:  total,
		Total:       len(visible),
		View:        s.view,
		Sort:        s.sort,
		GoldenID:    s.golden,
		EditingID:   s.editing,
	}
}

func (s *Store) updatedLocked() Event {
	return ViewUpdated{Page: s.pageLocked()}
}

// SetView switches category and model, returns to page 1 and loads the
// model's golden batch pointer.
func (s *Store) SetView(ctx context.Context, v View) error {
	v.Model = record.NormalizeModel(v.Model)
	v.Category = record.NormalizeCategory(string(v.Category))
	if !v.Category.Valid() {
		return fmt.Errorf("%w: record type %q", ErrInvalidInput, v.Category)
	}
	if !s.catalog.Supported(v.Model) {
		return fmt.Errorf("%w: model %q", ErrInvalidInput, v.Model)
	}

	s.mu.Lock()
	s.view = v
	s.page = 1
	err := s.loadGolden(ctx)
	evs := []Event{s.updatedLocked()}
	s.mu.Unlock()

	s.events.Publish(evs...)
	return err
}

// ApplyFilters replaces the filter and returns to page 1.
func (s *Store) ApplyFilters(f Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.filter = f
	s.page = 1
	ev := s.updatedLocked()
	s.mu.Unlock()

	s.events.Publish(ev)
	return nil
}

// Filter returns the active filter.
func (s *Store) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// ToggleSort sorts by key. Sorting by the current key again flips the
// direction; a new key starts descending. Returns to page 1.
func (s *Store) ToggleSort(key string) (Sort, error) {
	if _, err := record.ParsePath(key); err != nil {
		return Sort{}, fmt.Errorf("%w: sort key: %w", ErrInvalidInput, err)
	}

	s.mu.Lock()
	if s.sort.Key == key {
		if s.sort.Direction == Asc {
			s.sort.Direction = Desc
		} else {
			s.sort.Direction = Asc
		}
	} else {
		s.sort = Sort{Key: key, Direction: Desc}
	}
	s.page = 1
	cur := s.sort
	ev := s.updatedLocked()
	s.mu.Unlock()

	s.events.Publish(ev)
	return cur, nil
}

// ChangePage moves to page n. Out-of-range pages are ignored and reported
// as false.
func (s *Store) ChangePage(n int) bool {
	s.mu.Lock()
	visible := filterSorted(s.records, s.view, s.filter, s.sort, s.collator)
	_, _, total := paginate(visible, 1)
	if n < 1 || n > total {
		s.mu.Unlock()
		return false
	}
	s.page = n
	ev := s.updatedLocked()
	s.mu.Unlock()

	s.events.Publish(ev)
	return true
}

// BeginEdit marks a record as being edited and returns a copy of it.
func (s *Store) BeginEdit(id string) (record.Record, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, s.notFound(id)
	}
	s.editing = id
	out := s.records[i].Clone()
	ev := s.updatedLocked()
	s.mu.Unlock()

	s.events.Publish(ev)
	return out, nil
}

// CancelEdit leaves edit mode.
func (s *Store) CancelEdit() {
	s.mu.Lock()
	s.editing = ""
	ev := s.updatedLocked()
	s.mu.Unlock()

	s.events.Publish(ev, EditCleared{})
}

// Editing returns the id of the record being edited, or "".
func (s *Store) Editing() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

func validateSort(st Sort) error {
	if st.Key == "" {
		return nil
	}
	if _, err := record.ParsePath(st.Key); err != nil {
		return fmt.Errorf("%w: sort key: %w", ErrInvalidInput, err)
	}
	if st.Direction != Asc && st.Direction != Desc {
		return fmt.Errorf("%w: sort direction %q", ErrInvalidInput, st.Direction)
	}
	return nil
}
