package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
	"github.com/JonMunkholm/dryerlog/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	backend := storage.NewMemory()
	return newStoreOn(t, backend), backend
}

func newStoreOn(t *testing.T, backend storage.Backend) *Store {
	t.Helper()
	cat, err := schema.Default()
	if err != nil {
		t.Fatalf("schema.Default: %v", err)
	}
	s, err := New(context.Background(), backend, cat)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func evalRecord(id, ts string) record.Record {
	r := record.New(record.EvaluationTeam, "vt8")
	if id != "" {
		r.SetID(id)
	}
	if ts != "" {
		r[record.KeyTimestamp] = ts
	}
	return r
}

// eventLog records published events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func capture(s *Store) *eventLog {
	l := &eventLog{}
	s.Events().Subscribe(func(e Event) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.events = append(l.events, e)
	})
	return l
}

func (l *eventLog) notices() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Notice
	for _, e := range l.events {
		if n, ok := e.(Notice); ok {
			out = append(out, n)
		}
	}
	return out
}

func (l *eventLog) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

// failingBackend fails every write.
type failingBackend struct {
	*storage.Memory
}

var errDiskFull = errors.New("disk full")

func (failingBackend) Set(context.Context, string, []byte) error { return errDiskFull }
func (failingBackend) Delete(context.Context, string) error      { return errDiskFull }

func ids(recs []record.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID()
	}
	return out
}
