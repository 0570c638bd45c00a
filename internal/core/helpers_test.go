package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
	"github.com/JonMunkholm/dryerlog/internal/storage"
	"github.com/JonMunkholm/dryerlog/internal/store"
)

var testNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestService(t *testing.T, opts Options) (*Service, *store.Store) {
	t.Helper()
	cat, err := schema.Default()
	if err != nil {
		t.Fatalf("schema.Default: %v", err)
	}
	st, err := store.New(context.Background(), storage.NewMemory(), cat)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	if opts.MaxWait == 0 {
		opts.MaxWait = time.Second
	}
	return NewService(st, opts, WithClock(func() time.Time { return testNow })), st
}

func src(name, data string) importer.Source {
	return importer.BytesSource(name, []byte(data))
}

func addRecord(t *testing.T, st *store.Store, ts, remark string) record.Record {
	t.Helper()
	r := record.New(record.EvaluationTeam, "vt8")
	r[record.KeyTimestamp] = ts
	r[record.KeyRemark] = remark
	out, err := st.Add(context.Background(), r)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return out
}

type notices struct {
	mu   sync.Mutex
	list []store.Notice
}

func captureNotices(st *store.Store) *notices {
	n := &notices{}
	st.Events().Subscribe(func(e store.Event) {
		if nt, ok := e.(store.Notice); ok {
			n.mu.Lock()
			n.list = append(n.list, nt)
			n.mu.Unlock()
		}
	})
	return n
}

func (n *notices) last() store.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return store.Notice{}
	}
	return n.list[len(n.list)-1]
}
