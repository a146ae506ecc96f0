package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
)

func dataset(id string, regs ...int64) *types.Dataset {
	ds := &types.Dataset{SourceID: id}
	for _, r := range regs {
		ds.Records = append(ds.Records, types.Record{Registrations: r})
	}
	return ds
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPutAndGet(t *testing.T) {
	st := New(5 * time.Minute)
	st.Put(dataset("vahan", 1, 2))

	e, ok := st.Get("vahan")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if len(e.Dataset.Records) != 2 {
		t.Errorf("records: got %d, want 2", len(e.Dataset.Records))
	}
}

func TestGet_Missing(t *testing.T) {
	st := New(5 * time.Minute)
	if _, ok := st.Get("unknown"); ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
	if _, ok := st.Live("unknown"); ok {
		t.Fatal("Live on empty store: expected false, got true")
	}
}

func TestPut_Overwrites(t *testing.T) {
	st := New(5 * time.Minute)
	st.Put(dataset("src", 1))
	st.Put(dataset("src", 1, 2, 3))

	e, _ := st.Get("src")
	if len(e.Dataset.Records) != 3 {
		t.Errorf("records: got %d, want 3", len(e.Dataset.Records))
	}
}

func TestFail_KeepsPreviousDataset(t *testing.T) {
	st := New(5 * time.Minute)
	st.Put(dataset("src", 1))
	st.Fail("src", errors.New("portal down"))
	st.Fail("src", errors.New("portal still down"))

	e, ok := st.Live("src")
	if !ok {
		t.Fatal("Live: dataset should survive a failed refresh")
	}
	if e.LastError != "portal still down" {
		t.Errorf("LastError: got %q", e.LastError)
	}
	if e.Failures != 2 {
		t.Errorf("Failures: got %d, want 2", e.Failures)
	}

	st.Put(dataset("src", 2))
	e, _ = st.Get("src")
	if e.LastError != "" || e.Failures != 0 {
		t.Errorf("after success: LastError=%q Failures=%d, want cleared", e.LastError, e.Failures)
	}
}

func TestFail_WithoutDatasetIsNotLive(t *testing.T) {
	st := New(5 * time.Minute)
	st.Fail("src", errors.New("no tables found on the page"))

	if _, ok := st.Live("src"); ok {
		t.Error("Live: failure-only entry must not be live")
	}
	if n := len(st.List()); n != 0 {
		t.Errorf("List: got %d entries, want 0", n)
	}
	if n := len(st.All()); n != 1 {
		t.Errorf("All: got %d entries, want 1", n)
	}
}

func TestList_ExcludesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(dataset("old"))

	st.now = fixedClock(base)
	st.Put(dataset("new"))

	entries := st.List()
	if len(entries) != 1 {
		t.Fatalf("List: got %d entries, want 1", len(entries))
	}
	if entries[0].SourceID != "new" {
		t.Errorf("List[0].SourceID: got %q, want new", entries[0].SourceID)
	}
}

func TestList_SortedByID(t *testing.T) {
	st := New(5 * time.Minute)
	for _, id := range []string{"c", "a", "b"} {
		st.Put(dataset(id))
	}
	entries := st.List()
	for i, want := range []string{"a", "b", "c"} {
		if entries[i].SourceID != want {
			t.Errorf("List[%d]: got %q, want %q", i, entries[i].SourceID, want)
		}
	}
}

func TestZeroTTL_NeverExpires(t *testing.T) {
	base := time.Now()
	st := New(0)
	st.now = fixedClock(base.Add(-1000 * time.Hour))
	st.Put(dataset("src"))
	st.now = fixedClock(base)

	if _, ok := st.Live("src"); !ok {
		t.Error("Live: zero TTL entry should never expire")
	}
	if n := st.Evict(base); n != 0 {
		t.Errorf("Evict with zero TTL: removed %d, want 0", n)
	}
}

func TestEvict_RemovesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(dataset("old1"))
	st.Fail("old2", errors.New("x"))

	st.now = fixedClock(base)
	st.Put(dataset("live"))

	if removed := st.Evict(base); removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if st.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", st.Count())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := New(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(5 * time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			st.Put(dataset("src-a", 1))
		}()
		go func() {
			defer wg.Done()
			st.Fail("src-a", errors.New("flaky"))
		}()
		go func() {
			defer wg.Done()
			st.List()
		}()
	}
	wg.Wait()

	if st.Count() != 1 {
		t.Errorf("Count: got %d, want 1", st.Count())
	}
}
