package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/yourorg/rals-widget/internal/redisx"
	"github.com/yourorg/rals-widget/rengo"
)

type fakeSource struct {
	calls int32
	body  []byte
	err   error
	delay time.Duration
}

func (f *fakeSource) Fetch(ctx context.Context, req Request) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func (f *fakeSource) count() int { return int(atomic.LoadInt32(&f.calls)) }

func newStore(t *testing.T) (*miniredis.Miniredis, *redisx.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisx.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

var testReq = Request{APIBase: "https://api.test/search", Query: rengo.Query{Supplier: "2000", PropertyType: "2"}}

func TestKey(t *testing.T) {
	a, err := Key(testReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := Key(Request{APIBase: testReq.APIBase, Query: rengo.Query{Supplier: "2000", PropertyType: "1"}})
	if a == b {
		t.Error("different queries share a key")
	}
	again, _ := Key(testReq)
	if a != again {
		t.Error("key is not stable")
	}
	if _, err := Key(Request{APIBase: "ftp://api.test"}); err == nil {
		t.Error("expected an error for a bad base")
	}
}

func TestCached_MissThenHit(t *testing.T) {
	mr, store := newStore(t)
	src := &fakeSource{body: []byte(`[{"buildingId":"B1"}]`)}
	c := NewCached(src, store, CacheOptions{TTL: time.Hour, StaleAfter: 10 * time.Minute})
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Fetch(ctx, testReq)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if string(got) != `[{"buildingId":"B1"}]` {
			t.Errorf("fetch %d: unexpected body %s", i, got)
		}
	}
	if src.count() != 1 {
		t.Errorf("expected a single upstream call, got %d", src.count())
	}

	key, _ := Key(testReq)
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("expected ttl 1h, got %s", ttl)
	}
}

func TestCached_StaleHitRefreshesInBackground(t *testing.T) {
	_, store := newStore(t)
	src := &fakeSource{body: []byte(`[]`)}
	c := NewCached(src, store, CacheOptions{TTL: time.Hour, StaleAfter: time.Minute})
	ctx := context.Background()

	if _, err := c.Fetch(ctx, testReq); err != nil {
		t.Fatalf("prime: %v", err)
	}
	src.body = []byte(`[{"buildingId":"new"}]`)
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	got, err := c.Fetch(ctx, testReq)
	if err != nil {
		t.Fatalf("stale fetch: %v", err)
	}
	if string(got) != `[]` {
		t.Errorf("stale hit should serve the cached body, got %s", got)
	}
	c.Close()

	if src.count() != 2 {
		t.Fatalf("expected a background refresh, got %d upstream calls", src.count())
	}
	c.now = time.Now
	got, _ = c.Fetch(ctx, testReq)
	if string(got) != `[{"buildingId":"new"}]` {
		t.Errorf("expected refreshed body, got %s", got)
	}
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	_, store := newStore(t)
	src := &fakeSource{err: errors.New("boom")}
	c := NewCached(src, store, CacheOptions{})
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Fetch(ctx, testReq); err == nil {
		t.Fatal("expected upstream error")
	}
	src.err = nil
	src.body = []byte(`[]`)
	if _, err := c.Fetch(ctx, testReq); err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if src.count() != 2 {
		t.Errorf("expected the failure not to be cached, got %d calls", src.count())
	}
}

func TestCached_InvalidJSONIsPassedThroughUncached(t *testing.T) {
	_, store := newStore(t)
	src := &fakeSource{body: []byte(`<html>maintenance</html>`)}
	c := NewCached(src, store, CacheOptions{})
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := c.Fetch(ctx, testReq)
		if err != nil || string(got) != `<html>maintenance</html>` {
			t.Fatalf("unexpected result %s (%v)", got, err)
		}
	}
	if src.count() != 2 {
		t.Errorf("expected invalid payloads to bypass the cache, got %d calls", src.count())
	}
}

func TestCached_ConcurrentMissesShareOneFetch(t *testing.T) {
	_, store := newStore(t)
	src := &fakeSource{body: []byte(`[]`), delay: 100 * time.Millisecond}
	c := NewCached(src, store, CacheOptions{})
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Fetch(context.Background(), testReq); err != nil {
				t.Errorf("fetch: %v", err)
			}
		}()
	}
	wg.Wait()

	if src.count() != 1 {
		t.Errorf("expected one upstream call, got %d", src.count())
	}
}

func TestCached_StoreDown(t *testing.T) {
	mr, store := newStore(t)
	mr.Close()
	src := &fakeSource{body: []byte(`[]`)}
	c := NewCached(src, store, CacheOptions{})
	defer c.Close()

	got, err := c.Fetch(context.Background(), testReq)
	if err != nil || string(got) != `[]` {
		t.Fatalf("expected upstream result despite store failure, got %s (%v)", got, err)
	}
}
