package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// stubFetcher serves canned bodies and records every request.
type stubFetcher struct {
	bodies map[string][]byte
	errs   map[string]error
	calls  map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		bodies: make(map[string][]byte),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	f.calls[rawURL]++
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	body, ok := f.bodies[rawURL]
	if !ok {
		return nil, ErrNotFound{Err: fmt.Errorf("no body for %s", rawURL)}
	}
	return body, nil
}

func (f *stubFetcher) total() int {
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func TestCachedFetcherServesRepeatsFromCache(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies["http://example.test"] = []byte("<html></html>")

	cached, err := newCachedFetcher(stub, 4)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	for i := 0; i < 3; i++ {
		body, err := cached.Fetch(context.Background(), "http://example.test")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if string(body) != "<html></html>" {
			t.Fatalf("body = %q", body)
		}
	}
	if got := stub.calls["http://example.test"]; got != 1 {
		t.Fatalf("underlying calls = %d, want 1", got)
	}
}

func TestCachedFetcherDoesNotCacheFailures(t *testing.T) {
	stub := newStubFetcher()
	stub.errs["http://example.test/down"] = errors.New("boom")

	cached, err := newCachedFetcher(stub, 4)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := cached.Fetch(context.Background(), "http://example.test/down"); err == nil {
			t.Fatalf("expected error on attempt %d", i)
		}
	}
	if got := stub.calls["http://example.test/down"]; got != 2 {
		t.Fatalf("underlying calls = %d, want 2", got)
	}
}

func TestNewCachedFetcherRejectsZeroSize(t *testing.T) {
	if _, err := newCachedFetcher(newStubFetcher(), 0); err == nil {
		t.Fatalf("expected error for zero-sized cache")
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("short sleep: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled sleep = %v, want context.Canceled", err)
	}
}
