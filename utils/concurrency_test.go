package utils

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestKeySetNoDuplicates(t *testing.T) {
	s := NewKeySet()

	added := s.Add("https://example.com/1")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("https://example.com/1")
	if added {
		t.Error("second Add of same key should return false")
	}

	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestKeySetReset(t *testing.T) {
	s := NewKeySet()
	s.Add("a")
	s.Add("b")
	s.Reset()

	if s.Size() != 0 {
		t.Errorf("size after reset: got %d, want 0", s.Size())
	}
	if s.Contains("a") {
		t.Error("reset set should not contain a")
	}
	if !s.Add("a") {
		t.Error("Add after reset should return true")
	}
}

func TestKeySetConcurrency(t *testing.T) {
	s := NewKeySet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		key := "https://example.com/same"
		pool.Submit(func() {
			if s.Add(key) {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolNestedSubmit(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	var ran int64

	pool.Submit(func() {
		atomic.AddInt64(&ran, 1)
		pool.Submit(func() {
			atomic.AddInt64(&ran, 1)
		})
	})

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested submit deadlocked the pool")
	}

	if ran != 2 {
		t.Errorf("jobs run: got %d, want 2", ran)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var timestamps []time.Time
	mu := make(chan struct{}, 1)
	mu <- struct{}{}

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			<-mu
			timestamps = append(timestamps, time.Now())
			mu <- struct{}{}
		})
	}
	pool.Wait()

	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		min := time.Duration(rateLimitMs) * time.Millisecond
		if gap < min {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestKeySetRemove(t *testing.T) {
	s := NewKeySet()
	s.Add("a")
	s.Add("b")
	s.Remove("a")
	s.Remove("missing")

	if s.Contains("a") || !s.Contains("b") || s.Size() != 1 {
		t.Errorf("after Remove: contains a=%v b=%v, size %d", s.Contains("a"), s.Contains("b"), s.Size())
	}
	if !s.Add("a") {
		t.Error("removed key should be addable again")
	}
}
