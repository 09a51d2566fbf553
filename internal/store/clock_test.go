package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/persistorai/tasktrail/internal/store"
)

func TestClock_NeverGoesBackwards(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	readings := []time.Time{base, base.Add(-time.Hour), base.Add(time.Second)}

	var i int
	clock := store.NewClockWith(func() time.Time {
		r := readings[i]
		i++
		return r
	})

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	if !first.Equal(base) {
		t.Errorf("first = %v, want %v", first, base)
	}
	if !second.Equal(first) {
		t.Errorf("second = %v, want clamp to %v", second, first)
	}
	if !third.Equal(base.Add(time.Second)) {
		t.Errorf("third = %v, want %v", third, base.Add(time.Second))
	}
}

func TestClock_Observe(t *testing.T) {
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	clock := store.NewClockWith(func() time.Time { return past })
	clock.Observe(future)

	if got := clock.Now(); !got.Equal(future) {
		t.Errorf("Now() = %v, want %v", got, future)
	}
}

func TestClock_ConcurrentMonotonic(t *testing.T) {
	clock := store.NewClock()

	const workers = 8
	const perWorker = 200

	results := make([][]time.Time, workers)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				results[w] = append(results[w], clock.Now())
			}
		}()
	}
	wg.Wait()

	for w, series := range results {
		for j := 1; j < len(series); j++ {
			if series[j].Before(series[j-1]) {
				t.Fatalf("worker %d: reading %d went backwards", w, j)
			}
		}
	}
}
