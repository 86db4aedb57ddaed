package stream

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

func init() {
	metrics.Enabled = true
}

func divideByTwo(n int) int {
	return n / 2
}

func isNonZero(n int) bool {
	return n != 0
}

func TestStream1(t *testing.T) {
	data := []int{0, 2, 4, 6, 8}
	ctx := context.Background()
	myStream := Slice(ctx, data)
	result := Collect(ctx,
		Transform(ctx, divideByTwo,
			Filter(ctx, isNonZero,
				myStream)))

	if !slices.Equal([]int{1, 2, 3, 4}, result) {
		t.Errorf("Expected [1, 2, 3, 4], got %v", result)
	}
}

func TestStream2(t *testing.T) {
	data := []int{0, 2, 4, 6, 8}
	ctx := context.Background()
	s := Slice(ctx, data)
	tf := Transform(ctx, divideByTwo, s)
	f := Filter(ctx, isNonZero, tf)
	result := Collect(ctx, f)

	if !slices.Equal([]int{1, 2, 3, 4}, result) {
		t.Errorf("Expected [1, 2, 3, 4], got %v", result)
	}
}

func TestNDJSON(t *testing.T) {
	type point struct {
		X int `json:"x"`
	}
	in := strings.NewReader(`{"x":1}
{"x":2}
{"x":3}
`)
	ctx := context.Background()
	got := Collect(ctx, NDJSON[point](ctx, in, nil))
	if len(got) != 3 || got[2].X != 3 {
		t.Errorf("Expected 3 points ending in x=3, got %v", got)
	}
}

func TestNDJSON_Errors(t *testing.T) {
	type point struct {
		X int `json:"x"`
	}
	ctx := context.Background()

	// A wrongly typed value is skipped.
	var errs []error
	got := Collect(ctx, NDJSON[point](ctx, strings.NewReader(`{"x":1} {"x":"two"} {"x":3}`), func(err error) {
		errs = append(errs, err)
	}))
	if len(got) != 2 || got[1].X != 3 || len(errs) != 1 {
		t.Errorf("Expected 2 points and 1 error, got %v and %v", got, errs)
	}

	// Malformed input ends the stream.
	errs = nil
	got = Collect(ctx, NDJSON[point](ctx, strings.NewReader(`{"x":1} {x:2} {"x":3}`), func(err error) {
		errs = append(errs, err)
	}))
	if len(got) != 1 || len(errs) != 1 {
		t.Errorf("Expected 1 point and 1 error, got %v and %v", got, errs)
	}
}

func TestBatch(t *testing.T) {
	data := []int{1, 2, 3, 4, 5}
	ctx := context.Background()
	batches := Collect(ctx, Batch(ctx, 2, Slice(ctx, data)))
	if len(batches) != 3 {
		t.Fatalf("Expected 3 batches, got %d", len(batches))
	}
	if !slices.Equal(batches[0], []int{1, 2}) || !slices.Equal(batches[2], []int{5}) {
		t.Errorf("Unexpected batches: %v", batches)
	}

	empty := Collect(ctx, Batch(ctx, 2, Slice(ctx, []int{})))
	if len(empty) != 0 {
		t.Errorf("Expected no batches, got %v", empty)
	}
}

func TestTap(t *testing.T) {
	ctx := context.Background()
	sum := 0
	got := Collect(ctx, Tap(ctx, func(n int) { sum += n }, Slice(ctx, []int{1, 2, 3})))
	if sum != 6 || len(got) != 3 {
		t.Errorf("Expected sum 6 over 3 elements, got %d over %d", sum, len(got))
	}
}

func TestSliceCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := Slice(ctx, []int{1, 2, 3, 4})
	<-s
	cancel()
	// The producer must stop and close; draining must terminate.
	done := make(chan struct{})
	go func() {
		for range s {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not close after cancel")
	}
}

func TestTickMeter(t *testing.T) {
	m := NewTickMeter("test", 0, nil)
	defer m.Stop()
	now := time.Now()
	for i := 0; i < 5; i++ {
		m.Mark(now.Add(time.Duration(i)*time.Second), 10)
	}
	if m.Count() != 5 {
		t.Errorf("Expected count 5, got %d", m.Count())
	}
	m.Log()
	m.Stop()
	m.Stop()
}
