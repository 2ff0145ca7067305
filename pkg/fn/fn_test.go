package fn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestResultBasics(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok result misreported")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("unexpected unwrap: %v %v", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("Err result misreported")
	}
	if e.UnwrapOr(7) != 7 {
		t.Fatal("UnwrapOr did not return fallback")
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); r.IsErr() {
		t.Fatal("expected ok")
	}
	if r := FromPair(0, errors.New("x")); r.IsOk() {
		t.Fatal("expected err")
	}
}

func TestCollect_FirstError(t *testing.T) {
	boom := errors.New("boom")
	r := Collect([]Result[int]{Ok(1), Err[int](boom), Ok(3)})
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestPartition(t *testing.T) {
	vals, failed := Partition([]Result[string]{Ok("a"), Err[string](errors.New("x")), Ok("c")})
	if len(vals) != 2 || vals[0] != "a" || vals[1] != "c" {
		t.Fatalf("unexpected vals: %v", vals)
	}
	if len(failed) != 1 || failed[0] != 1 {
		t.Fatalf("unexpected failed indexes: %v", failed)
	}
}

func TestThen_ShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	var secondRan bool

	first := func(_ context.Context, s string) Result[int] { return Err[int](boom) }
	second := func(_ context.Context, n int) Result[int] {
		secondRan = true
		return Ok(n * 2)
	}

	r := Then(first, second)(context.Background(), "in")
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if secondRan {
		t.Fatal("second stage ran after error")
	}
}

func TestThen_PassesValue(t *testing.T) {
	first := func(_ context.Context, s string) Result[int] { return Ok(len(s)) }
	second := func(_ context.Context, n int) Result[int] { return Ok(n * 2) }

	got, err := Then(first, second)(context.Background(), "four").Unwrap()
	if err != nil || got != 8 {
		t.Fatalf("expected 8, got %d (%v)", got, err)
	}
}

func TestRetry_EventualSuccess(t *testing.T) {
	var calls int32
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}, func(context.Context) Result[int] {
		if atomic.AddInt32(&calls, 1) < 3 {
			return Errf[int]("transient")
		}
		return Ok(9)
	})
	if v, err := r.Unwrap(); err != nil || v != 9 {
		t.Fatalf("expected 9, got %d (%v)", v, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond}, func(context.Context) Result[int] {
		return Errf[int]("always")
	})
	if r.IsOk() {
		t.Fatal("expected failure after exhausting attempts")
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: time.Minute}, func(context.Context) Result[int] {
		return Errf[int]("fail")
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParMapResult_PreservesOrder(t *testing.T) {
	in := []int{1, 2, 3, 4, 5}
	out := ParMapResult(in, 2, func(n int) Result[int] { return Ok(n * n) })
	for i, r := range out {
		v, err := r.Unwrap()
		if err != nil || v != in[i]*in[i] {
			t.Fatalf("index %d: got %d (%v)", i, v, err)
		}
	}
}

func TestUniqueBy(t *testing.T) {
	type item struct{ id string }
	items := []item{{"a"}, {"b"}, {"a"}, {"c"}, {"b"}}
	out := UniqueBy(items, func(i item) string { return i.id })
	if len(out) != 3 || out[0].id != "a" || out[1].id != "b" || out[2].id != "c" {
		t.Fatalf("unexpected result: %v", out)
	}
}

func TestFilter(t *testing.T) {
	out := Filter([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	if len(out) != 2 || out[0] != 2 || out[1] != 4 {
		t.Fatalf("unexpected result: %v", out)
	}
}
