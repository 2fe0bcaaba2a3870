package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sliceIntNode(i int64) Node {
	return &TokenNode{Token: Token{Kind: IntegerNumber, Value: i}}
}

func sliceOf(start, stop, step *int64) *SliceNode {
	sl := &SliceNode{}
	if start != nil {
		sl.Start = sliceIntNode(*start)
	}
	if stop != nil {
		sl.Stop = sliceIntNode(*stop)
	}
	if step != nil {
		sl.Step = sliceIntNode(*step)
	}
	return sl
}

func i64(v int64) *int64 { return &v }

func TestSliceListBasic(t *testing.T) {
	cfg := NewConfig()
	items := ListValue{IntegerValue(0), IntegerValue(1), IntegerValue(2), IntegerValue(3),
		IntegerValue(4), IntegerValue(5), IntegerValue(6)}

	cases := []struct {
		name string
		sl   *SliceNode
		want ListValue
	}{
		{"full", sliceOf(nil, nil, nil), items},
		{"explicit-oversized-stop", sliceOf(nil, i64(20), nil), items},
		{"reverse", sliceOf(nil, nil, i64(-1)), ListValue{IntegerValue(6), IntegerValue(5), IntegerValue(4),
			IntegerValue(3), IntegerValue(2), IntegerValue(1), IntegerValue(0)}},
		{"negative-bounds-reverse-step", sliceOf(i64(-2), i64(2), i64(-1)),
			ListValue{IntegerValue(5), IntegerValue(4), IntegerValue(3)}},
		{"every-other", sliceOf(nil, nil, i64(2)),
			ListValue{IntegerValue(0), IntegerValue(2), IntegerValue(4), IntegerValue(6)}},
		{"out-of-range-start-clamped", sliceOf(i64(-100), nil, nil), items},
	}
	for _, c := range cases {
		got, err := sliceList(cfg, items, c.sl)
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("%s mismatch:\n%s", c.name, diff)
		}
	}
}

func TestSliceChainEquivalence(t *testing.T) {
	cfg := NewConfig()
	items := ListValue{IntegerValue(0), IntegerValue(1), IntegerValue(2), IntegerValue(3),
		IntegerValue(4), IntegerValue(5), IntegerValue(6)}

	step2, err := sliceList(cfg, items, sliceOf(nil, nil, i64(2)))
	if err != nil {
		t.Fatalf("step2: %v", err)
	}
	step2List := step2.(ListValue)

	got, err := sliceList(cfg, step2List, sliceOf(nil, nil, i64(3)))
	if err != nil {
		t.Fatalf("step3: %v", err)
	}
	want := ListValue{IntegerValue(0), IntegerValue(6)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("chained slice mismatch:\n%s", diff)
	}
}

func TestSliceStepZero(t *testing.T) {
	cfg := NewConfig()
	items := ListValue{IntegerValue(1), IntegerValue(2)}
	_, err := sliceList(cfg, items, sliceOf(nil, nil, i64(0)))
	if err == nil || err.Error() != "step cannot be zero" {
		t.Errorf("err = %v, want step cannot be zero", err)
	}
}

func TestSliceNonIntegerStep(t *testing.T) {
	cfg := NewConfig()
	items := ListValue{IntegerValue(1), IntegerValue(2)}
	sl := &SliceNode{Step: &TokenNode{Token: Token{Kind: StringToken, Value: "x"}}}
	_, err := sliceList(cfg, items, sl)
	if err == nil || err.Error() != "step is not an integer, but string" {
		t.Errorf("err = %v, want step is not an integer, but string", err)
	}
}

func TestClampIndexBoundAndClampStopBound(t *testing.T) {
	const n = 5
	cases := []struct {
		in   int64
		want int64
	}{
		{0, 0}, {4, 4}, {-1, 4}, {-5, 0}, {-6, 0}, {100, 4},
	}
	for _, c := range cases {
		if got := clampIndexBound(c.in, n); got != c.want {
			t.Errorf("clampIndexBound(%d, %d) = %d, want %d", c.in, n, got, c.want)
		}
	}

	stopCases := []struct {
		in   int64
		want int64
	}{
		{0, 0}, {5, 5}, {6, 5}, {-1, 4}, {-6, 0},
	}
	for _, c := range stopCases {
		if got := clampStopBound(c.in, n); got != c.want {
			t.Errorf("clampStopBound(%d, %d) = %d, want %d", c.in, n, got, c.want)
		}
	}
}
