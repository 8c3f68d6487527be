package layout

import (
	"reflect"
	"testing"
)

func tenPerChar(s string) int { return 10 * len(s) }

func TestWrapSplitsWhenCombinedWidthExceedsLimit(t *testing.T) {
	got := Wrap("AAAAAAAAAAAAAAA BB", 100, tenPerChar)
	want := []string{"AAAAAAAAAAAAAAA", "BB"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Wrap = %q, want %q", got, want)
	}
}

func TestWrapKeepsFittingWordsTogether(t *testing.T) {
	got := Wrap("aa bb cc dd", 50, tenPerChar)
	want := []string{"aa bb", "cc dd"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Wrap = %q, want %q", got, want)
	}
}

func TestWrapHonorsNewlines(t *testing.T) {
	got := Wrap("foo\r\n\nbar", 100, tenPerChar)
	want := []string{"foo", "", "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Wrap = %q, want %q", got, want)
	}
}

func TestWrapDoesNotSplitOverlongWord(t *testing.T) {
	got := Wrap("abcdefghijklmnop", 30, tenPerChar)
	if len(got) != 1 || got[0] != "abcdefghijklmnop" {
		t.Fatalf("Wrap = %q, want single overflowing line", got)
	}
}

func TestWrapWithoutLimitPassesThrough(t *testing.T) {
	calls := 0
	measure := func(s string) int { calls++; return 1000 }
	got := Wrap("one two three", 0, measure)
	if len(got) != 1 || got[0] != "one two three" {
		t.Fatalf("Wrap = %q", got)
	}
	if calls != 0 {
		t.Fatalf("measure should not be called without a limit, got %d calls", calls)
	}
}

func TestRequestWraps(t *testing.T) {
	w := 100
	cases := []struct {
		req  Request
		want bool
	}{
		{Request{Wrap: true, MaxWidth: &w}, true},
		{Request{Wrap: false, MaxWidth: &w}, false},
		{Request{Wrap: true, MaxHeight: &w}, false},
	}
	for i, c := range cases {
		if got := c.req.Wraps(); got != c.want {
			t.Fatalf("case %d: Wraps() = %v, want %v", i, got, c.want)
		}
	}
}
