package layout

import (
	"errors"
	"testing"
)

func TestResolveWhiteForms(t *testing.T) {
	white := Color{R: 255, G: 255, B: 255}
	for _, in := range []any{"#FFF", "#FFFFFF", "fff", 0xFFFFFF, int64(0xFFFFFF), uint32(0xFFFFFF), float64(0xFFFFFF), white, [3]int{255, 255, 255}, []int{255, 255, 255}, [3]uint8{255, 255, 255}} {
		got, err := Resolve(in)
		if err != nil {
			t.Fatalf("Resolve(%#v) error: %v", in, err)
		}
		if got != white {
			t.Fatalf("Resolve(%#v) = %+v, want white", in, got)
		}
	}
}

func TestResolvePackedChannels(t *testing.T) {
	got, err := Resolve(0x123456)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (Color{R: 0x12, G: 0x34, B: 0x56}) {
		t.Fatalf("unexpected channels: %+v", got)
	}
	if got.Hex() != "123456" {
		t.Fatalf("Hex() = %q", got.Hex())
	}
}

func TestResolveShorthandExpandsEachDigit(t *testing.T) {
	got, err := Resolve("#1a2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (Color{R: 0x11, G: 0xaa, B: 0x22}) {
		t.Fatalf("unexpected channels: %+v", got)
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	for _, in := range []any{"#FF", "#FFFF", "", "#GGGGGG", -1, 0x1000000, []int{1, 2}, [3]int{0, 256, 0}, 1.5, struct{}{}, nil} {
		_, err := Resolve(in)
		if err == nil {
			t.Fatalf("Resolve(%#v) expected error", in)
		}
		if !errors.Is(err, ErrInvalidColour) {
			t.Fatalf("Resolve(%#v) error %v is not ErrInvalidColour", in, err)
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Resolve(%#v) error %v is not ErrInvalidInput", in, err)
		}
	}
}

func TestResolveBackgroundSentinel(t *testing.T) {
	for _, in := range []any{nil, "transparent", " Transparent ", Transparent} {
		got, err := ResolveBackground(in)
		if err != nil {
			t.Fatalf("ResolveBackground(%#v) error: %v", in, err)
		}
		if got != Transparent {
			t.Fatalf("ResolveBackground(%#v) = %+v, want transparent", in, got)
		}
	}

	black, err := ResolveBackground("#000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if black == Transparent {
		t.Fatalf("opaque black must differ from the transparent sentinel")
	}
	if black.String() != "000000" {
		t.Fatalf("String() = %q", black.String())
	}
}
