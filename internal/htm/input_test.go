package htm

import (
	"errors"
	"testing"
)

func TestParsePattern(t *testing.T) {
	bits, err := ParsePattern("10\n 01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if FormatPattern(bits) != "1001" {
		t.Fatalf("unexpected bits: %s", FormatPattern(bits))
	}
	if _, err := ParsePattern("10x1"); err == nil {
		t.Fatal("expected invalid character error")
	}
}

func TestInputSpaceLoad(t *testing.T) {
	in := NewInputSpace(3, 2)
	if err := in.Load([]bool{true}); !errors.Is(err, ErrPatternSize) {
		t.Fatalf("expected ErrPatternSize, got %v", err)
	}
	if err := in.LoadString("100 001"); err != nil {
		t.Fatalf("load string: %v", err)
	}
	if !in.At(0, 0) || !in.At(2, 1) || in.At(1, 0) {
		t.Fatalf("unexpected grid %s", in)
	}
	if p := in.Position(5); p.X != 2 || p.Y != 1 {
		t.Fatalf("unexpected position %+v", p)
	}
	bits := in.Bits()
	bits[0] = false
	if !in.Bit(0) {
		t.Fatal("Bits should return a copy")
	}
	in.Clear()
	if in.String() != "000000" {
		t.Fatalf("expected cleared input, got %s", in)
	}
}
