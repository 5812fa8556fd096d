package engine_test

import (
	"io"
	"testing"

	eng "github.com/recwire/recwire/internal/engine"
	srcjson "github.com/recwire/recwire/source/json"
)

func TestDecodeAnyNumberClassification(t *testing.T) {
	v, err := eng.DecodeAny(srcjson.NewBytes([]byte(`[1, -2, 3.5, 1e3, 9223372036854775808]`)))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	arr := v.([]any)
	if arr[0] != int64(1) || arr[1] != int64(-2) {
		t.Fatalf("integral literals should be int64, got %T %T", arr[0], arr[1])
	}
	if arr[2] != float64(3.5) {
		t.Fatalf("fractional literal should be float64, got %T", arr[2])
	}
	if arr[3] != float64(1000) {
		t.Fatalf("exponent literal should be float64, got %T", arr[3])
	}
	// One past MaxInt64 overflows into float64 rather than failing.
	if arr[4] != float64(9223372036854775808) {
		t.Fatalf("overflowing integral literal should widen, got %T %v", arr[4], arr[4])
	}
}

func TestDecodeAnyNested(t *testing.T) {
	v, err := eng.DecodeAny(srcjson.NewBytes([]byte(`{"a":{"b":[true,null]}}`)))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	inner := v.(map[string]any)["a"].(map[string]any)["b"].([]any)
	if inner[0] != true || inner[1] != nil {
		t.Fatalf("unexpected tree %v", v)
	}
}

func TestSkipValueConsumesExactlyOneValue(t *testing.T) {
	src := srcjson.NewBytes([]byte(`[{"deep":[1,{"x":2}]},"next"]`))
	if tok, err := src.NextToken(); err != nil || tok.Kind != eng.KindBeginArray {
		t.Fatalf("expected '[', got %v (%v)", tok, err)
	}
	tok, err := src.NextToken()
	if err != nil || tok.Kind != eng.KindBeginObject {
		t.Fatalf("expected '{', got %v (%v)", tok, err)
	}
	if err := eng.SkipValue(src, tok); err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	tok, err = src.NextToken()
	if err != nil || tok.Kind != eng.KindString || tok.String != "next" {
		t.Fatalf("expected the value after the skipped object, got %v (%v)", tok, err)
	}
	if tok, err := src.NextToken(); err != nil || tok.Kind != eng.KindEndArray {
		t.Fatalf("expected ']', got %v (%v)", tok, err)
	}
	if _, err := src.NextToken(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestIsIntegerLiteral(t *testing.T) {
	for lit, want := range map[string]bool{
		"0":     true,
		"-12":   true,
		"1.0":   false,
		"1e3":   false,
		"2E-1":  false,
		"10000": true,
	} {
		if got := eng.IsIntegerLiteral(lit); got != want {
			t.Fatalf("IsIntegerLiteral(%q): expected %v, got %v", lit, want, got)
		}
	}
}
