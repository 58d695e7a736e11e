package store

import "testing"

func TestNullIfEmpty(t *testing.T) {
	if v := nullIfEmpty(""); v != nil {
		t.Fatalf("empty string -> nil expected")
	}
	if v := nullIfEmpty("x"); v != "x" {
		t.Fatalf("non-empty -> value expected, got %v", v)
	}
}

func TestJSONListRoundTrip(t *testing.T) {
	if v := toJSONList(nil); v != nil {
		t.Fatalf("nil slice -> nil expected")
	}
	enc := toJSONList([]string{"a", "b"})
	b, ok := enc.([]byte)
	if !ok {
		t.Fatalf("expected []byte, got %T", enc)
	}
	got := fromJSONList(b)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("round trip mismatch: %v", got)
	}
	if out := fromJSONList(nil); out != nil {
		t.Fatalf("nil bytes -> nil expected")
	}
}
