package main

import (
	"testing"
)

func TestDecodeMouse(t *testing.T) {
	x, y, err := decodeMouse(encodeMouse(-1200, 3400))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if x != -1200 || y != 3400 {
		t.Errorf("expected (-1200, 3400), got (%f, %f)", x, y)
	}

	if _, _, err := decodeMouse([]byte{OpMouse, 1, 2}); err == nil {
		t.Error("short message accepted")
	}
	bad := encodeMouse(1, 1)
	bad[0] = 0x11
	if _, _, err := decodeMouse(bad); err == nil {
		t.Error("wrong opcode accepted")
	}
}

func TestTrimRunes(t *testing.T) {
	if got := trimRunes("  héllo wörld ", 5); got != "héllo" {
		t.Errorf("got %q", got)
	}
	if got := trimRunes("ok", 5); got != "ok" {
		t.Errorf("got %q", got)
	}
}
