package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// A multi-byte character straddling the cut must stay intact.
	s := strings.Repeat("x", 199) + "über alles"
	got := Truncate(s, 200)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("x", 199)+"ü..." {
		t.Errorf("got %q", got)
	}
	if Truncate("äöü", 2) != "äö..." {
		t.Errorf("got %q", Truncate("äöü", 2))
	}
	if Truncate("äöü", 3) != "äöü" {
		t.Error("string at exactly maxLen runes unchanged")
	}
}
