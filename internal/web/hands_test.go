package web

import (
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"example.com", "https://example.com"},
		{"example.com/path?q=1", "https://example.com/path?q=1"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
		{"file:///tmp/page.html", "file:///tmp/page.html"},
	}
	for _, tc := range cases {
		if got := normalizeURL(tc.in); got != tc.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClickTextXPath(t *testing.T) {
	t.Parallel()

	xp := clickTextXPath("Sign In")
	if !strings.Contains(xp, `"sign in"`) {
		t.Errorf("text not lowercased: %s", xp)
	}
	for _, el := range []string{"self::a", "self::button", "self::input", "self::span", "self::div"} {
		if !strings.Contains(xp, el) {
			t.Errorf("xpath missing %s: %s", el, xp)
		}
	}
	if !strings.Contains(xp, "translate(") {
		t.Errorf("xpath not case-insensitive: %s", xp)
	}
}
