package automation

import "testing"

func TestKeysym(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"win", "super"},
		{"CMD", "super"},
		{"enter", "Return"},
		{"Return", "Return"},
		{"esc", "Escape"},
		{"backspace", "BackSpace"},
		{"del", "Delete"},
		{"ctrl", "ctrl"},
		{"F5", "F5"},
		{"a", "a"},
	}
	for _, tc := range cases {
		if got := keysym(tc.in); got != tc.want {
			t.Errorf("keysym(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMouseButton(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"", "1"},
		{"left", "1"},
		{"Middle", "2"},
		{"right", "3"},
		{"fourth", "1"},
	}
	for _, tc := range cases {
		if got := mouseButton(tc.in); got != tc.want {
			t.Errorf("mouseButton(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDetectWithoutDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	if b := Detect(); b != nil {
		t.Errorf("expected nil backend without a display, got %T", b)
	}
}
