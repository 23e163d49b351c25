package osver

import "testing"

func TestParseRelease(t *testing.T) {
	cases := []struct {
		in   string
		want Version
	}{
		{"6.8.0-45-generic", Make(6, 8, 0)},
		{"5.19.17", Make(5, 19, 17)},
		{"5.4", Make(5, 4, 0)},
		{"6", Make(6, 0, 0)},
		{"4.18.0-477.el8.x86_64", Make(4, 18, 0)},
		{"", Make(0, 0, 0)},
		{"abc", Make(0, 0, 0)},
	}
	for _, tc := range cases {
		if got := ParseRelease(tc.in); got != tc.want {
			t.Errorf("ParseRelease(%q) = %#x, want %#x", tc.in, got, tc.want)
		}
	}
}

func TestVersionOrdering(t *testing.T) {
	if Make(5, 19, 0) >= Make(6, 0, 0) {
		t.Fatal("5.19 must order below 6.0")
	}
	if Make(5, 4, 0) >= Make(5, 18, 0) {
		t.Fatal("5.4 must order below 5.18")
	}
}
