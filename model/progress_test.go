package model

import "testing"

func TestProgressKey(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		platform string
		title    string
		want     string
	}{
		{"full", "local", "X", "Show A", "local:X:Show A"},
		{"empty platform", "local", "", "Show A", "local:unknown:Show A"},
		{"case sensitive", "local", "x", "show a", "local:x:show a"},
		{"title with colon", "u1", "X", "Show: Part 2", "u1:X:Show: Part 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressKey(tt.userID, tt.platform, tt.title); got != tt.want {
				t.Errorf("ProgressKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestItemKey(t *testing.T) {
	if got := ItemKey("X", "Show A"); got != "X:Show A" {
		t.Errorf("ItemKey() = %q, want X:Show A", got)
	}
	if got := ItemKey("", "Show A"); got != "unknown:Show A" {
		t.Errorf("ItemKey() = %q, want unknown:Show A", got)
	}
}

func TestStripFragment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://x.test/v#t=99", "https://x.test/v"},
		{"https://x.test/v", "https://x.test/v"},
		{"https://x.test/v#", "https://x.test/v"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripFragment(tt.in); got != tt.want {
			t.Errorf("StripFragment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
