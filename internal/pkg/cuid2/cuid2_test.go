package cuid2

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestEncodeTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"Zero timestamp", 0, "000000"},
		{"One second", 1, "000001"},
		{"62 seconds", 62, "000010"},
		{"One minute", 60, "00000y"},
		{"One hour", 3600, "0000w4"},
		{"One day", 86400, "000MTY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EncodeTimestamp(tt.seconds)
			if result != tt.expected {
				t.Errorf("EncodeTimestamp(%d) = %s, want %s", tt.seconds, result, tt.expected)
			}
		})
	}
}

func TestNewFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^ent_[0-9A-Za-z]{24}$`)
	for i := 0; i < 50; i++ {
		id := New(PrefixEntry)
		if !pattern.MatchString(id) {
			t.Fatalf("New(%q) = %q, does not match %s", PrefixEntry, id, pattern)
		}
	}
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New(PrefixRequest)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestTimeSortability(t *testing.T) {
	earlier := NewAt(PrefixEntry, time.Unix(1_700_000_000, 0))
	later := NewAt(PrefixEntry, time.Unix(1_700_000_100, 0))

	if strings.Compare(earlier[:10], later[:10]) >= 0 {
		t.Errorf("expected %s to sort before %s", earlier, later)
	}
}

func TestRandom(t *testing.T) {
	id := Random(PrefixSession, 0)
	if !regexp.MustCompile(`^ses_[0-9A-Za-z]{24}$`).MatchString(id) {
		t.Errorf("Random default length produced %q", id)
	}
	id = Random(PrefixSession, 8)
	if len(id) != len("ses_")+8 {
		t.Errorf("Random(8) produced %q", id)
	}
}
