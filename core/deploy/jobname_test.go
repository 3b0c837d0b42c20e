package deploy

import (
	"strings"
	"testing"
	"time"
)

func TestJobName_UniqueUnderClockCollision(t *testing.T) {
	frozen := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	g := NameGenerator{Now: func() time.Time { return frozen }}

	a := g.JobName("compile")
	b := g.JobName("compile")

	if a == b {
		t.Errorf("two names generated at the same instant collide: %q", a)
	}
	if !strings.HasPrefix(a, "compile-20260314-093000-") {
		t.Errorf("name = %q, want prefix compile-20260314-093000-", a)
	}
}

func TestJobName_LongPrefixKeepsSuffix(t *testing.T) {
	g := NameGenerator{}
	name := g.JobName(strings.Repeat("x", 100))

	if len(name) > 63 {
		t.Errorf("name length = %d, want <= 63", len(name))
	}

	// The uuid disambiguator must survive trimming.
	parts := strings.Split(name, "-")
	if suffix := parts[len(parts)-1]; len(suffix) != 8 {
		t.Errorf("uuid suffix = %q, want 8 chars", suffix)
	}
}
