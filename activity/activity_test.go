package activity

import (
	"testing"
	"time"

	"intentdeck/intent"
)

func TestSeed(t *testing.T) {
	entries := Seed()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Errorf("entries not newest first at %d", i)
		}
	}
	for _, e := range entries {
		if !intent.Known(e.Intent) {
			t.Errorf("entry %s has unknown intent %q", e.ID, e.Intent)
		}
	}

	entries[0].Intent = "mutated"
	if Seed()[0].Intent == "mutated" {
		t.Error("Seed returned shared storage")
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2023, 5, 7, 14, 30, 0, 0, time.UTC)
	if got := FormatTime(ts); got != "May 7, 2:30 PM" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestGlyph(t *testing.T) {
	if g := (Entry{Intent: "activate_music_none"}).Glyph(); g != "♫" {
		t.Errorf("glyph = %q", g)
	}
}
