package intent

import "testing"

func TestLabels(t *testing.T) {
	if len(Labels) != 31 {
		t.Fatalf("len(Labels) = %d, want 31", len(Labels))
	}
	seen := map[string]bool{}
	for _, l := range Labels {
		if seen[l] {
			t.Errorf("duplicate label %q", l)
		}
		seen[l] = true
		if p := Split(l); p.Action == "" {
			t.Errorf("label %q has no action", l)
		}
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		label string
		want  Parts
	}{
		{"activate_lights_kitchen", Parts{"activate", "lights", "kitchen"}},
		{"activate_music_none", Parts{"activate", "music", ""}},
		{"change language_German_none", Parts{"change language", "German", ""}},
		{"Unknown", Parts{Action: "Unknown"}},
	}
	for _, tt := range tests {
		if got := Split(tt.label); got != tt.want {
			t.Errorf("Split(%q) = %+v, want %+v", tt.label, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe("decrease_heat_bedroom"); got != "decrease heat (bedroom)" {
		t.Errorf("Describe = %q", got)
	}
	if got := Describe(ErrorPlaceholder); got != ErrorPlaceholder {
		t.Errorf("Describe(placeholder) = %q", got)
	}
	if Glyph("activate_music_none") != "♫" || Glyph("Unknown") != "?" {
		t.Error("unexpected glyphs")
	}
	if !Known("bring_shoes_none") || Known("Unknown") {
		t.Error("Known mismatch")
	}
}
