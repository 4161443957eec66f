package activity

import (
	"sort"
	"time"

	"intentdeck/intent"
)

// Entry is an illustrative history row. Entries are fixed at process
// start and never change.
type Entry struct {
	ID         string
	Timestamp  time.Time
	Transcript string
	Intent     string
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

var seed = []Entry{
	{ID: "1", Timestamp: mustTime("2023-05-07T14:30:00Z"), Transcript: "The volume is too loud!", Intent: "decrease_volume_none"},
	{ID: "2", Timestamp: mustTime("2023-05-07T13:15:00Z"), Transcript: "Can you turn on the music?", Intent: "activate_music_none"},
	{ID: "3", Timestamp: mustTime("2023-05-07T11:45:00Z"), Transcript: "Turn on the kitchen's light.", Intent: "activate_lights_kitchen"},
}

// Seed returns a copy of the illustrative entries, newest first.
func Seed() []Entry {
	out := append([]Entry(nil), seed...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// FormatTime renders a timestamp like "May 7, 2:30 PM".
func FormatTime(t time.Time) string {
	return t.Format("Jan 2, 3:04 PM")
}

// Glyph is the row icon for an entry's intent.
func (e Entry) Glyph() string {
	return intent.Glyph(e.Intent)
}
