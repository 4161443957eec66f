package visualizer

import (
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"intentdeck/audio"
	"intentdeck/blob"
)

func sine(freq float64, n int) []int16 {
	const amp = 3000
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(math.Sin(2*math.Pi*freq*float64(i)/16000) * amp)
	}
	return out
}

func newTestVisualizer(player audio.Player) (*Visualizer, *blob.Store) {
	store := blob.NewStore()
	v := New(store, player)
	v.rng = rand.New(rand.NewSource(1))
	return v, store
}

func TestSelectMode(t *testing.T) {
	tests := []struct {
		rec  bool
		url  string
		want Mode
	}{
		{false, "", Idle},
		{true, "", Simulated},
		{true, "blob:x", Simulated},
		{false, "blob:x", Playback},
	}
	for _, tt := range tests {
		if got := SelectMode(tt.rec, tt.url); got != tt.want {
			t.Errorf("SelectMode(%v, %q) = %s, want %s", tt.rec, tt.url, got, tt.want)
		}
	}
}

func TestUpdateTokens(t *testing.T) {
	v, _ := newTestVisualizer(nil)

	idleTok, loop := v.Update(false, "")
	if loop || v.Mode() != Idle {
		t.Fatalf("idle: loop=%v mode=%s", loop, v.Mode())
	}
	if v.Frame(idleTok) {
		t.Error("idle mode should not animate")
	}

	simTok, loop := v.Update(true, "")
	if !loop || simTok == idleTok {
		t.Fatalf("simulated: tok=%d loop=%v", simTok, loop)
	}
	if !v.Frame(simTok) {
		t.Fatal("current token should keep animating")
	}
	for i, b := range v.Values() {
		if b < 50 || b > 199 {
			t.Fatalf("bar %d = %d, want 50..199", i, b)
		}
	}

	again, loop := v.Update(true, "")
	if loop || again != simTok {
		t.Errorf("unchanged inputs restarted the loop: tok=%d loop=%v", again, loop)
	}

	newTok, _ := v.Update(false, "")
	if v.Frame(simTok) {
		t.Error("stale token kept animating")
	}
	if newTok == simTok {
		t.Error("mode change did not bump token")
	}
}

func TestPlaybackConnectsAndDisconnects(t *testing.T) {
	player := &audio.FakePlayer{}
	v, store := newTestVisualizer(player)
	start := time.Unix(0, 0)
	clock := start
	v.now = func() time.Time { return clock }

	url := store.CreateURL(&blob.Blob{Name: "a.wav", PCM: sine(1000, 16000), SampleRate: 16000})
	tok, loop := v.Update(false, url)
	if !loop || v.Mode() != Playback {
		t.Fatalf("mode = %s loop = %v", v.Mode(), loop)
	}
	if !player.Playing() {
		t.Fatal("playback not started")
	}

	for i := 0; i < 20; i++ {
		clock = clock.Add(FrameInterval)
		if !v.Frame(tok) {
			t.Fatal("frame loop ended early")
		}
	}
	vals := v.Values()
	peak := 0
	for i := range vals {
		if vals[i] > vals[peak] {
			peak = i
		}
	}
	if peak < 15 || peak > 17 {
		t.Errorf("peak bin = %d, want ~16 for 1 kHz", peak)
	}

	v.Update(true, url)
	if player.Playing() {
		t.Error("playback still connected after switching to recording")
	}
	if _, stops := player.Counts(); stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
	if v.Frame(tok) {
		t.Error("playback loop survived mode change")
	}
}

func TestPlaybackRevokedURL(t *testing.T) {
	player := &audio.FakePlayer{}
	v, store := newTestVisualizer(player)
	url := store.CreateURL(&blob.Blob{PCM: sine(440, 4000), SampleRate: 16000})
	store.Revoke(url)

	tok, _ := v.Update(false, url)
	if player.Playing() {
		t.Error("revoked URL should not play")
	}
	v.Frame(tok)
	for _, b := range v.Values() {
		if b != 0 {
			t.Fatal("revoked URL produced bars")
		}
	}
}

func TestCloseStopsLoop(t *testing.T) {
	player := &audio.FakePlayer{}
	v, store := newTestVisualizer(player)
	url := store.CreateURL(&blob.Blob{PCM: sine(440, 4000), SampleRate: 16000})
	tok, _ := v.Update(false, url)
	v.Close()
	if v.Frame(tok) || player.Playing() {
		t.Error("Close left the loop or playback running")
	}
}

func TestAnalyserSilence(t *testing.T) {
	a := NewAnalyser()
	dst := make([]uint8, Bins)
	a.ByteFrequencyData(make([]int16, FFTSize), dst)
	for i, b := range dst {
		if b != 0 {
			t.Fatalf("bin %d = %d for silence", i, b)
		}
	}
}

func TestAnalyserSmoothing(t *testing.T) {
	a := NewAnalyser()
	dst := make([]uint8, Bins)
	tone := sine(2000, FFTSize)
	a.ByteFrequencyData(tone, dst)
	first := dst[32]
	a.ByteFrequencyData(tone, dst)
	if dst[32] <= first {
		t.Errorf("smoothed bin should rise on repeated input: %d then %d", first, dst[32])
	}
	a.Reset()
	a.ByteFrequencyData(tone, dst)
	if dst[32] != first {
		t.Errorf("after reset bin = %d, want %d", dst[32], first)
	}
}

func TestWindowAtWraps(t *testing.T) {
	pcm := []int16{1, 2, 3, 4, 5}
	got := windowAt(pcm, 2, 4)
	want := []int16{4, 5, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("windowAt = %v, want %v", got, want)
		}
	}
}

func TestRenderBarsShape(t *testing.T) {
	values := make([]uint8, Bins)
	for i := range values {
		values[i] = 255
	}
	out := RenderBars(values, 40, 10, PlaybackGradient)
	lines := strings.Split(out, "\n")
	if len(lines) != 10 {
		t.Fatalf("lines = %d, want 10", len(lines))
	}
	for i, l := range lines {
		if w := lipgloss.Width(l); w != 40 {
			t.Errorf("line %d width = %d, want 40", i, w)
		}
	}
	if !strings.Contains(lines[9], "█") {
		t.Error("bottom row has no full blocks")
	}
	if strings.Contains(lines[0], "█") || strings.Contains(lines[1], "█") {
		t.Error("bars should stop at 80% of the panel height")
	}
}

func TestBarColumns(t *testing.T) {
	cols := barColumns(80, Bins)
	if cols[0] != 0 {
		t.Errorf("first column = %d, want bar 0", cols[0])
	}
	seen := map[int]bool{}
	for _, c := range cols {
		if c >= 0 {
			seen[c] = true
		}
	}
	// 80 columns / (80/128*2.5) per bar
	if n := len(seen); n < 50 || n > 52 {
		t.Errorf("visible bars = %d, want ~51", n)
	}
}

func TestRenderIdle(t *testing.T) {
	lines := strings.Split(RenderIdle(20, 5), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %d", len(lines))
	}
	if !strings.Contains(lines[2], "─") {
		t.Error("middle row missing the flat line")
	}
	if strings.Contains(lines[0], "─") {
		t.Error("line drawn off the middle row")
	}
}
