package beep

import "testing"

func TestSamples(t *testing.T) {
	for _, s := range []Sound{Start, Tick, End, Error} {
		if len(Samples(s)) == 0 {
			t.Errorf("sound %d has no samples", s)
		}
	}
	if Samples(Sound(42)) != nil {
		t.Error("unknown sound should have no samples")
	}
}

func TestTickDecays(t *testing.T) {
	s := generateTick(1000, 0.1, 0.5, 60)
	if len(s) != sampleRate/10 {
		t.Fatalf("len = %d", len(s))
	}
	peak := func(x []int16) int16 {
		var m int16
		for _, v := range x {
			if v > m {
				m = v
			}
		}
		return m
	}
	if head, tail := peak(s[:400]), peak(s[len(s)-400:]); tail >= head {
		t.Errorf("tail peak %d not below head peak %d", tail, head)
	}
}

func TestDoubleBeepHasGap(t *testing.T) {
	one := generateTick(errorFreq, 0.08, errorVolume, errorDecay)
	two := generateDoubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	gap := int(sampleRate * 0.05)
	if len(two) != 2*len(one)+gap {
		t.Fatalf("len = %d, want %d", len(two), 2*len(one)+gap)
	}
	for _, v := range two[len(one) : len(one)+gap] {
		if v != 0 {
			t.Fatal("gap is not silent")
		}
	}
}

func TestDisable(t *testing.T) {
	Disable()
	if !Disabled() {
		t.Fatal("Disable had no effect")
	}
	PlayError() // must return without touching a device
}
