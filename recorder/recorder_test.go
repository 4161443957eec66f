package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"intentdeck/audio"
	"intentdeck/blob"
	"intentdeck/encoder"
	"intentdeck/intent"
)

func tonePCM(seconds float64) []byte {
	n := int(seconds * encoder.SampleRate)
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(math.Sin(2*math.Pi*300*float64(i)/encoder.SampleRate) * 8000)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

type collector struct {
	mu    sync.Mutex
	snaps []Snapshot
	ch    chan Snapshot
}

func newCollector() *collector {
	return &collector{ch: make(chan Snapshot, 256)}
}

func (c *collector) StateChanged(s Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	c.mu.Unlock()
	c.ch <- s
}

func (c *collector) all() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Snapshot(nil), c.snaps...)
}

func (c *collector) waitState(t *testing.T, want State) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-c.ch:
			if s.State == want {
				return s
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

type fixture struct {
	rec   *Recorder
	ctx   *audio.FakeContext
	blobs *blob.Store
	bus   *intent.Bus
	sink  *collector
}

func newFixture(t *testing.T, cls intent.Classifier, tick time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   audio.NewFakeContext(tonePCM(0.5), false),
		blobs: blob.NewStore(),
		bus:   intent.NewBus(),
		sink:  newCollector(),
	}
	if cls == nil {
		cls = intent.NewFake("activate_music_none", nil)
	}
	f.rec = New(Config{
		Audio:        f.ctx,
		Blobs:        f.blobs,
		Classifier:   cls,
		Bus:          f.bus,
		Sink:         f.sink,
		TickInterval: tick,
	})
	t.Cleanup(f.rec.Close)
	return f
}

func TestStartExpiryReset(t *testing.T) {
	f := newFixture(t, nil, 10*time.Millisecond)

	if err := f.rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ready := f.sink.waitState(t, Ready)
	if !ready.HasPayload || ready.URL == "" {
		t.Fatalf("ready snapshot = %+v", ready)
	}
	if f.ctx.Open() != 0 {
		t.Errorf("capture device still open after expiry")
	}

	var counts []int
	for _, s := range f.sink.all() {
		if s.State == Recording {
			counts = append(counts, s.Countdown)
		}
	}
	want := []int{3, 2, 1, 0}
	if len(counts) != len(want) {
		t.Fatalf("countdown = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("countdown = %v, want %v", counts, want)
		}
	}

	if _, ok := f.blobs.Resolve(ready.URL); !ok {
		t.Fatal("playback URL should resolve while ready")
	}

	f.rec.Reset()
	snap := f.rec.Snapshot()
	if snap.State != Idle || snap.HasPayload || snap.URL != "" || snap.Countdown != 3 {
		t.Errorf("after reset = %+v", snap)
	}
	if _, ok := f.blobs.Resolve(ready.URL); ok {
		t.Error("URL resolves after reset")
	}
	f.rec.Reset()
	if n := f.blobs.Revocations(); n != 1 {
		t.Errorf("revocations = %d, want 1", n)
	}
}

func TestManualStopCancelsCountdown(t *testing.T) {
	f := newFixture(t, nil, 40*time.Millisecond)

	if err := f.rec.Start(); err != nil {
		t.Fatal(err)
	}
	f.rec.Stop()
	snap := f.rec.Snapshot()
	if snap.State != Ready {
		t.Fatalf("state = %s, want ready", snap.State)
	}
	stoppedAt := snap.Countdown

	time.Sleep(150 * time.Millisecond)
	for _, s := range f.sink.all() {
		if s.Countdown < stoppedAt {
			t.Fatalf("countdown decremented to %d after stop at %d", s.Countdown, stoppedAt)
		}
	}
	if f.rec.Snapshot().State != Ready {
		t.Error("state changed after manual stop")
	}
	f.rec.Stop() // no-op once ready
}

func TestStopWithoutSamplesYieldsValidWav(t *testing.T) {
	sink := newCollector()
	rec := New(Config{
		Audio:        audio.NewFakeContext(nil, false),
		Classifier:   intent.NewFake("activate_music_none", nil),
		Sink:         sink,
		TickInterval: time.Hour,
	})
	t.Cleanup(rec.Close)

	if err := rec.Start(); err != nil {
		t.Fatal(err)
	}
	rec.Stop()
	snap := rec.Snapshot()
	if snap.State != Ready || snap.Clip == nil {
		t.Fatalf("after stop = %+v", snap)
	}
	data := snap.Clip.Payload
	if len(data) != 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("payload = %q, want an empty 44-byte wav", data)
	}
	if snap.Clip.Duration != 0 || snap.Clip.Voiced {
		t.Errorf("clip = %+v", snap.Clip)
	}
}

func TestResetWhileRecording(t *testing.T) {
	f := newFixture(t, nil, time.Hour)

	if err := f.rec.Start(); err != nil {
		t.Fatal(err)
	}
	f.rec.Reset()
	if f.ctx.Open() != 0 {
		t.Error("reset left the microphone open")
	}
	snap := f.rec.Snapshot()
	if snap.State != Idle || snap.HasPayload {
		t.Errorf("after reset = %+v", snap)
	}
	if f.blobs.Live() != 0 {
		t.Errorf("live URLs = %d, want 0", f.blobs.Live())
	}
	if err := f.rec.Start(); err != nil {
		t.Errorf("restart after reset: %v", err)
	}
}

func TestStartDeviceFailure(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	f.ctx.Err = audio.ErrNoDevice

	err := f.rec.Start()
	if !errors.Is(err, audio.ErrNoDevice) {
		t.Fatalf("err = %v, want ErrNoDevice", err)
	}
	snap := f.rec.Snapshot()
	if snap.State != Idle || snap.Err == nil {
		t.Errorf("snapshot = %+v, want idle with error", snap)
	}

	f.ctx.Err = nil
	if err := f.rec.Start(); err != nil {
		t.Errorf("retry: %v", err)
	}
}

func TestStartBusy(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	if err := f.rec.Start(); err != nil {
		t.Fatal(err)
	}
	if err := f.rec.Start(); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start = %v, want ErrBusy", err)
	}
	if f.ctx.Open() != 1 {
		t.Errorf("open captures = %d, want 1", f.ctx.Open())
	}
}

func TestUploadFromAnyState(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	wav, err := encoder.EncodePCM(encoder.FormatWAV, tonePCM(0.25))
	if err != nil {
		t.Fatal(err)
	}

	if err := f.rec.Upload("a.wav", wav.Bytes()); err != nil {
		t.Fatal(err)
	}
	first := f.rec.Snapshot()
	if first.State != Ready || first.Clip.Source != SourceUpload {
		t.Fatalf("after upload from idle = %+v", first)
	}
	if first.Clip.PCM == nil || first.Clip.Duration != 250*time.Millisecond {
		t.Errorf("decoded %d samples, duration %s", len(first.Clip.PCM), first.Clip.Duration)
	}

	if err := f.rec.Upload("b.m4a", []byte("not really m4a")); err != nil {
		t.Fatal(err)
	}
	second := f.rec.Snapshot()
	if second.State != Ready || second.Clip.Name != "b.m4a" {
		t.Fatalf("after upload from ready = %+v", second)
	}
	if _, ok := f.blobs.Resolve(first.URL); ok {
		t.Error("replaced URL still resolves")
	}
	if second.Clip.PCM != nil {
		t.Error("undecodable upload should carry no PCM")
	}

	f.rec.Reset()
	if err := f.rec.Start(); err != nil {
		t.Fatal(err)
	}
	if err := f.rec.Upload("c.wav", wav.Bytes()); err != nil {
		t.Fatal(err)
	}
	if s := f.rec.Snapshot(); s.State != Ready || s.Clip.Name != "c.wav" {
		t.Errorf("after upload while recording = %+v", s)
	}
	if f.ctx.Open() != 0 {
		t.Error("upload left the microphone open")
	}
}

func TestEmptyUpload(t *testing.T) {
	f := newFixture(t, nil, time.Hour)
	if err := f.rec.Upload("x.wav", nil); !errors.Is(err, ErrEmptyUpload) {
		t.Errorf("err = %v, want ErrEmptyUpload", err)
	}
	if f.rec.Snapshot().State != Idle {
		t.Error("empty upload changed state")
	}
}

func TestAnalyzePublishes(t *testing.T) {
	cls := intent.NewFake("activate_music_none", nil)
	f := newFixture(t, cls, time.Hour)
	sub, cancel := f.bus.Subscribe()
	defer cancel()

	if _, err := f.rec.Analyze(context.Background()); !errors.Is(err, ErrNothingToAnalyze) {
		t.Fatalf("analyze while idle = %v", err)
	}
	if err := f.rec.Upload("clip.wav", []byte("RIFF....WAVE")); err != nil {
		t.Fatal(err)
	}
	recog, err := f.rec.Analyze(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if recog.Intent != "activate_music_none" || len(recog.Entities) != 0 {
		t.Errorf("recognition = %+v", recog)
	}
	snap := f.rec.Snapshot()
	if snap.State != Ready || snap.Intent != "activate_music_none" {
		t.Errorf("snapshot = %+v", snap)
	}
	select {
	case got := <-sub:
		if got.Intent != "activate_music_none" {
			t.Errorf("bus got %q", got.Intent)
		}
	default:
		t.Error("nothing published")
	}
	calls := cls.Calls()
	if len(calls) != 1 || string(calls[0].Data) != "RIFF....WAVE" {
		t.Errorf("classifier calls = %+v", calls)
	}
}

func TestAnalyzeFailureReturnsToReady(t *testing.T) {
	f := newFixture(t, intent.NewFake("", errors.New("connection refused")), time.Hour)
	sub, cancel := f.bus.Subscribe()
	defer cancel()

	if err := f.rec.Upload("clip.wav", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	recog, err := f.rec.Analyze(context.Background())
	if err == nil {
		t.Fatal("expected the cause to be returned")
	}
	if recog.Intent != intent.ErrorPlaceholder {
		t.Errorf("intent = %q", recog.Intent)
	}
	snap := f.rec.Snapshot()
	if snap.State != Ready || snap.Intent != intent.ErrorPlaceholder {
		t.Errorf("snapshot = %+v", snap)
	}
	if got := <-sub; got.Intent != intent.ErrorPlaceholder {
		t.Errorf("bus got %q", got.Intent)
	}
}

func TestAnalyzeStaleAfterReset(t *testing.T) {
	cls := intent.NewFake("bring_juice_none", nil)
	cls.Delay = 100 * time.Millisecond
	f := newFixture(t, cls, time.Hour)
	sub, cancel := f.bus.Subscribe()
	defer cancel()

	if err := f.rec.Upload("clip.wav", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	errc := make(chan error, 1)
	go func() {
		_, err := f.rec.Analyze(context.Background())
		errc <- err
	}()
	f.sink.waitState(t, Processing)
	if _, err := f.rec.Analyze(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent analyze = %v, want ErrBusy", err)
	}
	f.rec.Reset()

	if err := <-errc; !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	snap := f.rec.Snapshot()
	if snap.State != Idle || snap.Intent != "" {
		t.Errorf("stale result leaked: %+v", snap)
	}
	select {
	case got := <-sub:
		t.Errorf("stale result published: %q", got.Intent)
	default:
	}
}

func TestVoiced(t *testing.T) {
	if voiced(make([]int16, encoder.SampleRate)) {
		t.Error("silence reported as voiced")
	}
	if !voiced(encoder.Samples(tonePCM(0.1))) {
		t.Error("tone not reported as voiced")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Recording: "recording", Processing: "processing", Ready: "ready"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q", int(s), s.String())
		}
	}
}
