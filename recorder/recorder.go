package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"intentdeck/audio"
	"intentdeck/blob"
	"intentdeck/encoder"
	"intentdeck/intent"
	"intentdeck/log"
)

var (
	// ErrBusy rejects an operation that the current state does not allow.
	ErrBusy             = errors.New("recorder busy")
	// ErrNothingToAnalyze means there is no ready payload.
	ErrNothingToAnalyze = errors.New("no audio to analyze")
	// ErrStale marks a result for a recording that was reset or replaced.
	ErrStale            = errors.New("result superseded by a newer recording")
	// ErrEmptyUpload rejects a zero-byte upload.
	ErrEmptyUpload      = errors.New("uploaded file is empty")
)

// Defaults applied by New to zero Config fields.
const (
	DefaultCountdown   = 3
	DefaultTick        = time.Second
	DefaultUploadLimit = 10 << 20
)

// State is the recorder lifecycle phase.
type State int

const (
	Idle State = iota
	Recording
	Processing
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sink receives every state change. Snapshots carry a sequence number;
// callbacks can arrive from several goroutines, so a receiver that cares
// about order should drop snapshots older than the last one it saw.
type Sink interface {
	StateChanged(Snapshot)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Snapshot)

func (f SinkFunc) StateChanged(s Snapshot) { f(s) }

// Snapshot is a consistent copy of the recorder state. Clip is nil until
// something has been recorded or uploaded.
type Snapshot struct {
	Seq        uint64
	State      State
	Countdown  int
	URL        string
	Intent     string
	HasPayload bool
	Clip       *Clip
	Err        error
}

// IsRecording is the visualizer's recording input.
func (s Snapshot) IsRecording() bool { return s.State == Recording }

// Config wires a Recorder to its device, classifier and listeners.
type Config struct {
	Audio      audio.Context
	Device     *audio.DeviceInfo
	Blobs      *blob.Store
	Classifier intent.Classifier
	Bus        *intent.Bus
	Sink       Sink

	Format       string
	Countdown    int
	TickInterval time.Duration
	UploadLimit  int64
}

// Recorder owns the capture and upload lifecycle:
// idle -> recording -> ready -> (idle | processing -> ready), with upload
// jumping from any state to ready.
type Recorder struct {
	cfg Config

	mu        sync.Mutex
	state     State
	countdown int
	sess      *session
	rec       *Clip
	intent    string
	gen       uint64
	seq       uint64
	lastErr   error
}

func New(cfg Config) *Recorder {
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTick
	}
	if cfg.UploadLimit == 0 {
		cfg.UploadLimit = DefaultUploadLimit
	}
	if cfg.Format == "" {
		cfg.Format = encoder.FormatWAV
	}
	if cfg.Blobs == nil {
		cfg.Blobs = blob.NewStore()
	}
	return &Recorder{cfg: cfg, countdown: cfg.Countdown}
}

func (r *Recorder) Blobs() *blob.Store { return r.cfg.Blobs }

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Recorder) snapshotLocked() Snapshot {
	r.seq++
	s := Snapshot{
		Seq:        r.seq,
		State:      r.state,
		Countdown:  r.countdown,
		Intent:     r.intent,
		HasPayload: r.rec != nil,
		Clip:       r.rec,
		Err:        r.lastErr,
	}
	if r.rec != nil {
		s.URL = r.rec.URL
	}
	return s
}

func (r *Recorder) notify(s Snapshot) {
	if r.cfg.Sink != nil {
		r.cfg.Sink.StateChanged(s)
	}
}

// Start opens the microphone and begins the countdown. It fails with
// ErrBusy unless the recorder is idle. A device failure is logged and
// returned and the recorder stays idle.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.state != Idle {
		r.mu.Unlock()
		return ErrBusy
	}

	dev, err := r.cfg.Audio.NewCapture(r.cfg.Device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err == nil {
		s := newSession(dev, r.gen+1)
		dev.SetCallback(s.append)
		if err = dev.Start(); err != nil {
			dev.ClearCallback()
			dev.Close()
		} else {
			r.gen++
			r.sess = s
			r.state = Recording
			r.countdown = r.cfg.Countdown
			r.intent = ""
			r.lastErr = nil
			snap := r.snapshotLocked()
			r.mu.Unlock()

			log.SessionStart(dev.DeviceName(), r.cfg.Format, r.cfg.Countdown)
			r.notify(snap)
			go r.runCountdown(s)
			return nil
		}
	}

	err = fmt.Errorf("microphone: %w", err)
	r.lastErr = err
	snap := r.snapshotLocked()
	r.mu.Unlock()

	log.Errorf("error accessing microphone: %v", err)
	r.notify(snap)
	return err
}

// runCountdown decrements once per tick while s is the active session
// and finishes the session when the count reaches zero.
func (r *Recorder) runCountdown(s *session) {
	t := time.NewTicker(r.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
		}

		r.mu.Lock()
		if r.sess != s {
			r.mu.Unlock()
			return
		}
		r.countdown--
		expired := r.countdown <= 0
		if expired {
			r.countdown = 0
			r.sess = nil
			s.cancel()
		}
		snap := r.snapshotLocked()
		r.mu.Unlock()

		r.notify(snap)
		if expired {
			r.finish(s, "expired")
			return
		}
	}
}

// Stop ends the active capture early. The countdown is cancelled before
// the session is finished, so no further ticks are observed.
func (r *Recorder) Stop() {
	r.mu.Lock()
	s := r.sess
	if r.state != Recording || s == nil {
		r.mu.Unlock()
		return
	}
	r.sess = nil
	s.cancel()
	r.mu.Unlock()

	r.finish(s, "stopped")
}

// finish releases the device and turns the buffered chunks into the
// current recording. The result is dropped if the recorder moved on
// (reset or upload) while the session was winding down.
func (r *Recorder) finish(s *session, reason string) {
	s.release()
	pcm := s.bytes()

	enc, err := encoder.EncodePCM(r.cfg.Format, pcm)
	var rec *Clip
	if err == nil {
		samples := encoder.Samples(pcm)
		rec = newClip(SourceMic, "recording."+r.cfg.Format, enc.MIME(), enc.Bytes(), samples, encoder.SampleRate)
		log.SessionEnd(reason, rec.Duration, len(rec.Payload))
	}

	r.mu.Lock()
	if r.gen != s.gen {
		r.mu.Unlock()
		return
	}
	if err != nil {
		r.lastErr = fmt.Errorf("encode: %w", err)
		r.state = Idle
		r.countdown = r.cfg.Countdown
		snap := r.snapshotLocked()
		r.mu.Unlock()
		log.Errorf("encoding recording: %v", err)
		r.notify(snap)
		return
	}
	rec.URL = r.cfg.Blobs.CreateURL(rec.blob())
	r.rec = rec
	r.state = Ready
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(snap)
}

// Upload replaces the current payload with data, from any state. The
// bytes are sent to the classifier unchanged; decoding only feeds the
// playback visualizer, so a decode failure is logged and tolerated.
func (r *Recorder) Upload(name string, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyUpload
	}
	if r.cfg.UploadLimit > 0 && int64(len(data)) > r.cfg.UploadLimit {
		log.Warnf("upload %s is %.1f MB, above the %d MB guideline", name, float64(len(data))/(1<<20), r.cfg.UploadLimit>>20)
	}
	rec := decodeUpload(name, data)

	r.mu.Lock()
	s := r.sess
	r.sess = nil
	if s != nil {
		s.cancel()
	}
	var oldURL string
	if r.rec != nil {
		oldURL = r.rec.URL
	}
	rec.URL = r.cfg.Blobs.CreateURL(rec.blob())
	r.gen++
	r.rec = rec
	r.intent = ""
	r.lastErr = nil
	r.countdown = r.cfg.Countdown
	r.state = Ready
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if s != nil {
		s.release()
	}
	if oldURL != "" {
		r.cfg.Blobs.Revoke(oldURL)
	}
	log.Infof("uploaded %s (%d bytes, %s)", name, len(data), rec.MIME)
	r.notify(snap)
	return nil
}

// Analyze submits the current payload and returns to ready whatever the
// outcome. The recognition, which on failure carries the error
// placeholder, is published on the bus and returned with the cause. A
// result that arrives after a reset or a new upload is discarded with
// ErrStale.
func (r *Recorder) Analyze(ctx context.Context) (intent.Recognition, error) {
	r.mu.Lock()
	switch {
	case r.state == Processing || r.state == Recording:
		r.mu.Unlock()
		return intent.Recognition{}, ErrBusy
	case r.state != Ready || r.rec == nil:
		r.mu.Unlock()
		return intent.Recognition{}, ErrNothingToAnalyze
	}
	rec := r.rec
	gen := r.gen
	r.state = Processing
	r.lastErr = nil
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(snap)

	recog, res, err := intent.Submit(ctx, r.cfg.Classifier, rec.payload())
	r.logAnalysis(rec, recog, res, err)

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		log.Warnf("dropping %s result for a superseded recording", recog.Intent)
		return recog, ErrStale
	}
	r.state = Ready
	r.intent = recog.Intent
	if err != nil {
		r.lastErr = fmt.Errorf("analyze: %w", err)
	}
	snap = r.snapshotLocked()
	r.mu.Unlock()

	if r.cfg.Bus != nil {
		r.cfg.Bus.Publish(recog)
	}
	r.notify(snap)
	return recog, err
}

func (r *Recorder) logAnalysis(rec *Clip, recog intent.Recognition, res *intent.Result, err error) {
	if err != nil {
		log.Errorf("error analyzing audio: %v", err)
	}
	m := log.AnalysisMetrics{
		Source:      rec.Source,
		Format:      rec.MIME,
		PayloadKB:   float64(len(rec.Payload)) / 1024,
		AudioLength: rec.Duration,
		Voiced:      rec.Voiced,
	}
	if res != nil {
		m.Status = res.StatusCode
		if res.StatusCode >= 300 {
			log.Warnf("intent endpoint answered %d", res.StatusCode)
		}
		if nm := res.Metrics; nm != nil {
			m.DNS, m.TLS, m.TTFB, m.Total = nm.DNS, nm.TLS, nm.TTFB, nm.Total
			m.ConnReused = nm.ConnReused
		}
	}
	log.Analysis(m, r.cfg.Classifier.Name(), recog.Intent)
	log.IntentText(rec.Source, recog.Intent)
}

// Reset returns to idle from any state. An active capture is stopped
// with its countdown, and the playback URL is revoked.
func (r *Recorder) Reset() {
	r.mu.Lock()
	s, url := r.clearLocked()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.releaseAfterClear(s, url)
	r.notify(snap)
}

// Close releases the microphone and the playback URL without notifying.
func (r *Recorder) Close() {
	r.mu.Lock()
	s, url := r.clearLocked()
	r.mu.Unlock()
	r.releaseAfterClear(s, url)
}

func (r *Recorder) clearLocked() (*session, string) {
	s := r.sess
	r.sess = nil
	if s != nil {
		s.cancel()
	}
	var url string
	if r.rec != nil {
		url = r.rec.URL
	}
	r.rec = nil
	r.intent = ""
	r.lastErr = nil
	r.countdown = r.cfg.Countdown
	r.gen++
	r.state = Idle
	return s, url
}

func (r *Recorder) releaseAfterClear(s *session, url string) {
	if s != nil {
		s.release()
		log.SessionEnd("reset", 0, 0)
	}
	if url != "" {
		r.cfg.Blobs.Revoke(url)
	}
}
