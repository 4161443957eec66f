package visualizer

import (
	"math/rand"
	"sync"
	"time"

	"intentdeck/audio"
	"intentdeck/blob"
	"intentdeck/log"
)

// FrameInterval paces the animation loop.
const FrameInterval = 60 * time.Millisecond

// Visualizer is the single writer of the bar panel. Every mode change
// bumps the frame-loop token, so a loop scheduled for an older mode sees
// Frame return false and stops.
type Visualizer struct {
	blobs  *blob.Store
	player audio.Player // nil when muted
	rng    *rand.Rand
	now    func() time.Time

	mu        sync.Mutex
	width     int
	height    int
	init      bool
	recording bool
	url       string
	mode      Mode
	token     uint64
	values    []uint8
	analyser  *Analyser
	clip      *blob.Blob
	started   time.Time
	playing   bool
}

func New(blobs *blob.Store, player audio.Player) *Visualizer {
	return &Visualizer{
		blobs:    blobs,
		player:   player,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		values:   make([]uint8, Bins),
		analyser: NewAnalyser(),
		width:    60,
		height:   8,
	}
}

// Update feeds the two inputs. When either differs from the last call the
// previous loop is cancelled, any playback is disconnected and the new
// mode is entered; startLoop then tells the caller to schedule frames for
// token. Unchanged inputs return startLoop false.
func (v *Visualizer) Update(isRecording bool, url string) (token uint64, startLoop bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.init && isRecording == v.recording && url == v.url {
		return v.token, false
	}
	v.init = true
	v.recording, v.url = isRecording, url
	v.token++
	v.disconnectLocked()

	v.mode = SelectMode(isRecording, url)
	clear(v.values)
	switch v.mode {
	case Simulated:
		v.simulateLocked()
	case Playback:
		v.connectLocked(url)
	}
	return v.token, v.mode != Idle
}

func (v *Visualizer) connectLocked(url string) {
	v.analyser.Reset()
	b, ok := v.blobs.Resolve(url)
	if !ok {
		log.Warnf("playback url %s no longer resolves", url)
		return
	}
	v.clip = b
	v.started = v.now()
	if v.player == nil || len(b.PCM) == 0 {
		return
	}
	if err := v.player.Play(b.PCM, b.SampleRate, true); err != nil {
		log.Warnf("playback: %v", err)
		return
	}
	v.playing = true
}

func (v *Visualizer) disconnectLocked() {
	if v.playing {
		v.player.Stop()
		v.playing = false
	}
	v.clip = nil
}

// Frame advances one animation frame for the loop holding token. It
// returns false when the loop should end: the token is stale or the mode
// has no animation.
func (v *Visualizer) Frame(token uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if token != v.token {
		return false
	}
	switch v.mode {
	case Simulated:
		v.simulateLocked()
	case Playback:
		v.analyseLocked()
	default:
		return false
	}
	return true
}

func (v *Visualizer) simulateLocked() {
	for i := range v.values {
		v.values[i] = uint8(v.rng.Float64()*150 + 50)
	}
}

func (v *Visualizer) analyseLocked() {
	if v.clip == nil || len(v.clip.PCM) == 0 || v.clip.SampleRate <= 0 {
		return
	}
	elapsed := v.now().Sub(v.started)
	pos := int(elapsed.Seconds()*float64(v.clip.SampleRate)) % len(v.clip.PCM)
	v.analyser.ByteFrequencyData(windowAt(v.clip.PCM, pos, FFTSize), v.values)
}

// Resize resyncs the panel to its displayed size.
func (v *Visualizer) Resize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.width, v.height = max(1, width), max(1, height)
}

func (v *Visualizer) Mode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

func (v *Visualizer) Token() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.token
}

// Values returns a copy of the current bar heights.
func (v *Visualizer) Values() []uint8 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]uint8(nil), v.values...)
}

func (v *Visualizer) View() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch v.mode {
	case Simulated:
		return RenderBars(v.values, v.width, v.height, SimulatedGradient)
	case Playback:
		return RenderBars(v.values, v.width, v.height, PlaybackGradient)
	}
	return RenderIdle(v.width, v.height)
}

// Close ends any loop and disconnects playback.
func (v *Visualizer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.token++
	v.disconnectLocked()
	v.mode = Idle
	v.init = false
}
